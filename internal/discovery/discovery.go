// Package discovery lists the Bluetooth devices already paired with this
// host. It never scans or pairs.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrTransportUnavailable = errors.New("bluetooth unavailable")
)

type PairedDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Capability string

const CapabilityBluetoothScan Capability = "bluetooth_scan"

type PermissionStatus int

const (
	Denied PermissionStatus = iota
	Granted
)

func (p PermissionStatus) String() string {
	if p == Granted {
		return "granted"
	}
	return "denied"
}

// PermissionChecker reports, and where the platform allows it requests,
// access to a capability.
type PermissionChecker interface {
	CheckOrRequest(ctx context.Context, c Capability) (PermissionStatus, error)
}

// Platform is the host's Bluetooth stack.
type Platform interface {
	// Available returns ErrTransportUnavailable when the radio is off or
	// absent.
	Available(ctx context.Context) error
	PairedDevices(ctx context.Context) ([]PairedDevice, error)
}

type Service struct {
	platform    Platform
	permissions PermissionChecker
	logger      *logrus.Logger
}

func NewService(platform Platform, permissions PermissionChecker, logger *logrus.Logger) *Service {
	return &Service{platform: platform, permissions: permissions, logger: logger}
}

// ListPairedDevices returns a snapshot of the bonded devices. Every call
// checks the permission again.
func (s *Service) ListPairedDevices(ctx context.Context) ([]PairedDevice, error) {
	status, err := s.permissions.CheckOrRequest(ctx, CapabilityBluetoothScan)
	if err != nil {
		return nil, fmt.Errorf("checking %s permission: %w", CapabilityBluetoothScan, err)
	}
	if status != Granted {
		s.logger.WithField("capability", CapabilityBluetoothScan).Warn("Permission denied")
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, CapabilityBluetoothScan)
	}

	if err := s.platform.Available(ctx); err != nil {
		if errors.Is(err, ErrTransportUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	devices, err := s.platform.PairedDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading paired devices: %w", err)
	}
	s.logger.WithField("count", len(devices)).Debug("Listed paired devices")
	return devices, nil
}

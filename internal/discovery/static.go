package discovery

import (
	"context"
	"sync"
)

// Static is a fixed device set.
type Static struct {
	Devices []PairedDevice
	// Off makes Available fail.
	Off bool
}

func (s Static) Available(context.Context) error {
	if s.Off {
		return ErrTransportUnavailable
	}
	return nil
}

func (s Static) PairedDevices(context.Context) ([]PairedDevice, error) {
	out := make([]PairedDevice, len(s.Devices))
	copy(out, s.Devices)
	return out, nil
}

// StaticPermissions grants exactly the capabilities it was told to.
type StaticPermissions struct {
	mu      sync.RWMutex
	granted map[Capability]bool
}

func NewStaticPermissions(granted ...Capability) *StaticPermissions {
	p := &StaticPermissions{granted: make(map[Capability]bool)}
	for _, c := range granted {
		p.granted[c] = true
	}
	return p
}

func (p *StaticPermissions) Grant(c Capability) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.granted[c] = true
}

func (p *StaticPermissions) Revoke(c Capability) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.granted, c)
}

func (p *StaticPermissions) CheckOrRequest(_ context.Context, c Capability) (PermissionStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.granted[c] {
		return Granted, nil
	}
	return Denied, nil
}

var (
	_ Platform          = Static{}
	_ PermissionChecker = (*StaticPermissions)(nil)
)

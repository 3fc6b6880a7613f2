package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	DefaultBlueZDir = "/var/lib/bluetooth"
	DefaultSysfsDir = "/sys/class/bluetooth"
)

var macAddress = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// BlueZ reads adapter state from sysfs and bonded devices from bluetoothd's
// storage directory.
type BlueZ struct {
	StateDir string
	SysfsDir string
}

func NewBlueZ(stateDir, sysfsDir string) *BlueZ {
	if stateDir == "" {
		stateDir = DefaultBlueZDir
	}
	if sysfsDir == "" {
		sysfsDir = DefaultSysfsDir
	}
	return &BlueZ{StateDir: stateDir, SysfsDir: sysfsDir}
}

// Available succeeds when at least one hci adapter exists and is not
// soft-blocked by rfkill.
func (b *BlueZ) Available(ctx context.Context) error {
	entries, err := os.ReadDir(b.SysfsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: no bluetooth adapters", ErrTransportUnavailable)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", b.SysfsDir, err)
	}

	adapters := lo.Filter(entries, func(e fs.DirEntry, _ int) bool {
		return strings.HasPrefix(e.Name(), "hci") && !strings.Contains(e.Name(), ":")
	})
	if len(adapters) == 0 {
		return fmt.Errorf("%w: no bluetooth adapters", ErrTransportUnavailable)
	}

	for _, a := range adapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.softBlocked(a.Name()) {
			return nil
		}
	}
	return fmt.Errorf("%w: radio is blocked", ErrTransportUnavailable)
}

func (b *BlueZ) softBlocked(adapter string) bool {
	matches, _ := filepath.Glob(filepath.Join(b.SysfsDir, adapter, "rfkill*", "soft"))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err == nil && strings.TrimSpace(string(data)) == "1" {
			return true
		}
	}
	return false
}

// PairedDevices lists devices with a stored link key on any adapter, sorted
// by name.
func (b *BlueZ) PairedDevices(ctx context.Context) ([]PairedDevice, error) {
	adapters, err := os.ReadDir(b.StateDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.StateDir, err)
	}

	var devices []PairedDevice
	for _, adapter := range adapters {
		if !adapter.IsDir() || !macAddress.MatchString(adapter.Name()) {
			continue
		}
		found, err := b.adapterDevices(ctx, filepath.Join(b.StateDir, adapter.Name()))
		if err != nil {
			return nil, err
		}
		devices = append(devices, found...)
	}

	devices = lo.UniqBy(devices, func(d PairedDevice) string { return d.ID })
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices, nil
}

func (b *BlueZ) adapterDevices(ctx context.Context, dir string) ([]PairedDevice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var devices []PairedDevice
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() || !macAddress.MatchString(e.Name()) {
			continue
		}
		info, err := readInfo(filepath.Join(dir, e.Name(), "info"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.bonded() {
			continue
		}
		id := strings.ToUpper(e.Name())
		name := info.get("General", "Alias")
		if name == "" {
			name = info.get("General", "Name")
		}
		if name == "" {
			name = id
		}
		devices = append(devices, PairedDevice{ID: id, Name: name})
	}
	return devices, nil
}

// deviceInfo is a parsed bluetoothd info file: INI sections of key=value.
type deviceInfo map[string]map[string]string

func (d deviceInfo) get(section, key string) string {
	return d[section][key]
}

func (d deviceInfo) bonded() bool {
	_, link := d["LinkKey"]
	_, ltk := d["LongTermKey"]
	return link || ltk
}

func readInfo(path string) (deviceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info := deviceInfo{}
	section := ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";"):
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			section = strings.TrimSpace(line[1 : len(line)-1])
			if info[section] == nil {
				info[section] = map[string]string{}
			}
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok || section == "" {
				continue
			}
			info[section][strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return info, nil
}

// FilePermissions grants bluetooth_scan when the current user can read the
// BlueZ storage directory. A missing directory counts as granted; Available
// reports the absent stack.
type FilePermissions struct {
	Dir string
}

func (p FilePermissions) CheckOrRequest(_ context.Context, c Capability) (PermissionStatus, error) {
	if c != CapabilityBluetoothScan {
		return Denied, nil
	}
	_, err := os.ReadDir(p.Dir)
	switch {
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return Granted, nil
	case errors.Is(err, fs.ErrPermission):
		return Denied, nil
	default:
		return Denied, fmt.Errorf("reading %s: %w", p.Dir, err)
	}
}

var (
	_ Platform          = (*BlueZ)(nil)
	_ PermissionChecker = FilePermissions{}
)

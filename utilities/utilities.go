// Package utilities reports the video adapter the server renders with and
// the platform features it supports.
//
// On Initialize it creates a HAL instance, picks an adapter (discrete or
// integrated GPUs first) and opens a device to learn its limits. The noop
// backend is used unless another one is requested, so a headless server
// still reports a consistent adapter.
package utilities

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/renderserver/rid"
)

// Option configures Utilities.
type Option func(*Utilities)

// WithBackend selects the HAL backend to query. The backend must be
// registered with hal; the noop backend is used when it is not.
func WithBackend(b gputypes.Backend) Option {
	return func(u *Utilities) { u.backend = &b }
}

// Utilities implements rendering.Utilities over a HAL adapter.
type Utilities struct {
	backend *gputypes.Backend

	mu       sync.RWMutex
	instance hal.Instance
	device   hal.Device
	info     gputypes.AdapterInfo
	limits   gputypes.Limits
	opened   bool
}

// New returns Utilities. Adapter queries return empty values until
// Initialize runs.
func New(opts ...Option) *Utilities {
	u := &Utilities{}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Utilities) Name() string                  { return "utilities" }
func (u *Utilities) CanCreateResourcesAsync() bool { return true }
func (u *Utilities) SetLogger(l *slog.Logger)      { setLogger(l) }

// Utilities owns no resources.
func (u *Utilities) Owns(rid.RID) bool { return false }
func (u *Utilities) Free(rid.RID) bool { return false }

// Initialize selects an adapter and opens a device on it.
func (u *Utilities) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.opened {
		return nil
	}

	instance, err := u.createInstance()
	if err != nil {
		return fmt.Errorf("utilities: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("utilities: no adapters found")
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("utilities: open device: %w", err)
	}

	u.instance = instance
	u.device = openDev.Device
	u.info = selected.Info
	u.limits = limits
	u.opened = true
	slogger().Info("utilities: adapter selected",
		"adapter", u.info.Name, "vendor", u.info.Vendor, "type", u.info.DeviceType)
	return nil
}

func (u *Utilities) createInstance() (hal.Instance, error) {
	if u.backend != nil {
		if b, ok := hal.GetBackend(*u.backend); ok {
			return b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		}
		slogger().Warn("utilities: backend not available, using noop", "backend", *u.backend)
	}
	return noop.API{}.CreateInstance(nil)
}

// Finalize releases the device and instance. It is safe to call more than
// once.
func (u *Utilities) Finalize() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.opened {
		return
	}
	u.device.Destroy()
	u.instance.Destroy()
	u.device, u.instance = nil, nil
	u.opened = false
}

// Adapter returns the selected adapter description.
func (u *Utilities) Adapter() gputypes.AdapterInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.info
}

// MaxTextureSize returns the largest 2D texture dimension the device
// accepts, or 0 before Initialize.
func (u *Utilities) MaxTextureSize() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if !u.opened {
		return 0
	}
	return int(u.limits.MaxTextureDimension2D)
}

func (u *Utilities) VideoAdapterName() string {
	return u.Adapter().Name
}

func (u *Utilities) VideoAdapterVendor() string {
	return u.Adapter().Vendor
}

// VideoAdapterAPIVersion returns the backend and driver of the adapter.
func (u *Utilities) VideoAdapterAPIVersion() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if !u.opened {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v %s", u.info.Backend, u.info.Driver))
}

// IsLowEnd reports whether the adapter is a CPU or unknown device.
func (u *Utilities) IsLowEnd() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.opened && lowEnd(u.info.DeviceType)
}

func lowEnd(t gputypes.DeviceType) bool {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU, gputypes.DeviceTypeVirtualGPU:
		return false
	}
	return true
}

// HasOSFeature reports texture compression families and platform tags.
// Desktop platforms support s3tc and bptc, mobile ones etc2 and astc.
func (u *Utilities) HasOSFeature(feature string) bool {
	return osFeature(runtime.GOOS, feature)
}

func osFeature(goos, feature string) bool {
	mobile := goos == "android" || goos == "ios"
	switch strings.ToLower(feature) {
	case "s3tc", "bptc", "pc":
		return !mobile
	case "etc2", "astc", "mobile":
		return mobile
	case "web":
		return goos == "js" || goos == "wasip1"
	}
	return strings.EqualFold(feature, goos)
}

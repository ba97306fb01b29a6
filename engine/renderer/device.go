package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/buffers"
	"github.com/cogentcore/webgpu/wgpu"
)

// Device is a headless wgpu device used to back the shared buffers with GPU memory.
// It owns no surface; presentation belongs to the embedding application.
type Device struct {
	mu       sync.Mutex
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

// NewHeadlessDevice requests an adapter and device without a compatible surface.
//
// Parameters:
//   - forceFallbackAdapter: request the software fallback adapter
//
// Returns:
//   - *Device: the device
//   - error: an error if no adapter or device is available
func NewHeadlessDevice(forceFallbackAdapter bool) (*Device, error) {
	d := &Device{instance: wgpu.CreateInstance(nil)}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Headless Device",
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	return d, nil
}

// Backends returns a factory that allocates buffers on this device.
func (d *Device) Backends() buffers.BackendFactory {
	return buffers.WGPUBackends(d.device, d.queue)
}

// Release frees the device, adapter and instance.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

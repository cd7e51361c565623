package mount

import (
	"context"
	"sort"
	"sync"

	"github.com/openscope/mountd/coords"
)

// Registry is the process-wide table of device instances, keyed by the
// protocol's non-negative device number. It is the only component that
// knows about all devices.
type Registry struct {
	// ctx parents every serial port's reconnect loop.
	ctx context.Context

	mu        sync.RWMutex
	instances map[int]*Instance
}

func NewRegistry(ctx context.Context) *Registry {
	return &Registry{ctx: ctx, instances: make(map[int]*Instance)}
}

// Create registers a new device instance at the given number. It fails
// with a ValidationError for a negative number, a duplicate registration,
// or a missing name, and never disturbs an existing instance.
func (r *Registry) Create(number int, cfg Config, name string) (*Instance, error) {
	if number < 0 {
		return nil, validationf("device number %d is negative", number)
	}
	if name == "" {
		return nil, validationf("device %d: name is required", number)
	}
	port, err := r.newPort(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[number]; ok {
		port.Close()
		return nil, validationf("device %d is already registered", number)
	}
	inst := newInstance(number, cfg, name, port)
	r.instances[number] = inst
	return inst, nil
}

func (r *Registry) newPort(cfg Config) (Port, error) {
	switch cfg.Mount {
	case coords.Simulated:
		return NewSimulatedPort(cfg.ParkAxes), nil
	case coords.SerialHardware:
		if cfg.SerialPort == "" {
			return nil, validationf("serial mount requires a port name")
		}
		baud := cfg.SerialBaud
		if baud == 0 {
			baud = 9600
		}
		return OpenSerialPort(r.ctx, cfg.SerialPort, baud), nil
	}
	return nil, validationf("unknown mount kind %d", cfg.Mount)
}

// Get looks up a device instance. Absence is a normal result, not an
// error; callers reject the protocol request themselves.
func (r *Registry) Get(number int) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[number]
	return inst, ok
}

// Remove tears down the instance at the given number: any in-flight slew
// is cancelled and settled before hardware resources are released. It
// reports whether an instance was removed. The number is immediately
// reusable afterwards.
func (r *Registry) Remove(ctx context.Context, number int) bool {
	r.mu.Lock()
	inst, ok := r.instances[number]
	if ok {
		delete(r.instances, number)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	if err := inst.close(ctx); err != nil {
		// The instance is already unregistered; the error is advisory.
		inst.setLastError(err)
	}
	return true
}

// All returns a snapshot of the registered instances ordered by device
// number. The slice is a defensive copy; iteration never races with
// concurrent registration or removal.
func (r *Registry) All() []*Instance {
	r.mu.RLock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// IsAvailable reports whether number is valid and unregistered.
func (r *Registry) IsAvailable(number int) bool {
	if number < 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instances[number]
	return !ok
}

// NextAvailable returns the first unused device number, scanning from 0.
func (r *Registry) NextAvailable() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := 0; ; i++ {
		if _, ok := r.instances[i]; !ok {
			return i
		}
	}
}

// Close removes every registered instance, settling their slews.
func (r *Registry) Close(ctx context.Context) {
	for _, inst := range r.All() {
		r.Remove(ctx, inst.Number)
	}
}

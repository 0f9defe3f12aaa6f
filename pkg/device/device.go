// Package device defines the accelerator-selection boundary used by launchers
// alongside a drained run configuration. The sweep engine and watcher never
// call into this package; it only documents the contract a compute framework
// integration must satisfy.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Framework identifies a compute framework integration.
type Framework string

const (
	FrameworkTensorFlow Framework = "tf"
	FrameworkPyTorch    Framework = "torch"
)

// ErrUnsupportedFramework is returned for unrecognized framework identifiers.
var ErrUnsupportedFramework = errors.New("unsupported framework")

// Handle identifies one accelerator device.
type Handle struct {
	Name  string
	Index int
}

// Lister enumerates the accelerators visible to a framework.
type Lister interface {
	ListDevices(ctx context.Context) ([]Handle, error)
}

// Selector restricts the process to a single accelerator by index.
type Selector interface {
	SelectDevice(ctx context.Context, index int) error
}

// Provider is a complete framework integration.
type Provider interface {
	Lister
	Selector
}

// Registry maps framework identifiers to providers.
type Registry struct {
	providers map[Framework]Provider
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{providers: map[Framework]Provider{}}
}

// Register adds or replaces the provider for a framework.
func (r *Registry) Register(fw Framework, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[fw] = p
}

// Get returns the provider for a framework, or [ErrUnsupportedFramework].
func (r *Registry) Get(fw Framework) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[fw]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFramework, fw)
	}

	return p, nil
}

// ListDevices enumerates devices for a framework via the registry.
func (r *Registry) ListDevices(ctx context.Context, fw Framework) ([]Handle, error) {
	p, err := r.Get(fw)
	if err != nil {
		return nil, err
	}

	return p.ListDevices(ctx)
}

// SelectDevice selects a device for a framework via the registry.
func (r *Registry) SelectDevice(ctx context.Context, fw Framework, index int) error {
	p, err := r.Get(fw)
	if err != nil {
		return err
	}

	return p.SelectDevice(ctx, index)
}

package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]BackendFactory)
)

// RegisterBackend makes a Backend available to discovery under name.
// It is meant to be called from the init function of the package
// providing the backend. It panics if name is empty, factory is nil or
// name is registered twice.
func RegisterBackend(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if name == "" {
		panic("spanrunner: RegisterBackend name is empty")
	}
	if factory == nil {
		panic("spanrunner: RegisterBackend factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("spanrunner: RegisterBackend called twice for backend " + name)
	}
	registry[name] = factory
}

// RegisteredBackends returns the sorted names of the registered backends.
func RegisteredBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// discoverBackend resolves the backend to install as singleton. Exactly one
// usable candidate wins; zero or several fall back to a GoroutineBackend.
func discoverBackend(cfg Config) Backend {
	log := logger()

	var candidates []string
	for _, name := range RegisteredBackends() {
		if len(cfg.Backends) == 0 || slices.Contains(cfg.Backends, name) {
			candidates = append(candidates, name)
		}
	}
	for _, name := range cfg.Backends {
		if !slices.Contains(candidates, name) {
			log.Warn("configured backend is not registered", F("backend", name))
		}
	}

	if len(candidates) != 1 {
		if len(candidates) == 0 {
			log.Debug("no backend registered, falling back to default")
		} else {
			log.Warn("more than one backend registered, falling back to default", F("candidates", candidates))
		}
		return NewGoroutineBackend()
	}

	name := candidates[0]
	registryMu.RLock()
	factory := registry[name]
	registryMu.RUnlock()

	b, err := newBackend(factory)
	if err != nil || b == nil {
		if err == nil {
			err = errors.New("factory returned nil backend")
		}
		log.Warn("backend factory failed, falling back to default", F("backend", name), F("error", err))
		return NewGoroutineBackend()
	}
	log.Debug("backend discovered", F("backend", name))
	return b
}

func newBackend(factory BackendFactory) (b Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("factory panicked: %v", r)
		}
	}()
	return factory()
}

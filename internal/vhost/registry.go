package vhost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// Factory is a constructor function that providers register to create themselves.
type Factory func(log logr.Logger, settings map[string]string) (Provider, error)

var (
	mu        sync.Mutex
	factories = make(map[string]Factory)
)

// Register is called by provider packages in their init() to self-register.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("vhost: provider %q already registered", name))
	}
	factories[name] = f
}

// Registered returns the names of all registered providers, sorted.
func Registered() []string {
	mu.Lock()
	defer mu.Unlock()
	return registeredLocked()
}

func registeredLocked() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewProvider looks up the named provider in the registry and creates it.
func NewProvider(name string, log logr.Logger, settings map[string]string) (Provider, error) {
	mu.Lock()
	f, ok := factories[name]
	var names []string
	if !ok {
		names = registeredLocked()
	}
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported vhost provider: %q (registered: %v)", name, names)
	}
	return f(log, settings)
}

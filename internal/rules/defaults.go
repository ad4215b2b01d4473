package rules

import (
	"fmt"
	"sync"
)

// Installer adds a set of rules to a registry.
type Installer func(*Registry) error

var (
	installersMu sync.Mutex
	installers   []namedInstaller
)

type namedInstaller struct {
	name    string
	install Installer
}

// AddDefault registers an installer used by Default. Rule packages call it
// from init, the same way database drivers register themselves.
func AddDefault(name string, install Installer) {
	installersMu.Lock()
	defer installersMu.Unlock()
	installers = append(installers, namedInstaller{name: name, install: install})
}

// Default builds a registry with every installer added through AddDefault,
// in registration order.
func Default() (*Registry, error) {
	installersMu.Lock()
	list := append([]namedInstaller(nil), installers...)
	installersMu.Unlock()

	reg := NewRegistry()
	for _, in := range list {
		if err := in.install(reg); err != nil {
			return nil, fmt.Errorf("install %s rules: %w", in.name, err)
		}
	}
	return reg, nil
}

// MustDefault is Default that panics. A registry that cannot be built is a
// deployment error, not a user data error.
func MustDefault() *Registry {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	return reg
}

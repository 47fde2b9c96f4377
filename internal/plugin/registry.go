package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrPluginExists   = errors.New("plugin already registered")
	ErrPluginNotFound = errors.New("plugin not found")
)

// Runtime carries host-supplied plumbing a factory may thread into the
// plugin it builds. Zero value is usable.
type Runtime struct {
	Seed   int64
	Logger *zap.Logger
}

// Factory builds a plugin from hyperparameter overrides keyed by the axis
// names its hyperparameter space declares.
type Factory func(overrides map[string]any, rt Runtime) (Plugin, error)

var pluginRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("plugin name is required")
	}
	if factory == nil {
		return errors.New("plugin factory is required")
	}

	pluginRegistry.mu.Lock()
	defer pluginRegistry.mu.Unlock()

	if _, exists := pluginRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}
	pluginRegistry.m[name] = factory
	return nil
}

func Resolve(name string, overrides map[string]any, rt Runtime) (Plugin, error) {
	pluginRegistry.mu.RLock()
	factory, ok := pluginRegistry.m[name]
	pluginRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return factory(overrides, rt)
}

func List() []string {
	pluginRegistry.mu.RLock()
	defer pluginRegistry.mu.RUnlock()

	names := make([]string, 0, len(pluginRegistry.m))
	for name := range pluginRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers the plugins shipped with this module. Safe to
// call more than once.
func RegisterBuiltins() error {
	err := Register("nflow", func(overrides map[string]any, rt Runtime) (Plugin, error) {
		cfg := DefaultNFlowConfig()
		cfg.Seed = rt.Seed
		cfg.Logger = rt.Logger
		if err := applyOverrides(&cfg, overrides); err != nil {
			return nil, err
		}
		return NewNFlow(cfg)
	})
	if err != nil && !errors.Is(err, ErrPluginExists) {
		return err
	}
	return nil
}

func resetRegistryForTests() {
	pluginRegistry.mu.Lock()
	defer pluginRegistry.mu.Unlock()
	pluginRegistry.m = make(map[string]Factory)
}

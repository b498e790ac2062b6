package logger

import (
	"sync"
)

// Component names of the loggers the engine looks up.
const (
	ComponentEngine   = "engine"
	ComponentTables   = "tables"
	ComponentWorkflow = "xform"
	ComponentServer   = "server"
)

// Components lists every engine component, in registration order.
var Components = []string{ComponentEngine, ComponentTables, ComponentWorkflow, ComponentServer}

var registry = &loggerRegistry{
	loggers: make(map[string]*Logger),
}

type loggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// Register stores l under a component name, replacing any earlier logger.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.loggers[name] = l
}

// RegisterComponents registers base tagged with each component name.
func RegisterComponents(base *Logger, names ...string) {
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}

// Get returns the logger registered for a component. Unregistered names get
// the global logger tagged with the name.
func Get(name string) *Logger {
	registry.mu.RLock()
	l, ok := registry.loggers[name]
	registry.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

package coordinator

import (
	"sync"

	"breakoutengine/internal/planconfig"
)

// layerRegistry holds the global parameter layer plus one override layer per
// instrument, the two lower-precedence inputs to spec §4.5's Config
// Resolver (the plan layer itself lives with the plan and is supplied at
// admission time). Mirrors internal/datastore.Registry's lazy-create idiom,
// minus the laziness — layers are set explicitly by whatever loads the
// instrument's configuration, not created on first read.
type layerRegistry struct {
	mu         sync.RWMutex
	global     *planconfig.ParamLayer
	instrument map[string]*planconfig.ParamLayer
}

func newLayerRegistry() *layerRegistry {
	return &layerRegistry{instrument: make(map[string]*planconfig.ParamLayer)}
}

func (l *layerRegistry) setGlobal(layer *planconfig.ParamLayer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.global = layer
}

func (l *layerRegistry) setInstrument(instrumentID string, layer *planconfig.ParamLayer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instrument[instrumentID] = layer
}

// get returns the global layer and instrumentID's override layer (nil if
// none has been set for either).
func (l *layerRegistry) get(instrumentID string) (global, instrument *planconfig.ParamLayer) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.global, l.instrument[instrumentID]
}

package runtime

import "sync"

// CallbackRegistry maps an in-flight task's runId to the Adapter that
// should service inbound HTTP callbacks for it.
// The httpapi callback handlers consult this registry so a remote
// sandbox's POST is handled exactly as if the in-process adapter had
// been used.
type CallbackRegistry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewCallbackRegistry returns an empty CallbackRegistry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{adapters: make(map[string]Adapter)}
}

// Register makes adapter reachable for runId's callbacks. Call
// Unregister once the run finishes, whatever the outcome.
func (r *CallbackRegistry) Register(runID string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[runID] = adapter
}

// Unregister removes runId's adapter. Callbacks received after this
// point, or for a runId never registered, look up nothing: the tool-call
// handler responds 404/ok:false and the output handler drops the line
// with a 204.
func (r *CallbackRegistry) Unregister(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, runID)
}

// Lookup returns the Adapter registered for runId, if any.
func (r *CallbackRegistry) Lookup(runID string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[runID]
	return a, ok
}

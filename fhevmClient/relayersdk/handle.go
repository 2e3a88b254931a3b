package relayersdk

import (
	"sync"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// Handle is the host slot a runtime is installed into. It is passed to the
// loader and the session factory explicitly instead of living in a global.
type Handle struct {
	mu      sync.RWMutex
	exports Exports
}

// NewHandle returns an empty slot.
func NewHandle() *Handle {
	return &Handle{}
}

// NewHandleWith returns a slot with exports already installed, for hosts that
// link the runtime in directly.
func NewHandleWith(exports Exports) *Handle {
	h := &Handle{}
	h.Install(exports)
	return h
}

// Install replaces the slot contents with a copy of exports.
func (h *Handle) Install(exports Exports) {
	var cp Exports
	if exports != nil {
		cp = make(Exports, len(exports))
		for k, v := range exports {
			cp[k] = v
		}
	}

	h.mu.Lock()
	h.exports = cp
	h.mu.Unlock()
}

// Capability validates the current slot contents.
func (h *Handle) Capability(trace TraceFunc) (*fhevm.Capability, error) {
	h.mu.RLock()
	exports := h.exports
	h.mu.RUnlock()
	return Check(exports, trace)
}

// IsLoaded reports whether the slot holds a structurally valid runtime.
func (h *Handle) IsLoaded(trace TraceFunc) bool {
	_, err := h.Capability(trace)
	return err == nil
}

// SetInitialized records the runtime's initialization result.
func (h *Handle) SetInitialized(initialized bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exports == nil {
		return fherrors.NewRuntimeError("relayer SDK is not loaded", nil)
	}
	h.exports[PropInitialized] = initialized
	return nil
}

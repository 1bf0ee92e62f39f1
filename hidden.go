package settings

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// HiddenModifier adjusts the hidden set at read time. It receives a copy and
// returns the set to pass on; returning nil keeps its input.
type HiddenModifier func(hidden mapset.Set[string]) mapset.Set[string]

// HiddenRegistry tracks settings excluded from listings.
type HiddenRegistry struct {
	mu        sync.RWMutex
	names     mapset.Set[string]
	modifiers []HiddenModifier
}

// NewHiddenRegistry constructs an empty registry.
func NewHiddenRegistry() *HiddenRegistry {
	return &HiddenRegistry{names: mapset.NewSet[string]()}
}

// Add hides names.
func (h *HiddenRegistry) Add(names ...string) {
	h.names.Append(names...)
}

// Remove unhides names.
func (h *HiddenRegistry) Remove(names ...string) {
	h.names.RemoveAll(names...)
}

// RegisterModifier appends fn to the modifiers applied by All.
func (h *HiddenRegistry) RegisterModifier(fn HiddenModifier) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modifiers = append(h.modifiers, fn)
}

// All returns the hidden set after applying modifiers in registration order.
func (h *HiddenRegistry) All() mapset.Set[string] {
	h.mu.RLock()
	modifiers := append([]HiddenModifier(nil), h.modifiers...)
	h.mu.RUnlock()

	out := h.names.Clone()
	for _, modify := range modifiers {
		if next := modify(out.Clone()); next != nil {
			out = next
		}
	}
	return out
}

// Contains reports whether name is hidden once modifiers apply.
func (h *HiddenRegistry) Contains(name string) bool {
	return h.All().Contains(name)
}

// List returns the hidden names sorted.
func (h *HiddenRegistry) List() []string {
	out := h.All().ToSlice()
	sort.Strings(out)
	return out
}

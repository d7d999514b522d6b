package functions

import (
	"sync"

	"github.com/sandrolain/jpath/pkg/value"
)

// Evaluator is the small slice of the interpreter that a function body
// needs to invoke an expref argument against a candidate value. It lets
// this package stay independent of pkg/interp (which depends on this
// package for the call table) and avoids an import cycle.
type Evaluator interface {
	EvalExpref(ref value.Expref, current interface{}) (interface{}, error)
}

// Call is a built-in or custom function's implementation. Only
// functions whose signature has an expref parameter use ev; the others
// ignore it, so a caller may pass nil for them.
type Call func(ev Evaluator, args []interface{}) (interface{}, error)

// Entry pairs a function's signature with its implementation.
type Entry struct {
	Signature Signature
	Call      Call
}

// Registry resolves function names to entries. Built-ins are fixed at
// construction; Register adds custom functions without displacing a
// built-in of the same name, so built-ins always win on name
// collision.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]Entry
	custom   map[string]Entry
}

// New returns a Registry preloaded with every built-in function.
func New() *Registry {
	return &Registry{
		builtins: builtinTable(),
		custom:   make(map[string]Entry),
	}
}

// Register adds or replaces a custom function. It is a no-op, per the
// built-ins-win rule, if name already names a built-in.
func (r *Registry) Register(name string, entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, isBuiltin := r.builtins[name]; isBuiltin {
		return
	}
	entry.Signature.Name = name
	r.custom[name] = entry
}

// Lookup resolves name to its Entry, built-ins taking priority.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.builtins[name]; ok {
		return e, true
	}
	e, ok := r.custom[name]
	return e, ok
}

// List returns every registered function name, built-ins first.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builtins)+len(r.custom))
	for name := range r.builtins {
		names = append(names, name)
	}
	for name := range r.custom {
		names = append(names, name)
	}
	return names
}

package plugin

import (
	"github.com/okian/kata/internal/plugin/baseball"
	"github.com/okian/kata/internal/plugin/generic"
)

// Builtin returns a fresh registry with the standard plugins registered.
// Hosts compose it once at startup; tests build their own registries.
func Builtin() *Registry {
	r := NewRegistry()
	mustRegister(r, generic.Name, func() Plugin { return generic.New() })
	mustRegister(r, baseball.Name, func() Plugin { return baseball.New() })
	return r
}

// mustRegister panics on registration conflicts among the built-in set,
// which only a programming error can cause.
func mustRegister(r *Registry, name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

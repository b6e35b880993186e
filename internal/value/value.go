// Package value models configuration values that may differ per environment.
package value

import (
	"fmt"
	"sort"
)

// Kind discriminates the forms a Value can take.
type Kind int

const (
	// KindLiteral is a constant shared by every environment.
	KindLiteral Kind = iota

	// KindPerEnv selects a constant (or Missing) by environment name.
	KindPerEnv

	// KindMissing means the environment must supply its own value.
	KindMissing

	// KindComputed is derived from the resolution context.
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindPerEnv:
		return "per-env"
	case KindMissing:
		return "missing"
	case KindComputed:
		return "computed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Func computes a value from a resolution context. It must be free of side
// effects and return the same result for the same context.
type Func func(ctx *Context) (string, error)

// Value is a configuration value before it is bound to an environment.
// The zero Value is the empty literal.
type Value struct {
	kind    Kind
	literal string
	perEnv  map[string]Value
	fn      Func
	desc    string
}

// Literal returns a constant value.
func Literal(s string) Value {
	return Value{kind: KindLiteral, literal: s}
}

// Missing returns the sentinel for "must be supplied per environment".
func Missing() Value {
	return Value{kind: KindMissing}
}

// PerEnv returns a value selected by environment name. Entries may be
// literals or Missing; environments without an entry count as Missing.
func PerEnv(entries map[string]Value) Value {
	copied := make(map[string]Value, len(entries))
	for env, v := range entries {
		if v.kind != KindLiteral && v.kind != KindMissing {
			panic(fmt.Sprintf("value: per-env entry %q must be a literal or missing, got %s", env, v.kind))
		}
		copied[env] = v
	}
	return Value{kind: KindPerEnv, perEnv: copied}
}

// PerEnvStrings is shorthand for PerEnv with literal entries only.
func PerEnvStrings(entries map[string]string) Value {
	values := make(map[string]Value, len(entries))
	for env, s := range entries {
		values[env] = Literal(s)
	}
	return PerEnv(values)
}

// Computed returns a value derived from the resolution context. desc is used
// when the value is printed.
func Computed(desc string, fn Func) Value {
	return Value{kind: KindComputed, fn: fn, desc: desc}
}

// Kind reports the form of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Environments returns the environment names a per-env value has entries for.
func (v Value) Environments() []string {
	names := make([]string, 0, len(v.perEnv))
	for name := range v.perEnv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindLiteral:
		return fmt.Sprintf("%q", v.literal)
	case KindMissing:
		return "<missing>"
	case KindComputed:
		return fmt.Sprintf("computed(%s)", v.desc)
	case KindPerEnv:
		return fmt.Sprintf("per-env%v", v.Environments())
	default:
		return v.kind.String()
	}
}

package value

import (
	"errors"
	"fmt"

	"github.com/cameronsjo/berth/internal/environment"
)

var (
	// ErrMissing is returned when a value has no setting for the target environment.
	ErrMissing = errors.New("missing setting")

	// ErrUnknownService is returned when a referenced service has no address.
	ErrUnknownService = errors.New("unknown service reference")
)

// Context is the read-only view a value is resolved against. One Context is
// shared by every service resolved for the same environment.
type Context struct {
	// Env is the target environment.
	Env *environment.Config

	// Addresses maps service names to their network address in Env.
	Addresses map[string]string
}

// NewContext builds a resolution context. The address table is copied.
func NewContext(env *environment.Config, addresses map[string]string) *Context {
	copied := make(map[string]string, len(addresses))
	for name, addr := range addresses {
		copied[name] = addr
	}
	return &Context{Env: env, Addresses: copied}
}

// Address returns the resolved network address of a service.
func (c *Context) Address(service string) (string, error) {
	addr, ok := c.Addresses[service]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	return addr, nil
}

// Feature returns the active feature-branch name, or "".
func (c *Context) Feature() string {
	if c.Env == nil {
		return ""
	}
	return c.Env.Feature
}

// FeatureEnabled reports whether a feature flag is enabled in the environment.
func (c *Context) FeatureEnabled(flag string) bool {
	return c.Env != nil && c.Env.FeatureEnabled(flag)
}

// EnvName returns the name of the target environment.
func (c *Context) EnvName() string {
	if c.Env == nil {
		return ""
	}
	return c.Env.Name
}

// Resolve binds v to the context's environment. A missing setting is
// reported with ErrMissing.
func (v Value) Resolve(ctx *Context) (string, error) {
	switch v.kind {
	case KindLiteral:
		return v.literal, nil
	case KindMissing:
		return "", ErrMissing
	case KindPerEnv:
		entry, ok := v.perEnv[ctx.EnvName()]
		if !ok || entry.kind == KindMissing {
			return "", ErrMissing
		}
		return entry.literal, nil
	case KindComputed:
		return v.fn(ctx)
	default:
		return "", fmt.Errorf("unsupported value kind %s", v.kind)
	}
}

// Ref returns a value that resolves to the address of another service.
func Ref(service string) Value {
	return Computed("ref "+service, func(ctx *Context) (string, error) {
		return ctx.Address(service)
	})
}

package service

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/cameronsjo/berth/internal/value"
)

// DuplicateKeyError reports a key assigned twice on the same definition.
// It indicates a mistake in the service declaration and is raised as a panic.
type DuplicateKeyError struct {
	Service string
	Field   string
	Keys    []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("service %s: %s already set for keys: %s", e.Service, e.Field, strings.Join(e.Keys, ", "))
}

// Builder accumulates a service definition. Every method returns a new
// Builder; the receiver is left unchanged.
type Builder struct {
	def Definition
}

// New starts a definition for the named service.
func New(name string) *Builder {
	return &Builder{def: Definition{
		Name:      name,
		Namespace: name,
		Liveness:  DefaultProbe,
		Readiness: DefaultProbe,
		Env:       map[string]value.Value{},
		Secrets:   map[string]string{},
		Ingress:   map[string]IngressRule{},
	}}
}

func (b *Builder) with(mutate func(d *Definition)) *Builder {
	next := &Builder{def: b.def.clone()}
	mutate(&next.def)
	return next
}

// Image sets the image name; the service name is used when unset.
func (b *Builder) Image(image string) *Builder {
	return b.with(func(d *Definition) { d.Image = image })
}

// Namespace places the service in a namespace other than its own name.
func (b *Builder) Namespace(namespace string) *Builder {
	return b.with(func(d *Definition) { d.Namespace = namespace })
}

// Liveness sets the liveness probe path, keeping default timings.
func (b *Builder) Liveness(path string) *Builder {
	return b.with(func(d *Definition) { d.Liveness.Path = path })
}

// Readiness sets the readiness probe path, keeping default timings.
func (b *Builder) Readiness(path string) *Builder {
	return b.with(func(d *Definition) { d.Readiness.Path = path })
}

// HealthProbes replaces both probes.
func (b *Builder) HealthProbes(liveness, readiness Probe) *Builder {
	return b.with(func(d *Definition) {
		d.Liveness = liveness
		d.Readiness = readiness
	})
}

// Port sets the container port.
func (b *Builder) Port(port int) *Builder {
	return b.with(func(d *Definition) { d.Port = port })
}

// Command sets the container entrypoint.
func (b *Builder) Command(command ...string) *Builder {
	return b.with(func(d *Definition) { d.Command = slices.Clone(command) })
}

// Args sets the container arguments.
func (b *Builder) Args(args ...string) *Builder {
	return b.with(func(d *Definition) { d.Args = slices.Clone(args) })
}

// Env adds environment variables. It panics with a *DuplicateKeyError if any
// key was set by an earlier call.
func (b *Builder) Env(env map[string]value.Value) *Builder {
	if dups := intersect(b.def.Env, env); len(dups) > 0 {
		panic(&DuplicateKeyError{Service: b.def.Name, Field: "env", Keys: dups})
	}
	return b.with(func(d *Definition) { maps.Copy(d.Env, env) })
}

// EnvStrings is Env with literal values only.
func (b *Builder) EnvStrings(env map[string]string) *Builder {
	values := make(map[string]value.Value, len(env))
	for k, v := range env {
		values[k] = value.Literal(v)
	}
	return b.Env(values)
}

// Secrets adds secret mappings from variable name to secret-store path. It
// panics with a *DuplicateKeyError if any key was set by an earlier call.
func (b *Builder) Secrets(secrets map[string]string) *Builder {
	if dups := intersect(b.def.Secrets, secrets); len(dups) > 0 {
		panic(&DuplicateKeyError{Service: b.def.Name, Field: "secrets", Keys: dups})
	}
	return b.with(func(d *Definition) { maps.Copy(d.Secrets, secrets) })
}

// Ingress adds or replaces named ingress rules.
func (b *Builder) Ingress(rules map[string]IngressRule) *Builder {
	return b.with(func(d *Definition) {
		for name, rule := range rules {
			d.Ingress[name] = rule.clone()
		}
	})
}

// Postgres declares a database requirement. Pass nil for all defaults.
func (b *Builder) Postgres(pg *Postgres) *Builder {
	if pg == nil {
		pg = &Postgres{}
	}
	return b.with(func(d *Definition) { d.Postgres = pg.clone() })
}

// Redis declares a cache requirement. Pass nil to use the environment host.
func (b *Builder) Redis(r *Redis) *Builder {
	if r == nil {
		r = &Redis{}
	}
	return b.with(func(d *Definition) { d.Redis = r.clone() })
}

// InitContainer declares containers that run before the service.
func (b *Builder) InitContainer(ic InitContainers) *Builder {
	return b.with(func(d *Definition) { d.InitContainer = ic.clone() })
}

// Resources sets container requests and limits.
func (b *Builder) Resources(r Resources) *Builder {
	return b.with(func(d *Definition) { d.Resources = r })
}

// Replicas overrides the environment's default replica bounds.
func (b *Builder) Replicas(p ReplicaPolicy) *Builder {
	return b.with(func(d *Definition) { d.Replicas = &p })
}

// HPA overrides the request-rate autoscaling target.
func (b *Builder) HPA(requestsPerSecond int) *Builder {
	return b.with(func(d *Definition) { d.RequestsPerSecond = requestsPerSecond })
}

// Volumes adds persistent volume claims.
func (b *Builder) Volumes(volumes ...Volume) *Builder {
	return b.with(func(d *Definition) {
		for _, v := range volumes {
			v.AccessModes = slices.Clone(v.AccessModes)
			d.Volumes = append(d.Volumes, v)
		}
	})
}

// ServiceAccount binds the service to an IAM role of the given name.
func (b *Builder) ServiceAccount(name string) *Builder {
	return b.with(func(d *Definition) { d.ServiceAccount = name })
}

// SecurityContext sets container security flags.
func (b *Builder) SecurityContext(sc SecurityContext) *Builder {
	return b.with(func(d *Definition) { d.SecurityContext = sc })
}

// Extra merges chart values passed through untouched.
func (b *Builder) Extra(extra map[string]any) *Builder {
	return b.with(func(d *Definition) {
		if d.Extra == nil {
			d.Extra = make(map[string]any, len(extra))
		}
		maps.Copy(d.Extra, extra)
	})
}

// Build returns the accumulated definition.
func (b *Builder) Build() *Definition {
	def := b.def.clone()
	return &def
}

func intersect[V any](existing map[string]V, incoming map[string]V) []string {
	var dups []string
	for k := range incoming {
		if _, ok := existing[k]; ok {
			dups = append(dups, k)
		}
	}
	sort.Strings(dups)
	return dups
}

func (d Definition) clone() Definition {
	out := d
	out.Command = slices.Clone(d.Command)
	out.Args = slices.Clone(d.Args)
	out.Env = maps.Clone(d.Env)
	out.Secrets = maps.Clone(d.Secrets)
	out.Ingress = make(map[string]IngressRule, len(d.Ingress))
	for name, rule := range d.Ingress {
		out.Ingress[name] = rule.clone()
	}
	if d.Postgres != nil {
		out.Postgres = d.Postgres.clone()
	}
	if d.Redis != nil {
		out.Redis = d.Redis.clone()
	}
	if d.InitContainer != nil {
		out.InitContainer = d.InitContainer.clone()
	}
	if d.Replicas != nil {
		r := *d.Replicas
		out.Replicas = &r
	}
	out.Volumes = make([]Volume, len(d.Volumes))
	for i, v := range d.Volumes {
		v.AccessModes = slices.Clone(v.AccessModes)
		out.Volumes[i] = v
	}
	if d.Extra != nil {
		out.Extra = maps.Clone(d.Extra)
	}
	return out
}

func (r IngressRule) clone() IngressRule {
	r.Paths = slices.Clone(r.Paths)
	r.Annotations = maps.Clone(r.Annotations)
	return r
}

func (p *Postgres) clone() *Postgres {
	out := *p
	out.Host = maps.Clone(p.Host)
	out.Extensions = slices.Clone(p.Extensions)
	return &out
}

func (r *Redis) clone() *Redis {
	out := *r
	out.Host = maps.Clone(r.Host)
	return &out
}

func (ic InitContainers) clone() *InitContainers {
	out := ic
	out.Containers = make([]Container, len(ic.Containers))
	for i, c := range ic.Containers {
		c.Command = slices.Clone(c.Command)
		c.Args = slices.Clone(c.Args)
		out.Containers[i] = c
	}
	out.Env = maps.Clone(ic.Env)
	out.Secrets = maps.Clone(ic.Secrets)
	return &out
}

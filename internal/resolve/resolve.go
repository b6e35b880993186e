package resolve

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/cameronsjo/berth/internal/service"
	"github.com/cameronsjo/berth/internal/value"
)

// MissingSettingError formats the error for a value with no setting in the
// target environment.
func MissingSettingError(svc, env, key string) string {
	return fmt.Sprintf("missing settings for service %s in environment %s: key %s", svc, env, key)
}

// UnresolvedKeyError formats the error for a computed value that failed.
func UnresolvedKeyError(svc, env, key string, err error) string {
	return fmt.Sprintf("could not resolve key %s for service %s in environment %s: %v", key, svc, env, err)
}

// UnresolvedDBHostError formats the error for a database host that could not
// be determined.
func UnresolvedDBHostError(svc, env string) string {
	return fmt.Sprintf("could not resolve database host for service %s in environment %s", svc, env)
}

// resolver carries the state of one Resolve call.
type resolver struct {
	def    *service.Definition
	ctx    *value.Context
	errors []string
}

// Resolve binds def to the environment in ctx. Every key is attempted; keys
// that cannot be resolved are left out and reported in Service.Errors.
func Resolve(def *service.Definition, ctx *value.Context) *Service {
	r := &resolver{def: def, ctx: ctx}

	out := &Service{
		Name:              def.Name,
		Image:             def.Image,
		Namespace:         def.Namespace,
		Liveness:          def.Liveness,
		Readiness:         def.Readiness,
		Port:              def.Port,
		Command:           slices.Clone(def.Command),
		Args:              slices.Clone(def.Args),
		Secrets:           maps.Clone(def.Secrets),
		Resources:         def.Resources,
		RequestsPerSecond: def.RequestsPerSecond,
		Volumes:           slices.Clone(def.Volumes),
		ServiceAccount:    def.ServiceAccount,
		SecurityContext:   def.SecurityContext,
		Extra:             maps.Clone(def.Extra),
	}
	if out.Image == "" {
		out.Image = def.Name
	}
	if out.Secrets == nil {
		out.Secrets = map[string]string{}
	}

	out.Env = r.values(def.Env, "", r.secretKeys(def.Secrets, def.Postgres != nil))
	out.EnvKeys = sortedKeys(def.Env)
	out.Ingress = r.ingress()
	out.Postgres = r.postgres(def.Postgres)
	out.Replicas = r.replicas()

	if def.Redis != nil {
		out.HasRedis = true
		out.RedisURL = r.redisHost(def.Redis)
	}

	if ic := def.InitContainer; ic != nil {
		out.InitContainer = &InitContainers{
			Containers: slices.Clone(ic.Containers),
			Env:        r.values(ic.Env, "initContainer.", r.secretKeys(ic.Secrets, ic.Postgres && def.Postgres != nil)),
			Secrets:    maps.Clone(ic.Secrets),
			Postgres:   ic.Postgres,
			EnvKeys:    sortedKeys(ic.Env),
		}
		if out.InitContainer.Secrets == nil {
			out.InitContainer.Secrets = map[string]string{}
		}
	}

	out.Errors = r.errors
	return out
}

func (r *resolver) envName() string {
	return r.ctx.EnvName()
}

func (r *resolver) resolve(key string, v value.Value) (string, bool) {
	s, err := v.Resolve(r.ctx)
	switch {
	case err == nil:
		return s, true
	case errors.Is(err, value.ErrMissing):
		r.errors = append(r.errors, MissingSettingError(r.def.Name, r.envName(), key))
	default:
		r.errors = append(r.errors, UnresolvedKeyError(r.def.Name, r.envName(), key, err))
	}
	return "", false
}

// secretKeys returns the secret names visible next to an env map.
func (r *resolver) secretKeys(secrets map[string]string, database bool) map[string]bool {
	keys := make(map[string]bool, len(secrets)+1)
	for k := range secrets {
		keys[k] = true
	}
	if database {
		keys[service.SecretDBPassword] = true
	}
	return keys
}

// values resolves a map in key order so errors are reported deterministically.
// Keys shadowed by a secret are left to the collision check.
func (r *resolver) values(in map[string]value.Value, keyPrefix string, secrets map[string]bool) map[string]string {
	out := make(map[string]string, len(in))
	for _, key := range sortedKeys(in) {
		if secrets[key] {
			continue
		}
		if s, ok := r.resolve(keyPrefix+key, in[key]); ok {
			out[key] = s
		}
	}
	return out
}

func (r *resolver) ingress() map[string]Ingress {
	out := make(map[string]Ingress, len(r.def.Ingress))
	for _, name := range sortedKeys(r.def.Ingress) {
		rule := r.def.Ingress[name]
		host, ok := r.resolve("ingress."+name+".host", rule.Host)
		if !ok {
			continue
		}
		paths := slices.Clone(rule.Paths)
		if len(paths) == 0 {
			paths = []string{"/"}
		}
		out[name] = Ingress{
			Host:        host,
			Paths:       paths,
			Public:      rule.Public,
			Annotations: maps.Clone(rule.Annotations),
		}
	}
	return out
}

func (r *resolver) postgres(pg *service.Postgres) *Postgres {
	if pg == nil {
		return nil
	}
	settings := pg.WithDefaults(r.def.Name)
	out := &Postgres{
		Name:           settings.Name,
		Username:       settings.Username,
		PasswordSecret: settings.PasswordSecret,
		Extensions:     settings.Extensions,
	}

	env := r.ctx.Env
	switch {
	case settings.Host != nil:
		host, ok := settings.Host[r.envName()]
		if !ok || host.Writer == "" {
			out.HostErr = UnresolvedDBHostError(r.def.Name, r.envName())
			break
		}
		out.Host = host.Writer
		out.ReplicasHost = host.Reader
		if out.ReplicasHost == "" {
			out.ReplicasHost = host.Writer
		}
	case env != nil && env.DBHost != "":
		out.Host = env.DBHost
		out.ReplicasHost = env.ReplicaHost()
	default:
		out.HostErr = UnresolvedDBHostError(r.def.Name, r.envName())
	}
	return out
}

func (r *resolver) redisHost(redis *service.Redis) string {
	if _, shadowed := r.def.Secrets[service.EnvRedisURL]; shadowed {
		return ""
	}
	if redis.Host != nil {
		if host, ok := redis.Host[r.envName()]; ok {
			return host
		}
		r.errors = append(r.errors, MissingSettingError(r.def.Name, r.envName(), service.EnvRedisURL))
		return ""
	}
	if r.ctx.Env == nil || r.ctx.Env.RedisHost == "" {
		r.errors = append(r.errors, MissingSettingError(r.def.Name, r.envName(), service.EnvRedisURL))
		return ""
	}
	return r.ctx.Env.RedisHost
}

func (r *resolver) replicas() service.ReplicaPolicy {
	if p := r.def.Replicas; p != nil {
		out := *p
		if out.Default == 0 {
			out.Default = out.Min
		}
		return out
	}
	if r.ctx.Env == nil {
		return service.ReplicaPolicy{Min: 1, Max: 1, Default: 1}
	}
	d := r.ctx.Env.DefaultReplicas
	return service.ReplicaPolicy{Min: d.Min, Max: d.Max, Default: d.Min}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package resolve binds service definitions to a single environment.
package resolve

import (
	"sort"

	"github.com/cameronsjo/berth/internal/service"
)

// Ingress is an ingress rule with a concrete host.
type Ingress struct {
	Host        string
	Paths       []string
	Public      bool
	Annotations map[string]string
}

// Postgres is a database requirement with defaults and hosts filled in.
type Postgres struct {
	Name           string
	Username       string
	PasswordSecret string
	Host           string
	ReplicasHost   string
	Extensions     []string

	// HostErr is set when the host could not be resolved for the environment.
	HostErr string
}

// Env returns the environment variables the requirement injects.
func (p *Postgres) Env() map[string]string {
	return map[string]string{
		service.EnvDBUser:         p.Username,
		service.EnvDBName:         p.Name,
		service.EnvDBHost:         p.Host,
		service.EnvDBReplicasHost: p.ReplicasHost,
	}
}

// Secrets returns the secrets the requirement injects.
func (p *Postgres) Secrets() map[string]string {
	return map[string]string{service.SecretDBPassword: p.PasswordSecret}
}

// InitContainers is a resolved init container declaration.
type InitContainers struct {
	Containers []service.Container
	Env        map[string]string
	Secrets    map[string]string
	Postgres   bool

	// EnvKeys lists every declared variable, resolved or not.
	EnvKeys []string
}

// Service is a definition bound to one environment. Every value is concrete.
type Service struct {
	Name      string
	Image     string
	Namespace string

	Liveness  service.Probe
	Readiness service.Probe

	Port    int
	Command []string
	Args    []string

	// Env holds declared variables only; implicit keys are added by AllEnv.
	Env     map[string]string
	// EnvKeys lists every declared variable, resolved or not.
	EnvKeys []string
	Secrets map[string]string
	Ingress map[string]Ingress

	Postgres      *Postgres
	RedisURL      string
	HasRedis      bool
	InitContainer *InitContainers

	Resources         service.Resources
	Replicas          service.ReplicaPolicy
	RequestsPerSecond int
	Volumes           []service.Volume
	ServiceAccount    string
	SecurityContext   service.SecurityContext
	Extra             map[string]any

	// Feature is the feature branch the service was overlaid for, if any.
	Feature string

	// Errors lists resolution problems in a stable order.
	Errors []string
}

// AllEnv returns declared variables merged with the keys injected by the
// database and cache requirements. Declared variables win.
func (s *Service) AllEnv() map[string]string {
	env := make(map[string]string, len(s.Env)+5)
	if s.Postgres != nil {
		for k, v := range s.Postgres.Env() {
			env[k] = v
		}
	}
	if s.HasRedis {
		env[service.EnvRedisURL] = s.RedisURL
	}
	for k, v := range s.Env {
		env[k] = v
	}
	return env
}

// AllSecrets returns declared secrets merged with the database password.
func (s *Service) AllSecrets() map[string]string {
	secrets := make(map[string]string, len(s.Secrets)+1)
	if s.Postgres != nil {
		for k, v := range s.Postgres.Secrets() {
			secrets[k] = v
		}
	}
	for k, v := range s.Secrets {
		secrets[k] = v
	}
	return secrets
}

// InitEnv returns the init container variables, including database keys
// when the init containers use the service database.
func (s *Service) InitEnv() map[string]string {
	if s.InitContainer == nil {
		return nil
	}
	env := make(map[string]string, len(s.InitContainer.Env)+4)
	if s.InitContainer.Postgres && s.Postgres != nil {
		for k, v := range s.Postgres.Env() {
			env[k] = v
		}
	}
	for k, v := range s.InitContainer.Env {
		env[k] = v
	}
	return env
}

// InitSecrets returns the init container secrets, including the database
// password when the init containers use the service database.
func (s *Service) InitSecrets() map[string]string {
	if s.InitContainer == nil {
		return nil
	}
	secrets := make(map[string]string, len(s.InitContainer.Secrets)+1)
	if s.InitContainer.Postgres && s.Postgres != nil {
		for k, v := range s.Postgres.Secrets() {
			secrets[k] = v
		}
	}
	for k, v := range s.InitContainer.Secrets {
		secrets[k] = v
	}
	return secrets
}

// IngressNames returns ingress rule names in sorted order.
func (s *Service) IngressNames() []string {
	names := make([]string, 0, len(s.Ingress))
	for name := range s.Ingress {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

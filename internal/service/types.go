// Package service declares deployable services independent of any environment.
package service

import (
	"github.com/cameronsjo/berth/internal/value"
)

// Probe configures a liveness or readiness health check.
type Probe struct {
	Path                string
	InitialDelaySeconds int
	TimeoutSeconds      int
}

// Default probe settings.
var DefaultProbe = Probe{Path: "/", InitialDelaySeconds: 3, TimeoutSeconds: 3}

// ResourceSet is one of a container's requests or limits.
type ResourceSet struct {
	CPU    string
	Memory string
}

// Resources holds container requests and limits as Kubernetes quantities.
type Resources struct {
	Limits   ResourceSet
	Requests ResourceSet
}

// IsZero reports whether no resources were declared.
func (r Resources) IsZero() bool {
	return r == Resources{}
}

// ReplicaPolicy overrides the environment's default replica bounds.
type ReplicaPolicy struct {
	Min     int
	Max     int
	Default int
}

// IngressRule exposes a service on a host and set of paths.
type IngressRule struct {
	// Host is the short host ("api"), a full host ("api.example.org") or ""
	// for the bare environment domain.
	Host value.Value

	Paths []string

	// Public selects the external routing class. Internal ingress nests under
	// the internal sub-domain.
	Public bool

	Annotations map[string]string
}

// DBHost is an explicit writer/reader database endpoint pair.
type DBHost struct {
	Writer string
	Reader string
}

// Postgres declares that a service needs a relational database.
type Postgres struct {
	// Name defaults to the service name with dashes replaced by underscores.
	Name string

	// Username defaults to Name.
	Username string

	// PasswordSecret defaults to /k8s/<service>/DB_PASSWORD.
	PasswordSecret string

	// Host overrides the environment database host per environment name.
	// When set, every environment the service renders in needs an entry.
	Host map[string]DBHost

	Extensions []string
}

// Redis declares that a service needs a cache endpoint.
type Redis struct {
	// Host overrides the environment redis host per environment name.
	Host map[string]string
}

// Container is one init container.
type Container struct {
	Name      string
	Command   []string
	Args      []string
	Resources Resources
}

// InitContainers run before the service starts, usually for migrations.
type InitContainers struct {
	Containers []Container
	Env        map[string]value.Value
	Secrets    map[string]string

	// Postgres injects the service's database settings into the init containers.
	Postgres bool
}

// Volume is a persistent volume claim mounted into the service.
type Volume struct {
	Name         string
	Size         string
	AccessModes  []string
	MountPath    string
	StorageClass string
}

// SecurityContext holds container security flags.
type SecurityContext struct {
	Privileged               bool
	AllowPrivilegeEscalation bool
}

// Definition is the environment-agnostic description of one deployable unit.
// Build it with a Builder; treat it as read-only afterwards.
type Definition struct {
	Name      string
	Image     string
	Namespace string

	Liveness  Probe
	Readiness Probe

	// Port is the container port; zero means the chart default.
	Port int

	Command []string
	Args    []string

	Env     map[string]value.Value
	Secrets map[string]string
	Ingress map[string]IngressRule

	Postgres      *Postgres
	Redis         *Redis
	InitContainer *InitContainers

	Resources Resources
	Replicas  *ReplicaPolicy

	// RequestsPerSecond overrides the request-rate autoscaling target.
	RequestsPerSecond int

	Volumes []Volume

	// ServiceAccount binds an IAM role of the same name when set.
	ServiceAccount string

	SecurityContext SecurityContext

	// Extra is passed through to the chart untouched.
	Extra map[string]any
}

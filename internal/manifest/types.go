package manifest

import (
	"github.com/cameronsjo/berth/internal/service"
)

// API version and kind constants for manifest versioning.
const (
	// APIVersionV1 is the current API version for berth manifests.
	APIVersionV1 = "berth.io/v1"

	// KindService identifies a service declaration.
	KindService = "Service"

	// KindInclude identifies a reusable fragment pulled in via includes.
	KindInclude = "Include"
)

// SupportedAPIVersions lists all API versions that can be loaded.
var SupportedAPIVersions = []string{APIVersionV1}

// SupportedKinds lists all valid manifest kinds.
var SupportedKinds = []string{KindService, KindInclude}

// metaKeys are consumed by the loader and never reach the declaration.
var metaKeys = []string{"apiVersion", "kind", "includes", "vars"}

// Declaration is the YAML form of a service definition after includes are
// merged and variables interpolated.
type Declaration struct {
	Name      string `yaml:"name"`
	Image     string `yaml:"image,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`

	HealthCheck HealthCheck `yaml:"healthCheck,omitempty"`

	Port    int      `yaml:"port,omitempty"`
	Command []string `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	Env     map[string]Value       `yaml:"env,omitempty"`
	Secrets map[string]string      `yaml:"secrets,omitempty"`
	Ingress map[string]IngressRule `yaml:"ingress,omitempty"`

	Postgres      *Postgres       `yaml:"postgres,omitempty"`
	Redis         *Redis          `yaml:"redis,omitempty"`
	InitContainer *InitContainers `yaml:"initContainer,omitempty"`

	Resources Resources      `yaml:"resources,omitempty"`
	Replicas  *ReplicaPolicy `yaml:"replicas,omitempty"`
	HPA       HPA            `yaml:"hpa,omitempty"`

	Volumes         []Volume        `yaml:"volumes,omitempty"`
	ServiceAccount  string          `yaml:"serviceAccount,omitempty"`
	SecurityContext SecurityContext `yaml:"securityContext,omitempty"`

	Extra map[string]any `yaml:"extra,omitempty"`
}

// HealthCheck declares the liveness and readiness probes. Unset probes keep
// their defaults.
type HealthCheck struct {
	Liveness  *Probe `yaml:"liveness,omitempty"`
	Readiness *Probe `yaml:"readiness,omitempty"`
}

// Probe is a single HTTP health probe.
type Probe struct {
	Path                string `yaml:"path,omitempty"`
	InitialDelaySeconds int    `yaml:"initialDelaySeconds,omitempty"`
	TimeoutSeconds      int    `yaml:"timeoutSeconds,omitempty"`
}

// IngressRule exposes the service under a host.
type IngressRule struct {
	Host        Value             `yaml:"host,omitempty"`
	Paths       []string          `yaml:"paths,omitempty"`
	Public      bool              `yaml:"public,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// DBHost is a writer/reader host pair.
type DBHost struct {
	Writer string `yaml:"writer"`
	Reader string `yaml:"reader,omitempty"`
}

// Postgres declares a database requirement. An empty mapping uses defaults.
type Postgres struct {
	Name           string            `yaml:"name,omitempty"`
	Username       string            `yaml:"username,omitempty"`
	PasswordSecret string            `yaml:"passwordSecret,omitempty"`
	Host           map[string]DBHost `yaml:"host,omitempty"`
	Extensions     []string          `yaml:"extensions,omitempty"`
}

// Redis declares a cache requirement.
type Redis struct {
	Host map[string]string `yaml:"host,omitempty"`
}

// ResourceSet is a cpu/memory pair.
type ResourceSet struct {
	CPU    string `yaml:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// Resources are container limits and requests.
type Resources struct {
	Limits   ResourceSet `yaml:"limits,omitempty"`
	Requests ResourceSet `yaml:"requests,omitempty"`
}

// Container is one init container.
type Container struct {
	Name      string    `yaml:"name"`
	Command   []string  `yaml:"command,omitempty"`
	Args      []string  `yaml:"args,omitempty"`
	Resources Resources `yaml:"resources,omitempty"`
}

// InitContainers run before the service starts.
type InitContainers struct {
	Containers []Container       `yaml:"containers"`
	Env        map[string]Value  `yaml:"env,omitempty"`
	Secrets    map[string]string `yaml:"secrets,omitempty"`
	Postgres   bool              `yaml:"postgres,omitempty"`
}

// ReplicaPolicy bounds the replica count.
type ReplicaPolicy struct {
	Min     int `yaml:"min"`
	Max     int `yaml:"max"`
	Default int `yaml:"default,omitempty"`
}

// HPA tunes autoscaling.
type HPA struct {
	RequestsPerSecond int `yaml:"requestsPerSecond,omitempty"`
}

// Volume is a persistent volume claim.
type Volume struct {
	Name         string   `yaml:"name,omitempty"`
	Size         string   `yaml:"size,omitempty"`
	AccessModes  []string `yaml:"accessModes,omitempty"`
	MountPath    string   `yaml:"mountPath"`
	StorageClass string   `yaml:"storageClass,omitempty"`
}

// SecurityContext flags.
type SecurityContext struct {
	Privileged               bool `yaml:"privileged,omitempty"`
	AllowPrivilegeEscalation bool `yaml:"allowPrivilegeEscalation,omitempty"`
}

func (p *Probe) toService() service.Probe {
	out := service.DefaultProbe
	if p.Path != "" {
		out.Path = p.Path
	}
	if p.InitialDelaySeconds != 0 {
		out.InitialDelaySeconds = p.InitialDelaySeconds
	}
	if p.TimeoutSeconds != 0 {
		out.TimeoutSeconds = p.TimeoutSeconds
	}
	return out
}

func (r Resources) toService() service.Resources {
	return service.Resources{
		Limits:   service.ResourceSet{CPU: r.Limits.CPU, Memory: r.Limits.Memory},
		Requests: service.ResourceSet{CPU: r.Requests.CPU, Memory: r.Requests.Memory},
	}
}

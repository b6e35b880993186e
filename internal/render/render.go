package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cameronsjo/berth/internal/defaults"
	"github.com/cameronsjo/berth/internal/environment"
	"github.com/cameronsjo/berth/internal/resolve"
	"github.com/cameronsjo/berth/internal/service"
)

// Ingress annotations set on every rule.
const (
	IngressClassAnnotation    = "kubernetes.io/ingress.class"
	ServiceUpstreamAnnotation = "nginx.ingress.kubernetes.io/service-upstream"
)

// Service renders a resolved service that has passed validation. Inputs that
// validation should have rejected cause a panic.
func Service(svc *resolve.Service, env *environment.Config) *Manifest {
	resources := defaults.Effective(svc.Resources, defaults.Resources)
	heap, err := defaults.HeapMi(resources.Limits.Memory)
	if err != nil {
		panic(fmt.Sprintf("render %s: %v", svc.Name, err))
	}

	m := &Manifest{
		Enabled:   true,
		Namespace: svc.Namespace,
		Image:     Image{Repository: Repository(env, svc.Image)},
		Env:       renderEnv(svc.AllEnv(), env, heap),
		Secrets:   svc.AllSecrets(),
		HealthCheck: HealthCheck{
			Liveness:  probe(svc.Liveness),
			Readiness: probe(svc.Readiness),
		},
		Resources: renderResources(resources),
		ReplicaCount: ReplicaCount{
			Min:     svc.Replicas.Min,
			Max:     svc.Replicas.Max,
			Default: svc.Replicas.Default,
		},
		HPA:     hpa(svc),
		Command: slices.Clone(svc.Command),
		Args:    slices.Clone(svc.Args),
	}

	if svc.Port != 0 {
		m.Service = &ServicePort{TargetPort: svc.Port}
	}
	if len(svc.Ingress) > 0 {
		m.Ingress = renderIngress(svc, env)
	}
	if svc.InitContainer != nil {
		m.InitContainer = renderInitContainer(svc)
	}
	if len(svc.Volumes) > 0 {
		m.PVCs = renderPVCs(svc)
	}
	if svc.ServiceAccount != "" {
		m.ServiceAccount = &ServiceAccount{
			Create: true,
			Name:   svc.ServiceAccount,
			Annotations: map[string]string{
				defaults.RoleARNAnnotation: RoleARN(env, svc.ServiceAccount),
			},
		}
	}
	if svc.SecurityContext != (service.SecurityContext{}) {
		m.SecurityContext = &SecurityContext{
			Privileged:               svc.SecurityContext.Privileged,
			AllowPrivilegeEscalation: svc.SecurityContext.AllowPrivilegeEscalation,
		}
	}
	if len(svc.Extra) > 0 {
		m.Extra = maps.Clone(svc.Extra)
	}

	return m
}

// Repository returns the image repository for an image name.
func Repository(env *environment.Config, image string) string {
	registry := env.Registry()
	if registry == "" {
		return image
	}
	return registry + "/" + image
}

// RoleARN returns the IAM role bound to a service account.
func RoleARN(env *environment.Config, name string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", env.AccountID, name)
}

// Host resolves an ingress host against the environment domain. An empty
// host is the bare domain, a host without a dot is a sub-domain, anything
// else is used verbatim. Internal hosts nest under the internal sub-domain.
func Host(host, domain string, public bool) string {
	if strings.Contains(host, ".") {
		return host
	}
	base := domain
	if !public {
		base = "internal." + domain
	}
	if host == "" {
		return base
	}
	return host + "." + base
}

func renderEnv(declared map[string]string, env *environment.Config, heapMi int64) map[string]string {
	out := map[string]string{
		defaults.FeaturesEnvKey: strings.Join(env.FeatureFlags, ","),
		defaults.HeapEnvKey:     defaults.HeapFlag(heapMi),
	}
	maps.Copy(out, declared)
	return out
}

func probe(p service.Probe) Probe {
	return Probe{
		Path:                p.Path,
		InitialDelaySeconds: p.InitialDelaySeconds,
		TimeoutSeconds:      p.TimeoutSeconds,
	}
}

func renderResources(r service.Resources) Resources {
	return Resources{
		Limits:   ResourceSet{CPU: r.Limits.CPU, Memory: r.Limits.Memory},
		Requests: ResourceSet{CPU: r.Requests.CPU, Memory: r.Requests.Memory},
	}
}

func hpa(svc *resolve.Service) HPA {
	rps := svc.RequestsPerSecond
	if rps == 0 {
		rps = defaults.RequestsPerSecond
	}
	return HPA{Scaling: HPAScaling{
		Replicas: HPAReplicas{Min: svc.Replicas.Min, Max: svc.Replicas.Max},
		Metric: HPAMetric{
			CPUAverageUtilization: defaults.CPUAverageUtilization,
			NginxRequestsIrate:    rps,
		},
	}}
}

func renderIngress(svc *resolve.Service, env *environment.Config) map[string]Ingress {
	out := make(map[string]Ingress, len(svc.Ingress))
	for _, name := range svc.IngressNames() {
		rule := svc.Ingress[name]

		class := env.InternalIngressClass()
		if rule.Public {
			class = env.PublicIngressClass()
		}
		annotations := map[string]string{
			IngressClassAnnotation:    class,
			ServiceUpstreamAnnotation: "true",
		}
		maps.Copy(annotations, rule.Annotations)

		out[name] = Ingress{
			Annotations: annotations,
			Hosts: []IngressHost{{
				Host:  Host(rule.Host, env.Domain, rule.Public),
				Paths: slices.Clone(rule.Paths),
			}},
		}
	}
	return out
}

func renderInitContainer(svc *resolve.Service) *InitContainer {
	ic := svc.InitContainer
	out := &InitContainer{
		Containers: make([]Container, 0, len(ic.Containers)),
		Env:        svc.InitEnv(),
		Secrets:    svc.InitSecrets(),
	}
	for _, c := range ic.Containers {
		out.Containers = append(out.Containers, Container{
			Name:      c.Name,
			Command:   slices.Clone(c.Command),
			Args:      slices.Clone(c.Args),
			Resources: renderResources(defaults.Effective(c.Resources, defaults.InitResources)),
		})
	}
	if ic.Postgres && svc.Postgres != nil {
		out.Extensions = slices.Clone(svc.Postgres.Extensions)
	}
	return out
}

func renderPVCs(svc *resolve.Service) []PVC {
	out := make([]PVC, 0, len(svc.Volumes))
	for _, v := range svc.Volumes {
		name := v.Name
		if name == "" {
			name = svc.Name
		}
		modes := slices.Clone(v.AccessModes)
		if len(modes) == 0 {
			modes = []string{"ReadWriteOnce"}
		}
		size := v.Size
		if size == "" {
			size = "1Gi"
		}
		out = append(out, PVC{
			Name:         name,
			Size:         size,
			AccessModes:  modes,
			MountPath:    v.MountPath,
			StorageClass: v.StorageClass,
		})
	}
	return out
}

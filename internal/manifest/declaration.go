package manifest

import (
	"maps"

	"github.com/cameronsjo/berth/internal/service"
)

// Definition converts the declaration into a service definition.
func (d *Declaration) Definition() (*service.Definition, error) {
	if d.Name == "" {
		return nil, ErrMissingName
	}

	b := service.New(d.Name)
	if d.Image != "" {
		b = b.Image(d.Image)
	}
	if d.Namespace != "" {
		b = b.Namespace(d.Namespace)
	}
	if d.HealthCheck.Liveness != nil || d.HealthCheck.Readiness != nil {
		liveness, readiness := service.DefaultProbe, service.DefaultProbe
		if d.HealthCheck.Liveness != nil {
			liveness = d.HealthCheck.Liveness.toService()
		}
		if d.HealthCheck.Readiness != nil {
			readiness = d.HealthCheck.Readiness.toService()
		}
		b = b.HealthProbes(liveness, readiness)
	}
	if d.Port != 0 {
		b = b.Port(d.Port)
	}
	if len(d.Command) > 0 {
		b = b.Command(d.Command...)
	}
	if len(d.Args) > 0 {
		b = b.Args(d.Args...)
	}
	if len(d.Env) > 0 {
		b = b.Env(toValues(d.Env))
	}
	if len(d.Secrets) > 0 {
		b = b.Secrets(d.Secrets)
	}
	if len(d.Ingress) > 0 {
		rules := make(map[string]service.IngressRule, len(d.Ingress))
		for name, r := range d.Ingress {
			rules[name] = service.IngressRule{
				Host:        r.Host.Value(),
				Paths:       r.Paths,
				Public:      r.Public,
				Annotations: r.Annotations,
			}
		}
		b = b.Ingress(rules)
	}
	if d.Postgres != nil {
		pg := &service.Postgres{
			Name:           d.Postgres.Name,
			Username:       d.Postgres.Username,
			PasswordSecret: d.Postgres.PasswordSecret,
			Extensions:     d.Postgres.Extensions,
		}
		if len(d.Postgres.Host) > 0 {
			pg.Host = make(map[string]service.DBHost, len(d.Postgres.Host))
			for env, h := range d.Postgres.Host {
				pg.Host[env] = service.DBHost{Writer: h.Writer, Reader: h.Reader}
			}
		}
		b = b.Postgres(pg)
	}
	if d.Redis != nil {
		b = b.Redis(&service.Redis{Host: maps.Clone(d.Redis.Host)})
	}
	if d.InitContainer != nil {
		ic := service.InitContainers{
			Env:      toValues(d.InitContainer.Env),
			Secrets:  d.InitContainer.Secrets,
			Postgres: d.InitContainer.Postgres,
		}
		for _, c := range d.InitContainer.Containers {
			ic.Containers = append(ic.Containers, service.Container{
				Name:      c.Name,
				Command:   c.Command,
				Args:      c.Args,
				Resources: c.Resources.toService(),
			})
		}
		b = b.InitContainer(ic)
	}
	if r := d.Resources.toService(); !r.IsZero() {
		b = b.Resources(r)
	}
	if d.Replicas != nil {
		b = b.Replicas(service.ReplicaPolicy{
			Min:     d.Replicas.Min,
			Max:     d.Replicas.Max,
			Default: d.Replicas.Default,
		})
	}
	if d.HPA.RequestsPerSecond != 0 {
		b = b.HPA(d.HPA.RequestsPerSecond)
	}
	if len(d.Volumes) > 0 {
		volumes := make([]service.Volume, 0, len(d.Volumes))
		for _, v := range d.Volumes {
			volumes = append(volumes, service.Volume{
				Name:         v.Name,
				Size:         v.Size,
				AccessModes:  v.AccessModes,
				MountPath:    v.MountPath,
				StorageClass: v.StorageClass,
			})
		}
		b = b.Volumes(volumes...)
	}
	if d.ServiceAccount != "" {
		b = b.ServiceAccount(d.ServiceAccount)
	}
	if d.SecurityContext != (SecurityContext{}) {
		b = b.SecurityContext(service.SecurityContext{
			Privileged:               d.SecurityContext.Privileged,
			AllowPrivilegeEscalation: d.SecurityContext.AllowPrivilegeEscalation,
		})
	}
	if len(d.Extra) > 0 {
		b = b.Extra(d.Extra)
	}

	return b.Build(), nil
}

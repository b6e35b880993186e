// Package validate checks structural invariants of resolved services.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/cameronsjo/berth/internal/defaults"
	"github.com/cameronsjo/berth/internal/resolve"
	"github.com/cameronsjo/berth/internal/service"
)

// Messages for volume and init container checks.
const (
	ErrVolumeName   = "must set volume name if more than one"
	ErrNoContainers = "no containers to run defined"
)

// CollisionError formats a key present in both env and secrets.
func CollisionError(svc, key string) string {
	return fmt.Sprintf("collision in service %s for environment or secrets for key %s", svc, key)
}

// Check is one independent validation.
type Check func(svc *resolve.Service) []string

// Checks run in order; every check runs regardless of earlier failures.
var Checks = []Check{
	Collisions,
	VolumeNames,
	InitContainers,
	DatabaseHost,
	HeapHeadroom,
	Port,
	Replicas,
	Names,
	Quantities,
}

// Service runs every check and returns the accumulated errors.
func Service(svc *resolve.Service) []string {
	var errs []string
	for _, check := range Checks {
		errs = append(errs, check(svc)...)
	}
	return errs
}

// Collisions reports keys present in both the env and secrets of the service
// or its init containers, counting implicitly added keys and declared keys
// that did not resolve. Each key is reported once.
func Collisions(svc *resolve.Service) []string {
	colliding := sets.New[string]()
	colliding.Insert(intersect(envKeys(svc.AllEnv(), svc.EnvKeys), svc.AllSecrets())...)
	if svc.InitContainer != nil {
		colliding.Insert(intersect(envKeys(svc.InitEnv(), svc.InitContainer.EnvKeys), svc.InitSecrets())...)
	}

	var errs []string
	for _, key := range sets.List(colliding) {
		errs = append(errs, CollisionError(svc.Name, key))
	}
	return errs
}

// VolumeNames requires every volume to be named when more than one exists.
func VolumeNames(svc *resolve.Service) []string {
	if len(svc.Volumes) <= 1 {
		return nil
	}
	for _, v := range svc.Volumes {
		if v.Name == "" {
			return []string{ErrVolumeName}
		}
	}
	return nil
}

// InitContainers requires declared init containers to run something.
func InitContainers(svc *resolve.Service) []string {
	if svc.InitContainer != nil && len(svc.InitContainer.Containers) == 0 {
		return []string{ErrNoContainers}
	}
	return nil
}

// DatabaseHost reports a database host that could not be resolved.
func DatabaseHost(svc *resolve.Service) []string {
	if svc.Postgres != nil && svc.Postgres.HostErr != "" {
		return []string{svc.Postgres.HostErr}
	}
	return nil
}

// HeapHeadroom requires the memory limit to leave room for the heap margin.
func HeapHeadroom(svc *resolve.Service) []string {
	limit := defaults.Effective(svc.Resources, defaults.Resources).Limits.Memory
	// Unparseable limits are reported by Quantities.
	if _, err := defaults.HeapMi(limit); errors.Is(err, defaults.ErrHeapTooSmall) {
		return []string{fmt.Sprintf("service %s: %v", svc.Name, err)}
	}
	return nil
}

// Port requires the container port, if set, to be a valid TCP port.
func Port(svc *resolve.Service) []string {
	if svc.Port == 0 {
		return nil
	}
	if svc.Port < 0 {
		return []string{fmt.Sprintf("service %s: invalid port %d", svc.Name, svc.Port)}
	}
	if _, err := nat.ParsePort(strconv.Itoa(svc.Port)); err != nil {
		return []string{fmt.Sprintf("service %s: invalid port %d: %v", svc.Name, svc.Port, err)}
	}
	return nil
}

// Replicas requires a non-negative replica range with the default inside it.
func Replicas(svc *resolve.Service) []string {
	r := svc.Replicas
	switch {
	case r.Min < 0:
		return []string{fmt.Sprintf("service %s: invalid replicas: min %d is negative", svc.Name, r.Min)}
	case r.Min > r.Max:
		return []string{fmt.Sprintf("service %s: invalid replicas: min %d exceeds max %d", svc.Name, r.Min, r.Max)}
	case r.Default < r.Min || r.Default > r.Max:
		return []string{fmt.Sprintf("service %s: invalid replicas: default %d outside %d-%d", svc.Name, r.Default, r.Min, r.Max)}
	}
	return nil
}

// Names checks the namespace and ingress hosts are valid DNS names.
func Names(svc *resolve.Service) []string {
	var errs []string
	if msgs := validation.IsDNS1123Label(svc.Namespace); len(msgs) > 0 {
		errs = append(errs, fmt.Sprintf("service %s: invalid namespace %q: %s", svc.Name, svc.Namespace, strings.Join(msgs, "; ")))
	}
	for _, name := range svc.IngressNames() {
		host := svc.Ingress[name].Host
		if host == "" {
			continue
		}
		if msgs := validation.IsDNS1123Subdomain(host); len(msgs) > 0 {
			errs = append(errs, fmt.Sprintf("service %s: invalid host %q for ingress %s: %s", svc.Name, host, name, strings.Join(msgs, "; ")))
		}
	}
	return errs
}

// Quantities checks that declared resources parse as Kubernetes quantities.
func Quantities(svc *resolve.Service) []string {
	var errs []string
	check := func(owner string, r service.Resources) {
		fields := map[string]string{
			"limits.cpu":      r.Limits.CPU,
			"limits.memory":   r.Limits.Memory,
			"requests.cpu":    r.Requests.CPU,
			"requests.memory": r.Requests.Memory,
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, field := range keys {
			raw := fields[field]
			if raw == "" {
				continue
			}
			if _, err := resource.ParseQuantity(raw); err != nil {
				errs = append(errs, fmt.Sprintf("%s: invalid %s %q", owner, field, raw))
			}
		}
	}

	check("service "+svc.Name, svc.Resources)
	if svc.InitContainer != nil {
		for _, c := range svc.InitContainer.Containers {
			check("init container "+c.Name, c.Resources)
		}
	}
	return errs
}

// envKeys returns the keys of resolved plus the declared keys.
func envKeys(resolved map[string]string, declared []string) sets.Set[string] {
	return sets.KeySet(resolved).Insert(declared...)
}

func intersect(env sets.Set[string], secrets map[string]string) []string {
	var keys []string
	for k := range env {
		if _, ok := secrets[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

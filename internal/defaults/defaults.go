// Package defaults is the single table of fixed values the renderer and
// validator agree on.
package defaults

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/cameronsjo/berth/internal/service"
)

const (
	// HeapMarginMi is subtracted from the memory limit to size the runtime
	// heap, leaving room for non-heap memory.
	HeapMarginMi int64 = 48

	// CPUAverageUtilization is the autoscaling CPU target in percent.
	CPUAverageUtilization = 90

	// RequestsPerSecond is the default request-rate autoscaling target.
	RequestsPerSecond = 5

	// FeatureMaxReplicas caps replicas in feature deployments.
	FeatureMaxReplicas = 2

	// FeatureMinReplicas caps the replica floor in feature deployments.
	FeatureMinReplicas = 1

	// IdentifierMaxLength is the relational-database identifier ceiling.
	IdentifierMaxLength = 64

	// MockImage serves stub HTTP responses in isolated environments.
	MockImage = "bbyars/mountebank"

	// MockPort is the port the mock image listens on for imposters.
	MockPort = 2525

	// HeapEnvKey receives the runtime heap flag.
	HeapEnvKey = "NODE_OPTIONS"

	// FeaturesEnvKey receives the comma-separated enabled feature flags.
	FeaturesEnvKey = "SERVERSIDE_FEATURES_ON"

	// RoleARNAnnotation binds a service account to an IAM role.
	RoleARNAnnotation = "eks.amazonaws.com/role-arn"
)

// Resources applies to services that declare none.
var Resources = service.Resources{
	Limits:   service.ResourceSet{CPU: "200m", Memory: "256Mi"},
	Requests: service.ResourceSet{CPU: "100m", Memory: "128Mi"},
}

// InitResources applies to init containers that declare none.
var InitResources = service.Resources{
	Limits:   service.ResourceSet{CPU: "200m", Memory: "256Mi"},
	Requests: service.ResourceSet{CPU: "50m", Memory: "128Mi"},
}

// ErrHeapTooSmall reports a memory limit that leaves no heap after the margin.
var ErrHeapTooSmall = errors.New("memory limit leaves no heap headroom")

// Effective fills unset resource fields from fallback.
func Effective(r, fallback service.Resources) service.Resources {
	fill := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return service.Resources{
		Limits: service.ResourceSet{
			CPU:    fill(r.Limits.CPU, fallback.Limits.CPU),
			Memory: fill(r.Limits.Memory, fallback.Limits.Memory),
		},
		Requests: service.ResourceSet{
			CPU:    fill(r.Requests.CPU, fallback.Requests.CPU),
			Memory: fill(r.Requests.Memory, fallback.Requests.Memory),
		},
	}
}

// HeapMi returns the heap size in MiB for a container memory limit.
func HeapMi(memoryLimit string) (int64, error) {
	q, err := resource.ParseQuantity(memoryLimit)
	if err != nil {
		return 0, fmt.Errorf("parse memory limit %q: %w", memoryLimit, err)
	}

	limitMi := q.Value() / (1024 * 1024)
	heap := limitMi - HeapMarginMi
	if heap <= 0 {
		return 0, fmt.Errorf("%w: limit %s, need more than %dMi", ErrHeapTooSmall, memoryLimit, HeapMarginMi)
	}
	return heap, nil
}

// HeapFlag returns the runtime option that caps heap size.
func HeapFlag(heapMi int64) string {
	return fmt.Sprintf("--max-old-space-size=%d", heapMi)
}

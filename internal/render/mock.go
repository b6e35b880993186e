package render

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cameronsjo/berth/internal/defaults"
	"github.com/cameronsjo/berth/internal/environment"
)

// ErrMocksNotAllowed is returned when mocks are requested for an environment
// that renders real services only.
var ErrMocksNotAllowed = errors.New("mocks are not allowed in this environment")

// MockName returns the name a stub for service is rendered under.
func MockName(service string) string {
	return "mock-" + service
}

// Mock renders a stub standing in for service, backed by a generic HTTP stub
// image. Only environments with AllowMocks set accept mocks.
func Mock(service, namespace string, env *environment.Config) (*Manifest, error) {
	if !env.AllowMocks || env.Type == environment.TypeProd {
		return nil, fmt.Errorf("%w: %s", ErrMocksNotAllowed, env.Name)
	}

	port := strconv.Itoa(defaults.MockPort)
	health := Probe{Path: "/", InitialDelaySeconds: 3, TimeoutSeconds: 3}
	r := renderResources(defaults.InitResources)

	return &Manifest{
		Enabled:     true,
		Namespace:   namespace,
		Image:       Image{Repository: defaults.MockImage},
		Env:         map[string]string{},
		Secrets:     map[string]string{},
		HealthCheck: HealthCheck{Liveness: health, Readiness: health},
		Resources:   r,
		ReplicaCount: ReplicaCount{
			Min:     1,
			Max:     1,
			Default: 1,
		},
		HPA: HPA{Scaling: HPAScaling{
			Replicas: HPAReplicas{Min: 1, Max: 1},
			Metric: HPAMetric{
				CPUAverageUtilization: defaults.CPUAverageUtilization,
				NginxRequestsIrate:    defaults.RequestsPerSecond,
			},
		}},
		Service: &ServicePort{TargetPort: defaults.MockPort},
		Command: []string{"mb"},
		Args:    []string{"start", "--port", port, "--configfile", "/mocks/" + service + ".json"},
	}, nil
}

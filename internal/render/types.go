// Package render maps resolved services onto the value tree consumed by the
// deployment chart.
package render

// Manifest is the rendered value tree for one service.
type Manifest struct {
	Enabled         bool               `json:"enabled"`
	Namespace       string             `json:"namespace"`
	Image           Image              `json:"image"`
	Env             map[string]string  `json:"env"`
	Secrets         map[string]string  `json:"secrets"`
	HealthCheck     HealthCheck        `json:"healthCheck"`
	Resources       Resources          `json:"resources"`
	ReplicaCount    ReplicaCount       `json:"replicaCount"`
	HPA             HPA                `json:"hpa"`
	Service         *ServicePort       `json:"service,omitempty"`
	Ingress         map[string]Ingress `json:"ingress,omitempty"`
	InitContainer   *InitContainer     `json:"initContainer,omitempty"`
	PVCs            []PVC              `json:"pvcs,omitempty"`
	ServiceAccount  *ServiceAccount    `json:"serviceAccount,omitempty"`
	Command         []string           `json:"command,omitempty"`
	Args            []string           `json:"args,omitempty"`
	SecurityContext *SecurityContext   `json:"securityContext,omitempty"`
	Extra           map[string]any     `json:"extra,omitempty"`
}

// Image points at the container image repository.
type Image struct {
	Repository string `json:"repository"`
}

// Probe is one rendered health check.
type Probe struct {
	Path                string `json:"path"`
	InitialDelaySeconds int    `json:"initialDelaySeconds"`
	TimeoutSeconds      int    `json:"timeoutSeconds"`
}

// HealthCheck holds both probes.
type HealthCheck struct {
	Liveness  Probe `json:"liveness"`
	Readiness Probe `json:"readiness"`
}

// ResourceSet is one of requests or limits.
type ResourceSet struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
}

// Resources holds container requests and limits.
type Resources struct {
	Limits   ResourceSet `json:"limits"`
	Requests ResourceSet `json:"requests"`
}

// ReplicaCount bounds the number of pods.
type ReplicaCount struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// HPAReplicas bounds the autoscaler.
type HPAReplicas struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// HPAMetric is the autoscaling trigger.
type HPAMetric struct {
	CPUAverageUtilization int `json:"cpuAverageUtilization"`
	NginxRequestsIrate    int `json:"nginxRequestsIrate"`
}

// HPAScaling combines replica bounds and the scaling trigger.
type HPAScaling struct {
	Replicas HPAReplicas `json:"replicas"`
	Metric   HPAMetric   `json:"metric"`
}

// HPA is the horizontal pod autoscaler policy.
type HPA struct {
	Scaling HPAScaling `json:"scaling"`
}

// ServicePort exposes the container port.
type ServicePort struct {
	TargetPort int `json:"targetPort"`
}

// IngressHost is one host and its paths.
type IngressHost struct {
	Host  string   `json:"host"`
	Paths []string `json:"paths"`
}

// Ingress is one rendered ingress rule.
type Ingress struct {
	Annotations map[string]string `json:"annotations"`
	Hosts       []IngressHost     `json:"hosts"`
}

// Container is one rendered init container.
type Container struct {
	Name      string    `json:"name,omitempty"`
	Command   []string  `json:"command,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Resources Resources `json:"resources"`
}

// InitContainer holds init containers and their configuration.
type InitContainer struct {
	Containers []Container       `json:"containers"`
	Env        map[string]string `json:"env"`
	Secrets    map[string]string `json:"secrets"`
	Extensions []string          `json:"extensions,omitempty"`
}

// PVC is a persistent volume claim.
type PVC struct {
	Name         string   `json:"name"`
	Size         string   `json:"size"`
	AccessModes  []string `json:"accessModes"`
	MountPath    string   `json:"mountPath"`
	StorageClass string   `json:"storageClass"`
}

// ServiceAccount binds the pods to an IAM role.
type ServiceAccount struct {
	Create      bool              `json:"create"`
	Name        string            `json:"name"`
	Annotations map[string]string `json:"annotations"`
}

// SecurityContext carries container security flags.
type SecurityContext struct {
	Privileged               bool `json:"privileged"`
	AllowPrivilegeEscalation bool `json:"allowPrivilegeEscalation"`
}

// Package pipeline renders a batch of services for one environment.
//
// One resolution context is built per batch and shared by every service.
// Each service then runs Resolve, Validate, the feature overlay (feature
// deployments only) and Render independently; the batch succeeds only when
// every service is clean.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/cameronsjo/berth/internal/environment"
	"github.com/cameronsjo/berth/internal/merge"
	"github.com/cameronsjo/berth/internal/overlay"
	"github.com/cameronsjo/berth/internal/render"
	"github.com/cameronsjo/berth/internal/resolve"
	"github.com/cameronsjo/berth/internal/service"
	"github.com/cameronsjo/berth/internal/validate"
	"github.com/cameronsjo/berth/internal/value"
)

// Batch result types.
const (
	TypeSuccess = "success"
	TypeError   = "error"
)

// MockNamespace is where mocks are deployed outside a feature deployment.
const MockNamespace = "mocks"

// DefaultConcurrency bounds the number of services processed at once.
const DefaultConcurrency = 8

var (
	// ErrUnknownService is returned when the batch names an undeclared service.
	ErrUnknownService = errors.New("unknown service")

	// ErrInvalidFeature is returned when a feature name cannot be used as a
	// namespace component.
	ErrInvalidFeature = errors.New("invalid feature name")

	// ErrMockConflict is returned when a service is both rendered and mocked.
	ErrMockConflict = errors.New("service is both rendered and mocked")

	// ErrFeatureConflict is returned when the requested feature differs from
	// the one the environment already targets.
	ErrFeatureConflict = errors.New("feature conflicts with environment")
)

// renderNamespace seeds the deterministic render ID.
var renderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://berth.io/render"))

// Options tune a pipeline run.
type Options struct {
	// Services selects the batch. Empty renders every declared service.
	Services []string

	// Feature deploys the batch as an isolated feature branch. An
	// environment with its own feature set is deployed as that feature.
	Feature string

	// Mocks lists services replaced by HTTP stubs.
	Mocks []string

	// Values are deep-merged into each service's extra values, keyed by
	// service name.
	Values map[string]map[string]any

	// Concurrency bounds parallel work. Zero uses DefaultConcurrency.
	Concurrency int

	Logger zerolog.Logger
}

// ServiceResult is the outcome for a single service.
type ServiceResult struct {
	Type       string           `json:"type"`
	ServiceDef *render.Manifest `json:"serviceDef,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// Result is the outcome of a batch. ServiceDef is set only on success.
type Result struct {
	Type       string                      `json:"type"`
	ServiceDef map[string]*render.Manifest `json:"serviceDef,omitempty"`
	Errors     []string                    `json:"errors,omitempty"`

	// Services holds every per-service result, including failures.
	Services map[string]*ServiceResult `json:"-"`

	// RenderID identifies the inputs of the run.
	RenderID string `json:"-"`
}

// OK reports whether every service rendered cleanly.
func (r *Result) OK() bool {
	return r.Type == TypeSuccess
}

// Run renders the selected services of defs for env. Per-service failures
// are reported in the Result; the returned error covers only problems with
// the batch itself.
func Run(ctx context.Context, env *environment.Config, defs []*service.Definition, opts Options) (*Result, error) {
	log := opts.Logger

	known := make(map[string]*service.Definition, len(defs))
	for _, def := range defs {
		known[def.Name] = def
	}

	batch, err := selectBatch(known, opts.Services)
	if err != nil {
		return nil, err
	}

	feature := opts.Feature
	if env.IsFeature() {
		if feature != "" && feature != env.Feature {
			return nil, fmt.Errorf("%w: %q requested, environment %s targets %q", ErrFeatureConflict, feature, env.Name, env.Feature)
		}
		feature = env.Feature
	}

	if feature != "" {
		if errs := validation.IsDNS1123Label(overlay.Namespace(feature)); len(errs) > 0 {
			return nil, fmt.Errorf("%w %q: %s", ErrInvalidFeature, feature, strings.Join(errs, "; "))
		}
		env = env.WithFeature(feature)
	}

	mocks := slices.Clone(opts.Mocks)
	sort.Strings(mocks)
	mocks = slices.Compact(mocks)
	for _, name := range mocks {
		if slices.Contains(batch, name) {
			return nil, fmt.Errorf("%w: %s", ErrMockConflict, name)
		}
	}

	mockNamespace := MockNamespace
	if feature != "" {
		mockNamespace = overlay.Namespace(feature)
	}

	rctx := value.NewContext(env, Addresses(known, batch, mocks, feature, mockNamespace))

	result := &Result{
		Services: make(map[string]*ServiceResult, len(batch)+len(mocks)),
		RenderID: RenderID(env.Name, feature, batch, mocks),
	}

	log.Debug().
		Str("env", env.Name).
		Str("feature", feature).
		Strs("services", batch).
		Strs("mocks", mocks).
		Str("render_id", result.RenderID).
		Msg("Starting render")

	for _, name := range mocks {
		m, err := render.Mock(name, mockNamespace, env)
		if err != nil {
			return nil, fmt.Errorf("render mock %s: %w", name, err)
		}
		result.Services[render.MockName(name)] = &ServiceResult{Type: TypeSuccess, ServiceDef: m}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, name := range batch {
		def := known[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			sr := processService(def, rctx, env, feature, opts.Values[name])

			log.Debug().
				Str("service", name).
				Str("type", sr.Type).
				Int("errors", len(sr.Errors)).
				Msg("Processed service")

			mu.Lock()
			result.Services[name] = sr
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render batch: %w", err)
	}

	aggregate(result)

	event := log.Info()
	if !result.OK() {
		event = log.Warn()
	}
	event.
		Str("env", env.Name).
		Str("result", result.Type).
		Int("services", len(result.Services)).
		Int("errors", len(result.Errors)).
		Msg("Render complete")

	return result, nil
}

// processService runs the per-service stages. Validation failures stop the
// service before it is overlaid or rendered.
func processService(def *service.Definition, rctx *value.Context, env *environment.Config, feature string, values map[string]any) *ServiceResult {
	svc := resolve.Resolve(def, rctx)

	errs := append(slices.Clone(svc.Errors), validate.Service(svc)...)
	if len(errs) > 0 {
		return &ServiceResult{Type: TypeError, Errors: errs}
	}

	if feature != "" {
		svc = overlay.Apply(svc, feature)
	}
	if len(values) > 0 {
		svc.Extra = merge.DeepMerge(svc.Extra, values)
	}

	return &ServiceResult{Type: TypeSuccess, ServiceDef: render.Service(svc, env)}
}

// aggregate folds per-service results into the batch outcome.
func aggregate(result *Result) {
	names := make([]string, 0, len(result.Services))
	for name := range result.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, e := range result.Services[name].Errors {
			result.Errors = append(result.Errors, name+": "+e)
		}
	}

	if len(result.Errors) > 0 {
		result.Type = TypeError
		return
	}

	result.Type = TypeSuccess
	result.ServiceDef = make(map[string]*render.Manifest, len(names))
	for _, name := range names {
		result.ServiceDef[name] = result.Services[name].ServiceDef
	}
}

func selectBatch(known map[string]*service.Definition, selected []string) ([]string, error) {
	if len(selected) == 0 {
		batch := make([]string, 0, len(known))
		for name := range known {
			batch = append(batch, name)
		}
		sort.Strings(batch)
		return batch, nil
	}

	batch := slices.Clone(selected)
	sort.Strings(batch)
	batch = slices.Compact(batch)

	var unknown []string
	for _, name := range batch {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, strings.Join(unknown, ", "))
	}
	return batch, nil
}

// Address returns the in-cluster address of a service.
func Address(name, namespace string) string {
	return fmt.Sprintf("http://%s.%s.svc.cluster.local", name, namespace)
}

// Addresses builds the address table shared by a batch. In a feature
// deployment, services in the batch resolve to the feature namespace; all
// other services keep their own. Mocked services resolve to their stub.
func Addresses(known map[string]*service.Definition, batch, mocks []string, feature, mockNamespace string) map[string]string {
	addrs := make(map[string]string, len(known)+len(mocks))
	for name, def := range known {
		addrs[name] = Address(name, def.Namespace)
	}
	if feature != "" {
		for _, name := range batch {
			addrs[name] = Address(name, overlay.Namespace(feature))
		}
	}
	for _, name := range mocks {
		addrs[name] = Address(render.MockName(name), mockNamespace)
	}
	return addrs
}

// RenderID derives a stable identifier from the inputs of a run.
func RenderID(env, feature string, services, mocks []string) string {
	key := strings.Join([]string{
		env,
		feature,
		strings.Join(services, ","),
		strings.Join(mocks, ","),
	}, "\n")
	return uuid.NewSHA1(renderNamespace, []byte(key)).String()
}

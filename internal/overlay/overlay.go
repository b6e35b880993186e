// Package overlay rewrites resolved services into isolated feature-branch
// deployments.
package overlay

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cameronsjo/berth/internal/defaults"
	"github.com/cameronsjo/berth/internal/resolve"
	"github.com/cameronsjo/berth/internal/service"
)

var nonIdentifier = regexp.MustCompile(`[^a-z0-9_]+`)

// Namespace returns the namespace all services of a feature deploy into.
func Namespace(feature string) string {
	return "feature-" + feature
}

// Host prefixes an ingress host with the feature name.
func Host(feature, host string) string {
	if host == "" {
		return feature
	}
	return feature + "-" + host
}

// SecretPath inserts the feature marker right after the fixed secret prefix.
// Paths outside the prefix are returned unchanged.
func SecretPath(feature, path string) string {
	rest, ok := strings.CutPrefix(path, service.SecretPrefix)
	if !ok {
		return path
	}
	return service.SecretPrefix + "feature-" + feature + "-" + rest
}

// Identifier derives a database identifier unique to the feature, truncated
// on a rune boundary to the identifier length limit in bytes.
func Identifier(feature, original string) string {
	sanitized := nonIdentifier.ReplaceAllString(strings.ToLower(feature), "_")
	id := "feature_" + sanitized + "_" + original
	if len(id) <= defaults.IdentifierMaxLength {
		return id
	}
	n := defaults.IdentifierMaxLength
	for n > 0 && !utf8.RuneStart(id[n]) {
		n--
	}
	return id[:n]
}

// Apply returns a copy of svc isolated for the feature branch. The input is
// not modified.
func Apply(svc *resolve.Service, feature string) *resolve.Service {
	out := *svc
	out.Feature = feature
	out.Namespace = Namespace(feature)
	out.Replicas = capReplicas(svc.Replicas)
	out.Errors = slices.Clone(svc.Errors)

	out.Ingress = make(map[string]resolve.Ingress, len(svc.Ingress))
	for name, ing := range svc.Ingress {
		ing.Host = Host(feature, ing.Host)
		ing.Paths = slices.Clone(ing.Paths)
		ing.Annotations = maps.Clone(ing.Annotations)
		out.Ingress[name] = ing
	}

	if svc.Postgres != nil {
		pg := *svc.Postgres
		pg.Name = Identifier(feature, pg.Name)
		pg.Username = Identifier(feature, pg.Username)
		pg.PasswordSecret = SecretPath(feature, pg.PasswordSecret)
		pg.Extensions = slices.Clone(pg.Extensions)
		out.Postgres = &pg
	}

	return &out
}

func capReplicas(r service.ReplicaPolicy) service.ReplicaPolicy {
	out := service.ReplicaPolicy{
		Min: min(r.Min, defaults.FeatureMinReplicas),
		Max: min(r.Max, defaults.FeatureMaxReplicas),
	}
	if out.Min < 0 {
		out.Min = 0
	}
	if out.Max < out.Min {
		out.Max = out.Min
	}
	out.Default = out.Min
	return out
}

package manifest

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/berth/internal/value"
)

// ErrInvalidValue indicates a YAML node that is not a valid environment value.
var ErrInvalidValue = errors.New("invalid value")

// Value is the YAML form of an environment value:
//
//	KEY: text                       # literal
//	KEY: null                       # missing, must be supplied per environment
//	KEY: {dev: a, prod: null}       # per environment
//	KEY: {ref: other-service}       # address of another service
//	KEY: {template: "{{ .Env }}"}   # computed from the environment
type Value struct {
	v       value.Value
	decoded bool
}

// UnmarshalYAML implements yaml.Unmarshaler. Null nodes never reach it; see
// orMissing.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseValue(node)
	if err != nil {
		return err
	}
	v.v = parsed
	v.decoded = true
	return nil
}

// Value returns the decoded value. An unset field is an empty literal.
func (v Value) Value() value.Value {
	return v.v
}

// orMissing returns the decoded value, or Missing when the node was null.
// Only meaningful for map entries, where presence is explicit.
func (v Value) orMissing() value.Value {
	if !v.decoded {
		return value.Missing()
	}
	return v.v
}

func parseValue(node *yaml.Node) (value.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return value.Missing(), nil
		}
		return value.Literal(node.Value), nil

	case yaml.MappingNode:
		if len(node.Content) == 2 {
			key, val := node.Content[0].Value, node.Content[1]
			switch key {
			case "ref":
				if val.Kind != yaml.ScalarNode || val.Value == "" {
					return value.Value{}, fmt.Errorf("%w at line %d: ref needs a service name", ErrInvalidValue, node.Line)
				}
				return value.Ref(val.Value), nil
			case "template":
				if val.Kind != yaml.ScalarNode {
					return value.Value{}, fmt.Errorf("%w at line %d: template must be a string", ErrInvalidValue, node.Line)
				}
				tmpl, err := value.Template(val.Value)
				if err != nil {
					return value.Value{}, fmt.Errorf("%w at line %d: %w", ErrInvalidValue, node.Line, err)
				}
				return tmpl, nil
			}
		}
		return parsePerEnv(node)

	case yaml.AliasNode:
		return parseValue(node.Alias)

	default:
		return value.Value{}, fmt.Errorf("%w at line %d: expected a string or mapping", ErrInvalidValue, node.Line)
	}
}

func parsePerEnv(node *yaml.Node) (value.Value, error) {
	entries := make(map[string]value.Value, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		env, val := node.Content[i].Value, node.Content[i+1]
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}
		if val.Kind != yaml.ScalarNode {
			return value.Value{}, fmt.Errorf("%w at line %d: environment %s must be a string or null", ErrInvalidValue, val.Line, env)
		}
		if val.ShortTag() == "!!null" {
			entries[env] = value.Missing()
			continue
		}
		entries[env] = value.Literal(val.Value)
	}
	return value.PerEnv(entries), nil
}

func toValues(in map[string]Value) map[string]value.Value {
	if in == nil {
		return nil
	}
	out := make(map[string]value.Value, len(in))
	for k, v := range in {
		out[k] = v.orMissing()
	}
	return out
}

package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/berth/internal/merge"
	"github.com/cameronsjo/berth/internal/service"
)

var (
	// ErrMissingName indicates a declaration whose name cannot be determined.
	ErrMissingName = errors.New("missing service name")

	// ErrDuplicateService indicates two declarations with the same name.
	ErrDuplicateService = errors.New("duplicate service")
)

// Loader reads service declarations and the includes they pull in.
type Loader struct {
	// IncludesDir holds reusable fragments referenced by name.
	IncludesDir string

	// Vars are available to every declaration for ${var} interpolation.
	// A declaration's own vars take precedence; ${name} is always the
	// service name.
	Vars map[string]any
}

// Load reads a single declaration file.
func (l *Loader) Load(path string) (*service.Definition, error) {
	decl, err := l.Declaration(path)
	if err != nil {
		return nil, err
	}
	return decl.Definition()
}

// LoadDir reads every *.yaml and *.yml declaration in dir, sorted by name.
func (l *Loader) LoadDir(dir string) ([]*service.Definition, error) {
	files, err := listYAML(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	defs := make([]*service.Definition, 0, len(files))
	for _, file := range files {
		def, err := l.Load(file)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[def.Name]; ok {
			return nil, fmt.Errorf("%w %s: declared in %s and %s", ErrDuplicateService, def.Name, prev, file)
		}
		seen[def.Name] = file
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Declaration reads a declaration file, merges its includes and
// interpolates variables.
func (l *Loader) Declaration(path string) (*Declaration, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if err := metaOf(doc).Validate(KindService); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	name, _ := doc["name"].(string)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if name == "" {
		return nil, fmt.Errorf("load %s: %w", path, ErrMissingName)
	}

	variables := make(map[string]any, len(l.Vars)+1)
	for k, v := range l.Vars {
		variables[k] = v
	}
	if vars, ok := doc["vars"].(map[string]any); ok {
		for k, v := range vars {
			variables[k] = v
		}
	}
	variables["name"] = name

	includes := stringList(doc["includes"])
	body, err := InterpolateMap(stripMeta(doc), variables)
	if err != nil {
		return nil, fmt.Errorf("interpolate %s: %w", path, err)
	}

	merged := make(map[string]any)
	loaded := map[string]bool{}
	for _, include := range includes {
		fragment, err := l.loadInclude(include, variables, loaded)
		if err != nil {
			return nil, fmt.Errorf("include %s in %s: %w", include, path, err)
		}
		merged = merge.DeepMerge(merged, fragment)
	}
	merged = merge.DeepMerge(merged, body)
	merged["name"] = name

	decl, err := decode(merged)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return decl, nil
}

// loadInclude reads a fragment and its own includes, depth first. A
// fragment already loaded for this declaration is skipped.
func (l *Loader) loadInclude(name string, variables map[string]any, loaded map[string]bool) (map[string]any, error) {
	if loaded[name] {
		return map[string]any{}, nil
	}
	loaded[name] = true

	path, err := l.includePath(name)
	if err != nil {
		return nil, err
	}
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if err := metaOf(doc).Validate(KindInclude); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	body, err := InterpolateMap(stripMeta(doc), variables)
	if err != nil {
		return nil, fmt.Errorf("interpolate %s: %w", path, err)
	}

	result := make(map[string]any)
	for _, nested := range stringList(doc["includes"]) {
		fragment, err := l.loadInclude(nested, variables, loaded)
		if err != nil {
			return nil, fmt.Errorf("include %s in %s: %w", nested, name, err)
		}
		result = merge.DeepMerge(result, fragment)
	}
	return merge.DeepMerge(result, body), nil
}

func (l *Loader) includePath(name string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(l.IncludesDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("include not found: %s", filepath.Join(l.IncludesDir, name+".yaml"))
}

// ListIncludes returns the names of all available includes.
func (l *Loader) ListIncludes() ([]string, error) {
	files, err := listYAML(l.IncludesDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
	}
	return names, nil
}

func listYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dir)
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return map[string]any{}, nil
	}

	doc, ok := fromNode(node.Content[0]).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: top level must be a mapping", path)
	}
	return doc, nil
}

func stripMeta(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range metaKeys {
		delete(out, k)
	}
	return out
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

// decode converts a merged document into a Declaration. Unknown fields are
// rejected.
func decode(doc map[string]any) (*Declaration, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var decl Declaration
	if err := dec.Decode(&decl); err != nil {
		return nil, err
	}
	return &decl, nil
}

// scalar keeps a non-string YAML scalar verbatim so "1.10" survives the
// round trip through merging.
type scalar struct {
	tag  string
	text string
}

func (s scalar) String() string {
	return s.text
}

// MarshalYAML implements yaml.Marshaler.
func (s scalar) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: s.tag, Value: s.text}, nil
}

// fromNode converts a YAML node into plain maps and slices. Strings stay
// strings, other scalars keep their source text.
func fromNode(node *yaml.Node) any {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil
		}
		return fromNode(node.Content[0])
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			out[node.Content[i].Value] = fromNode(node.Content[i+1])
		}
		return out
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			out = append(out, fromNode(item))
		}
		return out
	default:
		switch node.ShortTag() {
		case "!!null":
			return nil
		case "!!str":
			return node.Value
		default:
			return scalar{tag: node.ShortTag(), text: node.Value}
		}
	}
}

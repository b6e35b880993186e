package value

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateData is the root object available inside value templates.
type templateData struct {
	Env     string
	Domain  string
	Feature string
	Region  string
}

// Template parses text as a Go template evaluated at resolution time.
// Besides the sprig functions, templates can call:
//
//	ref "service"   address of another service
//	feature         active feature-branch name
//	flag "name"     whether a feature flag is enabled
func Template(text string) (Value, error) {
	// Syntax errors are reported at declaration time.
	if _, err := newTemplate(text, &Context{}); err != nil {
		return Value{}, fmt.Errorf("parse template: %w", err)
	}

	return Computed("template "+text, func(ctx *Context) (string, error) {
		tmpl, err := newTemplate(text, ctx)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}

		data := templateData{Env: ctx.EnvName(), Feature: ctx.Feature()}
		if ctx.Env != nil {
			data.Domain = ctx.Env.Domain
			data.Region = ctx.Env.Region
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("execute template: %w", err)
		}
		return buf.String(), nil
	}), nil
}

// MustTemplate is like Template but panics on a parse error.
func MustTemplate(text string) Value {
	v, err := Template(text)
	if err != nil {
		panic(err)
	}
	return v
}

func newTemplate(text string, ctx *Context) (*template.Template, error) {
	return template.New("value").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"ref":     ctx.Address,
			"feature": ctx.Feature,
			"flag":    ctx.FeatureEnabled,
		}).
		Parse(text)
}

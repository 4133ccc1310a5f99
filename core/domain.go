package core

import (
	"fmt"
	"strings"
)

// Schema maps a field name to its validation rule.
type Schema map[string]any

func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for key, value := range s {
		if nested, ok := value.(map[string]any); ok {
			out[key] = copyAnyMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}

// Projection maps a field name to an inclusion marker.
type Projection map[string]any

func (p Projection) Clone() Projection {
	if p == nil {
		return nil
	}
	out := make(Projection, len(p))
	for key, value := range p {
		out[key] = value
	}
	return out
}

type Datasource struct {
	Source     string
	Projection Projection
	Extra      map[string]any
}

func (d Datasource) Clone() Datasource {
	out := Datasource{
		Source:     d.Source,
		Projection: d.Projection.Clone(),
	}
	if d.Extra != nil {
		out.Extra = copyAnyMap(d.Extra)
	}
	return out
}

// Resource describes one registrable domain resource.
type Resource struct {
	Schema     Schema
	Datasource Datasource
	Indexes    map[string]IndexSpec
	Settings   map[string]any
}

func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := &Resource{
		Schema:     r.Schema.Clone(),
		Datasource: r.Datasource.Clone(),
	}
	if r.Indexes != nil {
		out.Indexes = make(map[string]IndexSpec, len(r.Indexes))
		for name, spec := range r.Indexes {
			out.Indexes[name] = spec.Clone()
		}
	}
	if r.Settings != nil {
		out.Settings = copyAnyMap(r.Settings)
	}
	return out
}

// SourceName is the datasource source, or name when none is declared.
func (r *Resource) SourceName(name string) string {
	if r != nil {
		if source := strings.TrimSpace(r.Datasource.Source); source != "" {
			return source
		}
	}
	return name
}

// Domain is the set of configured resources keyed by resource name.
type Domain map[string]*Resource

func (d Domain) Clone() Domain {
	if d == nil {
		return Domain{}
	}
	out := make(Domain, len(d))
	for name, resource := range d {
		out[name] = resource.Clone()
	}
	return out
}

func (d Domain) Names() []string {
	return sortedKeys(d)
}

// DomainFromAny accepts a Domain or a decoded configuration mapping and returns
// a detached Domain.
func DomainFromAny(value any) (Domain, error) {
	switch typed := value.(type) {
	case nil:
		return Domain{}, nil
	case Domain:
		return typed.Clone(), nil
	case map[string]*Resource:
		return Domain(typed).Clone(), nil
	case map[string]Resource:
		out := make(Domain, len(typed))
		for name, resource := range typed {
			out[name] = resource.Clone()
		}
		return out, nil
	case map[string]any:
		out := make(Domain, len(typed))
		for name, raw := range typed {
			resource, err := ResourceFromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("core: resource %q: %w", name, err)
			}
			out[name] = resource
		}
		return out, nil
	default:
		return nil, fmt.Errorf("core: unsupported domain value %T", value)
	}
}

// ResourceFromAny decodes one resource definition. Recognised keys are
// schema, datasource (source, projection) and indexes; everything else is
// kept in Settings.
func ResourceFromAny(value any) (*Resource, error) {
	switch typed := value.(type) {
	case nil:
		return &Resource{Schema: Schema{}, Datasource: Datasource{Projection: Projection{}}}, nil
	case *Resource:
		return typed.Clone(), nil
	case Resource:
		return typed.Clone(), nil
	case map[string]any:
		resource := &Resource{
			Schema:     Schema{},
			Datasource: Datasource{Projection: Projection{}},
		}
		for key, raw := range typed {
			switch key {
			case "schema":
				schema, err := asAnyMap(raw)
				if err != nil {
					return nil, fmt.Errorf("schema: %w", err)
				}
				resource.Schema = Schema(copyAnyMap(schema))
			case "datasource":
				datasource, err := datasourceFromAny(raw)
				if err != nil {
					return nil, err
				}
				resource.Datasource = datasource
			case "indexes":
				indexes, err := indexesFromAny(raw)
				if err != nil {
					return nil, err
				}
				resource.Indexes = indexes
			default:
				if resource.Settings == nil {
					resource.Settings = map[string]any{}
				}
				resource.Settings[key] = raw
			}
		}
		return resource, nil
	default:
		return nil, fmt.Errorf("unsupported resource value %T", value)
	}
}

func datasourceFromAny(value any) (Datasource, error) {
	raw, err := asAnyMap(value)
	if err != nil {
		return Datasource{}, fmt.Errorf("datasource: %w", err)
	}
	out := Datasource{Projection: Projection{}}
	for key, item := range raw {
		switch key {
		case "source":
			source, ok := item.(string)
			if !ok {
				return Datasource{}, fmt.Errorf("datasource: source must be a string, got %T", item)
			}
			out.Source = source
		case "projection":
			projection, err := asAnyMap(item)
			if err != nil {
				return Datasource{}, fmt.Errorf("datasource: projection: %w", err)
			}
			out.Projection = Projection(copyAnyMap(projection))
		default:
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra[key] = item
		}
	}
	return out, nil
}

func asAnyMap(value any) (map[string]any, error) {
	switch typed := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return typed, nil
	case Schema:
		return map[string]any(typed), nil
	case Projection:
		return map[string]any(typed), nil
	case map[string]int:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected mapping, got %T", value)
	}
}

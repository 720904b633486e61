// Package schema projects a commerce resource's OpenAPI schema into table
// column metadata: flattened properties, headers, required parameters, and
// override-driven visibility and ordering.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/model"
)

// Projector derives list-view column metadata from resource schemas. It is a
// pure function of (schema, sort order, overrides); it performs no network or
// state side effects.
type Projector struct {
	index     *openapi.Index
	sortOrder []string
	overrides map[string][]string
}

// NewProjector creates a Projector over the given index and schema config.
func NewProjector(index *openapi.Index, cfg config.SchemaConfig) *Projector {
	return &Projector{
		index:     index,
		sortOrder: cfg.SortOrder,
		overrides: cfg.Overrides,
	}
}

// Project derives the full projection for a resource. When an override
// mapping exists for the resource, column visibility equals exactly the
// override key set and column order follows the override key order; columns
// not listed in the override sort after all listed ones. Without an override,
// top-level non-read-only columns are visible and nested columns are hidden.
func (p *Projector) Project(resource string) (model.Projection, error) {
	rs, ok := p.index.Resource(resource)
	if !ok {
		return model.Projection{}, model.NewNotFoundError(
			fmt.Sprintf("resource %q not found in commerce API schema", resource),
		)
	}

	columns := p.defaultColumns(rs)
	flat := Flatten(rs.Properties)

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = c.ID
	}

	visibility := make(map[string]bool, len(columns))
	override, hasOverride := p.overrides[rs.Name]
	if hasOverride {
		listed := make(map[string]bool, len(override))
		for _, id := range override {
			listed[id] = true
		}
		for _, c := range columns {
			visibility[c.ID] = listed[c.ID]
		}
		columns = reorderByOverride(columns, override)
	} else {
		for _, c := range columns {
			spec := flat[c.ID]
			visibility[c.ID] = !spec.ReadOnly && !strings.Contains(c.ID, ".")
		}
	}

	return model.Projection{
		Resource:           rs.Name,
		Properties:         flat,
		ColumnHeaders:      headers,
		RequiredParameters: append([]string(nil), rs.RequiredParams...),
		Columns:            columns,
		Visibility:         visibility,
	}, nil
}

// defaultColumns walks the schema recursively and produces one column per
// leaf property, ordered by the configured sort order with the remainder
// alphabetical.
func (p *Projector) defaultColumns(rs *model.ResourceSchema) []model.ColumnDefinition {
	var columns []model.ColumnDefinition
	walkProperties(rs.Properties, nil, func(id string, path []string, spec *model.PropertySpec) {
		columns = append(columns, model.ColumnDefinition{
			ID:     id,
			Header: spec.Name,
			Kind:   spec.Kind,
			Path:   path,
		})
	})

	rank := make(map[string]int, len(p.sortOrder))
	for i, id := range p.sortOrder {
		rank[id] = i
	}
	sort.SliceStable(columns, func(i, j int) bool {
		ri, iOK := rank[columns[i].ID]
		rj, jOK := rank[columns[j].ID]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return columns[i].ID < columns[j].ID
		}
	})
	return columns
}

// reorderByOverride returns a deep copy of columns re-sorted by the override
// key order. Columns absent from the override sort after all listed columns,
// keeping their relative order. The input slice is never mutated; the shared
// schema-derived columns stay intact.
func reorderByOverride(columns []model.ColumnDefinition, override []string) []model.ColumnDefinition {
	rank := make(map[string]int, len(override))
	for i, id := range override {
		rank[id] = i
	}

	copied := make([]model.ColumnDefinition, len(columns))
	for i, c := range columns {
		c.Path = append([]string(nil), c.Path...)
		copied[i] = c
	}

	sort.SliceStable(copied, func(i, j int) bool {
		ri, iOK := rank[copied[i].ID]
		rj, jOK := rank[copied[j].ID]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		default:
			return false
		}
	})
	return copied
}

// Flatten converts nested property groups into a flat map keyed by dotted
// property path ("Inventory.QuantityAvailable"). Nested group parents are not
// included; only leaves carry values.
func Flatten(props map[string]*model.PropertySpec) map[string]model.PropertySpec {
	flat := make(map[string]model.PropertySpec)
	walkProperties(props, nil, func(id string, _ []string, spec *model.PropertySpec) {
		flat[id] = *spec
	})
	return flat
}

// walkProperties visits every leaf property depth-first, passing the dotted
// ID and nesting path.
func walkProperties(props map[string]*model.PropertySpec, prefix []string, visit func(id string, path []string, spec *model.PropertySpec)) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := props[name]
		if spec == nil {
			continue
		}
		path := append(append([]string(nil), prefix...), name)
		if spec.Kind == model.KindNested {
			walkProperties(spec.Properties, path, visit)
			continue
		}
		visit(strings.Join(path, "."), path, spec)
	}
}

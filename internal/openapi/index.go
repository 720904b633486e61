// Package openapi loads the commerce platform's OpenAPI specification and
// indexes its operations and resource schemas for projection into list views.
package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/harborline/shopfront/model"
)

// IndexedOperation holds a resolved OpenAPI operation with its context.
type IndexedOperation struct {
	OperationID  string
	Method       string
	PathTemplate string
	Parameters   []*openapi3.Parameter
}

// Index is an in-memory index of the commerce API: operations keyed by
// operationId and resource schemas keyed by component schema name.
type Index struct {
	operations map[string]IndexedOperation
	resources  map[string]*model.ResourceSchema
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		operations: make(map[string]IndexedOperation),
		resources:  make(map[string]*model.ResourceSchema),
	}
}

// NewIndexWithResources creates an index pre-populated with the given schemas,
// keyed case-insensitively. Used where schemas come from somewhere other than
// a spec file, such as fixtures.
func NewIndexWithResources(resources map[string]*model.ResourceSchema) *Index {
	idx := NewIndex()
	for name, rs := range resources {
		idx.resources[strings.ToLower(name)] = rs
	}
	return idx
}

// Load parses the OpenAPI spec at specPath and indexes all operations and
// component schemas.
func (idx *Index) Load(specPath string) error {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return fmt.Errorf("openapi: loading %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("openapi: validating %s: %w", specPath, err)
	}

	for path, pathItem := range doc.Paths.Map() {
		for method, op := range pathItem.Operations() {
			if op.OperationID == "" {
				continue
			}

			// Merge path-level and operation-level parameters.
			params := make([]*openapi3.Parameter, 0)
			for _, ref := range pathItem.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}
			for _, ref := range op.Parameters {
				if ref.Value != nil {
					params = append(params, ref.Value)
				}
			}

			idx.operations[op.OperationID] = IndexedOperation{
				OperationID:  op.OperationID,
				Method:       method,
				PathTemplate: path,
				Parameters:   params,
			}
		}
	}

	if doc.Components != nil {
		for name, ref := range doc.Components.Schemas {
			if ref.Value == nil || len(ref.Value.Properties) == 0 {
				continue
			}
			idx.resources[strings.ToLower(name)] = &model.ResourceSchema{
				Name:       name,
				Properties: convertProperties(ref.Value.Properties),
				Required:   append([]string(nil), ref.Value.Required...),
			}
		}
	}

	// Required parameters for a resource are the required path parameters of
	// its list operation (e.g. buyerID for buyer-scoped resources).
	for lower, rs := range idx.resources {
		op, ok := idx.listOperation(lower)
		if !ok {
			continue
		}
		for _, p := range op.Parameters {
			if p.In == openapi3.ParameterInPath && p.Required {
				rs.RequiredParams = append(rs.RequiredParams, p.Name)
			}
		}
	}

	return nil
}

// RegisterOperation adds or replaces an operation in the index.
func (idx *Index) RegisterOperation(op IndexedOperation) {
	idx.operations[op.OperationID] = op
}

// Operation returns the indexed operation for the given operation ID.
func (idx *Index) Operation(operationID string) (IndexedOperation, bool) {
	op, ok := idx.operations[operationID]
	return op, ok
}

// Resource returns the schema for the given resource name (case-insensitive).
func (idx *Index) Resource(name string) (*model.ResourceSchema, bool) {
	rs, ok := idx.resources[strings.ToLower(name)]
	return rs, ok
}

// ResourceNames returns all indexed resource names, sorted.
func (idx *Index) ResourceNames() []string {
	names := make([]string, 0, len(idx.resources))
	for _, rs := range idx.resources {
		names = append(names, rs.Name)
	}
	sort.Strings(names)
	return names
}

// OperationCount returns the number of indexed operations.
func (idx *Index) OperationCount() int {
	return len(idx.operations)
}

// listOperation finds the list operation for a resource, matching the
// platform's "<Resource>.List" operationId convention.
func (idx *Index) listOperation(resourceLower string) (IndexedOperation, bool) {
	for id, op := range idx.operations {
		if strings.EqualFold(id, resourceLower+".List") {
			return op, true
		}
	}
	return IndexedOperation{}, false
}

// convertProperties maps OpenAPI schema properties to PropertySpecs with a
// closed cell-kind tag. Arrays render as opaque strings.
func convertProperties(props openapi3.Schemas) map[string]*model.PropertySpec {
	result := make(map[string]*model.PropertySpec, len(props))
	for name, ref := range props {
		if ref.Value == nil {
			continue
		}
		result[name] = convertProperty(name, ref.Value)
	}
	return result
}

func convertProperty(name string, sch *openapi3.Schema) *model.PropertySpec {
	spec := &model.PropertySpec{
		Name:     name,
		Format:   sch.Format,
		ReadOnly: sch.ReadOnly,
	}

	switch {
	case len(sch.Properties) > 0:
		spec.Kind = model.KindNested
		spec.Properties = convertProperties(sch.Properties)
	case len(sch.Enum) > 0:
		spec.Kind = model.KindEnum
		for _, v := range sch.Enum {
			spec.Enum = append(spec.Enum, fmt.Sprintf("%v", v))
		}
		sort.Strings(spec.Enum)
	case sch.Type.Is(openapi3.TypeString) && (sch.Format == "date" || sch.Format == "date-time"):
		spec.Kind = model.KindDate
	case sch.Type.Is(openapi3.TypeNumber):
		spec.Kind = model.KindNumber
	case sch.Type.Is(openapi3.TypeInteger):
		spec.Kind = model.KindInteger
	case sch.Type.Is(openapi3.TypeBoolean):
		spec.Kind = model.KindBoolean
	default:
		spec.Kind = model.KindString
	}

	return spec
}

package openapi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harborline/shopfront/model"
)

const testSpec = `
openapi: 3.0.0
info:
  title: Commerce API
  version: "1.0"
paths:
  /products:
    get:
      operationId: Products.List
      responses:
        '200':
          description: OK
  /buyers/{buyerID}/addresses:
    parameters:
      - name: buyerID
        in: path
        required: true
        schema:
          type: string
    get:
      operationId: Addresses.List
      responses:
        '200':
          description: OK
components:
  schemas:
    Products:
      type: object
      required: [ID, Name]
      properties:
        ID:
          type: string
        Name:
          type: string
        Active:
          type: boolean
        ShipWeight:
          type: number
        Created:
          type: string
          format: date-time
        Status:
          type: string
          enum: [Draft, Published]
        Inventory:
          type: object
          properties:
            QuantityAvailable:
              type: integer
    Addresses:
      type: object
      properties:
        ID:
          type: string
        Street:
          type: string
`

func loadTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commerce.yaml")
	if err := os.WriteFile(path, []byte(testSpec), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	idx := NewIndex()
	if err := idx.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return idx
}

func TestLoadIndexesOperationsAndResources(t *testing.T) {
	idx := loadTestIndex(t)

	if _, ok := idx.Operation("Products.List"); !ok {
		t.Error("Products.List should be indexed")
	}
	if got := idx.OperationCount(); got != 2 {
		t.Errorf("OperationCount = %d, want 2", got)
	}
	names := idx.ResourceNames()
	if len(names) != 2 || names[0] != "Addresses" || names[1] != "Products" {
		t.Errorf("ResourceNames = %v", names)
	}
}

func TestResourceLookupIsCaseInsensitive(t *testing.T) {
	idx := loadTestIndex(t)
	if _, ok := idx.Resource("products"); !ok {
		t.Error("lowercase lookup should succeed")
	}
	if _, ok := idx.Resource("PRODUCTS"); !ok {
		t.Error("uppercase lookup should succeed")
	}
	if _, ok := idx.Resource("Nope"); ok {
		t.Error("unknown resource should not resolve")
	}
}

func TestPropertyKinds(t *testing.T) {
	idx := loadTestIndex(t)
	rs, _ := idx.Resource("Products")

	tests := []struct {
		prop string
		kind model.CellKind
	}{
		{"ID", model.KindString},
		{"Active", model.KindBoolean},
		{"ShipWeight", model.KindNumber},
		{"Created", model.KindDate},
		{"Status", model.KindEnum},
		{"Inventory", model.KindNested},
	}
	for _, tt := range tests {
		p, ok := rs.Properties[tt.prop]
		if !ok {
			t.Fatalf("property %q missing", tt.prop)
		}
		if p.Kind != tt.kind {
			t.Errorf("%s kind = %q, want %q", tt.prop, p.Kind, tt.kind)
		}
	}

	if nested := rs.Properties["Inventory"].Properties["QuantityAvailable"]; nested == nil || nested.Kind != model.KindInteger {
		t.Error("nested integer property should be projected")
	}
}

func TestRequiredParamsFromListOperation(t *testing.T) {
	idx := loadTestIndex(t)

	addr, _ := idx.Resource("Addresses")
	if len(addr.RequiredParams) != 1 || addr.RequiredParams[0] != "buyerID" {
		t.Errorf("RequiredParams = %v, want [buyerID]", addr.RequiredParams)
	}

	prod, _ := idx.Resource("Products")
	if len(prod.RequiredParams) != 0 {
		t.Errorf("Products RequiredParams = %v, want none", prod.RequiredParams)
	}
}

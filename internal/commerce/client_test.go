package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/model"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	idx := openapi.NewIndex()
	idx.RegisterOperation(openapi.IndexedOperation{
		OperationID: "Products.List", Method: http.MethodGet, PathTemplate: "/products",
	})
	idx.RegisterOperation(openapi.IndexedOperation{
		OperationID: "Products.Delete", Method: http.MethodDelete, PathTemplate: "/products/{productID}",
		Parameters: []*openapi3.Parameter{{Name: "productID", In: openapi3.ParameterInPath, Required: true}},
	})
	idx.RegisterOperation(openapi.IndexedOperation{
		OperationID: "Products.Create", Method: http.MethodPost, PathTemplate: "/products",
	})
	idx.RegisterOperation(openapi.IndexedOperation{
		OperationID: "Addresses.Delete", Method: http.MethodDelete, PathTemplate: "/buyers/{buyerID}/addresses/{addressID}",
		Parameters: []*openapi3.Parameter{
			{Name: "buyerID", In: openapi3.ParameterInPath, Required: true},
			{Name: "addressID", In: openapi3.ParameterInPath, Required: true},
		},
	})

	return NewClient(config.CommerceConfig{BaseURL: srv.URL}, idx, nil)
}

func testRequestContext() *model.RequestContext {
	return &model.RequestContext{SubjectID: "user-1", Token: "tok-123", CorrelationID: "corr-1"}
}

func TestListResourcesEncodesState(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(model.ResourcePage{
			Items: []map[string]any{{"ID": "p1"}},
			Meta:  model.PageMeta{Page: 3, PageSize: 5, TotalCount: 11, TotalPages: 3},
		})
	}))

	state := model.ListQueryState{
		PageIndex: 2,
		PageSize:  5,
		Sort:      []model.SortEntry{{ID: "Name", Desc: true}},
		Filters:   map[string]string{"Active": "true"},
	}
	page, err := client.ListResources(context.Background(), testRequestContext(), "Products", state, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(page.Items) != 1 || page.Meta.TotalCount != 11 {
		t.Errorf("unexpected page: %+v", page)
	}
	if got := gotQuery["page"]; len(got) != 1 || got[0] != "3" {
		t.Errorf("page = %v, want [3]", got)
	}
	if got := gotQuery["sortBy"]; len(got) != 1 || got[0] != "!Name" {
		t.Errorf("sortBy = %v, want [!Name]", got)
	}
	if got := gotQuery["Active"]; len(got) != 1 || got[0] != "true" {
		t.Errorf("Active = %v, want [true]", got)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestDeleteResourcePath(t *testing.T) {
	var gotPath, gotMethod string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.DeleteResource(context.Background(), testRequestContext(), "Products", "p1", nil); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/products/p1" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDeleteResourceScopedPath(t *testing.T) {
	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.DeleteResource(context.Background(), testRequestContext(), "Addresses", "addr-9",
		map[string]string{"buyerID": "b1"})
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/buyers/b1/addresses/addr-9" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestDeleteResourceProviderError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"Errors": []model.APIError{
				{ErrorCode: "Product.CannotDelete", Message: "Product has open orders"},
				{ErrorCode: "Other", Message: "secondary"},
			},
		})
	}))

	err := client.DeleteResource(context.Background(), testRequestContext(), "Products", "p1", nil)
	var pErr *model.ProviderError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *model.ProviderError, got %T", err)
	}
	if pErr.Status != http.StatusConflict {
		t.Errorf("status = %d", pErr.Status)
	}
	if first := pErr.First(); first.ErrorCode != "Product.CannotDelete" {
		t.Errorf("first = %+v", first)
	}
}

func TestProviderErrorWithoutBody(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.DeleteResource(context.Background(), testRequestContext(), "Products", "p1", nil)
	var pErr *model.ProviderError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *model.ProviderError, got %T", err)
	}
	if first := pErr.First(); first.ErrorCode != model.ErrInternalError {
		t.Errorf("empty error list must fall back to generic code, got %+v", first)
	}
}

func TestUnknownOperation(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := client.ListResources(context.Background(), testRequestContext(), "Widgets", model.ListQueryState{}, nil)
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrNotFound {
		t.Errorf("expected NOT_FOUND envelope, got %v", err)
	}
}

func TestCreateResource(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		body["ID"] = "p-new"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	}))

	created, err := client.CreateResource(context.Background(), testRequestContext(), "Products",
		map[string]any{"Name": "Widget"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if created["ID"] != "p-new" || created["Name"] != "Widget" {
		t.Errorf("created = %v", created)
	}
}

func TestCartPromotionPaths(t *testing.T) {
	type call struct{ method, path string }
	var calls []call
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		json.NewEncoder(w).Encode(model.OrderPromotion{ID: "promo-1", Code: "SAVE10", Amount: 10})
	}))

	rctx := testRequestContext()
	ctx := context.Background()

	if _, err := client.GetOrder(ctx, rctx, "order-1"); err != nil {
		t.Fatal(err)
	}
	promo, err := client.ApplyPromotion(ctx, rctx, "order-1", "SAVE10")
	if err != nil {
		t.Fatal(err)
	}
	if promo.Code != "SAVE10" {
		t.Errorf("promo = %+v", promo)
	}
	if err := client.RemovePromotion(ctx, rctx, "order-1", "SAVE10"); err != nil {
		t.Fatal(err)
	}

	want := []call{
		{http.MethodGet, "/orders/Outgoing/order-1"},
		{http.MethodPost, "/orders/Outgoing/order-1/promotions/SAVE10"},
		{http.MethodDelete, "/orders/Outgoing/order-1/promotions/SAVE10"},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

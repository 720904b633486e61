package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap/zaptest"

	"github.com/harborline/shopfront/internal/access"
	"github.com/harborline/shopfront/internal/cart"
	"github.com/harborline/shopfront/internal/commerce"
	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/listview"
	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/internal/schema"
	"github.com/harborline/shopfront/model"
)

// stubAuth injects fixed claims, standing in for a verified JWT.
func stubAuth(claims map[string]any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func adminClaims() map[string]any {
	return map[string]any{
		"sub":   "admin-1",
		"email": "admin@example.com",
		"roles": []any{"catalog-admin"},
	}
}

// newTestRouter wires the full stack against a fake commerce backend.
func newTestRouter(t *testing.T, backend http.Handler, claims map[string]any) http.Handler {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	idx := openapi.NewIndexWithResources(map[string]*model.ResourceSchema{
		"products": {
			Name: "Products",
			Properties: map[string]*model.PropertySpec{
				"ID":     {Name: "ID", Kind: model.KindString},
				"Name":   {Name: "Name", Kind: model.KindString},
				"Active": {Name: "Active", Kind: model.KindBoolean},
			},
		},
	})
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

	policyPath := filepath.Join(t.TempDir(), "policy.yaml")
	policy := "roles:\n  catalog-admin:\n    - products:*\n  catalog-viewer:\n    - products:read\n"
	if err := os.WriteFile(policyPath, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}
	resolver, err := access.NewStaticPolicy(policyPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Commerce.BaseURL = srv.URL
	logger := zaptest.NewLogger(t)
	notifier := notify.NewRegistry(0, nil)
	client := commerce.NewClient(cfg.Commerce, idx, nil)
	projector := schema.NewProjector(idx, cfg.Schema)

	return NewRouter(Dependencies{
		Config:             cfg,
		Logger:             logger,
		Authenticate:       stubAuth(claims),
		CapabilityResolver: resolver,
		ListView:           listview.NewProvider(projector, client, resolver, notifier, cfg.Schema, nil, logger),
		Cart:               cart.NewService(client, notifier, nil, logger),
		Notifier:           notifier,
		Readiness: observability.ReadinessChecks{
			SchemaLoaded: func() bool { return true },
			PolicyLoaded: func() bool { return true },
		},
	})
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), nil)

	for _, path := range []string{"/ui/health", "/ui/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestResourceDescriptor(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), adminClaims())

	req := httptest.NewRequest(http.MethodGet, "/ui/resources/products?page=2&sortBy=!Name", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var desc model.ListDescriptor
	if err := json.NewDecoder(rec.Body).Decode(&desc); err != nil {
		t.Fatal(err)
	}
	if desc.Resource != "Products" || !desc.Admin || !desc.DeleteEnabled {
		t.Errorf("descriptor = %+v", desc)
	}
	if desc.State.PageIndex != 1 {
		t.Errorf("PageIndex = %d, want 1", desc.State.PageIndex)
	}
	if len(desc.State.Sort) != 1 || desc.State.Sort[0].ID != "Name" || !desc.State.Sort[0].Desc {
		t.Errorf("Sort = %v", desc.State.Sort)
	}
}

func TestResourceDataProxiesBackend(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("backend path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "1" {
			t.Errorf("backend page = %q, want 1-indexed 1", got)
		}
		json.NewEncoder(w).Encode(model.ResourcePage{
			Items: []map[string]any{{"ID": "p1", "Name": "Widget"}},
			Meta:  model.PageMeta{Page: 1, PageSize: 20, TotalCount: 1, TotalPages: 1},
		})
	})
	router := newTestRouter(t, backend, adminClaims())

	req := httptest.NewRequest(http.MethodGet, "/ui/resources/products/data", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var page model.ResourcePage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0]["ID"] != "p1" {
		t.Errorf("page = %+v", page)
	}
}

func TestResourceDeleteSurfacesProviderError(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"Errors": []model.APIError{{ErrorCode: "Product.CannotDelete", Message: "Product has open orders"}},
		})
	})
	router := newTestRouter(t, backend, adminClaims())

	req := httptest.NewRequest(http.MethodDelete, "/ui/resources/products/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	got := decodeError(t, rec)
	if got.Code != "Product.CannotDelete" {
		t.Errorf("code = %q", got.Code)
	}

	// The failure is also visible as an active notification.
	req = httptest.NewRequest(http.MethodGet, "/ui/notifications", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var active []notify.Notification
	if err := json.NewDecoder(rec.Body).Decode(&active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != "Product.CannotDelete" {
		t.Errorf("notifications = %v", active)
	}
}

func TestResourceDeleteForbiddenForViewer(t *testing.T) {
	viewer := map[string]any{"sub": "v1", "roles": []any{"catalog-viewer"}}
	router := newTestRouter(t, http.NotFoundHandler(), viewer)

	req := httptest.NewRequest(http.MethodDelete, "/ui/resources/products/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCartSummaryAndPromotions(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/orders/Outgoing/order-1":
			json.NewEncoder(w).Encode(model.CartOrder{
				ID: "order-1", Subtotal: 100, PromotionDiscount: 10, ShippingCost: 0, Total: 90,
			})
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/orders/Outgoing/order-1/promotions/"):
			json.NewEncoder(w).Encode(model.OrderPromotion{ID: "pr1", Code: "SAVE10", Amount: 10})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	router := newTestRouter(t, backend, adminClaims())

	req := httptest.NewRequest(http.MethodGet, "/ui/cart/order-1/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", rec.Code, rec.Body)
	}
	var summary cart.Summary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if !summary.Breakdown.FreeShipping || summary.Breakdown.Total != 90 {
		t.Errorf("breakdown = %+v", summary.Breakdown)
	}

	req = httptest.NewRequest(http.MethodPost, "/ui/cart/order-1/promotions/SAVE10", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestSecurityHeadersOnResponses(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), nil)

	req := httptest.NewRequest(http.MethodGet, "/ui/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Correlation-Id") == "" {
		t.Error("X-Correlation-Id missing")
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t, http.NotFoundHandler(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/ui/resources/products", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

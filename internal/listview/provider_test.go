package listview

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/internal/schema"
	"github.com/harborline/shopfront/model"
)

type fakeCommerce struct {
	page      *model.ResourcePage
	deleteErr error

	listState   model.ListQueryState
	deleteCalls int
	created     map[string]any
}

func (f *fakeCommerce) ListResources(_ context.Context, _ *model.RequestContext, _ string, state model.ListQueryState, _ map[string]string) (*model.ResourcePage, error) {
	f.listState = state
	if f.page == nil {
		return &model.ResourcePage{}, nil
	}
	return f.page, nil
}

func (f *fakeCommerce) DeleteResource(_ context.Context, _ *model.RequestContext, _, _ string, _ map[string]string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeCommerce) CreateResource(_ context.Context, _ *model.RequestContext, _ string, body map[string]any, _ map[string]string) (map[string]any, error) {
	f.created = body
	return body, nil
}

type fakeResolver struct {
	caps model.CapabilitySet
}

func (f *fakeResolver) Resolve(_ *model.RequestContext) (model.CapabilitySet, error) {
	return f.caps, nil
}

func testProvider(t *testing.T, client CommerceAPI, caps model.CapabilitySet, schemaCfg config.SchemaConfig) (*Provider, *notify.Registry) {
	t.Helper()

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
	notifier := notify.NewRegistry(0, nil)
	provider := NewProvider(
		schema.NewProjector(idx, schemaCfg),
		client,
		&fakeResolver{caps: caps},
		notifier,
		schemaCfg,
		nil,
		zaptest.NewLogger(t),
	)
	return provider, notifier
}

func adminCaps() model.CapabilitySet {
	return model.CapabilitySet{"products:admin": true, "products:read": true}
}

func readerCaps() model.CapabilitySet {
	return model.CapabilitySet{"products:read": true}
}

func rctx() *model.RequestContext {
	return &model.RequestContext{SubjectID: "u1", Roles: []string{"any"}}
}

func TestDescriptorFlags(t *testing.T) {
	tests := []struct {
		name       string
		caps       model.CapabilitySet
		readOnly   bool
		wantAdmin  bool
		wantCreate bool
	}{
		{"admin writable", adminCaps(), false, true, true},
		{"admin read-only resource", adminCaps(), true, true, false},
		{"reader", readerCaps(), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.SchemaConfig{}
			if tt.readOnly {
				cfg.ReadOnlyResources = []string{"Products"}
			}
			provider, _ := testProvider(t, &fakeCommerce{}, tt.caps, cfg)

			desc, err := provider.Descriptor(context.Background(), rctx(), "products", url.Values{})
			if err != nil {
				t.Fatal(err)
			}
			if desc.Resource != "Products" {
				t.Errorf("resource = %q", desc.Resource)
			}
			if !desc.Allowed {
				t.Error("Allowed = false")
			}
			if desc.Admin != tt.wantAdmin {
				t.Errorf("Admin = %v", desc.Admin)
			}
			if desc.CreateEnabled != tt.wantCreate || desc.DeleteEnabled != tt.wantCreate {
				t.Errorf("CreateEnabled/DeleteEnabled = %v/%v, want %v", desc.CreateEnabled, desc.DeleteEnabled, tt.wantCreate)
			}
		})
	}
}

func TestDescriptorDecodesQuery(t *testing.T) {
	provider, _ := testProvider(t, &fakeCommerce{}, readerCaps(), config.SchemaConfig{})

	query, _ := url.ParseQuery("page=2&sortBy=!Name&Active=true&unknown=x")
	desc, err := provider.Descriptor(context.Background(), rctx(), "products", query)
	if err != nil {
		t.Fatal(err)
	}

	if desc.State.PageIndex != 1 {
		t.Errorf("PageIndex = %d, want 1", desc.State.PageIndex)
	}
	if len(desc.State.Sort) != 1 || desc.State.Sort[0].ID != "Name" || !desc.State.Sort[0].Desc {
		t.Errorf("Sort = %v", desc.State.Sort)
	}
	if _, ok := desc.State.Filters["unknown"]; ok {
		t.Error("unknown filter key must be dropped")
	}
	if desc.State.Filters["Active"] != "true" {
		t.Errorf("Filters = %v", desc.State.Filters)
	}
}

func TestPageForwardsState(t *testing.T) {
	client := &fakeCommerce{page: &model.ResourcePage{Meta: model.PageMeta{TotalCount: 3}}}
	provider, _ := testProvider(t, client, readerCaps(), config.SchemaConfig{})

	query, _ := url.ParseQuery("page=4&pageSize=10")
	page, err := provider.Page(context.Background(), rctx(), "products", query, nil)
	if err != nil {
		t.Fatal(err)
	}
	if page.Meta.TotalCount != 3 {
		t.Errorf("page = %+v", page)
	}
	if client.listState.PageIndex != 3 || client.listState.PageSize != 10 {
		t.Errorf("forwarded state = %+v", client.listState)
	}
}

func TestPageDeniedWithoutRead(t *testing.T) {
	provider, _ := testProvider(t, &fakeCommerce{}, model.CapabilitySet{}, config.SchemaConfig{})

	_, err := provider.Page(context.Background(), rctx(), "products", url.Values{}, nil)
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
}

func TestDeleteFailureNotifiesOnce(t *testing.T) {
	client := &fakeCommerce{deleteErr: &model.ProviderError{
		Status: 409,
		Errors: []model.APIError{{ErrorCode: "Product.CannotDelete", Message: "Product has open orders"}},
	}}
	provider, notifier := testProvider(t, client, adminCaps(), config.SchemaConfig{})

	for i := 0; i < 3; i++ {
		err := provider.Delete(context.Background(), rctx(), "products", "p1", nil)
		var pErr *model.ProviderError
		if !errors.As(err, &pErr) {
			t.Fatalf("attempt %d: expected provider error, got %v", i, err)
		}
	}

	active := notifier.Active()
	if len(active) != 1 {
		t.Fatalf("active notifications = %d, want 1", len(active))
	}
	if active[0].ID != "Product.CannotDelete" || active[0].Status != notify.StatusError {
		t.Errorf("notification = %+v", active[0])
	}
	if active[0].Message != "Product has open orders" {
		t.Errorf("message = %q", active[0].Message)
	}
	if client.deleteCalls != 3 {
		t.Errorf("delete calls = %d, want 3", client.deleteCalls)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	client := &fakeCommerce{}
	provider, _ := testProvider(t, client, readerCaps(), config.SchemaConfig{})

	err := provider.Delete(context.Background(), rctx(), "products", "p1", nil)
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
	if client.deleteCalls != 0 {
		t.Error("delete must not reach the commerce API")
	}
}

func TestDeleteBlockedOnReadOnlyResource(t *testing.T) {
	client := &fakeCommerce{}
	provider, _ := testProvider(t, client, adminCaps(), config.SchemaConfig{
		ReadOnlyResources: []string{"products"},
	})

	err := provider.Delete(context.Background(), rctx(), "Products", "p1", nil)
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrForbidden {
		t.Errorf("expected FORBIDDEN, got %v", err)
	}
	if client.deleteCalls != 0 {
		t.Error("delete must not reach the commerce API")
	}
}

func TestResolveHref(t *testing.T) {
	hookCalled := false
	hook := func(item map[string]any) error {
		hookCalled = true
		return errors.New("hook outcome is ignored")
	}

	href := ResolveHref("/admin/products/", map[string]any{"ID": "p 1"}, hook)
	if href != "/admin/products/p%201" {
		t.Errorf("href = %q", href)
	}
	if !hookCalled {
		t.Error("hook must run before navigation")
	}

	if got := ResolveHref("/admin/products", map[string]any{"ID": "p2"}, nil); got != "/admin/products/p2" {
		t.Errorf("href without hook = %q", got)
	}
}

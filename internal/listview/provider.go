// Package listview composes schema projection, URL-driven table state, access
// gating, and commerce CRUD into the resource list surface served to the
// admin UI.
package listview

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/harborline/shopfront/internal/access"
	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/liststate"
	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/internal/schema"
	"github.com/harborline/shopfront/model"
)

// CommerceAPI is the subset of the commerce client the list view needs.
type CommerceAPI interface {
	ListResources(ctx context.Context, rctx *model.RequestContext, resource string, state model.ListQueryState, pathParams map[string]string) (*model.ResourcePage, error)
	DeleteResource(ctx context.Context, rctx *model.RequestContext, resource, itemID string, pathParams map[string]string) error
	CreateResource(ctx context.Context, rctx *model.RequestContext, resource string, body map[string]any, pathParams map[string]string) (map[string]any, error)
}

// PreNavigationHook runs before a row href is followed. Its error is ignored;
// navigation proceeds regardless.
type PreNavigationHook func(item map[string]any) error

// Provider serves resource list descriptors and actions.
type Provider struct {
	projector *schema.Projector
	client    CommerceAPI
	resolver  model.CapabilityResolver
	notifier  *notify.Registry
	schemaCfg config.SchemaConfig
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewProvider wires a list view provider. metrics may be nil.
func NewProvider(
	projector *schema.Projector,
	client CommerceAPI,
	resolver model.CapabilityResolver,
	notifier *notify.Registry,
	schemaCfg config.SchemaConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Provider {
	return &Provider{
		projector: projector,
		client:    client,
		resolver:  resolver,
		notifier:  notifier,
		schemaCfg: schemaCfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Descriptor builds the full list descriptor for a resource: projection,
// decoded table state, and action flags. Create and delete require admin
// access on a resource that is not configured read-only.
func (p *Provider) Descriptor(ctx context.Context, rctx *model.RequestContext, resource string, query url.Values) (*model.ListDescriptor, error) {
	projection, err := p.projector.Project(resource)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.SchemaProjectionsTotal.WithLabelValues(projection.Resource).Inc()
	}

	decision, err := access.Gate(p.resolver, rctx, projection.Resource)
	if err != nil {
		return nil, err
	}

	readOnly := p.schemaCfg.ReadOnly(projection.Resource)
	state := liststate.NewCodec(projection.Properties).Decode(query)

	return &model.ListDescriptor{
		Resource:      projection.Resource,
		Allowed:       decision.Allowed,
		Admin:         decision.Admin,
		ReadOnly:      readOnly,
		CreateEnabled: decision.Admin && !readOnly,
		DeleteEnabled: decision.Admin && !readOnly,
		Projection:    projection,
		State:         state,
	}, nil
}

// Page fetches one page of items according to the URL-derived state.
func (p *Provider) Page(ctx context.Context, rctx *model.RequestContext, resource string, query url.Values, pathParams map[string]string) (*model.ResourcePage, error) {
	projection, err := p.projector.Project(resource)
	if err != nil {
		return nil, err
	}

	decision, err := access.Gate(p.resolver, rctx, projection.Resource)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, model.NewForbiddenError("no read access to resource " + projection.Resource)
	}

	state := liststate.NewCodec(projection.Properties).Decode(query)
	return p.client.ListResources(ctx, rctx, projection.Resource, state, pathParams)
}

// Delete removes one item. Provider failures surface their first error entry
// as a deduplicated error notification and the error is returned unchanged.
func (p *Provider) Delete(ctx context.Context, rctx *model.RequestContext, resource, itemID string, pathParams map[string]string) error {
	projection, err := p.projector.Project(resource)
	if err != nil {
		return err
	}

	if err := p.authorizeMutation(rctx, projection.Resource); err != nil {
		return err
	}

	err = p.client.DeleteResource(ctx, rctx, projection.Resource, itemID, pathParams)
	if err != nil {
		p.recordDelete(projection.Resource, "error")

		var pErr *model.ProviderError
		if errors.As(err, &pErr) {
			first := pErr.First()
			shown := p.notifier.Notify(first.ErrorCode, notify.StatusError, first.Message)
			p.logger.Warn("resource delete failed",
				zap.String("resource", projection.Resource),
				zap.String("item_id", itemID),
				zap.String("error_code", first.ErrorCode),
				zap.Bool("notification_shown", shown),
			)
		}
		return err
	}

	p.recordDelete(projection.Resource, "success")
	return nil
}

// Create creates one item from the given body.
func (p *Provider) Create(ctx context.Context, rctx *model.RequestContext, resource string, body map[string]any, pathParams map[string]string) (map[string]any, error) {
	projection, err := p.projector.Project(resource)
	if err != nil {
		return nil, err
	}
	if err := p.authorizeMutation(rctx, projection.Resource); err != nil {
		return nil, err
	}
	return p.client.CreateResource(ctx, rctx, projection.Resource, body, pathParams)
}

// ResolveHref computes the row navigation target {currentPath}/{itemID}. The
// hook, when present, runs first; its outcome never changes the href.
func ResolveHref(currentPath string, item map[string]any, hook PreNavigationHook) string {
	if hook != nil {
		_ = hook(item)
	}

	id, _ := item["ID"].(string)
	return strings.TrimRight(currentPath, "/") + "/" + url.PathEscape(id)
}

func (p *Provider) authorizeMutation(rctx *model.RequestContext, resource string) error {
	decision, err := access.Gate(p.resolver, rctx, resource)
	if err != nil {
		return err
	}
	if !decision.Admin {
		return model.NewForbiddenError("admin access required for resource " + resource)
	}
	if p.schemaCfg.ReadOnly(resource) {
		return model.NewForbiddenError("resource " + resource + " is read-only")
	}
	return nil
}

func (p *Provider) recordDelete(resource, status string) {
	if p.metrics != nil {
		p.metrics.ResourceDeletesTotal.WithLabelValues(resource, status).Inc()
	}
}

// Package cart serves the storefront shopping-cart summary: the remote
// order's cost breakdown and promotion code management. Totals always come
// from the commerce platform; nothing is recomputed locally.
package cart

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/harborline/shopfront/internal/notify"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/model"
)

// CommerceAPI is the subset of the commerce client the cart needs.
type CommerceAPI interface {
	GetOrder(ctx context.Context, rctx *model.RequestContext, orderID string) (*model.CartOrder, error)
	ApplyPromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) (*model.OrderPromotion, error)
	RemovePromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) error
}

// Service exposes cart summary operations.
type Service struct {
	client   CommerceAPI
	notifier *notify.Registry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewService wires a cart service. metrics may be nil.
func NewService(client CommerceAPI, notifier *notify.Registry, metrics *observability.Metrics, logger *zap.Logger) *Service {
	return &Service{client: client, notifier: notifier, metrics: metrics, logger: logger}
}

// Summary fetches the order and derives its display breakdown. FreeShipping
// is set when the remote shipping cost is zero.
type Summary struct {
	Order     *model.CartOrder    `json:"order"`
	Breakdown model.CostBreakdown `json:"breakdown"`
}

// Summary returns the cart order with its cost breakdown.
func (s *Service) Summary(ctx context.Context, rctx *model.RequestContext, orderID string) (*Summary, error) {
	order, err := s.client.GetOrder(ctx, rctx, orderID)
	if err != nil {
		return nil, s.surface("cart.load", err)
	}
	return &Summary{Order: order, Breakdown: Breakdown(order)}, nil
}

// Breakdown maps the remote order's totals into the display summary.
func Breakdown(order *model.CartOrder) model.CostBreakdown {
	return model.CostBreakdown{
		Subtotal:          order.Subtotal,
		PromotionDiscount: order.PromotionDiscount,
		ShippingCost:      order.ShippingCost,
		FreeShipping:      order.ShippingCost == 0,
		Total:             order.Total,
	}
}

// ApplyPromotion adds a promotion code to the order. A blank code (empty or
// whitespace only) is a silent no-op: no API call, no notification, no error.
func (s *Service) ApplyPromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	promo, err := s.client.ApplyPromotion(ctx, rctx, orderID, code)
	if err != nil {
		s.recordPromotion("apply", "error")
		return s.surface("cart.promotion.apply", err)
	}

	s.recordPromotion("apply", "success")
	s.notifier.Notify("promotion-applied-"+promo.Code, notify.StatusSuccess,
		"Promotion '"+promo.Code+"' applied to cart")
	return nil
}

// RemovePromotion removes a promotion code from the order. An empty code is a
// silent no-op.
func (s *Service) RemovePromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) error {
	if code == "" {
		return nil
	}

	if err := s.client.RemovePromotion(ctx, rctx, orderID, code); err != nil {
		s.recordPromotion("remove", "error")
		return s.surface("cart.promotion.remove", err)
	}

	s.recordPromotion("remove", "success")
	s.notifier.Notify("promotion-removed-"+code, notify.StatusSuccess,
		"Promotion '"+code+"' removed from cart")
	return nil
}

// surface routes a commerce failure through the deduplicated notification
// registry and returns the error unchanged. Cart failures use the same
// contract as resource-delete failures.
func (s *Service) surface(operation string, err error) error {
	var pErr *model.ProviderError
	if errors.As(err, &pErr) {
		first := pErr.First()
		shown := s.notifier.Notify(first.ErrorCode, notify.StatusError, first.Message)
		s.logger.Warn("cart operation failed",
			zap.String("operation", operation),
			zap.String("error_code", first.ErrorCode),
			zap.Bool("notification_shown", shown),
		)
	}
	return err
}

func (s *Service) recordPromotion(action, status string) {
	if s.metrics != nil {
		s.metrics.PromotionMutationsTotal.WithLabelValues(action, status).Inc()
	}
}

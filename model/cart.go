package model

// LineItem is a single order line as returned by the commerce API.
type LineItem struct {
	ID        string  `json:"ID"`
	ProductID string  `json:"ProductID"`
	Quantity  int     `json:"Quantity"`
	UnitPrice float64 `json:"UnitPrice"`
	LineTotal float64 `json:"LineTotal"`
}

// OrderPromotion is a promotion applied to an order.
type OrderPromotion struct {
	ID     string  `json:"ID"`
	Code   string  `json:"Code"`
	Amount float64 `json:"Amount"`
}

// CartOrder is the shopping-cart order owned by the remote commerce service.
// Totals are authoritative on the remote side; this system reflects them and
// never recomputes against line items.
type CartOrder struct {
	ID                string           `json:"ID"`
	Subtotal          float64          `json:"Subtotal"`
	PromotionDiscount float64          `json:"PromotionDiscount"`
	ShippingCost      float64          `json:"ShippingCost"`
	Total             float64          `json:"Total"`
	LineItems         []LineItem       `json:"LineItems"`
	Promotions        []OrderPromotion `json:"Promotions"`
}

// CostBreakdown is the display-ready cost summary for a cart order.
type CostBreakdown struct {
	Subtotal          float64 `json:"subtotal"`
	PromotionDiscount float64 `json:"promotionDiscount"`
	ShippingCost      float64 `json:"shippingCost"`
	FreeShipping      bool    `json:"freeShipping"`
	Total             float64 `json:"total"`
}

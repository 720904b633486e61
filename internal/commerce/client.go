// Package commerce wraps the remote commerce platform API. It builds requests
// from the indexed OpenAPI operations, forwards the caller's bearer token, and
// maps the platform's error-list envelope onto typed errors.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harborline/shopfront/internal/config"
	"github.com/harborline/shopfront/internal/observability"
	"github.com/harborline/shopfront/internal/openapi"
	"github.com/harborline/shopfront/model"
)

const maxResponseBytes = 10 << 20

// Client executes requests against the commerce platform API.
type Client struct {
	baseURL string
	index   *openapi.Index
	http    *http.Client
	metrics *observability.Metrics
}

// NewClient creates a commerce API client from configuration. metrics may be
// nil, in which case no instrumentation is recorded.
func NewClient(cfg config.CommerceConfig, idx *openapi.Index, metrics *observability.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		index:   idx,
		metrics: metrics,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxConnsPerHost:     50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// ListResources fetches one page of a resource list. pathParams fills required
// path parameters such as buyerID; the list state is re-encoded into the
// platform's 1-indexed paging and "!"-prefixed descending sort convention.
func (c *Client) ListResources(
	ctx context.Context,
	rctx *model.RequestContext,
	resource string,
	state model.ListQueryState,
	pathParams map[string]string,
) (*model.ResourcePage, error) {
	op, ok := c.index.Operation(resource + ".List")
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("resource %q has no list operation", resource))
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(state.PageIndex+1))
	pageSize := state.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query.Set("pageSize", strconv.Itoa(pageSize))
	for _, entry := range state.Sort {
		v := entry.ID
		if entry.Desc {
			v = "!" + v
		}
		query.Add("sortBy", v)
	}
	for key, val := range state.Filters {
		query.Set(key, val)
	}

	var page model.ResourcePage
	err := c.do(ctx, rctx, resource+".List", op.Method, c.expandPath(op.PathTemplate, pathParams), query, nil, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteResource deletes a single item by ID.
func (c *Client) DeleteResource(
	ctx context.Context,
	rctx *model.RequestContext,
	resource, itemID string,
	pathParams map[string]string,
) error {
	op, ok := c.index.Operation(resource + ".Delete")
	if !ok {
		return model.NewNotFoundError(fmt.Sprintf("resource %q has no delete operation", resource))
	}

	params := map[string]string{}
	for k, v := range pathParams {
		params[k] = v
	}
	fillIDParam(op, params, itemID)

	return c.do(ctx, rctx, resource+".Delete", op.Method, c.expandPath(op.PathTemplate, params), nil, nil, nil)
}

// CreateResource creates a new item from the given body.
func (c *Client) CreateResource(
	ctx context.Context,
	rctx *model.RequestContext,
	resource string,
	body map[string]any,
	pathParams map[string]string,
) (map[string]any, error) {
	op, ok := c.index.Operation(resource + ".Create")
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("resource %q has no create operation", resource))
	}

	var created map[string]any
	err := c.do(ctx, rctx, resource+".Create", op.Method, c.expandPath(op.PathTemplate, pathParams), nil, body, &created)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetOrder fetches the caller's outgoing cart order.
func (c *Client) GetOrder(ctx context.Context, rctx *model.RequestContext, orderID string) (*model.CartOrder, error) {
	var order model.CartOrder
	path := "/orders/Outgoing/" + url.PathEscape(orderID)
	if err := c.do(ctx, rctx, "Orders.Get", http.MethodGet, path, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ApplyPromotion adds a promotion code to an order and returns the applied
// promotion as reported by the platform.
func (c *Client) ApplyPromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) (*model.OrderPromotion, error) {
	var promo model.OrderPromotion
	path := "/orders/Outgoing/" + url.PathEscape(orderID) + "/promotions/" + url.PathEscape(code)
	if err := c.do(ctx, rctx, "Orders.AddPromotion", http.MethodPost, path, nil, nil, &promo); err != nil {
		return nil, err
	}
	return &promo, nil
}

// RemovePromotion removes a promotion code from an order.
func (c *Client) RemovePromotion(ctx context.Context, rctx *model.RequestContext, orderID, code string) error {
	path := "/orders/Outgoing/" + url.PathEscape(orderID) + "/promotions/" + url.PathEscape(code)
	return c.do(ctx, rctx, "Orders.RemovePromotion", http.MethodDelete, path, nil, nil, nil)
}

// do executes one request and decodes a successful JSON response into out.
// Non-2xx responses become *model.ProviderError with the platform's error
// list; transport failures map to backend unavailable/timeout envelopes.
func (c *Client) do(
	ctx context.Context,
	rctx *model.RequestContext,
	operation, method, path string,
	query url.Values,
	body any,
	out any,
) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("commerce: marshal body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("commerce: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rctx != nil {
		if rctx.Token != "" {
			req.Header.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
		}
		req.Header.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(operation, "error", start)
		if isConnectionError(err) {
			return model.NewBackendUnavailableError()
		}
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return model.NewBackendTimeoutError()
		}
		return fmt.Errorf("commerce: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.record(operation, "error", start)
		return fmt.Errorf("commerce: read response: %w", err)
	}

	c.record(operation, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseProviderError(resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("commerce: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) record(operation, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.CommerceRequestsTotal.WithLabelValues(operation, status).Inc()
	c.metrics.CommerceRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// expandPath substitutes {name} path parameters.
func (c *Client) expandPath(template string, params map[string]string) string {
	path := template
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// fillIDParam assigns the item ID to whichever path parameter remains unbound
// after the required params, matching the platform's {resourceID} convention.
func fillIDParam(op openapi.IndexedOperation, params map[string]string, itemID string) {
	for _, p := range op.Parameters {
		if p.In != "path" {
			continue
		}
		if _, bound := params[p.Name]; !bound {
			params[p.Name] = itemID
			return
		}
	}
	params["ID"] = itemID
}

// parseProviderError decodes the platform's {"Errors": [...]} envelope.
func parseProviderError(status int, body []byte) *model.ProviderError {
	var envelope struct {
		Errors []model.APIError `json:"Errors"`
	}
	_ = json.Unmarshal(body, &envelope)
	return &model.ProviderError{Status: status, Errors: envelope.Errors}
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/trungse123/review-backend/pkg/httpclient"
)

const (
	financialStatusPaid     = "paid"
	fulfillmentStatusFilled = "fulfilled"
	orderFields             = "id,line_items,phone,financial_status,fulfillment_status"
	serviceName             = "order-api"
)

// HaravanConfig holds the order API location and credentials.
type HaravanConfig struct {
	// BaseURL is the shop admin origin, e.g. https://shop.myharavan.com.
	BaseURL string
	Token   string
}

// HaravanClient checks purchases against a Haravan-style admin orders API.
type HaravanClient struct {
	doer    httpclient.Doer
	baseURL string
	token   string
}

var _ Verifier = (*HaravanClient)(nil)

// NewHaravanClient creates an order API client. doer is usually a
// circuit-breaker wrapped httpclient.Client.
func NewHaravanClient(doer httpclient.Doer, cfg HaravanConfig) *HaravanClient {
	return &HaravanClient{
		doer:    doer,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

type ordersResponse struct {
	Orders []order `json:"orders"`
}

type order struct {
	ID                flexibleID `json:"id"`
	Phone             string     `json:"phone"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	LineItems         []lineItem `json:"line_items"`
}

type lineItem struct {
	ProductID flexibleID `json:"product_id"`
}

// flexibleID accepts an identifier encoded as either a JSON number or a
// JSON string.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// qualifies reports whether the order is paid, fulfilled and contains the
// product.
func (o *order) qualifies(productID string) bool {
	if o.FinancialStatus != financialStatusPaid || o.FulfillmentStatus != fulfillmentStatusFilled {
		return false
	}
	for _, item := range o.LineItems {
		if string(item.ProductID) == productID {
			return true
		}
	}
	return false
}

// HasPurchased lists the phone's orders and looks for a qualifying one.
func (c *HaravanClient) HasPurchased(ctx context.Context, phone, productID string) (bool, error) {
	q := url.Values{}
	q.Set("fields", orderFields)
	q.Set("phone", phone)
	endpoint := c.baseURL + "/admin/orders.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create orders request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return false, fmt.Errorf("list orders: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var body ordersResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body); err != nil {
		return false, fmt.Errorf("decode orders: %w", err)
	}

	productID = strings.TrimSpace(productID)
	for i := range body.Orders {
		if body.Orders[i].qualifies(productID) {
			return true, nil
		}
	}
	return false, nil
}

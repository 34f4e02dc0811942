package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Gateway abstracts the remote store's cart rows. The engine only ever
// talks to the remote cart through this interface.
type Gateway interface {
	ListCartRows(ctx context.Context, userID string) ([]RemoteCartRow, error)
	InsertCartRow(ctx context.Context, userID, productID string, quantity int) error
	UpdateCartRow(ctx context.Context, cartItemID string, quantity int) error
	DeleteCartRow(ctx context.Context, cartItemID string) error
	DeleteAllCartRows(ctx context.Context, userID string) error
}

// HTTPGateway implements Gateway against the bookstore REST API. The user
// identity travels in the bearer token, so the userID arguments are only
// used for error reporting.
type HTTPGateway struct {
	BaseURL string
	// Token returns the bearer token for the authenticated user.
	Token  func(ctx context.Context) (string, error)
	HTTP   *http.Client
	Logger *log.Logger
}

// NewHTTPGateway builds a gateway with a 10 second request timeout.
func NewHTTPGateway(baseURL string, token func(ctx context.Context) (string, error)) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  log.Default(),
	}
}

// cartRowPayload is the wire shape the cart API returns for one row.
type cartRowPayload struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
	Product   struct {
		Name   string  `json:"name"`
		Price  float64 `json:"price"`
		Images []struct {
			ImageURL string `json:"image_url"`
		} `json:"images"`
	} `json:"product"`
}

func (p *cartRowPayload) toRow() RemoteCartRow {
	images := make([]string, 0, len(p.Product.Images))
	for _, img := range p.Product.Images {
		images = append(images, img.ImageURL)
	}
	return RemoteCartRow{
		ID:        p.ID,
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		UpdatedAt: p.UpdatedAt,
		Product: RemoteProduct{
			Name:   p.Product.Name,
			Price:  strconv.FormatFloat(p.Product.Price, 'f', 2, 64),
			Images: images,
		},
	}
}

func (g *HTTPGateway) ListCartRows(ctx context.Context, userID string) ([]RemoteCartRow, error) {
	body, err := g.do(ctx, http.MethodGet, "/api/cart", nil)
	if err != nil {
		return nil, fmt.Errorf("list cart rows for %s: %w", userID, err)
	}

	var payloads []cartRowPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, fmt.Errorf("decode cart rows: %w", err)
	}

	rows := make([]RemoteCartRow, 0, len(payloads))
	for _, p := range payloads {
		row := p.toRow()
		if err := row.Validate(); err != nil {
			// A malformed row must not block the rest of the cart.
			g.logger().Printf("cartsync: skipping invalid remote row: %v", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *HTTPGateway) InsertCartRow(ctx context.Context, userID, productID string, quantity int) error {
	payload := map[string]interface{}{"product_id": productID, "quantity": quantity}
	if _, err := g.do(ctx, http.MethodPost, "/api/cart", payload); err != nil {
		return &WriteError{Op: "insert", ProductID: productID, Err: err}
	}
	return nil
}

func (g *HTTPGateway) UpdateCartRow(ctx context.Context, cartItemID string, quantity int) error {
	payload := map[string]interface{}{"quantity": quantity}
	if _, err := g.do(ctx, http.MethodPut, "/api/cart/"+cartItemID, payload); err != nil {
		return &WriteError{Op: "update", Err: err}
	}
	return nil
}

func (g *HTTPGateway) DeleteCartRow(ctx context.Context, cartItemID string) error {
	if _, err := g.do(ctx, http.MethodDelete, "/api/cart/"+cartItemID, nil); err != nil {
		return &WriteError{Op: "delete", Err: err}
	}
	return nil
}

func (g *HTTPGateway) DeleteAllCartRows(ctx context.Context, userID string) error {
	if _, err := g.do(ctx, http.MethodDelete, "/api/cart", nil); err != nil {
		return &WriteError{Op: "clear", Err: err}
	}
	return nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := g.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func (g *HTTPGateway) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

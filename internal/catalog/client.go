// Package catalog is the HTTP adapter for the external product catalog
// service. Catalog prices arrive as decimal euros and are converted to minor
// units here so the rest of the system only ever sees integer cents.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/GratienSA/escargotAPI/internal/domain"
	"github.com/GratienSA/escargotAPI/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Product is the catalog's wire representation of a product. Price is in
// decimal euros as served by the catalog.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImagePath   string  `json:"imagePath,omitempty"`
	CategoryID  int64   `json:"categoryId,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// Ref converts the catalog product to a cart product reference, rounding the
// decimal price to minor units.
func (p *Product) Ref() domain.ProductRef {
	return domain.ProductRef{
		ID:         p.ID,
		Name:       p.Name,
		UnitPrice:  int64(math.Round(p.Price * 100)),
		ImagePath:  p.ImagePath,
		CategoryID: p.CategoryID,
	}
}

// Category is the catalog's wire representation of a category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchParams holds the catalog search query parameters.
type SearchParams struct {
	Query      string
	Page       int
	Limit      int
	Sort       string
	Category   string
	PriceRange string
	Rating     int
}

// ProductInput is the payload for admin product writes.
type ProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	ImagePath   string  `json:"imagePath,omitempty"`
	CategoryID  int64   `json:"categoryId" validate:"required"`
}

// Client calls the external catalog service.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(http HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: baseURL,
		logger:  logger,
	}
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, fmt.Sprintf("/product/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts fetches a page of products.
func (c *Client) ListProducts(ctx context.Context, skip, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 12
	}
	var products []Product
	path := fmt.Sprintf("/product/all?skip=%d&limit=%d", skip, limit)
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListByCategory fetches all products belonging to a category.
func (c *Client) ListByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, fmt.Sprintf("/product/category/%d", categoryID), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Search queries the catalog's search endpoint.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Product, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 12
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if params.Sort != "" {
		q.Set("sort", params.Sort)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.PriceRange != "" {
		q.Set("priceRange", params.PriceRange)
	}
	q.Set("rating", strconv.Itoa(params.Rating))

	var products []Product
	if err := c.getJSON(ctx, "/product/search?"+q.Encode(), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListCategories fetches all catalog categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.getJSON(ctx, "/category/all", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateProduct creates a product in the catalog. The caller's bearer token
// is forwarded so the catalog enforces its own authorization.
func (c *Client) CreateProduct(ctx context.Context, token string, input *ProductInput) (*Product, error) {
	var p Product
	if err := c.writeJSON(ctx, http.MethodPost, "/product/new", token, input, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct updates an existing catalog product.
func (c *Client) UpdateProduct(ctx context.Context, token string, id int64, input *ProductInput) (*Product, error) {
	var p Product
	path := fmt.Sprintf("/product/update/%d", id)
	if err := c.writeJSON(ctx, http.MethodPatch, path, token, input, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a catalog product.
func (c *Client) DeleteProduct(ctx context.Context, token string, id int64) error {
	path := fmt.Sprintf("/product/delete/%d", id)
	return c.writeJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "catalog")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}

	return nil
}

func (c *Client) writeJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal catalog request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "catalog")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode catalog response: %w", err)
		}
	}

	return nil
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain"
)

// ErrUpstream marks any failure talking to the external catalog: transport
// errors, non-2xx statuses and bodies that do not decode.
var ErrUpstream = errors.New("catalog upstream failure")

// Client is the read-only view of the external product catalog.
type Client interface {
	// List returns all products, or only those of category when it is not blank.
	List(ctx context.Context, category string) ([]domain.ExternalProduct, error)
	Get(ctx context.Context, id int64) (*domain.ExternalProduct, error)
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a catalog client for the API rooted at baseURL
func NewClient(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) List(ctx context.Context, category string) ([]domain.ExternalProduct, error) {
	path := "/products"
	if category = strings.TrimSpace(category); category != "" {
		path = "/products/category/" + url.PathEscape(category)
	}

	var products []domain.ExternalProduct
	if err := c.get(ctx, path, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.ExternalProduct{}
	}
	return products, nil
}

func (c *httpClient) Get(ctx context.Context, id int64) (*domain.ExternalProduct, error) {
	var product *domain.ExternalProduct
	if err := c.get(ctx, "/products/"+strconv.FormatInt(id, 10), &product); err != nil {
		return nil, err
	}
	// The upstream answers unknown ids with 200 and an empty body.
	if product == nil {
		return nil, fmt.Errorf("%w: product %d not found upstream", ErrUpstream, id)
	}
	return product, nil
}

func (c *httpClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: status %d", ErrUpstream, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read body: %v", ErrUpstream, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", ErrUpstream, path, err)
	}
	return nil
}

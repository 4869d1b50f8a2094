package shopify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIVersion is the Admin API version used when none is configured
	DefaultAPIVersion = "2023-07"

	maxErrorBodyLength = 512
)

var validate = validator.New()

// Credentials identifies a store and the private app used to access it
type Credentials struct {
	StoreURL   string `json:"store_url" validate:"required"`
	APIKey     string `json:"api_key" validate:"required"`
	Password   string `json:"password" validate:"required"`
	APIVersion string `json:"api_version"`
}

// Options tunes the pacing and transport of a client
type Options struct {
	RequestDelay         time.Duration
	ThrottledDelay       time.Duration
	QuotaThreshold       float64
	MaxRequestsPerSecond float64
	Timeout              time.Duration
	HTTPClient           *http.Client
	Logger               *logrus.Entry
}

// ShopifyClient talks to the Shopify Admin REST API with adaptive pacing.
// Requests from one client are serialized.
type ShopifyClient struct {
	httpClient  *http.Client
	baseURL     string
	authHeader  string
	rateLimiter *rate.Limiter
	throttle    *Throttle
	logger      *logrus.Entry

	requestMu sync.Mutex
}

var _ clients.CatalogClient = (*ShopifyClient)(nil)

// NewShopifyClient creates a new Shopify Admin API client
func NewShopifyClient(creds Credentials, opts Options) (*ShopifyClient, error) {
	if err := validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("invalid store credentials: %w", err)
	}

	apiVersion := creds.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := opts.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.Password))

	return &ShopifyClient{
		httpClient:  httpClient,
		baseURL:     fmt.Sprintf("%s/admin/api/%s", NormalizeStoreURL(creds.StoreURL), apiVersion),
		authHeader:  "Basic " + token,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		throttle:    NewThrottle(opts.RequestDelay, opts.ThrottledDelay, opts.QuotaThreshold),
		logger:      logger.WithField("component", "shopify_client"),
	}, nil
}

// NormalizeStoreURL trims a trailing slash and adds https:// when no scheme is given
func NormalizeStoreURL(store string) string {
	store = strings.TrimRight(strings.TrimSpace(store), "/")
	if !strings.HasPrefix(store, "http://") && !strings.HasPrefix(store, "https://") {
		store = "https://" + store
	}
	return store
}

// BaseURL returns the versioned API root
func (c *ShopifyClient) BaseURL() string {
	return c.baseURL
}

// Throttle exposes the pacing state of this client
func (c *ShopifyClient) Throttle() *Throttle {
	return c.throttle
}

// CreateProduct creates a new product. It is not idempotent: every call
// creates a distinct remote product.
func (c *ShopifyClient) CreateProduct(ctx context.Context, draft *models.ProductDraft) (*models.RemoteProduct, error) {
	resp, err := c.Send(ctx, http.MethodPost, "products.json", nil, map[string]interface{}{"product": draft})
	if err != nil {
		return nil, err
	}
	return c.decodeProduct(resp, http.MethodPost, "products.json")
}

// UpdateProduct updates an existing product
func (c *ShopifyClient) UpdateProduct(ctx context.Context, productID int64, draft *models.ProductDraft) (*models.RemoteProduct, error) {
	path := fmt.Sprintf("products/%d.json", productID)
	payload := struct {
		ID int64 `json:"id"`
		*models.ProductDraft
	}{ID: productID, ProductDraft: draft}

	resp, err := c.Send(ctx, http.MethodPut, path, nil, map[string]interface{}{"product": payload})
	if err != nil {
		return nil, err
	}
	return c.decodeProduct(resp, http.MethodPut, path)
}

// GetProduct fetches a single product by ID
func (c *ShopifyClient) GetProduct(ctx context.Context, productID int64) (*models.RemoteProduct, error) {
	path := fmt.Sprintf("products/%d.json", productID)
	resp, err := c.Send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeProduct(resp, http.MethodGet, path)
}

// SearchProducts finds products with the given title
func (c *ShopifyClient) SearchProducts(ctx context.Context, title string) ([]models.RemoteProduct, error) {
	params := url.Values{}
	params.Set("title", title)

	resp, err := c.Send(ctx, http.MethodGet, "products.json", params, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Products []models.RemoteProduct `json:"products"`
	}
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return nil, decodeError(http.MethodGet, "products.json", err)
	}
	return response.Products, nil
}

// TestConnection verifies the credentials by reading the shop resource
func (c *ShopifyClient) TestConnection(ctx context.Context) (*clients.ShopInfo, error) {
	resp, err := c.Send(ctx, http.MethodGet, "shop.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Shop clients.ShopInfo `json:"shop"`
	}
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return nil, decodeError(http.MethodGet, "shop.json", err)
	}
	return &response.Shop, nil
}

// Response is a successful API response with a JSON body
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Send performs one paced, authenticated request. Every failure is a
// *clients.ClientError; non-2xx responses are never retried here.
func (c *ShopifyClient) Send(ctx context.Context, method, path string, params url.Values, body interface{}) (*Response, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, transportError(method, path, err)
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, transportError(method, path, err)
	}

	fullURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, &clients.ClientError{Kind: clients.ErrorKindDecode, Method: method, Path: path, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, transportError(method, path, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.throttle.Record("")
		return nil, transportError(method, path, err)
	}
	defer resp.Body.Close()

	if c.throttle.Record(resp.Header.Get(callLimitHeader)) {
		c.logger.WithFields(logrus.Fields{
			"call_limit": resp.Header.Get(callLimitHeader),
			"delay":      c.throttle.Delay().String(),
		}).Warn("API call quota nearly exhausted, slowing down")
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(method, path, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debug("API request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &clients.ClientError{
			Kind:       clients.ErrorKindHTTP,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBodyLength),
			RetryAfter: clients.ParseRetryAfter(resp.Header),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		respBody = []byte("{}")
	}
	if !json.Valid(respBody) {
		return nil, decodeError(method, path, fmt.Errorf("response is not valid JSON: %s", truncate(string(respBody), 64)))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       json.RawMessage(respBody),
	}, nil
}

func (c *ShopifyClient) decodeProduct(resp *Response, method, path string) (*models.RemoteProduct, error) {
	var response struct {
		Product *models.RemoteProduct `json:"product"`
	}
	if err := json.Unmarshal(resp.Body, &response); err != nil {
		return nil, decodeError(method, path, err)
	}
	if response.Product == nil || response.Product.ID == 0 {
		return nil, decodeError(method, path, fmt.Errorf("response has no product id"))
	}
	return response.Product, nil
}

func transportError(method, path string, err error) *clients.ClientError {
	return &clients.ClientError{Kind: clients.ErrorKindTransport, Method: method, Path: path, Err: err}
}

func decodeError(method, path string, err error) *clients.ClientError {
	return &clients.ClientError{Kind: clients.ErrorKindDecode, Method: method, Path: path, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

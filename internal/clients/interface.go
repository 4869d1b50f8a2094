package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-import-service/internal/models"
)

// CatalogClient defines the remote catalog operations used by the importer
type CatalogClient interface {
	// CreateProduct creates a new remote product from the draft
	CreateProduct(ctx context.Context, draft *models.ProductDraft) (*models.RemoteProduct, error)

	// UpdateProduct replaces the fields of an existing remote product
	UpdateProduct(ctx context.Context, productID int64, draft *models.ProductDraft) (*models.RemoteProduct, error)

	// GetProduct fetches a single product by ID
	GetProduct(ctx context.Context, productID int64) (*models.RemoteProduct, error)

	// SearchProducts finds products by exact title
	SearchProducts(ctx context.Context, title string) ([]models.RemoteProduct, error)

	// TestConnection verifies the credentials against the store
	TestConnection(ctx context.Context) (*ShopInfo, error)
}

// ShopInfo is the store identity returned by a connection test
type ShopInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Email    string `json:"email,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ErrorKind classifies a failed remote call
type ErrorKind string

const (
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindHTTP      ErrorKind = "http"
	ErrorKindDecode    ErrorKind = "decode"
)

// ClientError is returned for any failed remote call. Transport and decode
// failures carry StatusCode 0 and a wrapped cause.
type ClientError struct {
	Kind       ErrorKind
	Method     string
	Path       string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case ErrorKindHTTP:
		return fmt.Sprintf("API request failed: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	case ErrorKindDecode:
		return fmt.Sprintf("API request failed: %s %s returned an unreadable body: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("API request failed: %s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status of a ClientError, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}

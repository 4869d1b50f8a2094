package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// StoreCredentials is the secret payload holding private app credentials
type StoreCredentials struct {
	StoreURL   string `json:"store_url"`
	APIKey     string `json:"api_key"`
	Password   string `json:"password"`
	APIVersion string `json:"api_version,omitempty"`
}

// SecretAccessor is the part of the Secret Manager API used here
type SecretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

type accessorAdapter struct {
	client *secretmanager.Client
}

func (a accessorAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a accessorAdapter) Close() error {
	return a.client.Close()
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// GCPSecretManager reads store credentials from Google Cloud Secret Manager
type GCPSecretManager struct {
	client    SecretAccessor
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return NewGCPSecretManagerWithClient(accessorAdapter{client: client}, projectID), nil
}

// NewGCPSecretManagerWithClient wraps an existing accessor
func NewGCPSecretManagerWithClient(client SecretAccessor, projectID string) *GCPSecretManager {
	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// SecretName expands a short secret ID to its full resource name
func (sm *GCPSecretManager) SecretName(secretID string) string {
	if strings.HasPrefix(secretID, "projects/") {
		return secretID
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetSecret retrieves the latest version of a secret
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	secretName := sm.SecretName(secretID)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.payload, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	payload := result.GetPayload().GetData()

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{
		payload:   payload,
		expiresAt: time.Now().Add(sm.cacheTTL),
	}
	sm.cacheMu.Unlock()

	return payload, nil
}

// GetStoreCredentials reads and decodes the store credentials secret
func (sm *GCPSecretManager) GetStoreCredentials(ctx context.Context, secretID string) (*StoreCredentials, error) {
	payload, err := sm.GetSecret(ctx, secretID)
	if err != nil {
		return nil, err
	}

	var creds StoreCredentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal store credentials: %w", err)
	}
	if creds.StoreURL == "" || creds.APIKey == "" || creds.Password == "" {
		return nil, fmt.Errorf("store credentials secret %s is incomplete", secretID)
	}
	return &creds, nil
}

// InvalidateCache removes a secret from the cache
func (sm *GCPSecretManager) InvalidateCache(secretID string) {
	sm.cacheMu.Lock()
	delete(sm.cache, sm.SecretName(secretID))
	sm.cacheMu.Unlock()
}

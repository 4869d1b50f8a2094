package shopify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"catalog-import-service/internal/clients"
	"catalog-import-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, server *httptest.Server) *ShopifyClient {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewShopifyClient(Credentials{
		StoreURL:   server.URL + "/",
		APIKey:     "key",
		Password:   "secret",
		APIVersion: "2023-07",
	}, Options{
		RequestDelay:         time.Millisecond,
		ThrottledDelay:       5 * time.Millisecond,
		MaxRequestsPerSecond: 10000,
		Logger:               logrus.NewEntry(logger),
	})
	require.NoError(t, err)
	return client
}

func sampleDraft() *models.ProductDraft {
	return &models.ProductDraft{
		Title:     "Mug",
		Vendor:    models.DefaultVendor,
		Status:    models.ProductStatusActive,
		Published: true,
		Variants:  []models.Variant{{Price: "9.99", OptionValues: map[int]string{}}},
	}
}

func TestNewShopifyClient_RequiresCredentials(t *testing.T) {
	_, err := NewShopifyClient(Credentials{StoreURL: "demo.myshopify.com"}, Options{})
	assert.Error(t, err)
}

func TestNormalizeStoreURL(t *testing.T) {
	assert.Equal(t, "https://demo.myshopify.com", NormalizeStoreURL("demo.myshopify.com/"))
	assert.Equal(t, "https://demo.myshopify.com", NormalizeStoreURL("https://demo.myshopify.com"))
	assert.Equal(t, "http://localhost:8080", NormalizeStoreURL(" http://localhost:8080/ "))
}

func TestNewShopifyClient_BaseURL(t *testing.T) {
	client, err := NewShopifyClient(Credentials{StoreURL: "demo.myshopify.com/", APIKey: "k", Password: "p"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://demo.myshopify.com/admin/api/2023-07", client.BaseURL())
}

func TestCreateProduct_SendsAuthenticatedPayload(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody map[string]map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"product":{"id":632910392,"title":"Mug"}}`)
	}))
	defer server.Close()

	product, err := testClient(t, server).CreateProduct(context.Background(), sampleDraft())
	require.NoError(t, err)

	assert.Equal(t, int64(632910392), product.ID)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/admin/api/2023-07/products.json", gotPath)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("key:secret")), gotAuth)
	assert.Equal(t, "Mug", gotBody["product"]["title"])
	assert.Equal(t, true, gotBody["product"]["published"])
}

func TestCreateProduct_IsNotIdempotent(t *testing.T) {
	var nextID int64 = 1000
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := atomic.AddInt64(&nextID, 1)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"product":{"id":%d,"title":"Mug"}}`, id)
	}))
	defer server.Close()

	client := testClient(t, server)
	first, err := client.CreateProduct(context.Background(), sampleDraft())
	require.NoError(t, err)
	second, err := client.CreateProduct(context.Background(), sampleDraft())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSend_HTTPErrorBecomesClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2.0")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"errors":"Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service."}`)
	}))
	defer server.Close()

	_, err := testClient(t, server).CreateProduct(context.Background(), sampleDraft())

	var clientErr *clients.ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, clients.ErrorKindHTTP, clientErr.Kind)
	assert.Equal(t, http.MethodPost, clientErr.Method)
	assert.Equal(t, "products.json", clientErr.Path)
	assert.Equal(t, http.StatusTooManyRequests, clientErr.StatusCode)
	assert.Contains(t, clientErr.Body, "Exceeded 2 calls per second")
	assert.Equal(t, 2*time.Second, clientErr.RetryAfter)
}

func TestSend_TruncatesLongErrorBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		for i := 0; i < 200; i++ {
			fmt.Fprint(w, "0123456789")
		}
	}))
	defer server.Close()

	_, err := testClient(t, server).TestConnection(context.Background())

	var clientErr *clients.ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Len(t, clientErr.Body, maxErrorBodyLength+len("..."))
}

func TestSend_DecodeErrorBecomesClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer server.Close()

	_, err := testClient(t, server).TestConnection(context.Background())

	var clientErr *clients.ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, clients.ErrorKindDecode, clientErr.Kind)
}

func TestSend_TransportErrorBecomesClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := testClient(t, server)
	server.Close()

	_, err := client.TestConnection(context.Background())

	var clientErr *clients.ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, clients.ErrorKindTransport, clientErr.Kind)
	assert.Equal(t, 0, clientErr.StatusCode)
	assert.False(t, client.Throttle().LastRequest().IsZero())
}

func TestSend_CallLimitHeaderRatchetsDelay(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("X-Shopify-Shop-Api-Call-Limit", "39/40")
		} else {
			w.Header().Set("X-Shopify-Shop-Api-Call-Limit", "1/40")
		}
		fmt.Fprint(w, `{"shop":{"id":1,"name":"Demo","domain":"demo.myshopify.com"}}`)
	}))
	defer server.Close()

	client := testClient(t, server)
	assert.Equal(t, time.Millisecond, client.Throttle().Delay())

	shop, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Demo", shop.Name)
	assert.Equal(t, 5*time.Millisecond, client.Throttle().Delay())

	_, err = client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, client.Throttle().Delay())
}

func TestSend_SpacesConsecutiveRequests(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		fmt.Fprint(w, `{"products":[]}`)
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client, err := NewShopifyClient(Credentials{StoreURL: server.URL, APIKey: "k", Password: "p"}, Options{
		RequestDelay:         30 * time.Millisecond,
		MaxRequestsPerSecond: 10000,
		Logger:               logrus.NewEntry(logger),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.SearchProducts(context.Background(), "Mug")
		}()
	}
	wg.Wait()

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 25*time.Millisecond)
	}
}

func TestUpdateProduct_IncludesID(t *testing.T) {
	var gotBody map[string]map[string]interface{}
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"product":{"id":42,"title":"Mug"}}`)
	}))
	defer server.Close()

	product, err := testClient(t, server).UpdateProduct(context.Background(), 42, sampleDraft())
	require.NoError(t, err)

	assert.Equal(t, int64(42), product.ID)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/admin/api/2023-07/products/42.json", gotPath)
	assert.Equal(t, float64(42), gotBody["product"]["id"])
	assert.Equal(t, "Mug", gotBody["product"]["title"])
}

func TestGetAndSearchProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/api/2023-07/products/7.json":
			fmt.Fprint(w, `{"product":{"id":7,"title":"Lamp","handle":"lamp"}}`)
		case "/admin/api/2023-07/products.json":
			assert.Equal(t, "Lamp", r.URL.Query().Get("title"))
			fmt.Fprint(w, `{"products":[{"id":7,"title":"Lamp"},{"id":8,"title":"Lamp"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":"Not Found"}`)
		}
	}))
	defer server.Close()

	client := testClient(t, server)

	product, err := client.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "lamp", product.Handle)

	products, err := client.SearchProducts(context.Background(), "Lamp")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = client.GetProduct(context.Background(), 99)
	assert.Equal(t, http.StatusNotFound, clients.StatusCode(err))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	// "é" is two bytes; cutting at 2 would split it.
	got := truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}

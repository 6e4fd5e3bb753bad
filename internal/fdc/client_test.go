package fdc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/franckalain/nutritrack/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
	"totalHits": 3,
	"foods": [
		{"fdcId": 1102644, "description": "banana, raw", "dataType": "Survey (FNDDS)",
		 "foodNutrients": [{"nutrientId": 1008, "value": 89}, {"nutrientId": 1005, "value": 22.8}]},
		{"description": "missing id"},
		{"fdcId": 2345, "description": "banana chips", "brandOwner": "Acme",
		 "foodNutrients": [{"nutrientId": 1004, "value": 33.6}]}
	]
}`

const detailBody = `{
	"fdcId": 2345,
	"description": "banana chips",
	"brandOwner": "Acme",
	"servingSize": 30,
	"servingSizeUnit": "g",
	"foodNutrients": [{"nutrient": {"id": 1008, "name": "Energy"}, "amount": 519}]
}`

type fakeFDC struct {
	server  *httptest.Server
	detailN atomic.Int32
	lastURL atomic.Value
	lastKey atomic.Value
}

func newFakeFDC(t *testing.T) *fakeFDC {
	t.Helper()
	f := &fakeFDC{}
	mux := http.NewServeMux()
	mux.HandleFunc("/foods/search", func(w http.ResponseWriter, r *http.Request) {
		f.lastURL.Store(r.URL.String())
		f.lastKey.Store(r.Header.Get("X-Api-Key"))
		if r.URL.Query().Get("query") == "boom" {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/food/", func(w http.ResponseWriter, r *http.Request) {
		f.detailN.Add(1)
		switch strings.TrimPrefix(r.URL.Path, "/food/") {
		case "2345":
			w.Write([]byte(detailBody))
		case "999":
			w.Write([]byte(`{"fdcId": 999, "description": "  "}`))
		default:
			http.NotFound(w, r)
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(t *testing.T, baseURL string, m *metrics.Metrics) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, APIKey: "test-key", CacheSize: 8, PageSize: 10}, nil, m)
	require.NoError(t, err)
	return c
}

func TestClient_Search(t *testing.T) {
	fake := newFakeFDC(t)
	m := metrics.New()
	c := newTestClient(t, fake.server.URL, m)

	items, err := c.Search(context.Background(), "  banana ", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1102644", items[0].ID)
	assert.Equal(t, "Banana, raw", items[0].Name)
	assert.Equal(t, 89, items[0].Calories)
	assert.Equal(t, "Banana chips (Acme)", items[1].Name)

	requested := fake.lastURL.Load().(string)
	assert.Contains(t, requested, "query=banana")
	assert.Contains(t, requested, "pageSize=10")
	assert.NotContains(t, requested, "test-key")
	assert.Equal(t, "test-key", fake.lastKey.Load())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("search", "kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("search", "dropped")))
}

func TestClient_SearchLimit(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)

	_, err := c.Search(context.Background(), "banana", 500)
	require.NoError(t, err)
	assert.Contains(t, fake.lastURL.Load().(string), "pageSize=200")
}

func TestClient_SearchErrors(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)

	_, err := c.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = c.Search(context.Background(), "boom", 5)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "upstream exploded")
}

func TestClient_SearchTransportError(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)
	fake.server.Close()

	_, err := c.Search(context.Background(), "banana", 5)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestClient_DetailCached(t *testing.T) {
	fake := newFakeFDC(t)
	m := metrics.New()
	c := newTestClient(t, fake.server.URL, m)

	first, err := c.Detail(context.Background(), "2345")
	require.NoError(t, err)
	assert.Equal(t, "Banana chips (Acme)", first.Name)
	assert.Equal(t, "Brand: Acme\nServing Size: 30 g", first.Description)
	assert.Equal(t, 519, first.Calories)

	second, err := c.Detail(context.Background(), "2345")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, int32(1), fake.detailN.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestClient_DetailErrors(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)

	_, err := c.Detail(context.Background(), "404404")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Detail(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Detail(context.Background(), "999")
	assert.ErrorIs(t, err, ErrUnusable)
}

func TestClient_Details(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)

	items, err := c.Details(context.Background(), []string{"2345", "404404", "999", "2345"})
	require.NoError(t, err)
	require.Len(t, items, 4)

	require.NotNil(t, items[0])
	assert.Equal(t, "2345", items[0].ID)
	assert.Nil(t, items[1])
	assert.Nil(t, items[2])
	require.NotNil(t, items[3])
	assert.Equal(t, "2345", items[3].ID)
}

func TestClient_DetailsCancelled(t *testing.T) {
	fake := newFakeFDC(t)
	c := newTestClient(t, fake.server.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Details(ctx, []string{"2345"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	assert.Error(t, err)
}

package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/naileastudio/salonpos/internal/catalog"
	"github.com/naileastudio/salonpos/internal/orders"
)

func newTestServer(st *orders.MemStore, cs CatalogStore) *httptest.Server {
	engine := &orders.Engine{Store: st, ServiceName: "test"}
	router := NewRouter()
	(&OrdersHandler{Engine: engine}).Register(router)
	if cs != nil {
		cache := catalog.NewServicesCache(5 * time.Minute)
		(&CatalogHandler{Store: cs, Cache: cache}).Register(router)
	}
	return httptest.NewServer(router)
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Staff-Id", "2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestCreateOrderEndpoint(t *testing.T) {
	st := orders.NewMemStore()
	g := st.SeedGood("Kutek OPI Red", decimal.NewFromInt(150000), 5)
	srv := newTestServer(st, nil)
	defer srv.Close()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/goods",
		`{"customer_id":1,"payment":"QRIS","lines":[{"entry_uid":"`+g.UID+`","qty":2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "PENDING", body["status"])
	require.Equal(t, "300000", body["total"])
	require.Equal(t, 5, st.GoodStock(g.UID))
}

func TestCreateOrderRequiresStaffHeader(t *testing.T) {
	st := orders.NewMemStore()
	srv := newTestServer(st, nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/orders/goods", strings.NewReader(`{"customer_id":1,"lines":[{"entry_uid":"x","qty":1}]}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransitionEndpointErrorMapping(t *testing.T) {
	st := orders.NewMemStore()
	g := st.SeedGood("Kutek OPI Pink", decimal.NewFromInt(150000), 1)
	srv := newTestServer(st, nil)
	defer srv.Close()

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/orders/goods",
		`{"customer_id":1,"lines":[{"entry_uid":"`+g.UID+`","qty":2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uid := created["uid"].(string)

	// insufficient stock -> 422 with per-line details
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders/goods/"+uid+"/status", `{"status":"SELESAI"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	details := body["details"].([]any)
	require.Len(t, details, 1)
	d := details[0].(map[string]any)
	require.Equal(t, g.UID, d["entry_uid"])
	require.Equal(t, float64(2), d["required"])
	require.Equal(t, float64(1), d["available"])
	require.Equal(t, 1, st.GoodStock(g.UID))

	// cancel is fine
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/orders/goods/"+uid+"/status", `{"status":"BATAL"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// invalid transition from terminal state -> 409
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/orders/goods/"+uid+"/status", `{"status":"SELESAI"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// unknown order -> 404
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/orders/goods/missing/status", `{"status":"BATAL"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// unknown kind -> 400
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/orders/vouchers/"+uid+"/status", `{"status":"BATAL"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown status -> 400
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/orders/goods/"+uid+"/status", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// contendedStore loses every transition to a concurrent writer.
type contendedStore struct {
	*orders.MemStore
}

func (c *contendedStore) ApplyTransition(context.Context, orders.Kind, string, orders.Status, orders.Status, *string, []orders.StockAdjustment) (*orders.Order, error) {
	return nil, orders.ErrStatusConflict
}

func TestTransitionConflictMapsTo409(t *testing.T) {
	st := orders.NewMemStore()
	g := st.SeedGood("Kutek OPI Nude", decimal.NewFromInt(150000), 5)

	engine := &orders.Engine{Store: &contendedStore{MemStore: st}, ServiceName: "test"}
	router := NewRouter()
	(&OrdersHandler{Engine: engine}).Register(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/orders/goods",
		`{"customer_id":1,"lines":[{"entry_uid":"`+g.UID+`","qty":1}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uid := created["uid"].(string)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders/goods/"+uid+"/status", `{"status":"SELESAI"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, body["error"], "concurrent")
}

// fakeCatalog serves a canned listing and counts store reads.
type fakeCatalog struct {
	CatalogStore
	listCalls int
}

func (f *fakeCatalog) ListActiveServicesGrouped(context.Context) (catalog.GroupedServices, error) {
	f.listCalls++
	return catalog.GroupedServices{
		"Manicure": {{UID: "s1", Name: "Manicure", Price: decimal.NewFromInt(50000)}},
	}, nil
}

func (f *fakeCatalog) CreateService(context.Context, catalog.ServiceInput) (*catalog.Service, error) {
	return &catalog.Service{UID: "s2", Name: "Pedicure", Price: decimal.NewFromInt(60000), Active: true}, nil
}

func TestServicesListingCacheAndInvalidation(t *testing.T) {
	fc := &fakeCatalog{}
	srv := newTestServer(orders.NewMemStore(), fc)
	defer srv.Close()

	get := func() string {
		resp, err := http.Get(srv.URL + "/services")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return resp.Header.Get("X-Cache")
	}

	require.Equal(t, "MISS", get())
	require.Equal(t, "HIT", get())
	require.Equal(t, 1, fc.listCalls, "hit must not touch the store")

	// a catalog service write invalidates before responding
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/admin/services/", `{"name":"Pedicure","price":"60000"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Equal(t, "MISS", get(), "next read after a write must miss")
	require.Equal(t, 2, fc.listCalls)
}

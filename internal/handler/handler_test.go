package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/brizuela-go/takeorderhd/internal/handler"
	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/service"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/brizuela-go/takeorderhd/internal/store/memory"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

// --- Fixture ---

type fixture struct {
	store   *memory.Store
	mirrors *mirror.Set
	router  *chi.Mux
}

func demoCatalog() store.Catalog {
	return store.Catalog{
		Tables:     []model.Table{{Number: "1"}, {Number: "2"}},
		Waiters:    []model.Waiter{{Name: "Ana"}, {Name: "Luis"}},
		Categories: []model.Category{{Name: "Comida"}, {Name: "Bebidas"}},
		Items: []model.MenuItem{
			{Name: "Tacos", Price: decimal.NewFromInt(50), Category: "Comida"},
			{Name: "Enchiladas", Price: decimal.NewFromInt(80), Category: "Comida"},
			{Name: "Agua de horchata", Price: decimal.NewFromInt(25), Category: "Bebidas"},
		},
	}
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()

	st := memory.New()
	if err := st.Seed(context.Background(), demoCatalog()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mirrors := mirror.NewSet(mirror.SourcesFromFeeds(store.NewFeeds(st, log)), log)
	if err := mirrors.Start(context.Background()); err != nil {
		t.Fatalf("start mirrors: %v", err)
	}
	t.Cleanup(mirrors.Close)

	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	svc := service.NewOrderService(st, mirrors.Items.Snapshot, nil, loc, log)
	sessions := terminal.NewManager(svc, terminal.MirrorCatalog{Set: mirrors}, log)

	r := chi.NewRouter()
	handler.NewCatalogHandler(mirrors).RegisterRoutes(r)
	r.Route("/sessions", handler.NewSessionHandler(sessions, log).RegisterRoutes)

	return &fixture{store: st, mirrors: mirrors, router: r}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type sessionBody struct {
	ID          string             `json:"id"`
	Pending     model.PendingOrder `json:"pending"`
	TargetOrder *int64             `json:"target_order"`
}

type orderBody struct {
	Order   model.Order `json:"order"`
	Session sessionBody `json:"session"`
}

func openSession(t *testing.T, f *fixture) string {
	t.Helper()
	rr := doRequest(t, f.router, http.MethodPost, "/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[sessionBody](t, rr).ID
}

func adjust(t *testing.T, f *fixture, sid, item, direction string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, f.router, http.MethodPost, "/sessions/"+sid+"/items", map[string]string{
		"item": item, "direction": direction,
	})
}

func fillForm(t *testing.T, f *fixture, sid string) {
	t.Helper()
	rr := doRequest(t, f.router, http.MethodPatch, "/sessions/"+sid, map[string]string{
		"waiter": "Ana", "table": "1", "payment_method": "cash",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch session: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

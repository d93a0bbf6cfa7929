//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brizuela-go/takeorderhd/internal/config"
	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/router"
	"github.com/brizuela-go/takeorderhd/internal/seed"
	"github.com/brizuela-go/takeorderhd/internal/service"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/brizuela-go/takeorderhd/internal/store/postgres"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/brizuela-go/takeorderhd/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow runs the whole stack against a real PostgreSQL
// database: seed, compose an order, submit it, watch it arrive over the
// websocket, then mark it paid.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log, _ := test.NewNullLogger()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := postgres.Migrate(connStr); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	st := postgres.New(pool, log)
	go st.Run(ctx)

	if err := st.Seed(ctx, seed.Demo()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	mirrors := mirror.NewSet(mirror.SourcesFromFeeds(store.NewFeeds(st, log)), log)
	mirrors.Broadcast(hub.BroadcastSnapshot)
	if err := mirrors.Start(ctx); err != nil {
		t.Fatalf("start mirrors: %v", err)
	}
	defer mirrors.Close()

	loc, _ := time.LoadLocation("America/Mexico_City")
	svc := service.NewOrderService(st, mirrors.Items.Snapshot, nil, loc, log)
	sessions := terminal.NewManager(svc, terminal.MirrorCatalog{Set: mirrors}, log)
	cfg := &config.Config{AllowedOrigins: []string{"*"}}

	server := httptest.NewServer(router.New(cfg, mirrors, sessions, hub, log))
	defer server.Close()

	// --- 1. Catalog is mirrored ---
	waitFor(t, "items mirror", func() bool { return len(mirrors.Items.Snapshot()) == len(seed.Demo().Items) })

	// --- 2. Subscribe to active orders ---
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + string(enum.CollectionOrders)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	if first := readEvent(t, conn); string(first.Payload) != "[]" {
		t.Fatalf("expected empty initial orders snapshot, got %s", first.Payload)
	}

	// --- 3. Compose and submit ---
	sess := httpJSON(t, server, http.MethodPost, "/sessions", nil, http.StatusCreated)
	sid := sess["id"].(string)
	httpJSON(t, server, http.MethodPatch, "/sessions/"+sid, map[string]string{
		"waiter": "Ana", "table": "3", "payment_method": enum.PaymentMethodCash,
	}, http.StatusOK)
	httpJSON(t, server, http.MethodPost, "/sessions/"+sid+"/items", map[string]string{
		"item": "Tacos al pastor", "direction": enum.DirectionIncrement,
	}, http.StatusOK)
	pending := httpJSON(t, server, http.MethodPost, "/sessions/"+sid+"/items", map[string]string{
		"item": "Tacos al pastor", "direction": enum.DirectionIncrement,
	}, http.StatusOK)
	if total := pending["pending"].(map[string]interface{})["total"]; total != "36" {
		t.Fatalf("expected pending total 36, got %v", total)
	}

	submitted := httpJSON(t, server, http.MethodPost, "/sessions/"+sid+"/submit", nil, http.StatusCreated)
	order := submitted["order"].(map[string]interface{})
	if order["id"] != float64(1) {
		t.Fatalf("expected order id 1, got %v", order["id"])
	}

	// --- 4. The new order reaches the websocket ---
	deadline := time.Now().Add(5 * time.Second)
	for {
		ev := readEvent(t, conn)
		var orders []map[string]interface{}
		if err := json.Unmarshal(ev.Payload, &orders); err != nil {
			t.Fatalf("decode orders payload: %v", err)
		}
		if len(orders) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("order never appeared on the websocket")
		}
	}

	// --- 5. Mark paid ---
	httpJSON(t, server, http.MethodPut, "/sessions/"+sid+"/target", map[string]int64{"order_id": 1}, http.StatusOK)
	paid := httpJSON(t, server, http.MethodPost, "/sessions/"+sid+"/target/confirm", nil, http.StatusOK)
	if paid["order"].(map[string]interface{})["is_active"] != false {
		t.Fatal("expected order to be inactive after confirm")
	}

	waitFor(t, "paid order leaves active mirror", func() bool {
		_, ok := mirrors.FindActiveOrder(1)
		return !ok
	})
}

// --- Helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("takeorder_test"),
		tcpostgres.WithUsername("takeorder"),
		tcpostgres.WithPassword("takeorder"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev ws.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read websocket event: %v", err)
	}
	return ev
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %v", method, path, wantStatus, resp.StatusCode, out)
	}
	return out
}

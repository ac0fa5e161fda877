package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/metrics"
	"hashstake/dashboard/internal/staking"
)

func dialHub(t *testing.T, server *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readView(t *testing.T, conn *websocket.Conn) staking.DashboardView {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var view staking.DashboardView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	return view
}

func TestHub_BroadcastThroughRouter(t *testing.T) {
	logger := zap.NewNop()
	m := metrics.New()
	hub := NewHub([]string{"*"}, m, logger)
	defer hub.Close()

	handler := NewHandler(newFakeDashboard(t, false), nil, nil, nil, logger)
	server := httptest.NewServer(SetupRouter(handler, hub, m, []string{"*"}, logger))
	defer server.Close()

	hub.Broadcast(staking.DashboardView{Message: "first"})

	conn, _, err := dialHub(t, server, "")
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	defer conn.Close()

	// the latest view is delivered on connect
	if view := readView(t, conn); view.Message != "first" {
		t.Errorf("expected message 'first', got '%s'", view.Message)
	}
	if got := hub.Clients(); got != 1 {
		t.Errorf("expected 1 client, got %d", got)
	}
	if got := testutil.ToFloat64(m.WSClients); got != 1 {
		t.Errorf("expected gauge 1, got %v", got)
	}

	hub.Broadcast(staking.DashboardView{Connected: true, Account: aliceAddr.Hex()})
	view := readView(t, conn)
	if !view.Connected || view.Account != aliceAddr.Hex() {
		t.Errorf("unexpected view: %+v", view)
	}

	hub.Close()
	if got := hub.Clients(); got != 0 {
		t.Errorf("expected 0 clients after close, got %d", got)
	}
	if got := testutil.ToFloat64(m.WSClients); got != 0 {
		t.Errorf("expected gauge 0, got %v", got)
	}
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"}, nil, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected status %d, got %v", http.StatusForbidden, resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	conn.Close()
}

package chainlog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// relayServer upgrades, verifies the subscription request, then runs
// serve with the open connection.
func relayServer(t *testing.T, serve func(conn *websocket.Conn)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal subscribe request: %v", err)
			return
		}
		if req.Method != "subscribeLogs" {
			t.Errorf("expected subscribeLogs, got %s", req.Method)
		}
		if req.Address != "0xcontract" {
			t.Errorf("expected contract address, got %s", req.Address)
		}

		serve(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSSource_SubscribeDeliversLogs(t *testing.T) {
	server := relayServer(t, func(conn *websocket.Conn) {
		frames := []logFrame{
			{
				Name:        domain.EventOrderFulfilled,
				Args:        map[string]any{"orderHash": "0xorder1"},
				BlockNumber: 100,
				Timestamp:   1700000000,
				TxHash:      "0xtx1",
				LogIndex:    0,
				GasUsed:     21000,
				GasPrice:    "1000000000",
			},
			{
				Name:        domain.EventOrderCancelled,
				Args:        map[string]any{"orderHash": "0xorder2"},
				BlockNumber: 101,
				TxHash:      "0xtx2",
				LogIndex:    3,
			},
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}

		// Keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewWSSource(wsURL(server), "0xcontract", nil, nil)
	logs, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	raw := receiveLog(t, logs)
	if raw.Name != domain.EventOrderFulfilled || raw.TxHash != "0xtx1" {
		t.Errorf("Unexpected first log: %+v", raw)
	}
	if raw.GasPrice.Int64() != 1000000000 {
		t.Errorf("Expected parsed gas price, got %s", raw.GasPrice)
	}
	if orderHash, ok := raw.Args["orderHash"].(string); !ok || orderHash != "0xorder1" {
		t.Errorf("Args not carried through: %+v", raw.Args)
	}

	raw = receiveLog(t, logs)
	if raw.Name != domain.EventOrderCancelled || raw.LogIndex != 3 {
		t.Errorf("Unexpected second log: %+v", raw)
	}
	if raw.GasPrice.Sign() != 0 {
		t.Errorf("Expected zero gas price for empty field, got %s", raw.GasPrice)
	}
}

func TestWSSource_SkipsMalformedFrames(t *testing.T) {
	server := relayServer(t, func(conn *websocket.Conn) {
		// Missing tx hash: dropped. Bad gas price: dropped.
		conn.WriteJSON(logFrame{Name: domain.EventOrderFulfilled, BlockNumber: 100})
		conn.WriteJSON(logFrame{Name: domain.EventOrderFulfilled, TxHash: "0xbad", GasPrice: "not-a-number"})
		conn.WriteJSON(logFrame{Name: domain.EventOrderFulfilled, TxHash: "0xgood", BlockNumber: 101})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewWSSource(wsURL(server), "0xcontract", nil, nil)
	logs, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	raw := receiveLog(t, logs)
	if raw.TxHash != "0xgood" {
		t.Errorf("Expected malformed frames to be skipped, got %+v", raw)
	}
}

func TestWSSource_ReconnectsAndResubscribes(t *testing.T) {
	connections := make(chan struct{}, 2)

	server := relayServer(t, func(conn *websocket.Conn) {
		connections <- struct{}{}

		switch len(connections) {
		case 1:
			// Drop the first connection immediately after one log
			conn.WriteJSON(logFrame{Name: domain.EventOrderFulfilled, TxHash: "0xfirst", BlockNumber: 1})
			conn.Close()
		default:
			conn.WriteJSON(logFrame{Name: domain.EventOrderFulfilled, TxHash: "0xsecond", BlockNumber: 2})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := DefaultConfig()
	config.ReconnectDelay = 10 * time.Millisecond

	source := NewWSSource(wsURL(server), "0xcontract", &config, nil)
	logs, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	raw := receiveLog(t, logs)
	if raw.TxHash != "0xfirst" {
		t.Errorf("Unexpected pre-disconnect log: %+v", raw)
	}

	// The source must redial and replay the subscription on its own
	raw = receiveLog(t, logs)
	if raw.TxHash != "0xsecond" {
		t.Errorf("Unexpected post-reconnect log: %+v", raw)
	}
}

func TestWSSource_ClosesChannelOnCancel(t *testing.T) {
	server := relayServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	config := DefaultConfig()
	config.ReadTimeout = 100 * time.Millisecond
	config.ReconnectDelay = 10 * time.Millisecond

	source := NewWSSource(wsURL(server), "0xcontract", &config, nil)
	logs, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-logs:
		if ok {
			t.Error("Expected closed channel, got a log")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Channel not closed after cancel")
	}
}

func receiveLog(t *testing.T, logs <-chan *domain.RawLog) *domain.RawLog {
	t.Helper()
	select {
	case raw, ok := <-logs:
		if !ok {
			t.Fatal("Log channel closed unexpectedly")
		}
		return raw
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for log")
		return nil
	}
}

// Package chainlog delivers raw protocol logs from a chain log relay
// over WebSocket.
package chainlog

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/gorilla/websocket"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// Config configures WebSocket source behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource subscribes to settlement contract logs on a relay endpoint.
// The connection is re-established with exponential backoff on any read
// failure, and the subscription replayed; redelivered logs are absorbed
// downstream by the idempotency guard.
type WSSource struct {
	endpoint string
	contract string
	config   Config
	logger   *log.Logger
}

// NewWSSource creates a new WebSocket log source for one contract.
func NewWSSource(endpoint, contract string, config *Config, logger *log.Logger) *WSSource {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	return &WSSource{
		endpoint: endpoint,
		contract: contract,
		config:   cfg,
		logger:   logger,
	}
}

// Subscribe connects to the relay and returns a channel of raw logs.
// The channel is closed when the context is cancelled.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan *domain.RawLog, error) {
	conn, err := s.dialAndSubscribe(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[ws] Subscribed to logs for %s", s.contract)

	logs := make(chan *domain.RawLog, 100)
	go s.readLoop(ctx, conn, logs)

	return logs, nil
}

// dialAndSubscribe opens a connection and sends the subscribe request.
func (s *WSSource) dialAndSubscribe(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	req := subscribeRequest{Method: "subscribeLogs", Address: s.contract}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	return conn, nil
}

// readLoop reads frames and forwards them; on read failure it redials
// with exponential backoff until the context is cancelled.
func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn, logs chan<- *domain.RawLog) {
	defer close(logs)

	stopPing := s.startPing(conn)
	delay := s.config.ReconnectDelay

	for ctx.Err() == nil {
		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}

			next, err := s.dialAndSubscribe(ctx)
			if err != nil {
				s.logger.Printf("[ws] Reconnect failed, retrying in %v: %v", delay, err)
				continue
			}
			s.logger.Printf("[ws] Reconnected, resubscribed to %s", s.contract)
			conn = next
			stopPing = s.startPing(conn)
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var frame logFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Printf("[ws] Read error, reconnecting: %v", err)
			close(stopPing)
			conn.Close()
			conn = nil
			continue
		}

		// Reset delay on successful read
		delay = s.config.ReconnectDelay

		raw, err := frame.toRawLog()
		if err != nil {
			s.logger.Printf("[ws] Skipping malformed frame %s/%d: %v", frame.TxHash, frame.LogIndex, err)
			continue
		}

		// Block until we can send - never drop logs
		select {
		case logs <- raw:
		case <-ctx.Done():
		}
	}

	if conn != nil {
		close(stopPing)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

// startPing sends periodic ping frames until the returned channel is
// closed, keeping the connection alive across quiet stretches.
func (s *WSSource) startPing(conn *websocket.Conn) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.config.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
					return
				}
			}
		}
	}()
	return stop
}

// WebSocket message types

type subscribeRequest struct {
	Method  string `json:"method"`
	Address string `json:"address"`
}

// logFrame is one relay-delivered log. Amount-bearing argument values
// arrive as decimal strings inside the untyped args bag; the top-level
// gas price is a decimal string for the same uint256 reason.
type logFrame struct {
	Name        string         `json:"name"`
	Args        map[string]any `json:"args"`
	BlockNumber uint64         `json:"blockNumber"`
	Timestamp   int64          `json:"timestamp"`
	TxHash      string         `json:"txHash"`
	LogIndex    uint           `json:"logIndex"`
	GasUsed     uint64         `json:"gasUsed"`
	GasPrice    string         `json:"gasPrice"`
}

func (f *logFrame) toRawLog() (*domain.RawLog, error) {
	if f.TxHash == "" {
		return nil, fmt.Errorf("missing tx hash")
	}

	gasPrice := new(big.Int)
	if f.GasPrice != "" {
		n, ok := new(big.Int).SetString(f.GasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("gas price %q is not a decimal", f.GasPrice)
		}
		gasPrice = n
	}

	return &domain.RawLog{
		Name:        f.Name,
		Args:        f.Args,
		BlockNumber: f.BlockNumber,
		Timestamp:   f.Timestamp,
		TxHash:      f.TxHash,
		LogIndex:    f.LogIndex,
		GasUsed:     f.GasUsed,
		GasPrice:    gasPrice,
	}, nil
}

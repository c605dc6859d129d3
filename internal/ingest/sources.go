// Package ingest turns the chain log stream into storage effects: it
// decodes raw logs, classifies order items, and applies each event's
// full effect through the storage layer.
package ingest

import (
	"context"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// LogSource delivers raw protocol logs from the chain. Delivery is
// at-least-once: subscribers must tolerate redelivered logs.
type LogSource interface {
	Subscribe(ctx context.Context) (<-chan *domain.RawLog, error)
}

package ingest

import (
	"errors"
	"sort"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// ErrInvalidOrdering is returned when logs are not properly ordered.
var ErrInvalidOrdering = errors.New("logs are not in deterministic order")

// SortRawLogs orders logs by (block_number ASC, log_index ASC).
// This provides deterministic ordering based on blockchain order.
func SortRawLogs(logs []*domain.RawLog) {
	sort.Slice(logs, func(i, j int) bool {
		return compareRawLogs(logs[i], logs[j]) < 0
	})
}

// ValidateLogOrdering checks if logs are properly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateLogOrdering(logs []*domain.RawLog) error {
	for i := 1; i < len(logs); i++ {
		if compareRawLogs(logs[i-1], logs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareRawLogs returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block_number ASC, log_index ASC)
func compareRawLogs(a, b *domain.RawLog) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

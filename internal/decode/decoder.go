// Package decode maps raw protocol logs into the closed set of
// canonical marketplace events and classifies order items into asset
// and payment legs. Everything here is pure; failures are reported, not
// logged.
package decode

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/camdengrieh/flowties-sub000/internal/domain"
)

// Decode failure causes.
var (
	// ErrUnknownEvent is returned for event names outside the canonical set.
	ErrUnknownEvent = errors.New("unknown event name")

	// ErrMalformedArgs is returned when the argument bag does not match
	// the known shape for the event name.
	ErrMalformedArgs = errors.New("malformed event arguments")
)

// Error is a decode failure for a single log. It is non-fatal: the
// pipeline skips the log and continues.
type Error struct {
	Event  string
	TxHash string
	Index  uint
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s (tx=%s log=%d): %v", e.Event, e.TxHash, e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode validates a raw log's argument bag once and returns the
// matching canonical event variant. Unknown event names and malformed
// argument bags yield *Error wrapping ErrUnknownEvent/ErrMalformedArgs.
func Decode(raw *domain.RawLog) (domain.Event, error) {
	if raw == nil {
		return nil, &Error{Err: ErrMalformedArgs}
	}

	ctx := domain.EventContext{
		BlockNumber: raw.BlockNumber,
		Timestamp:   raw.Timestamp,
		TxHash:      raw.TxHash,
		LogIndex:    raw.LogIndex,
		GasUsed:     raw.GasUsed,
		GasPrice:    raw.GasPrice,
	}

	switch raw.Name {
	case domain.EventOrderFulfilled:
		return decodeFulfilled(raw, ctx)
	case domain.EventOrderValidated:
		ev, err := decodeLifecycle(raw)
		if err != nil {
			return nil, err
		}
		return &domain.ValidatedEvent{OrderHash: ev.orderHash, Offerer: ev.offerer, Zone: ev.zone, Ctx: ctx}, nil
	case domain.EventOrderCancelled:
		ev, err := decodeLifecycle(raw)
		if err != nil {
			return nil, err
		}
		return &domain.CancelledEvent{OrderHash: ev.orderHash, Offerer: ev.offerer, Zone: ev.zone, Ctx: ctx}, nil
	default:
		return nil, &Error{Event: raw.Name, TxHash: raw.TxHash, Index: raw.LogIndex, Err: ErrUnknownEvent}
	}
}

func decodeFulfilled(raw *domain.RawLog, ctx domain.EventContext) (*domain.FulfilledEvent, error) {
	orderHash, err := argString(raw, "orderHash")
	if err != nil {
		return nil, err
	}
	offerer, err := argAddress(raw, "offerer")
	if err != nil {
		return nil, err
	}
	zone, err := argAddress(raw, "zone")
	if err != nil {
		return nil, err
	}
	recipient, err := argAddress(raw, "recipient")
	if err != nil {
		return nil, err
	}
	offer, err := argOfferItems(raw, "offer")
	if err != nil {
		return nil, err
	}
	consideration, err := argConsiderationItems(raw, "consideration")
	if err != nil {
		return nil, err
	}

	return &domain.FulfilledEvent{
		OrderHash:     orderHash,
		Offerer:       offerer,
		Zone:          zone,
		Recipient:     recipient,
		Offer:         offer,
		Consideration: consideration,
		Ctx:           ctx,
	}, nil
}

type lifecycleArgs struct {
	orderHash string
	offerer   string
	zone      string
}

func decodeLifecycle(raw *domain.RawLog) (lifecycleArgs, error) {
	orderHash, err := argString(raw, "orderHash")
	if err != nil {
		return lifecycleArgs{}, err
	}
	offerer, err := argAddress(raw, "offerer")
	if err != nil {
		return lifecycleArgs{}, err
	}
	zone, err := argAddress(raw, "zone")
	if err != nil {
		return lifecycleArgs{}, err
	}
	return lifecycleArgs{orderHash: orderHash, offerer: offerer, zone: zone}, nil
}

func malformed(raw *domain.RawLog, format string, args ...any) *Error {
	return &Error{
		Event:  raw.Name,
		TxHash: raw.TxHash,
		Index:  raw.LogIndex,
		Err:    fmt.Errorf("%w: %s", ErrMalformedArgs, fmt.Sprintf(format, args...)),
	}
}

func argString(raw *domain.RawLog, key string) (string, error) {
	v, ok := raw.Args[key]
	if !ok {
		return "", malformed(raw, "missing %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", malformed(raw, "%q is not a non-empty string", key)
	}
	return s, nil
}

func argAddress(raw *domain.RawLog, key string) (string, error) {
	s, err := argString(raw, key)
	if err != nil {
		return "", err
	}
	return domain.NormalizeAddress(s), nil
}

func argOfferItems(raw *domain.RawLog, key string) ([]domain.OfferItem, error) {
	list, err := argList(raw, key)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OfferItem, 0, len(list))
	for i, entry := range list {
		item, err := decodeItem(raw, key, i, entry)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func argConsiderationItems(raw *domain.RawLog, key string) ([]domain.ConsiderationItem, error) {
	list, err := argList(raw, key)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ConsiderationItem, 0, len(list))
	for i, entry := range list {
		item, err := decodeItem(raw, key, i, entry)
		if err != nil {
			return nil, err
		}
		ci := domain.ConsiderationItem{OfferItem: item}
		fields, _ := entry.(map[string]any)
		if recipient, ok := fields["recipient"].(string); ok {
			ci.Recipient = domain.NormalizeAddress(recipient)
		}
		items = append(items, ci)
	}
	return items, nil
}

func argList(raw *domain.RawLog, key string) ([]any, error) {
	v, ok := raw.Args[key]
	if !ok {
		return nil, malformed(raw, "missing %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, malformed(raw, "%q is not a list", key)
	}
	return list, nil
}

func decodeItem(raw *domain.RawLog, key string, index int, entry any) (domain.OfferItem, error) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return domain.OfferItem{}, malformed(raw, "%s[%d] is not an object", key, index)
	}

	itemType, err := fieldUint8(fields, "itemType")
	if err != nil {
		return domain.OfferItem{}, malformed(raw, "%s[%d]: %v", key, index, err)
	}
	token, ok := fields["token"].(string)
	if !ok {
		return domain.OfferItem{}, malformed(raw, "%s[%d]: token is not a string", key, index)
	}
	identifier, err := fieldBigInt(fields, "identifier")
	if err != nil {
		return domain.OfferItem{}, malformed(raw, "%s[%d]: %v", key, index, err)
	}
	amount, err := fieldBigInt(fields, "amount")
	if err != nil {
		return domain.OfferItem{}, malformed(raw, "%s[%d]: %v", key, index, err)
	}

	return domain.OfferItem{
		ItemType:   domain.ItemType(itemType),
		Token:      domain.NormalizeAddress(token),
		Identifier: identifier,
		Amount:     amount,
	}, nil
}

func fieldUint8(fields map[string]any, key string) (uint8, error) {
	switch v := fields[key].(type) {
	case float64:
		if v < 0 || v > 255 || v != float64(uint8(v)) {
			return 0, fmt.Errorf("%s out of uint8 range", key)
		}
		return uint8(v), nil
	case int:
		if v < 0 || v > 255 {
			return 0, fmt.Errorf("%s out of uint8 range", key)
		}
		return uint8(v), nil
	case uint8:
		return v, nil
	default:
		return 0, fmt.Errorf("%s is not a number", key)
	}
}

// fieldBigInt accepts uint256 values as decimal strings (the wire
// format for amounts that overflow float64) or as plain JSON numbers.
func fieldBigInt(fields map[string]any, key string) (*big.Int, error) {
	switch v := fields[key].(type) {
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%s is not an unsigned decimal", key)
		}
		return n, nil
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return nil, fmt.Errorf("%s is not an unsigned integer", key)
		}
		return big.NewInt(int64(v)), nil
	case int:
		if v < 0 {
			return nil, fmt.Errorf("%s is not an unsigned integer", key)
		}
		return big.NewInt(int64(v)), nil
	case *big.Int:
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%s is not an unsigned integer", key)
		}
		return new(big.Int).Set(v), nil
	default:
		return nil, fmt.Errorf("%s is not a number", key)
	}
}

// Package wire implements the binary framing clients use to submit quotes to
// the engine and receive trade/error reports back, superseding the teacher's
// fenrir/internal/net (which this repository drops — see DESIGN.md). Order
// ids are minted here, at the edge, with github.com/google/uuid when a
// client does not supply one; the core engine never generates ids itself.
package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venue/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	AmendOrder
	LogBook
)

type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

// Message header layout. Prices and quantities travel on the wire as
// big-endian float64 bit patterns (math.Float64bits / Float64frombits) —
// the same fixed-width encoding the teacher's wire format uses — and are
// converted to decimal.Decimal immediately on receipt via
// decimal.NewFromFloat, never carried as float64 past the wire boundary.
// A timestamp is not part of the wire format: the server's own clock stamps
// every quote and trade on receipt, per spec.md §5's single-threaded
// cooperative model.
const (
	baseHeaderLen = 2
	// side(1) + kind(1) + price(8) + qty(8) + idLen(1) + tradeIdLen(1),
	// not counting the leading 2-byte message type already stripped by
	// ParseMessage.
	newOrderBodyLen     = 1 + 1 + 8 + 8 + 1 + 1
	cancelOrderBodyLen  = 36 // order id as a 36-byte UUID string
	amendOrderBodyLen   = 36 + 8 + 8
)

// ParseMessage dispatches on the leading 2-byte MessageType and decodes the
// remainder of the frame.
func ParseMessage(msg []byte) (any, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case AmendOrder:
		return parseAmendOrder(body)
	case LogBook:
		return LogBookMessage{}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// NewOrderMessage is the wire shape of an incoming quote.
type NewOrderMessage struct {
	Side     common.Side
	Kind     common.Kind
	Price    decimal.Decimal
	Quantity decimal.Decimal
	OrderID  string
	TradeID  string
}

// Quote mints missing ids with uuid.New and returns the engine-facing quote.
func (m NewOrderMessage) Quote(timestamp int64) common.Quote {
	orderID := m.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}
	tradeID := m.TradeID
	if tradeID == "" {
		tradeID = uuid.New().String()
	}
	return common.Quote{
		OrderID:   orderID,
		TradeID:   tradeID,
		Timestamp: timestamp,
		Side:      m.Side,
		Kind:      m.Kind,
		Price:     m.Price,
		Quantity:  m.Quantity,
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderBodyLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	side := common.Side(msg[0])
	kind := common.Kind(msg[1])
	price := math.Float64frombits(binary.BigEndian.Uint64(msg[2:10]))
	qty := math.Float64frombits(binary.BigEndian.Uint64(msg[10:18]))
	idLen := int(msg[18])
	tradeIDLen := int(msg[19])

	if len(msg) < newOrderBodyLen+idLen+tradeIDLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	offset := newOrderBodyLen
	orderID := string(msg[offset : offset+idLen])
	offset += idLen
	tradeID := string(msg[offset : offset+tradeIDLen])

	return NewOrderMessage{
		Side:     side,
		Kind:     kind,
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(qty),
		OrderID:  orderID,
		TradeID:  tradeID,
	}, nil
}

// CancelOrderMessage carries the id of a resting order to cancel.
type CancelOrderMessage struct {
	OrderID string
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderBodyLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{OrderID: string(msg[:cancelOrderBodyLen])}, nil
}

// AmendOrderMessage carries a resting order's new price/quantity.
type AmendOrderMessage struct {
	OrderID  string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func parseAmendOrder(msg []byte) (AmendOrderMessage, error) {
	if len(msg) < amendOrderBodyLen {
		return AmendOrderMessage{}, ErrMessageTooShort
	}
	orderID := string(msg[:36])
	price := math.Float64frombits(binary.BigEndian.Uint64(msg[36:44]))
	qty := math.Float64frombits(binary.BigEndian.Uint64(msg[44:52]))
	return AmendOrderMessage{
		OrderID:  orderID,
		Price:    decimal.NewFromFloat(price),
		Quantity: decimal.NewFromFloat(qty),
	}, nil
}

// LogBookMessage requests a human-readable depth snapshot, per
// SPEC_FULL.md §12's supplemented LogBook feature.
type LogBookMessage struct{}

// Package common holds the small value types shared by the book, engine and
// transport layers: sides, order kinds, and the error taxonomy a caller can
// match on with errors.Is.
package common

import (
	"errors"
	"fmt"
)

// Side is the direction of a quote: bid (buy) or ask (sell).
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Kind distinguishes resting limit orders from fire-and-forget market orders.
type Kind int

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	if k == Limit {
		return "limit"
	}
	return "market"
}

// Error taxonomy. InvalidQuote and UnknownOrder are ordinary, expected outcomes
// a caller is meant to branch on; every finer-grained invalid-quote error wraps
// ErrInvalidQuote. InvariantViolation is not returned as an error at all (see
// book.Book.CheckInvariants) — it panics, since the spec treats a detected
// cross-structure inconsistency as fatal corruption, not a recoverable
// condition.
var (
	ErrInvalidQuote      = errors.New("invalid quote")
	ErrMissingOrderID    = fmt.Errorf("%w: missing order id", ErrInvalidQuote)
	ErrMissingTradeID    = fmt.Errorf("%w: missing trade id", ErrInvalidQuote)
	ErrNonPositiveQty    = fmt.Errorf("%w: quantity must be positive", ErrInvalidQuote)
	ErrNegativePrice     = fmt.Errorf("%w: price must not be negative", ErrInvalidQuote)
	ErrUnknownSide       = fmt.Errorf("%w: unknown side", ErrInvalidQuote)
	ErrUnknownKind       = fmt.Errorf("%w: unknown kind", ErrInvalidQuote)
	ErrMissingPrice      = fmt.Errorf("%w: limit order requires a price", ErrInvalidQuote)
	ErrUnknownOrder      = errors.New("unknown order")
	ErrInvariantViolated = errors.New("order book invariant violated")
)

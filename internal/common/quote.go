package common

import "github.com/shopspring/decimal"

// Quote is the external input shape: a bid or ask, market or limit, submitted
// by a front-end on behalf of a trading party.
type Quote struct {
	OrderID   string
	TradeID   string
	Timestamp int64
	Side      Side
	Kind      Kind
	Price     decimal.Decimal // meaningful for limits; ignored for markets
	Quantity  decimal.Decimal
}

// Validate rejects a quote before it ever touches book state, per the
// InvalidQuote taxonomy: missing fields, non-positive quantity, negative
// price, or an unrecognised side/kind.
func (q Quote) Validate() error {
	if q.OrderID == "" {
		return ErrMissingOrderID
	}
	if q.TradeID == "" {
		return ErrMissingTradeID
	}
	if q.Side != Bid && q.Side != Ask {
		return ErrUnknownSide
	}
	if q.Kind != Limit && q.Kind != Market {
		return ErrUnknownKind
	}
	if q.Quantity.Sign() <= 0 {
		return ErrNonPositiveQty
	}
	if q.Kind == Limit {
		if q.Price.Sign() < 0 {
			return ErrNegativePrice
		}
	}
	return nil
}

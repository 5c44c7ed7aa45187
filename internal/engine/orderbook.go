// Package engine implements the matching engine: two book.Book instances
// (bids, asks) and the price-time priority crossing algorithm that consumes
// incoming quotes against them. It is grounded on the teacher's
// OrderBook.Match/handleLimit/handleMarket (saiputravu-Exchange
// internal/engine/orderbook.go) generalised to the doubly-linked-list book in
// internal/book, and on the Python original's OrderBook.process_orders
// (original_source/order/orderbook.py) for the exact per-level matching loop.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venue/internal/book"
	"venue/internal/common"
)

const defaultTickSize = "0.0001"

// Clock returns an engine timestamp for trade records. It is swappable for
// tests that need deterministic, strictly increasing values.
type Clock func() int64

func systemClock() int64 { return time.Now().UnixNano() }

// OrderBook is the matching engine for a single instrument: it holds both
// sides of the book, the append-only trade tape, and the tick-size rounding
// rule applied to incoming limit prices.
type OrderBook struct {
	Bids *book.Book
	Asks *book.Book

	tickSize  decimal.Decimal
	precision int32
	tape      []common.Trade
	clock     Clock
}

// New builds an empty OrderBook. A zero tickSize defaults to 0.0001, per
// spec.md §6.
func New(tickSize decimal.Decimal) *OrderBook {
	if tickSize.IsZero() {
		tickSize, _ = decimal.NewFromString(defaultTickSize)
	}
	return &OrderBook{
		Bids:      book.NewBook(common.Bid),
		Asks:      book.NewBook(common.Ask),
		tickSize:  tickSize,
		precision: precisionOf(tickSize),
		clock:     systemClock,
	}
}

// SetClock overrides the trade-timestamp clock; used by tests.
func (ob *OrderBook) SetClock(c Clock) { ob.clock = c }

// precisionOf derives the number of decimal places implied by a tick size,
// e.g. 0.0001 -> 4, 0.01 -> 2, 1 -> 0. This mirrors spec.md's
// n = floor(log10(1/tick_size)) without going through floating-point log10:
// for x = coefficient * 10^exponent, floor(log10(x)) is the exponent plus the
// coefficient's digit count minus one, computed on the exact decimal 1/tick.
func precisionOf(tickSize decimal.Decimal) int32 {
	inverse := decimal.NewFromInt(1).Div(tickSize)
	digits := int32(len(inverse.Coefficient().String()))
	return inverse.Exponent() + digits - 1
}

func (ob *OrderBook) roundToTick(price decimal.Decimal) decimal.Decimal {
	return price.Round(ob.precision)
}

func (ob *OrderBook) bookFor(side common.Side) *book.Book {
	if side == common.Bid {
		return ob.Bids
	}
	return ob.Asks
}

// Submit is the unified entry point: it validates the quote, dispatches on
// kind x side, and returns the trades produced plus the resting order if any
// quantity survived matching (limit orders only; market orders never rest).
func (ob *OrderBook) Submit(q common.Quote) ([]common.Trade, *book.Order, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	if q.Kind == common.Limit {
		q.Price = ob.roundToTick(q.Price)
		return ob.matchLimit(q)
	}
	return ob.matchMarket(q)
}

// matchLimit implements spec.md §4.4's limit-order algorithm: sweep the
// opposing book's best price level while it is non-empty, the incoming price
// crosses strictly through it, and quantity remains; then rest any residual
// at the incoming price.
func (ob *OrderBook) matchLimit(q common.Quote) ([]common.Trade, *book.Order, error) {
	own := ob.bookFor(q.Side)
	opposing := ob.bookFor(q.Side.Opposite())

	remaining := q.Quantity
	var trades []common.Trade

	for {
		level, ok := opposing.Best()
		if !ok || remaining.Sign() <= 0 {
			break
		}
		if crosses := ob.crosses(q.Side, q.Price, level.Price); !crosses {
			break
		}

		var newTrades []common.Trade
		remaining, newTrades = ob.processLevel(opposing, level, remaining, q)
		trades = append(trades, newTrades...)
	}

	var resting *book.Order
	if remaining.Sign() > 0 {
		q.Quantity = remaining
		resting = own.InsertOrder(q)
	}

	return trades, resting, nil
}

// crosses reports whether an incoming quote at price p crosses through the
// opposing side's best resting price, per spec.md's strict inequality: a
// bid must be strictly greater than the best ask, an ask strictly less than
// the best bid. A quote resting exactly at the opposing touch does not
// trade — it posts instead, exactly as the distilled specification (and the
// Python original it is drawn from) states.
func (ob *OrderBook) crosses(side common.Side, price, oppositeBest decimal.Decimal) bool {
	if side == common.Bid {
		return price.GreaterThan(oppositeBest)
	}
	return price.LessThan(oppositeBest)
}

// matchMarket implements spec.md §4.4's market-order algorithm: identical to
// the limit sweep but with no price guard, and any unfilled remainder after
// the opposing side empties is discarded rather than rested.
func (ob *OrderBook) matchMarket(q common.Quote) ([]common.Trade, *book.Order, error) {
	opposing := ob.bookFor(q.Side.Opposite())

	remaining := q.Quantity
	var trades []common.Trade

	for remaining.Sign() > 0 {
		level, ok := opposing.Best()
		if !ok {
			break
		}
		var newTrades []common.Trade
		remaining, newTrades = ob.processLevel(opposing, level, remaining, q)
		trades = append(trades, newTrades...)
	}

	return trades, nil, nil
}

// processLevel matches remaining quantity against a single resting price
// level in strict FIFO order, halting as soon as remaining reaches zero or
// the level empties. It mutates opposing (removing fully-consumed makers,
// shrinking a partially-consumed head order without disturbing its time
// priority) and appends one trade record per maker touched.
func (ob *OrderBook) processLevel(opposing *book.Book, level *book.PriceLevel, remaining decimal.Decimal, taker common.Quote) (decimal.Decimal, []common.Trade) {
	var trades []common.Trade

	for level.Length > 0 && remaining.Sign() > 0 {
		maker := level.Head
		tradedPrice := maker.Price

		var tradedQty decimal.Decimal
		switch {
		case remaining.LessThan(maker.Quantity):
			tradedQty = remaining
			// Pass the maker's own timestamp through: a partial fill is a
			// downsize from the maker's point of view and must not cost it
			// time priority.
			maker.UpdateQuantity(maker.Quantity.Sub(remaining), maker.Timestamp)
			remaining = decimal.Zero

		case remaining.Equal(maker.Quantity):
			tradedQty = remaining
			_, _ = opposing.RemoveOrderByID(maker.OrderID)
			remaining = decimal.Zero

		default:
			tradedQty = maker.Quantity
			_, _ = opposing.RemoveOrderByID(maker.OrderID)
			remaining = remaining.Sub(tradedQty)
		}

		trade := common.Trade{
			Timestamp:    ob.clock(),
			Price:        tradedPrice,
			Quantity:     tradedQty,
			MakerOrderID: maker.OrderID,
			MakerTradeID: maker.TradeID,
			TakerTradeID: taker.TradeID,
			MakerSide:    maker.Side,
		}
		ob.tape = append(ob.tape, trade)
		trades = append(trades, trade)
	}

	return remaining, trades
}

// Cancel removes a resting order from whichever side holds it.
func (ob *OrderBook) Cancel(orderID string) error {
	if _, err := ob.Bids.RemoveOrderByID(orderID); err == nil {
		return nil
	}
	_, err := ob.Asks.RemoveOrderByID(orderID)
	return err
}

// Amend changes the price and/or quantity of a resting order, delegating to
// the owning book's UpdateOrder (same-price quantity change keeps or loses
// priority per Order.UpdateQuantity; a price change always loses priority).
func (ob *OrderBook) Amend(orderID string, newPrice, newQuantity decimal.Decimal, newTimestamp int64) error {
	newPrice = ob.roundToTick(newPrice)
	if err := ob.Bids.UpdateOrder(orderID, newPrice, newQuantity, newTimestamp); err == nil {
		return nil
	}
	return ob.Asks.UpdateOrder(orderID, newPrice, newQuantity, newTimestamp)
}

// BestBid returns the highest resting bid price.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) { return ob.Bids.MaxPrice() }

// BestAsk returns the lowest resting ask price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) { return ob.Asks.MinPrice() }

// Depth returns the number of distinct resting price levels on one side.
func (ob *OrderBook) Depth(side common.Side) int { return ob.bookFor(side).Depth() }

// Volume returns the aggregate resting quantity on one side.
func (ob *OrderBook) Volume(side common.Side) decimal.Decimal { return ob.bookFor(side).Volume() }

// Tape returns a snapshot of every trade emitted so far, in emission order.
func (ob *OrderBook) Tape() []common.Trade {
	out := make([]common.Trade, len(ob.tape))
	copy(out, ob.tape)
	return out
}

// String renders a human-readable depth snapshot as a price ladder: asks in
// descending price (worst to best) above a separator, then bids from best to
// worst, so the two best prices meet at the separator — the supplemented
// equivalent of the Python original's OrderBook.__str__ and the teacher's
// never-implemented LogBook command (see SPEC_FULL.md §12).
func (ob *OrderBook) String() string {
	var b strings.Builder
	b.WriteString("asks (descending price: worst to best top-to-bottom)\n")
	askLevels := ob.Asks.Levels()
	for i := len(askLevels) - 1; i >= 0; i-- {
		writeLevelLine(&b, askLevels[i])
	}
	b.WriteString("------\n")
	for _, level := range ob.Bids.Levels() {
		writeLevelLine(&b, level)
	}
	b.WriteString("bids (best first)\n")
	return b.String()
}

func writeLevelLine(b *strings.Builder, level *book.PriceLevel) {
	fmt.Fprintf(b, "  %s x %s (%d orders)\n", level.Price, level.Volume, level.Length)
}

// CheckInvariants asserts both sides' internal bookkeeping is self-consistent
// (FIFO/order-index/price-index agreement, no empty levels, volume
// conservation). Panics on violation, per the fatal/assert-and-abort handling
// spec.md mandates for InvariantViolation.
//
// It does not assert bids.max < asks.min: the crossing guard in matchLimit is
// the literal strict inequality spec.md §4.4 gives (price > opposing best,
// not >=), so an incoming limit priced exactly at the opposing touch rests
// instead of trading, and the two sides can legitimately end up touching
// (equal, not crossed) at rest. See DESIGN.md's Open Questions for why this
// is implemented literally rather than silently switched to >=.
func (ob *OrderBook) CheckInvariants() {
	ob.Bids.CheckInvariants()
	ob.Asks.CheckInvariants()
}

// Package book implements one side of a limit order book: a price-ordered
// tree of PriceLevels, each an intrusive FIFO queue of Orders, plus a direct
// order-id index. It is grounded on the teacher's tidwall/btree-backed
// OrderBook (internal/engine/orderbook.go in the retrieval pack's
// saiputravu-Exchange) generalised with the doubly-linked FIFO queue and
// order-id index from the Python original this exercise distils
// (order/queue.py, order/book.py).
package book

import (
	"github.com/shopspring/decimal"

	"venue/internal/common"
)

// Order is a resting or incoming quote, intrusively linked into the FIFO
// queue of its PriceLevel. Level is a non-owning backreference: the
// PriceLevel owns the Order, not the other way around.
type Order struct {
	OrderID   string
	TradeID   string
	Side      common.Side
	Kind      common.Kind
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp int64

	Level *PriceLevel
	prev  *Order
	next  *Order
}

// UpdateQuantity amends a resting order's quantity in place. An upsize (new
// quantity strictly larger than the current one) is treated as a new order
// for priority purposes and moves to the tail of its level; a downsize keeps
// the order exactly where it is. The level's aggregate volume is adjusted by
// the signed delta exactly once.
//
// Callers never invoke this with newQuantity == 0; removal of a fully
// consumed or cancelled order goes through PriceLevel.remove instead.
func (o *Order) UpdateQuantity(newQuantity decimal.Decimal, newTimestamp int64) {
	delta := newQuantity.Sub(o.Quantity)

	if newQuantity.GreaterThan(o.Quantity) && o.Level.Tail != o {
		o.Level.moveToTail(o)
	}

	o.Level.Volume = o.Level.Volume.Add(delta)
	o.Quantity = newQuantity
	o.Timestamp = newTimestamp
}

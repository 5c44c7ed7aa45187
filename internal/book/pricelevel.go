package book

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of Orders resting at one price. Orders are
// intrusively linked (Order.prev/next) so append/remove/move-to-tail are all
// O(1) given a handle to the order — no list scan is ever required.
type PriceLevel struct {
	Price  decimal.Decimal
	Head   *Order
	Tail   *Order
	Length int
	Volume decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, Volume: decimal.Zero}
}

// append links order at the tail of the queue. Appending an order that is
// already linked elsewhere is a caller bug, not a recoverable error.
func (pl *PriceLevel) append(o *Order) {
	o.Level = pl
	o.prev = pl.Tail
	o.next = nil

	if pl.Tail != nil {
		pl.Tail.next = o
	} else {
		pl.Head = o
	}
	pl.Tail = o

	pl.Length++
	pl.Volume = pl.Volume.Add(o.Quantity)
}

// remove unlinks order from the queue. Removing an order not present in this
// list is a caller bug, not a recoverable error.
func (pl *PriceLevel) remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		pl.Head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		pl.Tail = o.prev
	}
	o.prev, o.next, o.Level = nil, nil, nil

	pl.Length--
	pl.Volume = pl.Volume.Sub(o.Quantity)
}

// moveToTail detaches order in place and re-links it at the tail. Length and
// Volume are untouched; only linkage moves. Used by Order.UpdateQuantity when
// an amendment increases quantity enough to lose time priority.
func (pl *PriceLevel) moveToTail(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		pl.Head = o.next
	}
	o.next.prev = o.prev

	o.prev = pl.Tail
	o.next = nil
	pl.Tail.next = o
	pl.Tail = o
}

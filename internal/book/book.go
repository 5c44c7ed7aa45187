package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"venue/internal/common"
)

// Book is one side (bids or asks) of the order book: a price tree giving
// O(log P) best-price access, a price-string index giving O(1) level lookup,
// and an order-id index giving O(1) cancel/amend by handle. The tree and the
// price map are two indices over the same logical set of PriceLevel objects
// — a Book exclusively owns them, and a PriceLevel with zero orders never
// exists in either index (created lazily on first insert, removed eagerly
// when it empties).
type Book struct {
	side common.Side

	tree     *btree.BTreeG[*PriceLevel]
	priceMap map[string]*PriceLevel
	orderMap map[string]*Order

	volume decimal.Decimal
}

// NewBook builds an empty book for one side. The price tree is always
// ordered by plain ascending price — ascending regardless of side — so
// MinPrice/MaxPrice mean exactly what they say; it is the caller (the
// matching engine) that knows a bids book's best is its max and an asks
// book's best is its min, per spec.md §4.4's asks.min_price()/bids.max_price()
// call sites.
func NewBook(side common.Side) *Book {
	less := func(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }
	return &Book{
		side:     side,
		tree:     btree.NewBTreeG(less),
		priceMap: make(map[string]*PriceLevel),
		orderMap: make(map[string]*Order),
		volume:   decimal.Zero,
	}
}

// Depth is the number of distinct price levels currently resting.
func (b *Book) Depth() int { return len(b.priceMap) }

// Volume is the sum of quantity over every resting order on this side.
func (b *Book) Volume() decimal.Decimal { return b.volume }

// NumOrders is the number of resting orders on this side.
func (b *Book) NumOrders() int { return len(b.orderMap) }

// Order looks up a resting order by id.
func (b *Book) Order(orderID string) (*Order, bool) {
	o, ok := b.orderMap[orderID]
	return o, ok
}

// MinPrice returns the lowest resting price, or false if the side is empty.
func (b *Book) MinPrice() (decimal.Decimal, bool) {
	level, ok := b.minLevel()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// MaxPrice returns the highest resting price, or false if the side is empty.
func (b *Book) MaxPrice() (decimal.Decimal, bool) {
	level, ok := b.maxLevel()
	if !ok {
		return decimal.Zero, false
	}
	return level.Price, true
}

// MinPriceLevel returns the level at the lowest resting price.
func (b *Book) MinPriceLevel() (*PriceLevel, bool) {
	return b.minLevel()
}

// MaxPriceLevel returns the level at the highest resting price.
func (b *Book) MaxPriceLevel() (*PriceLevel, bool) {
	return b.maxLevel()
}

// Best returns this side's own best price level: the highest for a bids
// book, the lowest for an asks book. It is what a crossing incoming order on
// the opposite side consumes first.
func (b *Book) Best() (*PriceLevel, bool) {
	if b.side == common.Bid {
		return b.maxLevel()
	}
	return b.minLevel()
}

// Levels returns every resting price level, best-first for this side (highest
// price first for bids, lowest price first for asks). Used by book-rendering
// and depth-snapshot consumers; never called from the matching hot path.
func (b *Book) Levels() []*PriceLevel {
	levels := make([]*PriceLevel, 0, b.tree.Len())
	b.tree.Scan(func(level *PriceLevel) bool {
		levels = append(levels, level)
		return true
	})
	if b.side == common.Bid {
		for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
			levels[i], levels[j] = levels[j], levels[i]
		}
	}
	return levels
}

func (b *Book) minLevel() (*PriceLevel, bool) {
	return b.tree.Min()
}

func (b *Book) maxLevel() (*PriceLevel, bool) {
	return b.tree.Max()
}

// InsertOrder inserts a fresh order built from q at q.Price, creating the
// price level lazily if needed. Idempotent on q.OrderID: a pre-existing order
// with the same id is removed first (implicit cancel-then-insert, per the
// DuplicateOrderId non-error behaviour).
func (b *Book) InsertOrder(q common.Quote) *Order {
	if _, exists := b.orderMap[q.OrderID]; exists {
		_, _ = b.RemoveOrderByID(q.OrderID)
	}

	level := b.getOrCreateLevel(q.Price)

	order := &Order{
		OrderID:   q.OrderID,
		TradeID:   q.TradeID,
		Side:      q.Side,
		Kind:      q.Kind,
		Price:     q.Price,
		Quantity:  q.Quantity,
		Timestamp: q.Timestamp,
	}
	level.append(order)
	b.orderMap[order.OrderID] = order
	b.volume = b.volume.Add(order.Quantity)

	return order
}

// UpdateOrder amends a resting order in place. A same-price amendment
// delegates to Order.UpdateQuantity (upsize loses time priority, downsize
// keeps it); a price change always loses time priority: the order is pulled
// from its current level and re-inserted at the new price via InsertOrder.
// A non-positive new quantity is rejected before the book is touched.
func (b *Book) UpdateOrder(orderID string, newPrice, newQuantity decimal.Decimal, newTimestamp int64) error {
	if newQuantity.Sign() <= 0 {
		return common.ErrNonPositiveQty
	}
	order, ok := b.orderMap[orderID]
	if !ok {
		return common.ErrUnknownOrder
	}

	if newPrice.Equal(order.Price) {
		previous := order.Quantity
		order.UpdateQuantity(newQuantity, newTimestamp)
		b.volume = b.volume.Add(newQuantity.Sub(previous))
		return nil
	}

	previous := order.Quantity
	level := order.Level
	level.remove(order)
	b.removeLevelIfEmpty(level)
	delete(b.orderMap, orderID)
	b.volume = b.volume.Sub(previous)

	b.InsertOrder(common.Quote{
		OrderID:   orderID,
		TradeID:   order.TradeID,
		Side:      order.Side,
		Kind:      order.Kind,
		Price:     newPrice,
		Quantity:  newQuantity,
		Timestamp: newTimestamp,
	})
	return nil
}

// RemoveOrderByID cancels a resting order, tearing down its price level if
// that was the last order resting there.
func (b *Book) RemoveOrderByID(orderID string) (*Order, error) {
	order, ok := b.orderMap[orderID]
	if !ok {
		return nil, common.ErrUnknownOrder
	}

	level := order.Level
	level.remove(order)
	delete(b.orderMap, orderID)
	b.volume = b.volume.Sub(order.Quantity)
	b.removeLevelIfEmpty(level)

	return order, nil
}

func (b *Book) getOrCreateLevel(price decimal.Decimal) *PriceLevel {
	key := price.String()
	if level, ok := b.priceMap[key]; ok {
		return level
	}

	level := newPriceLevel(price)
	b.priceMap[key] = level
	b.tree.Set(level)
	return level
}

func (b *Book) removeLevelIfEmpty(level *PriceLevel) {
	if level.Length != 0 {
		return
	}
	delete(b.priceMap, level.Price.String())
	b.tree.Delete(level)
}

// CheckInvariants re-derives every aggregate from first principles and
// panics with ErrInvariantViolated if anything disagrees — the book's own
// bookkeeping (Depth/Volume/NumOrders, or the order/price indices drifting
// apart) is the only thing that can trigger this, so a panic here means the
// book is corrupted, not that the caller made a mistake.
func (b *Book) CheckInvariants() {
	if b.tree.Len() != len(b.priceMap) {
		panic(common.ErrInvariantViolated)
	}

	sumVolume := decimal.Zero
	sumOrders := 0
	b.tree.Scan(func(level *PriceLevel) bool {
		if level.Length == 0 {
			panic(common.ErrInvariantViolated)
		}
		if _, ok := b.priceMap[level.Price.String()]; !ok {
			panic(common.ErrInvariantViolated)
		}

		levelVolume := decimal.Zero
		count := 0
		for o := level.Head; o != nil; o = o.next {
			levelVolume = levelVolume.Add(o.Quantity)
			count++
			if found, ok := b.orderMap[o.OrderID]; !ok || found != o {
				panic(common.ErrInvariantViolated)
			}
		}
		if count != level.Length || !levelVolume.Equal(level.Volume) {
			panic(common.ErrInvariantViolated)
		}

		sumVolume = sumVolume.Add(level.Volume)
		sumOrders += level.Length
		return true
	})

	if sumOrders != len(b.orderMap) || !sumVolume.Equal(b.volume) {
		panic(common.ErrInvariantViolated)
	}
}

package book_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/book"
	"venue/internal/common"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func quote(id string, side common.Side, price, qty string) common.Quote {
	return common.Quote{
		OrderID:   id,
		TradeID:   "trader-" + id,
		Side:      side,
		Kind:      common.Limit,
		Price:     d(price),
		Quantity:  d(qty),
		Timestamp: 1,
	}
}

func TestInsertOrder_CreatesLevelLazily(t *testing.T) {
	b := book.NewBook(common.Bid)

	b.InsertOrder(quote("a", common.Bid, "100", "5"))

	assert.Equal(t, 1, b.Depth())
	assert.Equal(t, 1, b.NumOrders())
	assert.True(t, b.Volume().Equal(d("5")))

	price, ok := b.MaxPrice()
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))
}

func TestInsertOrder_SamePriceAppendsToTail(t *testing.T) {
	b := book.NewBook(common.Bid)

	b.InsertOrder(quote("a", common.Bid, "100", "5"))
	b.InsertOrder(quote("b", common.Bid, "100", "3"))

	level, ok := b.MaxPriceLevel()
	require.True(t, ok)
	assert.Equal(t, 2, level.Length)
	assert.True(t, level.Volume.Equal(d("8")))
	assert.Equal(t, "a", level.Head.OrderID)
	assert.Equal(t, "b", level.Tail.OrderID)
}

func TestInsertOrder_DuplicateIDIsImplicitReplace(t *testing.T) {
	b := book.NewBook(common.Bid)

	b.InsertOrder(quote("a", common.Bid, "100", "5"))
	b.InsertOrder(quote("a", common.Bid, "101", "9"))

	assert.Equal(t, 1, b.NumOrders())
	assert.True(t, b.Volume().Equal(d("9")))
	order, ok := b.Order("a")
	require.True(t, ok)
	assert.True(t, order.Price.Equal(d("101")))
}

func TestRemoveOrderByID_TearsDownEmptyLevel(t *testing.T) {
	b := book.NewBook(common.Bid)
	b.InsertOrder(quote("a", common.Bid, "100", "5"))

	_, err := b.RemoveOrderByID("a")
	require.NoError(t, err)

	assert.Equal(t, 0, b.Depth())
	assert.Equal(t, 0, b.NumOrders())
	assert.True(t, b.Volume().IsZero())
	_, ok := b.MaxPrice()
	assert.False(t, ok)
}

func TestRemoveOrderByID_UnknownIsError(t *testing.T) {
	b := book.NewBook(common.Bid)
	_, err := b.RemoveOrderByID("missing")
	assert.ErrorIs(t, err, common.ErrUnknownOrder)
}

func TestUpdateOrder_SamePriceDownsizeKeepsHead(t *testing.T) {
	b := book.NewBook(common.Bid)
	b.InsertOrder(quote("a", common.Bid, "100", "5"))
	b.InsertOrder(quote("b", common.Bid, "100", "5"))

	err := b.UpdateOrder("a", d("100"), d("2"), 2)
	require.NoError(t, err)

	level, _ := b.MaxPriceLevel()
	assert.Equal(t, "a", level.Head.OrderID, "downsize must keep time priority")
	assert.True(t, level.Volume.Equal(d("7")))
	assert.True(t, b.Volume().Equal(d("7")))
}

func TestUpdateOrder_SamePriceUpsizeMovesToTail(t *testing.T) {
	b := book.NewBook(common.Bid)
	b.InsertOrder(quote("a", common.Bid, "100", "5"))
	b.InsertOrder(quote("b", common.Bid, "100", "5"))

	err := b.UpdateOrder("a", d("100"), d("7"), 2)
	require.NoError(t, err)

	level, _ := b.MaxPriceLevel()
	assert.Equal(t, "b", level.Head.OrderID, "upsize must lose time priority")
	assert.Equal(t, "a", level.Tail.OrderID)
	assert.True(t, level.Volume.Equal(d("12")))
	assert.True(t, b.Volume().Equal(d("12")))
}

func TestUpdateOrder_PriceChangeMovesLevel(t *testing.T) {
	b := book.NewBook(common.Bid)
	b.InsertOrder(quote("a", common.Bid, "100", "5"))

	err := b.UpdateOrder("a", d("101"), d("5"), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, b.Depth())
	price, _ := b.MaxPrice()
	assert.True(t, price.Equal(d("101")))
}

func TestBest_IsSideAware(t *testing.T) {
	bids := book.NewBook(common.Bid)
	bids.InsertOrder(quote("a", common.Bid, "99", "1"))
	bids.InsertOrder(quote("b", common.Bid, "100", "1"))
	best, ok := bids.Best()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(d("100")), "bids' best is the highest price")

	asks := book.NewBook(common.Ask)
	asks.InsertOrder(quote("c", common.Ask, "102", "1"))
	asks.InsertOrder(quote("d", common.Ask, "101", "1"))
	best, ok = asks.Best()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(d("101")), "asks' best is the lowest price")
}

func TestLevels_BestFirstPerSide(t *testing.T) {
	bids := book.NewBook(common.Bid)
	bids.InsertOrder(quote("a", common.Bid, "99", "1"))
	bids.InsertOrder(quote("b", common.Bid, "100", "1"))
	levels := bids.Levels()
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(d("100")), "bids' levels are highest-first")

	asks := book.NewBook(common.Ask)
	asks.InsertOrder(quote("c", common.Ask, "102", "1"))
	asks.InsertOrder(quote("d", common.Ask, "101", "1"))
	levels = asks.Levels()
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(d("101")), "asks' levels are lowest-first")
}

func TestCheckInvariants_PassesOnWellFormedBook(t *testing.T) {
	b := book.NewBook(common.Bid)
	b.InsertOrder(quote("a", common.Bid, "100", "5"))
	b.InsertOrder(quote("b", common.Bid, "100", "3"))
	b.InsertOrder(quote("c", common.Bid, "99", "1"))

	assert.NotPanics(t, b.CheckInvariants)
}

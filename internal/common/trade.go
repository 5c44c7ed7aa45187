package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade is emitted once per fill. The maker side is always the resting order;
// the taker is whichever quote triggered the match.
type Trade struct {
	Timestamp    int64
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	MakerOrderID string
	MakerTradeID string
	TakerTradeID string
	MakerSide    Side
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"trade{ts=%d price=%s qty=%s maker=%s makerTrade=%s takerTrade=%s makerSide=%s}",
		t.Timestamp, t.Price, t.Quantity, t.MakerOrderID, t.MakerTradeID, t.TakerTradeID, t.MakerSide,
	)
}

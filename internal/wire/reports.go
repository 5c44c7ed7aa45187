package wire

import (
	"encoding/binary"
	"math"

	"venue/internal/common"
)

// reportFixedHeaderLen: type(1) + makerSide(1) + timestamp(8) + qty(8) +
// price(8) + makerOrderIdLen(2) + makerTradeIdLen(2) + takerTradeIdLen(2) +
// errStrLen(4).
const reportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 2 + 2 + 2 + 4

// SerializeTrade encodes a trade into an ExecutionReport frame.
func SerializeTrade(t common.Trade) []byte {
	price, _ := t.Price.Float64()
	qty, _ := t.Quantity.Float64()

	total := reportFixedHeaderLen + len(t.MakerOrderID) + len(t.MakerTradeID) + len(t.TakerTradeID)
	buf := make([]byte, total)

	buf[0] = byte(ExecutionReport)
	buf[1] = byte(t.MakerSide)
	binary.BigEndian.PutUint64(buf[2:10], uint64(t.Timestamp))
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(qty))
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(price))
	binary.BigEndian.PutUint16(buf[26:28], uint16(len(t.MakerOrderID)))
	binary.BigEndian.PutUint16(buf[28:30], uint16(len(t.MakerTradeID)))
	binary.BigEndian.PutUint16(buf[30:32], uint16(len(t.TakerTradeID)))
	binary.BigEndian.PutUint32(buf[32:36], 0)

	offset := reportFixedHeaderLen
	offset += copy(buf[offset:], t.MakerOrderID)
	offset += copy(buf[offset:], t.MakerTradeID)
	copy(buf[offset:], t.TakerTradeID)

	return buf
}

// SerializeError encodes an error into an ErrorReport frame.
func SerializeError(err error) []byte {
	msg := err.Error()
	buf := make([]byte, reportFixedHeaderLen+len(msg))
	buf[0] = byte(ErrorReport)
	binary.BigEndian.PutUint32(buf[32:36], uint32(len(msg)))
	copy(buf[reportFixedHeaderLen:], msg)
	return buf
}

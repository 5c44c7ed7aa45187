// Package marketdata fans the trade tape out to websocket subscribers as
// trades are appended, implementing spec.md §9's guidance that production
// deployments should surface the tape as a streaming output rather than
// owning it indefinitely (see SPEC_FULL.md §11/§12). Grounded on the
// retrieval pack's gorilla/websocket market-data feed usage.
package marketdata

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"venue/internal/common"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected subscribers and broadcasts trades to all of them.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]chan common.Trade
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*websocket.Conn]chan common.Trade)}
}

// ServeHTTP upgrades the request to a websocket and streams trades to it
// until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	feed := make(chan common.Trade, 64)
	h.add(conn, feed)
	defer h.remove(conn)

	for trade := range feed {
		if err := conn.WriteJSON(tradeViewOf(trade)); err != nil {
			log.Error().Err(err).Msg("writing trade to subscriber")
			return
		}
	}
}

// Broadcast fans trade out to every connected subscriber, dropping it for
// any subscriber whose feed is currently full rather than blocking the
// matching path on a slow reader.
func (h *Hub) Broadcast(trade common.Trade) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, feed := range h.subscribers {
		select {
		case feed <- trade:
		default:
			log.Warn().Str("subscriber", conn.RemoteAddr().String()).Msg("dropping trade: slow subscriber")
		}
	}
}

func (h *Hub) add(conn *websocket.Conn, feed chan common.Trade) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[conn] = feed
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	feed, ok := h.subscribers[conn]
	if ok {
		delete(h.subscribers, conn)
		close(feed)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// tradeView is the wire shape sent to websocket subscribers: trade fields
// are stringified so the exact-decimal price/quantity survive JSON
// round-tripping without a custom Marshaler on common.Trade itself.
type tradeView struct {
	Timestamp    int64  `json:"timestamp"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	MakerOrderID string `json:"maker_order_id"`
	MakerTradeID string `json:"maker_trade_id"`
	TakerTradeID string `json:"taker_trade_id"`
	MakerSide    string `json:"maker_side"`
}

func tradeViewOf(trade common.Trade) tradeView {
	return tradeView{
		Timestamp:    trade.Timestamp,
		Price:        trade.Price.String(),
		Quantity:     trade.Quantity.String(),
		MakerOrderID: trade.MakerOrderID,
		MakerTradeID: trade.MakerTradeID,
		TakerTradeID: trade.TakerTradeID,
		MakerSide:    trade.MakerSide.String(),
	}
}


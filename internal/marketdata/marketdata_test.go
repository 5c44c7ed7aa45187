package marketdata_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/common"
	"venue/internal/marketdata"
)

func TestHub_BroadcastsTradeToSubscriber(t *testing.T) {
	hub := marketdata.NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server's accept goroutine a moment to register the
	// subscriber before broadcasting.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(common.Trade{
		Timestamp:    1,
		Price:        decimal.NewFromInt(100),
		Quantity:     decimal.NewFromInt(5),
		MakerOrderID: "maker-1",
		MakerSide:    common.Ask,
	})

	var payload map[string]any
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&payload))

	assert.Equal(t, "100", payload["price"])
	assert.Equal(t, "5", payload["quantity"])
	assert.Equal(t, "maker-1", payload["maker_order_id"])
	assert.Equal(t, "ask", payload["maker_side"])
}

func TestHub_DropsTradeForSlowSubscriberWithoutBlocking(t *testing.T) {
	hub := marketdata.NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast(common.Trade{Timestamp: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow subscriber")
	}
}

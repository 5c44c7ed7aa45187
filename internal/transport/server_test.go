package transport_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"

	"venue/internal/book"
	"venue/internal/common"
	"venue/internal/transport"
)

// stubEngine records every call instead of driving a real book, so these
// tests exercise framing and dispatch, not matching semantics (covered in
// internal/engine).
type stubEngine struct {
	submitted chan common.Quote
	cancelled chan string
	amended   chan string
}

func newStubEngine() *stubEngine {
	return &stubEngine{
		submitted: make(chan common.Quote, 8),
		cancelled: make(chan string, 8),
		amended:   make(chan string, 8),
	}
}

func (s *stubEngine) Submit(q common.Quote) ([]common.Trade, *book.Order, error) {
	s.submitted <- q
	return nil, nil, nil
}

func (s *stubEngine) Cancel(orderID string) error {
	s.cancelled <- orderID
	return nil
}

func (s *stubEngine) Amend(orderID string, _, _ decimal.Decimal, _ int64) error {
	s.amended <- orderID
	return nil
}

func (s *stubEngine) String() string { return "stub book" }

func startServer(t *testing.T, eng *stubEngine) net.Addr {
	t.Helper()
	srv := transport.New("127.0.0.1", 0, eng, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case addr := <-srv.Ready():
		return addr
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
		return nil
	}
}

func newOrderFrame(side common.Side, price, qty float64, orderID string) []byte {
	buf := make([]byte, 22+len(orderID))
	binary.BigEndian.PutUint16(buf[0:2], 1) // wire.NewOrder
	buf[2] = byte(side)
	buf[3] = 0 // common.Limit
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(qty))
	buf[20] = byte(len(orderID))
	buf[21] = 0
	copy(buf[22:], orderID)
	return buf
}

func TestServer_SubmitsParsedNewOrder(t *testing.T) {
	eng := newStubEngine()
	addr := startServer(t, eng)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(newOrderFrame(common.Bid, 100, 5, "order-1"))
	require.NoError(t, err)

	select {
	case q := <-eng.submitted:
		assert.Equal(t, common.Bid, q.Side)
		assert.Equal(t, "order-1", q.OrderID)
		assert.True(t, q.Price.Equal(decimal.NewFromFloat(100)))
		assert.True(t, q.Quantity.Equal(decimal.NewFromFloat(5)))
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received submitted quote")
	}
}

func TestServer_DispatchesCancelAndAmend(t *testing.T) {
	eng := newStubEngine()
	addr := startServer(t, eng)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	orderID := fmt.Sprintf("%-36s", "order-to-cancel")
	cancelFrame := make([]byte, 2+36)
	binary.BigEndian.PutUint16(cancelFrame[0:2], 2) // wire.CancelOrder
	copy(cancelFrame[2:], orderID)
	_, err = conn.Write(cancelFrame)
	require.NoError(t, err)

	select {
	case id := <-eng.cancelled:
		assert.Equal(t, orderID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received cancel")
	}

	amendID := fmt.Sprintf("%-36s", "order-to-amend")
	amendFrame := make([]byte, 2+36+8+8)
	binary.BigEndian.PutUint16(amendFrame[0:2], 3) // wire.AmendOrder
	copy(amendFrame[2:38], amendID)
	binary.BigEndian.PutUint64(amendFrame[38:46], math.Float64bits(101))
	binary.BigEndian.PutUint64(amendFrame[46:54], math.Float64bits(3))
	_, err = conn.Write(amendFrame)
	require.NoError(t, err)

	select {
	case id := <-eng.amended:
		assert.Equal(t, amendID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received amend")
	}
}

func TestWorkerPool_ProcessesQueuedTask(t *testing.T) {
	pool := transport.NewWorkerPool(1)
	seen := make(chan any, 1)

	var t2 tomb.Tomb
	t2.Go(func() error {
		pool.Run(&t2, func(_ *tomb.Tomb, task any) error {
			seen <- task
			return nil
		})
		return nil
	})
	defer func() {
		t2.Kill(nil)
		_ = t2.Wait()
	}()

	pool.AddTask("hello")

	select {
	case task := <-seen:
		assert.Equal(t, "hello", task)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never processed queued task")
	}
}

// Package transport implements the TCP front-end: an accept loop handed off
// to a tomb.v2-supervised worker pool, adapted from the teacher's
// internal/net/server.go and internal/worker.go (fenrir's grpc debug
// service and its dangling internal/utils import are dropped — see
// DESIGN.md).
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"venue/internal/book"
	"venue/internal/common"
	"venue/internal/wire"
)

const maxFrameSize = 4 * 1024

var ErrImproperConversion = errors.New("improper type conversion")

// Engine is the subset of engine.OrderBook the transport layer drives.
// Defined here, not imported from internal/engine, so transport depends on
// a narrow interface rather than the concrete matching engine.
type Engine interface {
	Submit(q common.Quote) ([]common.Trade, *book.Order, error)
	Cancel(orderID string) error
	Amend(orderID string, newPrice, newQuantity decimal.Decimal, newTimestamp int64) error
	String() string
}

// clientMessage links a parsed wire message to the connection it arrived on.
type clientMessage struct {
	conn net.Conn
	msg  any
}

// Server is the TCP front-end for one OrderBook.
type Server struct {
	address string
	port    int
	engine  Engine
	clock   func() int64

	pool     *WorkerPool
	messages chan clientMessage

	mu      sync.Mutex
	clients map[string]net.Conn
	cancel  context.CancelFunc

	ready chan net.Addr
}

func New(address string, port int, engine Engine, workerPoolSize int) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   engine,
		clock:    func() int64 { return time.Now().UnixNano() },
		pool:     NewWorkerPool(workerPoolSize),
		messages: make(chan clientMessage, 1),
		clients:  make(map[string]net.Conn),
		ready:    make(chan net.Addr, 1),
	}
}

// Ready yields the listener's bound address exactly once, after Run has
// successfully bound it. Tests dial this instead of guessing a fixed port.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Shutdown cancels the server's context, unwinding the accept loop, worker
// pool and session handler.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run blocks, accepting connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	// Accept does not observe ctx, so closing the listener once ctx is done is
	// what unblocks the accept loop below.
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("closing listener")
		}
	}()

	t.Go(func() error {
		s.pool.Run(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server listening")
	s.ready <- listener.Addr()

	for {
		select {
		case <-ctx.Done():
			return t.Wait()
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("accepting connection")
				continue
			}
			s.addClient(conn)
			s.pool.AddTask(conn)
		}
	}
}

func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case cm := <-s.messages:
			if err := s.handle(cm); err != nil {
				log.Error().Err(err).Msg("handling client message")
				s.reportError(cm.conn, err)
			}
		}
	}
}

func (s *Server) handle(cm clientMessage) error {
	switch m := cm.msg.(type) {
	case wire.NewOrderMessage:
		q := m.Quote(s.clock())
		trades, _, err := s.engine.Submit(q)
		if err != nil {
			return err
		}
		for _, trade := range trades {
			s.broadcastTrade(trade)
		}
	case wire.CancelOrderMessage:
		return s.engine.Cancel(m.OrderID)
	case wire.AmendOrderMessage:
		return s.engine.Amend(m.OrderID, m.Price, m.Quantity, s.clock())
	case wire.LogBookMessage:
		log.Info().Str("book", s.engine.String()).Msg("book snapshot requested")
	default:
		return wire.ErrInvalidMessageType
	}
	return nil
}

func (s *Server) broadcastTrade(trade common.Trade) {
	frame := wire.SerializeTrade(trade)
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, conn := range s.clients {
		if _, err := conn.Write(frame); err != nil {
			log.Error().Err(err).Str("address", addr).Msg("writing trade report")
			delete(s.clients, addr)
		}
	}
}

func (s *Server) reportError(conn net.Conn, reportErr error) {
	if _, err := conn.Write(wire.SerializeError(reportErr)); err != nil {
		log.Error().Err(err).Msg("writing error report")
	}
}

// handleConnection is a worker task: read one frame, parse it, hand it to
// the session handler, then requeue the connection for its next frame.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		log.Error().Err(err).Msg("setting read deadline")
		return nil
	}

	buf := make([]byte, maxFrameSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buf)
		if err != nil {
			s.removeClient(conn)
			return nil
		}

		msg, err := wire.ParseMessage(buf[:n])
		if err != nil {
			log.Error().Err(err).Msg("parsing frame")
			s.reportError(conn, err)
			s.pool.AddTask(conn)
			return nil
		}

		s.messages <- clientMessage{conn: conn, msg: msg}
		s.pool.AddTask(conn)
	}
	return nil
}

func (s *Server) addClient(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeClient(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn.RemoteAddr().String())
	_ = conn.Close()
}

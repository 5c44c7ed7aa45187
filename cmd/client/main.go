// Command client is a thin CLI for placing, cancelling and amending orders
// against a running venue server, grounded on the teacher's
// cmd/client/client.go, rewritten against internal/wire's framing instead of
// the dropped fenrir/internal/net package.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"

	"venue/internal/common"
	"venue/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the venue server")
	action := flag.String("action", "place", "action to perform: place, cancel, amend, log")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	kindStr := flag.String("kind", "limit", "order kind: limit or market")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Float64("qty", 10, "quantity")
	orderID := flag.String("order-id", "", "order id (place: optional, minted if empty; cancel/amend: required)")
	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("connecting to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	side := common.Bid
	if strings.EqualFold(*sideStr, "sell") {
		side = common.Ask
	}
	kind := common.Limit
	if strings.EqualFold(*kindStr, "market") {
		kind = common.Market
	}

	switch strings.ToLower(*action) {
	case "place":
		id := *orderID
		if id == "" {
			id = uuid.New().String()
		}
		frame := buildNewOrderFrame(side, kind, *price, *qty, id, uuid.New().String())
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("sending order: %v", err)
		}
		fmt.Printf("-> placed %s order %s: %s %.4f @ %.4f\n", kind, id, side, *qty, *price)

	case "cancel":
		if *orderID == "" {
			log.Fatal("-order-id is required for cancel")
		}
		frame := buildCancelFrame(*orderID)
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("sending cancel: %v", err)
		}
		fmt.Printf("-> cancelled %s\n", *orderID)

	case "amend":
		if *orderID == "" {
			log.Fatal("-order-id is required for amend")
		}
		frame := buildAmendFrame(*orderID, *price, *qty)
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("sending amend: %v", err)
		}
		fmt.Printf("-> amended %s: qty=%.4f price=%.4f\n", *orderID, *qty, *price)

	case "log":
		frame := make([]byte, 2)
		binary.BigEndian.PutUint16(frame, uint16(wire.LogBook))
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("sending log request: %v", err)
		}
		fmt.Println("-> requested book snapshot")

	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(1)
	}
}

func buildNewOrderFrame(side common.Side, kind common.Kind, price, qty float64, orderID, tradeID string) []byte {
	buf := make([]byte, 22+len(orderID)+len(tradeID))
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.NewOrder))
	buf[2] = byte(side)
	buf[3] = byte(kind)
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(qty))
	buf[20] = byte(len(orderID))
	buf[21] = byte(len(tradeID))
	offset := 22
	offset += copy(buf[offset:], orderID)
	copy(buf[offset:], tradeID)
	return buf
}

func buildCancelFrame(orderID string) []byte {
	buf := make([]byte, 2+36)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.CancelOrder))
	copy(buf[2:], fmt.Sprintf("%-36s", orderID))
	return buf
}

func buildAmendFrame(orderID string, price, qty float64) []byte {
	buf := make([]byte, 2+36+8+8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.AmendOrder))
	copy(buf[2:38], fmt.Sprintf("%-36s", orderID))
	binary.BigEndian.PutUint64(buf[38:46], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[46:54], math.Float64bits(qty))
	return buf
}

// Package publish fans out trade signals and backtest results over NATS
// for downstream consumers (dashboards, persistence, alerting). The
// publisher is optional: a nil *Publisher is a no-op, so the engine can
// run fully offline.
package publish

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yourusername/statarb-engine/pkg/backtest"
	"github.com/yourusername/statarb-engine/pkg/strategy"
)

// Subjects used on the wire.
const (
	SubjectSignalPrefix = "statarb.signal." // + normalized pair name
	SubjectBacktestDone = "statarb.backtest.result"
)

// Publisher wraps a NATS connection.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials the NATS server. Reconnects are handled by the client
// library; a lost connection drops messages rather than blocking the
// simulation loop.
func Connect(addr string) (*Publisher, error) {
	conn, err := nats.Connect(addr,
		nats.Name("statarb-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", addr, err)
	}
	log.Printf("[Publish] connected to NATS at %s", addr)
	return &Publisher{conn: conn}, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Drain()
}

// signalMessage is the wire form of one trade signal.
type signalMessage struct {
	Symbol    string    `json:"symbol"`
	Direction string    `json:"direction"`
	Strength  float64   `json:"strength"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	Pair      string    `json:"pair"`
	Kind      string    `json:"kind"` // entry / exit
	ZScore    float64   `json:"z_score"`
	Reason    string    `json:"reason,omitempty"`
}

// PublishSignal publishes one signal on statarb.signal.<pair>.
func (p *Publisher) PublishSignal(sig strategy.Signal) error {
	if p == nil || p.conn == nil {
		return nil
	}

	msg := signalMessage{
		Symbol:    sig.Symbol,
		Direction: string(sig.Direction),
		Strength:  sig.Strength,
		Timestamp: sig.Timestamp,
		Price:     sig.Price,
		Quantity:  sig.Quantity,
	}
	switch meta := sig.Meta.(type) {
	case strategy.EntryMeta:
		msg.Pair = meta.Pair
		msg.Kind = "entry"
		msg.ZScore = meta.ZScore
	case strategy.ExitMeta:
		msg.Pair = meta.Pair
		msg.Kind = "exit"
		msg.ZScore = meta.ZScore
		msg.Reason = string(meta.Reason)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return p.conn.Publish(SubjectSignalPrefix+normalizePair(msg.Pair), data)
}

// PublishResult publishes the completed backtest result.
func (p *Publisher) PublishResult(result *backtest.Result) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal backtest result: %w", err)
	}
	return p.conn.Publish(SubjectBacktestDone, data)
}

// normalizePair makes a pair name safe as a NATS subject token.
func normalizePair(pair string) string {
	if pair == "" {
		return "unknown"
	}
	return strings.ReplaceAll(pair, "/", "-")
}

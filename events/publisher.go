/*
Package events publishes ledger activity to an AMQP topic exchange so the
dashboard and restocking tooling can react without polling.

ROUTING KEYS:
  transaction.recorded  every accepted ledger transaction
  stock.low             item crossed at or below its reorder point
  stock.out             item reached zero or below

  Publishing is best-effort: a failed publish is logged and never fails
  the command that triggered it. When no broker is configured the service
  runs with the no-op publisher.
*/
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/artisan/ledger-engine/inventory"
	"github.com/artisan/ledger-engine/ledger"
	"github.com/artisan/ledger-engine/logger"
)

// Publisher is the event sink the command layer notifies.
type Publisher interface {
	TransactionRecorded(ctx context.Context, tx ledger.Transaction)
	StockLow(ctx context.Context, item inventory.Item)
	StockOut(ctx context.Context, item inventory.Item)
	Close() error
}

// =============================================================================
// NO-OP PUBLISHER
// =============================================================================

// Noop discards all events. Used when no broker is configured, and in tests.
type Noop struct{}

func (Noop) TransactionRecorded(context.Context, ledger.Transaction) {}
func (Noop) StockLow(context.Context, inventory.Item)                {}
func (Noop) StockOut(context.Context, inventory.Item)                {}
func (Noop) Close() error                                            { return nil }

// =============================================================================
// AMQP PUBLISHER
// =============================================================================

type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *logger.Logger
}

// NewAMQP connects to the broker and declares the topic exchange.
func NewAMQP(url, exchange string, log *logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log.WithComponent("events"),
	}, nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

type transactionEvent struct {
	TransactionID  string    `json:"transactionId"`
	ItemID         string    `json:"itemId"`
	QuantityChange string    `json:"quantityChange"`
	NewQuantity    string    `json:"newQuantity"`
	Type           string    `json:"type"`
	SourceID       string    `json:"sourceId"`
	Timestamp      time.Time `json:"timestamp"`
}

type stockEvent struct {
	ItemID          string `json:"itemId"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	CurrentQuantity string `json:"currentQuantity"`
	ReorderPoint    string `json:"reorderPoint"`
	Unit            string `json:"unit"`
}

func (p *AMQPPublisher) TransactionRecorded(ctx context.Context, tx ledger.Transaction) {
	p.publish(ctx, "transaction.recorded", transactionEvent{
		TransactionID:  string(tx.ID),
		ItemID:         string(tx.ItemID),
		QuantityChange: tx.QuantityChange.String(),
		NewQuantity:    tx.NewQuantity.String(),
		Type:           string(tx.Type),
		SourceID:       tx.SourceID,
		Timestamp:      tx.Timestamp,
	})
}

func (p *AMQPPublisher) StockLow(ctx context.Context, item inventory.Item) {
	p.publish(ctx, "stock.low", stockEventFrom(item))
}

func (p *AMQPPublisher) StockOut(ctx context.Context, item inventory.Item) {
	p.publish(ctx, "stock.out", stockEventFrom(item))
}

func stockEventFrom(item inventory.Item) stockEvent {
	return stockEvent{
		ItemID:          string(item.ID),
		SKU:             item.SKU,
		Name:            item.Name,
		CurrentQuantity: item.CurrentQuantity.String(),
		ReorderPoint:    item.ReorderPoint.String(),
		Unit:            item.InventoryUnit,
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", key).Msg("failed to marshal event")
		return
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", key).Msg("failed to publish event")
	}
}

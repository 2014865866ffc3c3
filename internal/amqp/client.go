// Package amqp carries the two message flows at the engine's boundary: the
// ledger_commands queue (mutation requests in) and the record_events queue
// (per-collection change feed out).
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	exchangeName  string
	commandsQueue string
	eventsQueue   string
}

func NewClient(url, exchangeName, commandsQueue, eventsQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:          conn,
		channel:       channel,
		exchangeName:  exchangeName,
		commandsQueue: commandsQueue,
		eventsQueue:   eventsQueue,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}
	return client, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.commandsQueue, c.eventsQueue} {
		if _, err := c.channel.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key matches the queue name on the direct exchange.
		if err := c.channel.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// PublishRecordEvent pushes one change-feed event.
func (c *Client) PublishRecordEvent(ctx context.Context, ev RecordEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal record event: %w", err)
	}
	if err := c.publish(ctx, c.eventsQueue, body); err != nil {
		return fmt.Errorf("publish record event: %w", err)
	}
	slog.DebugContext(ctx, "Published record event",
		"collection", ev.Collection, "kind", ev.Kind, "id", ev.ID)
	return nil
}

// PublishCommand submits a mutation command to the ledger daemon.
func (c *Client) PublishCommand(ctx context.Context, cmd Command) error {
	body, err := cmd.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	if err := c.publish(ctx, c.commandsQueue, body); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// ConsumeCommands delivers commands one at a time to handler. Consuming on a
// single channel serializes user-initiated mutations, which is the caller
// ordering the engine's last-writer-wins model requires. Malformed payloads
// are dropped; handler errors are requeued.
func (c *Client) ConsumeCommands(ctx context.Context, handler func(*Command) error) error {
	return c.consume(ctx, c.commandsQueue, func(body []byte) (any, error) {
		cmd, err := CommandFromJSON(body)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	}, func(msg any) error {
		return handler(msg.(*Command))
	})
}

// ConsumeRecordEvents delivers change-feed events one at a time to handler.
func (c *Client) ConsumeRecordEvents(ctx context.Context, handler func(*RecordEvent) error) error {
	return c.consume(ctx, c.eventsQueue, func(body []byte) (any, error) {
		ev, err := RecordEventFromJSON(body)
		if err != nil {
			return nil, err
		}
		return ev, nil
	}, func(msg any) error {
		return handler(msg.(*RecordEvent))
	})
}

func (c *Client) consume(ctx context.Context, queue string, decode func([]byte) (any, error), handle func(any) error) error {
	deliveries, err := c.channel.Consume(
		queue,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming %s: %w", queue, err)
	}

	slog.InfoContext(ctx, "Started consuming", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping consumption", "queue", queue, "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed for %s", queue)
			}

			msg, err := decode(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "queue", queue, "error", err)
				delivery.Nack(false, false) // drop, re-delivery cannot fix it
				continue
			}

			if err := handle(msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
				delivery.Nack(false, true) // requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

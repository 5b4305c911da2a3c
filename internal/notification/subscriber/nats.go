// Package subscriber consumes product change notifications, selecting them by header attributes.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

// ackableMsg is the subset of jetstream.Msg used by the handler.
type ackableMsg interface {
	Subject() string
	Headers() nats.Header
	Data() []byte
	Ack() error
	Term() error
}

// Start creates a durable pull consumer on the product change stream and runs
// cfg.Workers workers until ctx is done. It waits for the stream to be declared
// by the publisher.
func Start(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig, logger *slog.Logger) error {
	consumerCfg := jetstream.ConsumerConfig{
		FilterSubject: cfg.Subject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	var consumer jetstream.Consumer
	for {
		var err error
		consumer, err = js.CreateOrUpdateConsumer(ctx, cfg.Stream, consumerCfg)
		if err == nil {
			break
		}
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			return fmt.Errorf("failed to create consumer %s: %w", cfg.Consumer, err)
		}
		logger.InfoContext(ctx, "waiting for stream to be declared", slog.String("stream", cfg.Stream))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}

	h := newHandler(cfg.Match, logger)
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, h)
		})
	}
	return g.Wait()
}

// runWorker fetches messages from the consumer and processes them.
func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, h *handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				h.logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				h.handleMessage(ctx, msg)
			}
			if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && ctx.Err() == nil {
				h.logger.WarnContext(ctx, "fetch ended with error", "error", err)
			}
		}
	}
}

type handler struct {
	match  map[string]string
	logger *slog.Logger
}

func newHandler(match map[string]string, logger *slog.Logger) *handler {
	return &handler{match: match, logger: logger.With("component", "subscriber")}
}

// Matches reports whether headers carry every attribute in match.
// Attribute names are compared case-sensitively, values exactly.
func Matches(headers nats.Header, match map[string]string) bool {
	for k, v := range match {
		if headers.Get(k) != v {
			return false
		}
	}
	return true
}

// handleMessage acks messages outside the filter without processing them and
// terminates messages that cannot be decoded, so they are never redelivered.
func (h *handler) handleMessage(ctx context.Context, msg ackableMsg) {
	if msg == nil {
		h.logger.ErrorContext(ctx, "received nil message")
		return
	}
	headers := msg.Headers()
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(http.Header(headers)))

	if !Matches(headers, h.match) {
		h.logger.DebugContext(ctx, "skipping message outside filter", "event", headers.Get(messaging.AttrEvent))
		h.ack(ctx, msg)
		return
	}

	event := headers.Get(messaging.AttrEvent)
	rowCount := headers.Get(messaging.AttrRowCount)
	switch event {
	case messaging.EventProductUpdate:
		var payload events.ProductUpdated
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			h.term(ctx, msg, err)
			return
		}
		h.logger.InfoContext(ctx, "product updated",
			slog.String("product_id", payload.ID.String()),
			slog.String("name", payload.Name),
			slog.String("category", payload.Category),
			slog.Float64("unit_price", payload.UnitPrice),
			slog.Int("quantity_in_stock", int(payload.QuantityInStock)),
			slog.String("row_count", rowCount))
	case messaging.EventProductDelete:
		var payload events.ProductDeleted
		if err := json.Unmarshal(msg.Data(), &payload); err != nil {
			h.term(ctx, msg, err)
			return
		}
		h.logger.InfoContext(ctx, "product deleted",
			slog.String("product_id", payload.ProductID.String()),
			slog.String("name", payload.ProductName),
			slog.String("row_count", rowCount))
	default:
		h.term(ctx, msg, fmt.Errorf("unknown event %q", event))
		return
	}
	h.ack(ctx, msg)
}

func (h *handler) ack(ctx context.Context, msg ackableMsg) {
	if err := msg.Ack(); err != nil {
		h.logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

func (h *handler) term(ctx context.Context, msg ackableMsg, cause error) {
	h.logger.ErrorContext(ctx, "failed to decode message", "error", cause, "subject", msg.Subject())
	if err := msg.Term(); err != nil {
		h.logger.ErrorContext(ctx, "failed to terminate message", "error", err)
	}
}

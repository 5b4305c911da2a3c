package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// streamPublisher is the subset of jetstream.JetStream used by HeaderPublisher.
type streamPublisher interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// HeaderPublisher publishes notifications to a single JetStream subject.
// Attributes are carried as message headers and the payload as a JSON body,
// so consumers route on headers only. The stream is declared on the first
// publish and declaration is retried on later publishes until it succeeds.
//
// HeaderPublisher is safe for concurrent use.
type HeaderPublisher struct {
	js      streamPublisher
	nc      *nats.Conn
	cfg     config.NotifierConfig
	breaker *gobreaker.CircuitBreaker[*jetstream.PubAck]
	logger  *slog.Logger

	mu       sync.Mutex
	declared bool
}

// NewHeaderPublisher creates a publisher on top of an existing JetStream context.
// The caller keeps ownership of the underlying connection.
func NewHeaderPublisher(js streamPublisher, cfg config.NotifierConfig, logger *slog.Logger) *HeaderPublisher {
	return &HeaderPublisher{
		js:      js,
		cfg:     cfg,
		breaker: newCircuitBreaker[*jetstream.PubAck]("notifier-"+cfg.Stream, cfg.CircuitBreaker, logger),
		logger:  logger,
	}
}

// Dial connects to NATS and returns a publisher owning the connection.
// It fails when the broker is unreachable. Close releases the connection.
func Dial(natsCfg config.NATSConfig, cfg config.NotifierConfig, logger *slog.Logger) (*HeaderPublisher, error) {
	nc, err := NewClient(natsCfg.Url, natsCfg.Timeout, Options(natsCfg, logger)...)
	if err != nil {
		return nil, err
	}
	js, err := NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	p := NewHeaderPublisher(js, cfg, logger)
	p.nc = nc
	return p, nil
}

// Publish sends payload with attrs to the configured subject.
// Every failure is wrapped in messaging.ErrNotification.
func (p *HeaderPublisher) Publish(ctx context.Context, attrs messaging.Attributes, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	msg, err := p.newMsg(ctx, attrs, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", messaging.ErrNotification, err)
	}

	_, err = p.breaker.Execute(func() (*jetstream.PubAck, error) {
		if err := p.ensureStream(ctx); err != nil {
			return nil, err
		}
		return p.js.PublishMsg(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: publish %s: %w", messaging.ErrNotification, attrs.Event(), err)
	}
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *HeaderPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

func (p *HeaderPublisher) newMsg(ctx context.Context, attrs messaging.Attributes, payload any) (*nats.Msg, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	msg := nats.NewMsg(p.cfg.Subject)
	msg.Data = data
	for k, v := range attrs {
		msg.Header.Set(k, formatAttribute(v))
	}
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	return msg, nil
}

// ensureStream looks the stream up and creates it when absent.
// A concurrent creator winning the race is not an error.
func (p *HeaderPublisher) ensureStream(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared {
		return nil
	}

	_, err := p.js.Stream(ctx, p.cfg.Stream)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      p.cfg.Stream,
			Subjects:  []string{p.cfg.Subject},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    p.cfg.MaxAge,
		})
		if errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			err = nil
		}
		if err == nil {
			p.logger.InfoContext(ctx, "notification stream created", slog.String("stream", p.cfg.Stream))
		}
	}
	if err != nil {
		return fmt.Errorf("declare stream %s: %w", p.cfg.Stream, err)
	}
	p.declared = true
	return nil
}

func formatAttribute(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

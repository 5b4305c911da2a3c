package nats

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
)

// skipIntegrationTests is the environment variable that controls whether to skip integration tests.
const skipIntegrationTests = "PKG_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

type PublisherSuite struct {
	suite.Suite
	ctx           context.Context
	logger        *slog.Logger
	natsContainer *nats.NATSContainer
	natsURL       string
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	s.natsURL, err = s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
}

func (s *PublisherSuite) TearDownSuite() {
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.logger.Error("Failed to terminate NATS container", "error", err)
	}
}

func TestPublisherIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) dial(stream, subject string) *HeaderPublisher {
	cfg := testNotifierConfig()
	cfg.Stream = stream
	cfg.Subject = subject
	publisher, err := Dial(config.NATSConfig{Url: s.natsURL, Timeout: 2 * time.Second, Name: "publisher-test"}, cfg, s.logger)
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { _ = publisher.Close() })
	return publisher
}

func (s *PublisherSuite) TestPublish_DeclaresStreamAndCarriesHeaders() {
	// given
	stream := "PRODUCTS_" + uuid.NewString()[:8]
	subject := "products." + uuid.NewString()
	publisher := s.dial(stream, subject)
	productID := uuid.New()

	// when
	err := publisher.Publish(s.ctx, events.DeleteAttributes(1), events.ProductDeleted{ProductID: productID, ProductName: "Lamp"})

	// then
	require.NoError(s.T(), err)

	nc, err := NewClient(s.natsURL, 2*time.Second)
	require.NoError(s.T(), err)
	defer nc.Close()
	js, err := NewJetStreamContext(nc)
	require.NoError(s.T(), err)

	str, err := js.Stream(s.ctx, stream)
	require.NoError(s.T(), err, "stream should have been declared on first publish")
	info, err := str.Info(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), jetstream.FileStorage, info.Config.Storage)
	require.Equal(s.T(), uint64(1), info.State.Msgs)

	raw, err := str.GetLastMsgForSubject(s.ctx, subject)
	require.NoError(s.T(), err)
	require.Equal(s.T(), messaging.EventProductDelete, raw.Header.Get(messaging.AttrEvent))
	require.Equal(s.T(), "1", raw.Header.Get(messaging.AttrRowCount))
	require.JSONEq(s.T(), `{"product_id":"`+productID.String()+`","product_name":"Lamp"}`, string(raw.Data))
}

func (s *PublisherSuite) TestPublish_ConcurrentFirstPublishes() {
	// given
	stream := "PRODUCTS_" + uuid.NewString()[:8]
	subject := "products." + uuid.NewString()
	first := s.dial(stream, subject)
	second := s.dial(stream, subject)

	// when
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 5; i++ {
		for _, p := range []*HeaderPublisher{first, second} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- p.Publish(s.ctx, events.UpdateAttributes(1), events.ProductUpdated{ID: uuid.New(), Name: "Lamp"})
			}()
		}
	}
	wg.Wait()
	close(errs)

	// then
	for err := range errs {
		require.NoError(s.T(), err)
	}
}

func (s *PublisherSuite) TestDial_UnreachableBroker() {
	_, err := Dial(config.NATSConfig{Url: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond}, testNotifierConfig(), s.logger)
	require.Error(s.T(), err)
}

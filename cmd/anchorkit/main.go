package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/anchorkit/adapters/codec"
	"github.com/layer-3/anchorkit/adapters/events"
	"github.com/layer-3/anchorkit/adapters/resolver"
	"github.com/layer-3/anchorkit/adapters/signer"
	"github.com/layer-3/anchorkit/adapters/store"
	"github.com/layer-3/anchorkit/ports"
	"github.com/layer-3/anchorkit/service"
	transport "github.com/layer-3/anchorkit/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	anchorDomain := os.Getenv("ANCHOR_HOME_DOMAIN")
	if anchorDomain == "" {
		log.Fatal("ANCHOR_HOME_DOMAIN is required")
	}

	originDomain := os.Getenv("ORIGIN_DOMAIN")
	if originDomain == "" {
		log.Fatal("ORIGIN_DOMAIN is required")
	}

	envelopeCodec := codec.NewCBORCodec()

	// The origin seed is process-wide configuration: read once, held by the
	// signer and nowhere else. Only the public key is ever logged.
	originSeed := os.Getenv("ORIGIN_SEED")
	if originSeed == "" {
		generated, account, err := signer.GenerateSeed()
		if err != nil {
			log.Fatalf("Failed to generate origin keypair: %v", err)
		}
		originSeed = generated
		logger.Warn("ORIGIN_SEED not set, generated an ephemeral origin key", "account", account)
	}

	originSigner, err := signer.NewOriginSigner(originSeed, originDomain, envelopeCodec)
	if err != nil {
		log.Fatalf("Failed to create origin signer: %v", err)
	}
	logger.Info("origin signer ready", "account", originSigner.PublicKey(), "domain", originDomain)

	var (
		statusStore ports.Store
		publisher   ports.EventPublisher
	)

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		wmLogger := watermill.NewStdLogger(false, false)
		redisPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}

		statusStore = store.NewRedisStore(redisClient)
		publisher = events.NewWatermillPublisher(redisPublisher)
		logger.Info("using redis store and event stream")
	} else {
		statusStore = store.NewMemoryStore()
		publisher = events.NopPublisher{}
		logger.Info("REDIS_URL not set, using in-memory store and discarding events")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	endpointResolver := resolver.NewTOMLResolver(httpClient, "")

	engine := service.NewHandshakeEngine(
		anchorDomain,
		endpointResolver,
		envelopeCodec,
		originSigner,
		httpClient,
		publisher,
		logger,
	)

	tracker := service.NewSessionTracker(
		anchorDomain,
		endpointResolver,
		httpClient,
		statusStore,
		publisher,
		logger,
	)

	router := transport.SetupRouter(engine, tracker)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

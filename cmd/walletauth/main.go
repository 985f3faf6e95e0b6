package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/HumansWindow/lastproject-sub007/adapters/directory"
	"github.com/HumansWindow/lastproject-sub007/adapters/events"
	"github.com/HumansWindow/lastproject-sub007/adapters/store"
	"github.com/HumansWindow/lastproject-sub007/adapters/tokenizer"
	"github.com/HumansWindow/lastproject-sub007/adapters/verifier"
	"github.com/HumansWindow/lastproject-sub007/ports"
	"github.com/HumansWindow/lastproject-sub007/service"
	transport "github.com/HumansWindow/lastproject-sub007/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := service.LoadConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Ephemeral signing key: access tokens do not survive restarts, refresh
	// tokens do. Load from a KMS in multi-instance deployments.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("failed to generate signing key", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		challengeStore ports.ChallengeStore    = store.NewMemoryChallengeStore()
		recoveryStore  ports.RecoveryStore     = store.NewMemoryRecoveryStore()
		tokenStore     ports.RefreshTokenStore = store.NewMemoryRefreshTokenStore()
		publisher      ports.EventPublisher    = events.NewNopPublisher()
	)

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)

		challengeStore = store.NewRedisChallengeStore(redisClient)
		recoveryStore = store.NewRedisRecoveryStore(redisClient)
		tokenStore = store.NewRedisRefreshTokenStore(redisClient)

		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			logger.Error("failed to create event publisher", "error", err)
			os.Exit(1)
		}
		publisher = events.NewWatermillPublisher(wmPublisher)
	}

	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey, cfg.Issuer, cfg.AccessTokenTTL)
	verifiers := verifier.NewRegistry()
	userDir := directory.NewMemoryDirectory()

	challenges := service.NewChallengeService(challengeStore, cfg, logger)
	devices := service.NewDeviceService(store.NewMemoryDeviceStore(), publisher, cfg, logger)
	sessions := service.NewSessionService(store.NewMemorySessionStore(), publisher, cfg, logger)
	tokens := service.NewTokenService(tokenStore, jwtTokenizer, sessions, publisher, cfg, logger)
	sessions.SetTokenRevoker(tokens)
	recovery := service.NewRecoveryService(recoveryStore, cfg, logger)

	auth := service.NewAuthService(challenges, verifiers, devices, tokens, sessions, recovery, userDir, publisher, logger)

	go challenges.StartSweeper(ctx)
	go recovery.StartSweeper(ctx)

	router := transport.SetupRouter(auth)

	addr := os.Getenv("AUTH_LISTEN_ADDR")
	if addr == "" {
		addr = ":9000"
	}

	logger.Info("starting server", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

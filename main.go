package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"migrantconnect/auth"
	"migrantconnect/blobs"
	"migrantconnect/config"
	"migrantconnect/handlers"
	"migrantconnect/legal"
	"migrantconnect/logging"
	"migrantconnect/metrics"
	"migrantconnect/middleware"
	"migrantconnect/services"
	"migrantconnect/services/digilocker"
	"migrantconnect/services/places"
	"migrantconnect/services/speech"
	"migrantconnect/services/translate"
	"migrantconnect/store"
	"migrantconnect/store/mongostore"
	"migrantconnect/store/sqlitestore"
	"migrantconnect/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("telemetry shutdown", "err", err)
		}
	}()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := st.Close(sctx); err != nil {
			logger.Warn("close store", "err", err)
		}
	}()

	dir, err := blobs.New(cfg.Uploads.Dir, cfg.Uploads.MaxSize)
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no JWT secret configured, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	catalog, err := legal.Load(cfg.Legal.CatalogPath)
	if err != nil {
		return err
	}

	clientCfg := services.DefaultClientConfig()
	clientCfg.Timeout = cfg.Providers.Timeout
	client := services.NewHTTPClient(clientCfg)

	p := cfg.Providers
	recognizer, synthesizer := speech.New(speech.OpenAIConfig{
		BaseURL:  p.SpeechURL,
		APIKey:   p.SpeechAPIKey,
		STTModel: p.STTModel,
		TTSModel: p.TTSModel,
		Voice:    p.TTSVoice,
	}, client)

	m := metrics.New()
	h := handlers.New(handlers.Deps{
		Log:          logger,
		Store:        st,
		Blobs:        dir,
		Tokens:       tokens,
		Metrics:      m,
		RequireToken: cfg.Auth.RequireToken,
		AdminAPIKey:  cfg.HTTP.AdminAPIKey,
		Translator:   translate.New(p.TranslateURL, p.TranslateAPIKey, client),
		Recognizer:   recognizer,
		Synthesizer:  synthesizer,
		Verifier:     digilocker.New(p.DigiLockerURL, p.DigiLockerToken, client),
		Places:       places.New(p.PlacesURL, client),
		Legal:        catalog,
	})

	// Setup routes from handlers package
	mux := http.NewServeMux()
	h.SetupRoutes(mux)

	var handler http.Handler = mux
	handler = middleware.RateLimit(middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst), handler)
	handler = middleware.CORS(cfg.HTTP.AllowedOrigins, handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Observe(logger, m, handler)
	handler = middleware.Recover(logger, handler)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// openStore connects to the configured storage backend.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return s, nil
	}
}

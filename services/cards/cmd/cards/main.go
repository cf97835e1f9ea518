package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bizcards/internal/util"
	"bizcards/pkg/events"
	"bizcards/pkg/records"
	"bizcards/pkg/storage"
	"bizcards/pkg/store"
	"bizcards/services/cards/internal/app"
	"bizcards/services/cards/internal/config"
	"bizcards/services/cards/internal/server"
)

func main() {
	cfgPath := os.Getenv("CARDS_CONFIG")
	if cfgPath == "" {
		cfgPath = config.ConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	meta, err := openMetaStore(cfg)
	if err != nil {
		log.Fatalf("failed to init metadata store: %v", err)
	}
	if c, ok := meta.(io.Closer); ok {
		defer c.Close()
	}
	images, err := openImageStore(cfg)
	if err != nil {
		log.Fatalf("failed to init image store: %v", err)
	}
	recordStore, err := records.New(records.Config{
		Meta:              meta,
		Images:            images,
		PublicURL:         cfg.PublicURL,
		AllowedExtensions: cfg.AllowedExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init record store: %v", err)
	}

	appCore, err := app.New(app.Config{
		Records:         recordStore,
		Events:          openPublisher(cfg),
		ExtractProvider: cfg.ExtractProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		APIKeyFile:      cfg.APIKeyFile,
		OllamaURL:       cfg.OllamaURL,
		OllamaModel:     cfg.OllamaModel,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close()

	httpServer, err := server.New(server.Config{
		App:                       appCore,
		MaxUploadBytes:            cfg.MaxUploadBytes,
		RedisAddr:                 cfg.RedisAddr,
		RedisPassword:             cfg.RedisPassword,
		ExtractRateLimitPerMinute: cfg.ExtractRateLimitPerMinute,
		TrustedProxyCIDRs:         cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("cards server listening", "addr", addr, "public_url", cfg.PublicURL, "store", cfg.StoreDriver, "images", cfg.ImageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	slog.Info("cards server stopped")
}

func openMetaStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := store.NewJSONStore(filepath.Join(cfg.DataDir, "text"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openImageStore(cfg config.FileConfig) (storage.ImageStore, error) {
	if cfg.ImageDriver == config.DriverMinio {
		m, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	d, err := storage.NewDirStore(filepath.Join(cfg.DataDir, "images"))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// openPublisher wires the configured brokers. A broker that cannot be reached
// at startup is logged and skipped.
func openPublisher(cfg config.FileConfig) events.Publisher {
	var pubs events.Multi
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			slog.Warn("amqp events disabled", "err", err)
		} else {
			pubs = append(pubs, p)
		}
	}
	if cfg.RedisAddr != "" && cfg.EventStream != "" {
		p, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EventStream,
		})
		if err != nil {
			slog.Warn("redis events disabled", "err", err)
		} else {
			pubs = append(pubs, p)
		}
	}
	if len(pubs) == 0 {
		return events.NopPublisher{}
	}
	return pubs
}

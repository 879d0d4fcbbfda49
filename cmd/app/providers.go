package main

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/urbansims/microgreens/internal/domain/auth"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/internal/domain/tracker"
	"github.com/urbansims/microgreens/internal/infra/backendapi"
	"github.com/urbansims/microgreens/internal/infra/config"
	"github.com/urbansims/microgreens/internal/infra/jobqueue"
	"github.com/urbansims/microgreens/internal/infra/llm/chatgpt"
	"github.com/urbansims/microgreens/internal/infra/photostore"
	"github.com/urbansims/microgreens/internal/infra/predictioncache"
	"github.com/urbansims/microgreens/internal/infra/trackerrepo"
	"github.com/urbansims/microgreens/internal/infra/userrepo"
	httpiface "github.com/urbansims/microgreens/internal/interface/http"
)

// trackerStore is the single backing store of seeds and crops.
type trackerStore interface {
	tracker.SeedRepository
	tracker.CropRepository
}

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:          cfg.Auth.Secret,
		TokenTTL:        cfg.Auth.TokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		AdminUsernames:  cfg.Auth.AdminUsernames,
	}
}

func provideTrackerConfig(cfg *config.Config) tracker.Config {
	return tracker.Config{
		Location:      cfg.Location(),
		PredictionTTL: cfg.Tracker.PredictionTTL,
		MaxPhotoBytes: cfg.Tracker.MaxPhotoBytes,
		LogGraceDays:  cfg.Tracker.LogGraceDays,
	}
}

func provideDashboardConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		Location:        cfg.Location(),
		SyncConcurrency: cfg.Dashboard.SyncConcurrency,
		RelatedLimit:    cfg.Dashboard.RelatedLimit,
		ListPath:        cfg.Dashboard.ListPath,
		Assistant: dashboard.AssistantConfig{
			Prompt:      cfg.Dashboard.Prompt,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	}
}

// providePostgresPool returns nil when no DSN is configured or the database
// is unreachable; repositories then fall back to memory.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil, func() {}
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil, func() {}
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil, func() {}
	}
	logger.Info("postgres enabled")
	return pool, pool.Close
}

func provideTrackerStore(pool *pgxpool.Pool, logger *slog.Logger) (trackerStore, error) {
	if pool == nil {
		return trackerrepo.NewMemoryRepository(), nil
	}
	repo := trackerrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("tracker postgres repository enabled")
	return repo, nil
}

func provideSeedRepository(store trackerStore) tracker.SeedRepository {
	return store
}

func provideCropRepository(store trackerStore) tracker.CropRepository {
	return store
}

func provideAuthRepository(pool *pgxpool.Pool, logger *slog.Logger) (auth.Repository, error) {
	if pool == nil {
		return userrepo.NewMemoryRepository(), nil
	}
	repo := userrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("auth postgres repository enabled")
	return repo, nil
}

// provideValkeyClient returns nil when valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	if !cfg.Valkey.Enabled {
		return nil, func() {}
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory", "error", err)
		return nil, func() {}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory", "error", err)
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory", "error", err)
		client.Close()
		return nil, func() {}
	}
	logger.Info("valkey enabled", "addr", cfg.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func providePredictionCache(cfg *config.Config, client valkey.Client) tracker.PredictionCache {
	if client == nil {
		return predictioncache.NewMemoryCache()
	}
	return predictioncache.NewValkeyCache(client, cfg.Valkey.CachePrefix)
}

func provideJobQueue(cfg *config.Config, client valkey.Client, logger *slog.Logger) (jobqueue.HandlerQueue, func()) {
	var queue jobqueue.HandlerQueue
	if client == nil {
		queue = jobqueue.NewImmediateQueue(logger)
	} else {
		queue = jobqueue.NewValkeyQueue(client, cfg.Valkey.QueueKey, logger)
	}
	return queue, func() {
		if err := queue.Close(); err != nil {
			logger.Warn("job queue close failed", "error", err)
		}
	}
}

func providePhotoStorage(cfg *config.Config, logger *slog.Logger) tracker.PhotoStorage {
	if !cfg.Storage.S3Enabled {
		return photostore.NewMemoryStorage()
	}
	store, err := photostore.NewS3Storage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.Region, logger)
	if err != nil {
		logger.Error("failed to create s3 photo storage, using memory", "error", err)
		return photostore.NewMemoryStorage()
	}
	logger.Info("s3 photo storage enabled", "bucket", cfg.Storage.Bucket)
	return store
}

// provideTrackerService builds the tracker and registers it as the job
// handler of the queue.
func provideTrackerService(cfg tracker.Config, seeds tracker.SeedRepository, crops tracker.CropRepository, cache tracker.PredictionCache, photos tracker.PhotoStorage, queue jobqueue.HandlerQueue, logger *slog.Logger) tracker.Service {
	svc := tracker.NewService(cfg, seeds, crops, cache, photos, queue, logger)
	queue.SetHandler(svc.HandleJob)
	return svc
}

// provideAssistant returns nil when no API key is configured.
func provideAssistant(cfg *config.Config, logger *slog.Logger) *chatgpt.Assistant {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Info("llm api key not set, ai suggestions disabled")
		return nil
	}
	client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		logger.Error("failed to create llm client, ai suggestions disabled", "error", err)
		return nil
	}
	tokenizer, err := chatgpt.NewTiktokenizer(cfg.LLM.Encoding)
	if err != nil {
		logger.Warn("tokenizer unavailable, prompts will not be trimmed", "encoding", cfg.LLM.Encoding, "error", err)
	}
	return chatgpt.NewAssistant(client, cfg.LLM.Model, tokenizer, cfg.LLM.MaxPromptTokens, logger)
}

func provideDashboardAssistant(assistant *chatgpt.Assistant) dashboard.Assistant {
	if assistant == nil {
		return nil
	}
	return assistant
}

func provideUsageReporter(assistant *chatgpt.Assistant) httpiface.UsageReporter {
	if assistant == nil {
		return nil
	}
	return assistant
}

// provideBackendClient points the dashboard at the crops API, defaulting
// to this process.
func provideBackendClient(cfg *config.Config) *backendapi.Client {
	baseURL := strings.TrimSpace(cfg.Dashboard.BackendBaseURL)
	if baseURL == "" {
		baseURL = localBaseURL(cfg.HTTP.Address)
	}
	return backendapi.NewClient(baseURL, cfg.Dashboard.RequestTimeout, nil)
}

func localBaseURL(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/engram/pkg/adapter"
	"github.com/m-mizutani/engram/pkg/repository"
	"github.com/m-mizutani/engram/pkg/service/ratelimit"
	"github.com/m-mizutani/engram/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	logLevel   string
	configPath string

	// Relational store
	postgresDSN string

	// Vector index
	qdrantURL        string
	qdrantCollection string
	qdrantAPIKey     string

	// Embedding
	geminiProject      string
	geminiLocation     string
	embeddingModel     string
	embeddingDimension int64

	// Admission control
	redisAddr     string
	redisPassword string
	redisDB       int64
	rateLimit     int64
	rateWindow    time.Duration
	clientID      string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ENGRAM_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file (file values override flags)",
			Sources:     cli.EnvVars("ENGRAM_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string",
			Sources:     cli.EnvVars("ENGRAM_POSTGRES_DSN"),
			Destination: &cfg.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "qdrant-url",
			Usage:       "Qdrant base URL",
			Value:       "http://localhost:6333",
			Sources:     cli.EnvVars("ENGRAM_QDRANT_URL"),
			Destination: &cfg.qdrantURL,
		},
		&cli.StringFlag{
			Name:        "qdrant-collection",
			Usage:       "Qdrant collection name",
			Value:       "memories",
			Sources:     cli.EnvVars("ENGRAM_QDRANT_COLLECTION"),
			Destination: &cfg.qdrantCollection,
		},
		&cli.StringFlag{
			Name:        "qdrant-api-key",
			Usage:       "Qdrant API key",
			Sources:     cli.EnvVars("ENGRAM_QDRANT_API_KEY"),
			Destination: &cfg.qdrantAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("ENGRAM_GEMINI_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("ENGRAM_GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding output dimensionality (must match the Qdrant collection)",
			Value:       768,
			Sources:     cli.EnvVars("ENGRAM_EMBEDDING_DIMENSION"),
			Destination: &cfg.embeddingDimension,
		},
	}
}

// rateLimitFlags returns flags for the admission controller
func rateLimitFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address for rate limiting (empty disables admission control)",
			Sources:     cli.EnvVars("ENGRAM_REDIS_ADDR"),
			Destination: &cfg.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Sources:     cli.EnvVars("ENGRAM_REDIS_PASSWORD"),
			Destination: &cfg.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Sources:     cli.EnvVars("ENGRAM_REDIS_DB"),
			Destination: &cfg.redisDB,
		},
		&cli.IntFlag{
			Name:        "rate-limit",
			Usage:       "Max requests per window per caller",
			Value:       60,
			Sources:     cli.EnvVars("ENGRAM_RATE_LIMIT"),
			Destination: &cfg.rateLimit,
		},
		&cli.DurationFlag{
			Name:        "rate-window",
			Usage:       "Rate limit window length",
			Value:       time.Minute,
			Sources:     cli.EnvVars("ENGRAM_RATE_WINDOW"),
			Destination: &cfg.rateWindow,
		},
		&cli.StringFlag{
			Name:        "client-id",
			Usage:       "Rate limit identifier for the stdio transport",
			Value:       "local",
			Sources:     cli.EnvVars("ENGRAM_CLIENT_ID"),
			Destination: &cfg.clientID,
		},
	}
}

// fileConfig is the YAML config file shape. Set fields override flag values.
type fileConfig struct {
	LogLevel           string        `yaml:"log_level"`
	PostgresDSN        string        `yaml:"postgres_dsn"`
	QdrantURL          string        `yaml:"qdrant_url"`
	QdrantCollection   string        `yaml:"qdrant_collection"`
	QdrantAPIKey       string        `yaml:"qdrant_api_key"`
	GeminiProject      string        `yaml:"gemini_project"`
	GeminiLocation     string        `yaml:"gemini_location"`
	EmbeddingModel     string        `yaml:"embedding_model"`
	EmbeddingDimension int64         `yaml:"embedding_dimension"`
	RedisAddr          string        `yaml:"redis_addr"`
	RedisPassword      string        `yaml:"redis_password"`
	RedisDB            int64         `yaml:"redis_db"`
	RateLimit          int64         `yaml:"rate_limit"`
	RateWindow         time.Duration `yaml:"rate_window"`
	ClientID           string        `yaml:"client_id"`
}

// loadFile merges the YAML config file into cfg when --config is set.
func (cfg *config) loadFile() error {
	if cfg.configPath == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file",
			goerr.V("path", cfg.configPath))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return goerr.Wrap(err, "failed to parse config file",
			goerr.V("path", cfg.configPath))
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.logLevel, fc.LogLevel)
	setString(&cfg.postgresDSN, fc.PostgresDSN)
	setString(&cfg.qdrantURL, fc.QdrantURL)
	setString(&cfg.qdrantCollection, fc.QdrantCollection)
	setString(&cfg.qdrantAPIKey, fc.QdrantAPIKey)
	setString(&cfg.geminiProject, fc.GeminiProject)
	setString(&cfg.geminiLocation, fc.GeminiLocation)
	setString(&cfg.embeddingModel, fc.EmbeddingModel)
	setString(&cfg.redisAddr, fc.RedisAddr)
	setString(&cfg.redisPassword, fc.RedisPassword)
	setString(&cfg.clientID, fc.ClientID)
	if fc.EmbeddingDimension > 0 {
		cfg.embeddingDimension = fc.EmbeddingDimension
	}
	if fc.RedisDB > 0 {
		cfg.redisDB = fc.RedisDB
	}
	if fc.RateLimit > 0 {
		cfg.rateLimit = fc.RateLimit
	}
	if fc.RateWindow > 0 {
		cfg.rateWindow = fc.RateWindow
	}
	return nil
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (*repository.Postgres, error) {
	if cfg.postgresDSN == "" {
		return nil, goerr.New("postgres-dsn is required")
	}

	repo, err := repository.NewPostgres(ctx, cfg.postgresDSN)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newEmbedder creates a new Gemini embedding adapter instance
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithEmbeddingDimension(int(cfg.embeddingDimension)),
	)
}

// newIndex creates a new Qdrant adapter instance
func (cfg *config) newIndex() (*adapter.QdrantClient, error) {
	if cfg.qdrantCollection == "" {
		return nil, goerr.New("qdrant-collection is required")
	}

	return adapter.NewQdrant(cfg.qdrantURL, cfg.qdrantCollection,
		adapter.WithQdrantAPIKey(cfg.qdrantAPIKey),
	), nil
}

// newLimiter creates the admission controller, or nil when no Redis address
// is configured.
func (cfg *config) newLimiter() *ratelimit.Limiter {
	if cfg.redisAddr == "" {
		return nil
	}

	cache := adapter.NewRedis(cfg.redisAddr,
		adapter.WithRedisPassword(cfg.redisPassword),
		adapter.WithRedisDB(int(cfg.redisDB)),
	)
	return ratelimit.New(cache, int(cfg.rateLimit), cfg.rateWindow)
}

// newUseCase builds the memory substrate with its production adapters. The
// returned closer releases the repository pool.
func (cfg *config) newUseCase(ctx context.Context) (*memory.UseCase, func(), error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	index, err := cfg.newIndex()
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	return memory.New(repo, embedder, index), repo.Close, nil
}

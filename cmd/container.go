package main

import (
	"context"
	"fmt"
	"os"

	"github.com/TryAwesome/CVibe-sub002/internal/ai/embeddings"
	"github.com/TryAwesome/CVibe-sub002/internal/config"
	"github.com/TryAwesome/CVibe-sub002/internal/htmlclean"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddingapi"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddinginfra"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddingsrv"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/job/jobapi"
	"github.com/TryAwesome/CVibe-sub002/matching/job/jobinfra"
	"github.com/TryAwesome/CVibe-sub002/matching/job/jobsrv"
	"github.com/TryAwesome/CVibe-sub002/matching/match/matchapi"
	"github.com/TryAwesome/CVibe-sub002/matching/match/matchinfra"
	"github.com/TryAwesome/CVibe-sub002/matching/match/matchsrv"
	"github.com/TryAwesome/CVibe-sub002/matching/profile/profileinfra"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/recomputeapi"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/recomputeinfra"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/recomputesrv"
	"github.com/TryAwesome/CVibe-sub002/matching/scoring"
	"github.com/TryAwesome/CVibe-sub002/matching/search"
	"github.com/TryAwesome/CVibe-sub002/matching/search/searchinfra"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/fsx/fsxs3"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// descriptionMaxRunes bounds cleaned descriptions kept for display and embedding
const descriptionMaxRunes = 20000

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Infrastructure
	DB       *sqlx.DB
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	S3Client *s3.Client
	RawStore job.RawSourceStore

	// Search
	Exact    *search.Exact
	Index    *searchinfra.PgvectorIndex
	Strategy search.Strategy

	// Services
	JobService       *jobsrv.JobService
	EmbeddingService *embeddingsrv.EmbeddingService
	MatchService     *matchsrv.MatchService
	RecomputeService *recomputesrv.RecomputeService

	Queue    *recomputeinfra.RedisQueue
	Profiles *profileinfra.PostgresProfileProvider

	// API Handlers
	JobHandlers       *jobapi.Handlers
	EmbeddingHandlers *embeddingapi.Handlers
	MatchHandlers     *matchapi.Handlers
	RecomputeHandlers *recomputeapi.Handlers

	// Middleware
	AuthMiddleware *auth.Middleware
}

// NewContainer initializes the dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}
	if err := c.initInfrastructure(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initServices(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	cfg := c.Config

	// 1. Database connections. sqlx serves the repositories, pgxpool the
	// recompute lease store.
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	c.DB = db

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}
	c.Pool = pool
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping pgx pool: %w", err)
	}

	// 2. Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	c.Redis = redis.NewClient(opts)
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		logx.Warnf("Failed to connect to Redis: %v", err)
	}

	// 3. Raw crawl archive on S3
	if cfg.Storage.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		c.S3Client = s3.NewFromConfig(awsCfg)
		c.RawStore = fsxs3.NewS3FileSystem(c.S3Client, cfg.Storage.Bucket, cfg.Storage.Prefix)
	}

	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	cfg := c.Config

	// --- Repositories ---
	jobRepo := jobinfra.NewPostgresJobRepository(c.DB)
	embeddingRepo := embeddinginfra.NewPostgresEmbeddingRepository(c.DB)
	matchRepo := matchinfra.NewPostgresMatchRepository(c.DB)
	stateStore := recomputeinfra.NewPostgresStateStore(c.Pool)
	c.Profiles = profileinfra.NewPostgresProfileProvider(c.DB)
	c.Queue = recomputeinfra.NewRedisQueue(c.Redis, cfg.Recompute.QueueName)

	// --- Search ---
	c.Exact = search.NewExact(embeddingRepo, cfg.Search.ScanPageSize)
	c.Index = searchinfra.NewPgvectorIndex(c.DB, cfg.Search.EfSearch)
	strategy, err := search.Select(cfg.Search.Strategy, c.Exact, c.Index, embeddingRepo, cfg.Search.ExactMaxCorpus)
	if err != nil {
		return err
	}
	c.Strategy = strategy

	// --- Embedding provider ---
	generator, err := embeddings.New(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	if generator == nil {
		logx.Warn("No embedding provider configured, backfill is disabled")
	}

	// --- Domain Services ---
	c.JobService = jobsrv.NewJobService(
		jobRepo,
		c.RawStore,
		htmlclean.New(descriptionMaxRunes),
		cfg.Recompute.StaleJobAfter,
	)

	var embedder embedding.TextEmbedder
	if generator != nil {
		embedder = generator
	}
	c.EmbeddingService = embeddingsrv.NewEmbeddingService(
		embeddingRepo,
		jobRepo,
		embedder,
		cfg.Embedding.Dimension,
		cfg.Embedding.BackfillBatch,
	)

	c.MatchService = matchsrv.NewMatchService(matchRepo)

	scorer := scoring.NewScorer(scoring.Weights{
		Similarity: cfg.Scoring.SimilarityWeight,
		Skills:     cfg.Scoring.SkillWeight,
	})
	c.RecomputeService = recomputesrv.NewRecomputeService(
		stateStore,
		c.Queue,
		c.Profiles,
		jobRepo,
		embeddingRepo,
		c.Strategy,
		scorer,
		matchRepo,
		recomputesrv.Options{
			Owner:          workerOwner(),
			Dimension:      cfg.Embedding.Dimension,
			LeaseTTL:       cfg.Recompute.LeaseTTL,
			FreshnessFloor: cfg.Recompute.FreshnessFloor,
			TopK:           cfg.Scoring.TopK,
			CandidateLimit: cfg.Recompute.CandidateLimit,
			MinScore:       cfg.Scoring.MinScore,
			UpsertAttempts: cfg.Recompute.UpsertRetries,
			UpsertBackoff:  cfg.Recompute.RetryBackoff,
			MaxAttempts:    cfg.Recompute.MaxAttempts,
			Parallelism:    cfg.Recompute.ScoringParallelism,
			FanoutBatch:    cfg.Recompute.FanoutBatch,
			SweepBatch:     cfg.Recompute.SweepBatch,
		},
	)

	// Embedding writes only publish the job; the worker's fan-out loop
	// triggers the users whose preferences admit it
	c.EmbeddingService.SetListener(c.RecomputeService)

	// --- Handlers ---
	c.JobHandlers = jobapi.NewHandlers(c.JobService)
	c.EmbeddingHandlers = embeddingapi.NewHandlers(c.EmbeddingService)
	c.MatchHandlers = matchapi.NewHandlers(c.MatchService)
	c.RecomputeHandlers = recomputeapi.NewHandlers(c.RecomputeService)

	// --- Middleware ---
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	c.AuthMiddleware = auth.NewMiddleware(verifier, cfg.Auth.APIKeyHashes)

	return nil
}

// Close releases every connection the container opened
func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

// workerOwner names this process in recompute leases; each run appends its
// own token
func workerOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

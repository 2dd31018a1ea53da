package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"echoly/internal/adapters/completion"
	"echoly/internal/adapters/downloader"
	"echoly/internal/adapters/httpapi"
	"echoly/internal/adapters/repo"
	"echoly/internal/adapters/scraper"
	"echoly/internal/adapters/transcriber"
	"echoly/internal/domain"
	"echoly/internal/infra/cache"
	"echoly/internal/infra/config"
	"echoly/internal/infra/db"
	httpinfra "echoly/internal/infra/http"
	"echoly/internal/infra/log"
	"echoly/internal/infra/metrics"
	"echoly/internal/infra/openai"
	"echoly/internal/infra/storage"
	authusecase "echoly/internal/usecase/auth"
	"echoly/internal/usecase/extract"
	"echoly/internal/usecase/generate"
	projectsusecase "echoly/internal/usecase/projects"
	"echoly/internal/usecase/repurpose"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	if err := repoAdapter.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось подготовить схему БД")
	}
	userRepo := repoAdapter.Users()
	projectRepo := repoAdapter.Projects()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cacheAdapter := cache.NewRedis(redisClient)

	objectStorage, err := storage.NewMinIO(ctx, storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
		URLExpiry: cfg.MinIO.URLExpiry,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к хранилищу")
	}

	whisper := transcriber.NewWhisper(cfg.Whisper.APIKey, cfg.Whisper.BaseURL, cfg.Whisper.Model, cfg.Whisper.Timeout)
	ytdlp := downloader.NewYTDLP(cfg.Pipeline.YTDLPPath, cfg.Pipeline.YTDLPTimeout)
	blogScraper := scraper.NewBlog(cfg.Scrape.Timeout, cfg.Scrape.UserAgent)
	extractor := extract.NewService(blogScraper, ytdlp, whisper, objectStorage, cfg.Pipeline.TempDir)

	llmClient := openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	completer := completion.NewOpenAI(llmClient, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout)
	generator := generate.NewGenerator(completer, cfg.Pipeline.InterCallDelay)

	pipeline := repurpose.NewService(
		extractor,
		generator,
		projectRepo,
		domain.DefaultPlatforms(),
		cfg.Pipeline.InterCallDelay,
		cfg.Pipeline.MinSourceLen,
		logger.With().Str("component", "pipeline").Logger(),
	)

	authService := authusecase.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	projectService := projectsusecase.NewService(projectRepo, objectStorage, logger.With().Str("component", "projects").Logger())

	handler := httpapi.NewHandler(pipeline, authService, projectService, generator, cacheAdapter, httpapi.Config{
		JWTSecret:      cfg.JWT.Secret,
		TempDir:        cfg.Pipeline.TempDir,
		MaxUploadBytes: cfg.Pipeline.MaxUploadBytes,
		RunLockTTL:     cfg.Pipeline.RunLockTTL,
	}, logger.With().Str("component", "api").Logger())

	server := httpinfra.NewServer(logger, cfg.CORSAllowedOrigins)
	handler.Routes(server.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), fmt.Sprintf(":%d", cfg.MetricsPort))

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

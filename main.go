package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cookbook/config"
	"cookbook/db"
	"cookbook/generate"
	"cookbook/live"
	"cookbook/logging"
	"cookbook/middleware"
	"cookbook/mq"
	"cookbook/rdx"
	"cookbook/recipes"
	"cookbook/repository/mongodb"
	"cookbook/reviews"
	"cookbook/routes"
	"cookbook/saves"
	"cookbook/tags"

	"github.com/rs/cors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Set up all routes and middleware layers
func setupRouter(h routes.Handlers, uploadDir string, logger *zap.Logger) http.Handler {
	router := routes.New(h, uploadDir)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	return middleware.RecoverMiddleware(logger)(
		middleware.RequestID(
			middleware.Logging(logger)(
				middleware.SecurityHeaders(c.Handler(router)))))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, err := db.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongodb disconnect", zap.Error(err))
		}
	}()
	logger.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
	if err := db.CreateIndexes(ctx); err != nil {
		return err
	}

	var tagCache tags.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := rdx.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, tag rankings are not cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			tagCache = rdx.NewCache(redisClient, "cookbook:tags:")
		}
	}

	recipeRepo := mongodb.NewRecipeRepository(db.RecipeCollection)
	reviewRepo := mongodb.NewReviewRepository(db.ReviewsCollection)
	saveRepo := mongodb.NewSaveRepository(db.SavesCollection)
	tagRepo := mongodb.NewTagRepository(db.TagsCollection, db.RecipeCollection)

	emitter := mq.NewEmitter(logger)
	hub := live.NewHub(logger)
	defer hub.Attach(emitter)()

	tagSvc := tags.New(tagRepo, tagCache, cfg.TagCacheTTL, logger)
	recipeSvc := recipes.New(recipes.Deps{
		Recipes:  recipeRepo,
		Tags:     tagRepo,
		Reviews:  reviewRepo,
		Saves:    saveRepo,
		TagCache: tagSvc,
		Events:   emitter,
		Logger:   logger,
	})
	reviewSvc := reviews.New(reviewRepo, recipeRepo, emitter, logger)
	saveSvc := saves.New(saveRepo, recipeRepo, emitter, logger)

	var gen *generate.Generator
	if cfg.OpenAI.APIKey != "" {
		gen = generate.New(openai.NewClient(cfg.OpenAI.APIKey), generate.Config{
			Model:      cfg.OpenAI.Model,
			ImageModel: cfg.OpenAI.ImageModel,
			UploadDir:  cfg.UploadDir,
			PublicPath: "/static/uploads/",
		}, logger)
	} else {
		logger.Info("OPENAI_API_KEY not set, recipe generation disabled")
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go rateLimiter.Sweep(ctx, 10*time.Minute)

	handler := setupRouter(routes.Handlers{
		Auth:        middleware.NewAuth(cfg.JWTSecret, logger),
		RateLimiter: rateLimiter,
		Recipes:     recipes.NewHandler(recipeSvc, logger),
		Tags:        tags.NewHandler(tagSvc, logger),
		Reviews:     reviews.NewHandler(reviewSvc, logger),
		Saves:       saves.NewHandler(saveSvc, logger),
		Generate:    generate.NewHandler(gen, recipeSvc, logger),
		Hub:         hub,
		Reconcile:   routes.ReconcileHandler(reviewSvc, saveSvc, logger),
	}, cfg.UploadDir, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}

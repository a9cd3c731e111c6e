package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/config"
	"github.com/cinemarket/movie-storefront/internal/database"
	"github.com/cinemarket/movie-storefront/internal/handler"
	"github.com/cinemarket/movie-storefront/internal/middleware"
	"github.com/cinemarket/movie-storefront/internal/queue"
	"github.com/cinemarket/movie-storefront/internal/repository"
	"github.com/cinemarket/movie-storefront/internal/router"
	"github.com/cinemarket/movie-storefront/internal/service"
)

// expired activation/reset tokens are swept on this interval
const tokenSweepInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found (ok in prod)")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	genres := repository.NewGenreRepo(db)
	stars := repository.NewStarRepo(db)
	directors := repository.NewDirectorRepo(db)
	certs := repository.NewCertificationRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)

	// Collaborators
	stripe := client.NewStripeClient(os.Getenv("STRIPE_API_BASE"), cfg.StripeSecretKey)
	notifier := queue.Notifier{URL: cfg.AMQPURL}

	// Services
	cartSvc := service.NewCartService(carts, movies, orders)
	orderSvc := service.NewOrderService(orders, carts, movies, payments, stripe, cfg.FrontendURL)
	paymentSvc := service.NewPaymentService(orders, payments, movies, notifier)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, tokens, notifier)
	profileH := handler.NewProfileHandler(users)
	movieH := handler.NewMovieHandler(movies)
	catalogH := handler.NewCatalogHandler(genres, stars, directors, certs)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc, users)
	webhookH := handler.NewWebhookHandler(paymentSvc, cfg.StripeWebhookSecret)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	publicMW := []echo.MiddlewareFunc{
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, profileH, cfg.JWTSecret)
	router.RegisterCatalog(e, movieH, catalogH, cfg.JWTSecret, publicMW...)
	router.RegisterStore(e, cartH, orderH, cfg.JWTSecret)
	router.RegisterWebhook(e, webhookH)

	// Background workers
	go func() {
		if err := queue.StartConsumers(cfg.AMQPURL); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sweepExpiredTokens(sweepCtx, tokens)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	log.Println("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

// sweepExpiredTokens periodically deletes expired activation and
// password-reset tokens so the table does not grow unbounded.
func sweepExpiredTokens(ctx context.Context, tokens *repository.TokenRepo) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.DeleteExpiredActionTokens(ctx)
			if err != nil {
				log.Printf("token sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token sweep: removed %d expired tokens", n)
			}
		}
	}
}

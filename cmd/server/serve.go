package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"podreseller_back_end/internal/cache"
	"podreseller_back_end/internal/config"
	"podreseller_back_end/internal/database"
	"podreseller_back_end/internal/handlers/auth"
	"podreseller_back_end/internal/handlers/cart"
	"podreseller_back_end/internal/handlers/payment"
	"podreseller_back_end/internal/handlers/product"
	"podreseller_back_end/internal/handlers/user"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/metrics"
	"podreseller_back_end/internal/middleware"
	"podreseller_back_end/internal/repository"
	"podreseller_back_end/internal/routes"
	"podreseller_back_end/internal/services"
	"podreseller_back_end/internal/utils"
	"podreseller_back_end/internal/worker"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the cart cleanup worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.AppEnv)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(dctx); err != nil {
			log.Error("mongo disconnect", "error", err)
		}
	}()

	if err := database.EnsureIndexes(ctx, db.DB); err != nil {
		return err
	}

	tokens, err := utils.NewTokenService(cfg.TokenSecret)
	if err != nil {
		return err
	}

	// Redis, Elasticsearch and MinIO are optional: a failed connection only
	// disables the feature they back.
	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Error("role cache and cart sync disabled", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}
	es, err := database.ConnectElastic(cfg)
	if err != nil {
		log.Error("search index disabled", "error", err)
	}
	minioClient, err := database.ConnectMinIO(ctx, cfg)
	if err != nil {
		log.Error("image upload disabled", "error", err)
	}

	products := repository.NewProductRepository(db.Collection(database.ProductsCollection))
	carts := repository.NewCartRepository(db.Collection(database.CartsCollection))
	users := repository.NewUserRepository(db.Collection(database.UsersCollection))
	payments := repository.NewPaymentRepository(db, cfg.MongoTransactions)

	roles := cache.NewCachedUsers(rdb, users)
	cartEvents := services.NewCartEvents(rdb)
	gateway := services.NewStripeGateway(cfg.StripeKey, cfg.StripeWebhookSecret)
	m := metrics.New()

	var mailer payment.Mailer
	if rm := utils.NewReceiptMailer(cfg); rm != nil {
		mailer = rm
	}

	engine := routes.NewEngine(log, cfg.CORSOrigins, routes.Deps{
		Auth:     middleware.NewAuthorizer(tokens, roles),
		Tokens:   auth.NewHandler(tokens),
		Products: product.NewHandler(products, services.NewProductIndex(es), services.NewImageStorage(minioClient, cfg.MinioBucket, cfg.MinioEndpoint, cfg.MinioUseSSL)),
		Carts:    cart.NewHandler(carts, cartEvents),
		Users:    user.NewHandler(users, roles),
		Payments: payment.NewHandler(payments, gateway, mailer, cartEvents, m),
		Metrics:  m,
	})

	go worker.NewCleanupWorker(payments, cfg.CleanupInterval, m, log).Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return listen(ctx, srv, log)
}

// listen serves until ctx is cancelled, then drains in-flight requests.
func listen(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("PodReseller server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

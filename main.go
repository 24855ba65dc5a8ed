package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/donjersey/shop-api/app/api"
	"github.com/donjersey/shop-api/app/catalog"
	"github.com/donjersey/shop-api/app/categories"
	"github.com/donjersey/shop-api/app/orders"
	"github.com/donjersey/shop-api/app/payments"
	"github.com/donjersey/shop-api/app/products"
	"github.com/donjersey/shop-api/config"
	"github.com/donjersey/shop-api/logging"
	"github.com/donjersey/shop-api/models"
)

func main() {
	seed := flag.Bool("seed", false, "seed the database with sample data and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.MustNewLogger(config.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db_open_failed", zap.Error(err))
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("db_connect_failed", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		logger.Fatal("db_migrate_failed", zap.Error(err))
	}

	if *seed {
		if err := seedData(db); err != nil {
			logger.Fatal("seed_failed", zap.Error(err))
		}
		logger.Info("seed_complete")
		return
	}

	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)

	productsRepo := models.NewProductsRepository(db)
	categoriesRepo := models.NewCategoriesRepository(db)
	ordersRepo := models.NewOrdersRepository(db)

	orderService := orders.NewService(ordersRepo, logger, metrics)
	gateway := payments.NewMpesaClient(payments.Config{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		BaseURL:        cfg.MpesaBaseURL,
		CallbackURL:    cfg.MpesaCallbackURL,
		CountryPrefix:  cfg.MpesaCountryPrefix,
		Timeout:        config.GatewayTimeout,
	})

	catalogHandler := catalog.NewCatalogHandler(productsRepo)
	productsHandler := products.NewProductsHandler(productsRepo)
	categoryHandler := categories.NewCategoryHandler(categoriesRepo)
	ordersHandler := orders.NewOrdersHandler(orderService, ordersRepo)
	paymentsHandler := payments.NewPaymentsHandler(gateway, ordersRepo, logger, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", catalogHandler.HandleGet)
	mux.HandleFunc("GET /products/count-by-category", catalogHandler.HandleCountByCategory)
	mux.HandleFunc("GET /products/{id}", catalogHandler.HandleGetProduct)
	mux.HandleFunc("GET /products/{id}/variants", catalogHandler.HandleGetVariants)
	mux.HandleFunc("POST /products", productsHandler.HandleCreate)
	mux.HandleFunc("PUT /products/{id}", productsHandler.HandleUpdate)
	mux.HandleFunc("DELETE /products/{id}", productsHandler.HandleDelete)
	mux.HandleFunc("GET /categories", categoryHandler.HandleGetAll)
	mux.HandleFunc("POST /categories", categoryHandler.HandleCreate)
	mux.HandleFunc("POST /orders", ordersHandler.HandleCreate)
	mux.HandleFunc("GET /orders", ordersHandler.HandleGetAll)
	mux.HandleFunc("GET /orders/{id}", ordersHandler.HandleGetByID)
	mux.HandleFunc("DELETE /orders/{id}", ordersHandler.HandleDelete)
	mux.HandleFunc("POST /pay", paymentsHandler.HandlePay)
	mux.HandleFunc("POST /mpesa/callback", paymentsHandler.HandleCallback)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.RequestID(api.AccessLog(logger)(mux)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}

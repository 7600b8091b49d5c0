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

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-shoplist/internal/aws"
	"github.com/imrishuroy/go-shoplist/internal/config"
	itemevents "github.com/imrishuroy/go-shoplist/internal/events"
	"github.com/imrishuroy/go-shoplist/internal/handlers"
	"github.com/imrishuroy/go-shoplist/internal/items"
	"github.com/imrishuroy/go-shoplist/internal/items/dynamostore"
	"github.com/imrishuroy/go-shoplist/internal/items/sqlstore"
	"github.com/imrishuroy/go-shoplist/internal/logging"
	"github.com/imrishuroy/go-shoplist/internal/validation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()

	// AWS clients are only needed for DynamoDB or change notices.
	var clients *aws.AWSClients
	if cfg.Store == config.BackendDynamoDB || cfg.EventsQueueURL != "" {
		clients, err = aws.NewAWSClients(ctx)
		if err != nil {
			return fmt.Errorf("init aws clients: %w", err)
		}
	}

	var store items.Store
	switch cfg.Store {
	case config.BackendDynamoDB:
		store = dynamostore.NewStore(clients.DynamoDB, cfg.ItemsTable)
		logger.Info("using dynamodb store", "table", cfg.ItemsTable, "region", clients.Region)
	default:
		sqlStore, err := sqlstore.Open(ctx, sqlstore.Options{Path: cfg.DatabasePath, WAL: cfg.DatabaseWAL})
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer func() {
			if err := sqlStore.Close(); err != nil {
				logger.Error("close sqlite store", "error", err)
			}
		}()
		store = sqlStore
		logger.Info("using sqlite store", "path", cfg.DatabasePath, "wal", cfg.DatabaseWAL)
	}

	opts := []items.Option{items.WithLogger(logger)}
	if cfg.EventsQueueURL != "" {
		publisher := aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)
		opts = append(opts, items.WithNotifier(itemevents.NewSQSNotifier(publisher)))
		logger.Info("item change notices enabled", "queue_url", cfg.EventsQueueURL)
	}
	svc := items.NewService(store, validation.New(), opts...)

	r := handlers.NewRouter(handlers.RouterConfig{
		HandlerConfig: handlers.HandlerConfig{Service: svc, Logger: logger},
		CORSOrigin:    cfg.CORSOrigin,
	})

	if cfg.RunLocal {
		return serveLocal(r, cfg.Addr(), logger)
	}

	// lambda adapter
	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
	return nil
}

// serveLocal runs a plain HTTP server until SIGINT/SIGTERM, then drains it.
func serveLocal(h http.Handler, addr string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("running local server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

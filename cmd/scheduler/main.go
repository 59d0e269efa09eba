package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/notifications"
	kafkanotify "github.com/sheikh-saqib/recurring-transfer-scheduler/internal/notifications/kafka"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/scheduler"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/storage/memory"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/storage/postgres"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/transfer"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var store interfaces.LedgerStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			logger.Fatal("opening database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal("pinging database", zap.Error(err))
		}
		store = postgres.NewStore(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = memory.NewStore()
	}

	var notifier interfaces.Notifier = notifications.NewLogNotifier(logger)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "transfer_notifications"
		}
		kn := kafkanotify.NewNotifier(strings.Split(brokers, ","), topic)
		defer kn.Close()
		notifier = kn
	}

	interval := scheduler.DefaultInterval
	if raw := os.Getenv("TICK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Fatal("invalid TICK_INTERVAL", zap.String("value", raw), zap.Error(err))
		}
		interval = d
	}

	executor := transfer.NewExecutor(store, notifier, logger)
	retries := transfer.NewRetryController(store, notifier, logger)
	sched := scheduler.New(store, executor, logger, interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/transactions/retry", transactionHandler(retries.Retry))
	mux.HandleFunc("/transactions/cancel", transactionHandler(retries.Cancel))

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}

	// Let the tick in flight finish before exiting.
	<-schedDone
}

// transactionHandler adapts a RetryController operation to a JSON endpoint.
func transactionHandler(op func(ctx context.Context, txID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			TransactionID string `json:"transaction_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
			http.Error(w, "transaction_id is a mandatory field", http.StatusBadRequest)
			return
		}

		err := op(r.Context(), req.TransactionID)
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		case errors.Is(err, interfaces.ErrTransactionNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, transfer.ErrInvalidRetryState), errors.Is(err, transfer.ErrNotCancelable):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

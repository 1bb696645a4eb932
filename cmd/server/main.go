package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mikopo/backoffice/internal/config"
	"github.com/mikopo/backoffice/internal/datastore"
	"github.com/mikopo/backoffice/internal/handler"
	"github.com/mikopo/backoffice/internal/reconciler"
	"github.com/mikopo/backoffice/internal/repository"
	"github.com/mikopo/backoffice/internal/service"
	"github.com/mikopo/backoffice/pkg/response"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	memberRepo := repository.NewMemberRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	store := datastore.NewPostgres(db)
	rec := reconciler.New(store, cfg.Business.ReconcilerVerifyWait)

	backofficeService := service.NewBackofficeService(memberRepo, loanRepo, paymentRepo, rec, redisClient, cfg)
	backofficeHandler := handler.NewBackofficeHandler(backofficeService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(cfg, backofficeHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(cfg *config.Config, backofficeHandler *handler.BackofficeHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Browsers talk to a local UI dev server in development; production
	// serves same-origin and needs no CORS headers.
	if cfg.IsDevelopment() {
		router.Use(response.CORSMiddleware)
	}

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/members", backofficeHandler.RegisterMember).Methods("POST")
	api.HandleFunc("/members/{memberId}", backofficeHandler.GetMember).Methods("GET")
	api.HandleFunc("/members/{memberId}/loans", backofficeHandler.ListMemberLoans).Methods("GET")
	api.HandleFunc("/members/{memberId}/deletable", backofficeHandler.CanDeleteMember).Methods("GET")
	api.HandleFunc("/members/{memberId}", backofficeHandler.DeleteMember).Methods("DELETE")

	api.HandleFunc("/loans", backofficeHandler.DisburseLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", backofficeHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/schedule.csv", backofficeHandler.ExportScheduleCSV).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", backofficeHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", backofficeHandler.ListPayments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments", backofficeHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/writeoff", backofficeHandler.WriteOffLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", backofficeHandler.DeleteLoan).Methods("DELETE")

	return router
}

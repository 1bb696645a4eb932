package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/mikopo/backoffice/internal/config"
	"github.com/mikopo/backoffice/internal/datastore"
	"github.com/mikopo/backoffice/internal/reconciler"
	"github.com/mikopo/backoffice/internal/repository"
	"github.com/mikopo/backoffice/internal/service"
)

func main() {
	log.Println("Starting back-office scheduler...")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	rec := reconciler.New(datastore.NewPostgres(db), cfg.Business.ReconcilerVerifyWait)
	backofficeService := service.NewBackofficeService(
		repository.NewMemberRepository(db),
		repository.NewLoanRepository(db),
		repository.NewPaymentRepository(db),
		rec,
		redisClient,
		cfg,
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))
	setupCronJobs(c, cfg, backofficeService)

	c.Start()
	log.Println("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, backofficeService *service.BackofficeService) {
	// Daily overdue sweep: re-derive schedules and flag defaulted loans.
	_, err := c.AddFunc(cfg.Scheduler.OverdueSpec, func() {
		log.Println("Running daily overdue sweep...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		flagged, err := backofficeService.SweepOverdue(ctx)
		if err != nil {
			log.Printf("Overdue sweep failed: %v", err)
			return
		}
		log.Printf("Overdue sweep complete, flagged %d loan(s) as defaulted", flagged)
	})
	if err != nil {
		log.Printf("Error scheduling overdue sweep job: %v", err)
	}

	// Weekly reminder log. Outbound messaging is owned by the
	// communications system; this only surfaces what is coming due.
	_, err = c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		log.Println("Running weekly payment reminder job...")
	})
	if err != nil {
		log.Printf("Error scheduling payment reminder job: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}

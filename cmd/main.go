package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/infrastructure/mailer"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/scheduler"
	"github.com/mansoorceksport/cohab/internal/server"
	"github.com/mansoorceksport/cohab/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting COHAB API...")
	ctx := context.Background()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.ConfigFrom(cfg.OTEL))
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	// Connect to MongoDB with OpenTelemetry instrumentation
	ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("✓ MongoDB connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Redis connected")

	// Email delivery. A nil sender turns the email endpoints off.
	var sender domain.EmailSender
	if cfg.Email.Enabled {
		switch cfg.Email.Driver {
		case config.EmailDriverLog:
			sender = mailer.NewLogSender()
			log.Println("📧 Email enabled (log only)")
		default:
			postmarkSender, err := mailer.NewPostmarkSender(cfg.Email)
			if err != nil {
				log.Fatalf("Failed to configure Postmark: %v", err)
			}
			sender = postmarkSender
			log.Println("📧 Email enabled (Postmark)")
		}
	} else {
		log.Println("📧 Email disabled")
	}

	var fileRepo domain.FileRepository
	if cfg.S3.Enabled() {
		s3Repo, err := repository.NewS3FileRepository(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: Failed to initialize S3 repository, QR codes stay inline: %v", err)
		} else {
			fileRepo = s3Repo
			log.Printf("✓ S3 QR hosting enabled (bucket: %s)", cfg.S3.Bucket)
		}
	}

	application, err := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     mongoClient.Database(cfg.MongoDB.Database),
		RedisClient: redisClient,
		Mailer:      sender,
		FileRepo:    fileRepo,
	})
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	var sweeps *scheduler.Scheduler
	if cfg.Scheduler.SweepSchedule != "" {
		loc, _ := cfg.Location()
		sweeps = scheduler.New(application.Students, cfg.Scheduler.SweepSchedule, loc)
		if err := sweeps.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
	} else {
		log.Println("Status sweep disabled")
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		if sweeps != nil {
			<-sweeps.Stop().Done()
		}
		if err := application.App.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := application.App.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

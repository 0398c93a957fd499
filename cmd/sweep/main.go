package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Runs the status sweep once, optionally as of another day. Payment dates
// are never modified.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	asOf := flag.String("date", "", "Evaluate as of this day (YYYY-MM-DD); defaults to today in COHAB_TIMEZONE")
	dryRun := flag.Bool("dry-run", false, "Print the roster without storing the sweep report")
	flag.Parse()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}
	clock := domain.NewClock(loc, nil)
	if *asOf != "" {
		day, err := time.Parse(domain.DateLayout, *asOf)
		if err != nil {
			fmt.Println("Usage: sweep [-date YYYY-MM-DD] [-dry-run]")
			os.Exit(1)
		}
		clock = domain.FixedClock(day)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer redisClient.Close()

	studentRepo := repository.NewMongoStudentRepository(client.Database(cfg.MongoDB.Database))
	reports := repository.NewRedisCacheRepository(redisClient)
	qr := service.NewQRService(cfg.StudentLinkBase())
	students := service.NewStudentService(studentRepo, clock, qr, nil, reports)

	entries, today, err := students.Roster(ctx)
	if err != nil {
		log.Fatalf("Failed to evaluate students: %v", err)
	}

	fmt.Printf("📅 Status as of %s\n\n", today.Format(domain.DateLayout))
	for _, e := range entries {
		fmt.Printf("   %-10s %-30s %-12s %s\n", e.Student.ID, e.Student.Name, e.Category, e.Label)
	}

	summary := domain.Summarize(entries, clock.Now(), today)
	fmt.Printf("\n📊 %d students: %d up to date, %d due soon, %d overdue, %d without payment, %d with errors\n",
		summary.Total,
		summary.Counts[domain.CategoryUpToDate],
		summary.Counts[domain.CategoryDueSoon],
		summary.Counts[domain.CategoryOverdue],
		summary.Counts[domain.CategoryNoPayment],
		summary.Counts[domain.CategoryError],
	)

	if *dryRun {
		fmt.Println("🏃 DRY RUN - sweep report not stored")
		return
	}
	if err := reports.SaveSweepReport(ctx, summary); err != nil {
		log.Fatalf("Failed to store sweep report: %v", err)
	}
	fmt.Println("✓ Sweep report stored")
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Creates the first admin account from ADMIN_EMAIL / ADMIN_PASSWORD / ADMIN_NAME.
// Does nothing when an admin already exists.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	userRepo := repository.NewMongoUserRepository(db)
	tokenService := service.NewTokenService(cfg.JWT, repository.NewMongoRefreshTokenRepository(db), userRepo)
	authService := service.NewAuthService(userRepo, repository.NewMongoStudentRepository(db), tokenService, cfg.ManagementKey)

	user, created, err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}
	if !created {
		log.Printf("Admin already exists: %s", user.Email)
		return
	}
	log.Printf("✓ Admin created: %s (%s)", user.Email, user.ID)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	email := flag.String("email", cfg.Admin.Email, "Account email (defaults to ADMIN_EMAIL)")
	password := flag.String("password", os.Getenv("NEW_ADMIN_PASSWORD"), "New password (defaults to NEW_ADMIN_PASSWORD)")
	create := flag.Bool("create", true, "Create an admin with this email when none exists")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Usage: reset_admin_password -email <EMAIL> -password <PASSWORD> [-create=false]")
		fmt.Println("\nResets the password of an account and revokes all its sessions.")
		os.Exit(1)
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

	user, err := authService.ResetPassword(ctx, *email, *password)
	switch {
	case err == nil:
		fmt.Printf("✓ Password updated for %s\n", user.Email)
	case errors.Is(err, domain.ErrNotFound) && *create:
		fmt.Printf("⚠️  No account with email %s, creating admin...\n", *email)
		user, err = authService.CreateUser(ctx, service.CreateUserInput{
			Email:    *email,
			Password: *password,
			Name:     cfg.Admin.Name,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		fmt.Printf("✓ Admin created: %s\n", user.Email)
	default:
		log.Fatalf("Failed to reset password: %v", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/model"
	"github.com/stashd/stashd/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

// bootstrap-user creates an account directly in the database, for
// fresh deployments where no one can sign up through the UI yet.
func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@stashd.local", "Account email")
		fullname    = flag.String("fullname", "Admin", "Account full name")
		password    = flag.String("password", "", "Account password (required)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	if existing, err := repo.GetUserByEmail(ctx, *email); err == nil {
		fmt.Fprintf(os.Stderr, "account %s already exists (id %s)\n", *email, existing.ID)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		FullName:     *fullname,
		Email:        *email,
		PasswordHash: hash,
		Avatar:       model.AvatarPlaceholder,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	switch *format {
	case "json":
		out := output{UserID: user.ID, Email: user.Email, FullName: user.FullName}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("user_id:  %s\n", user.ID)
		fmt.Printf("email:    %s\n", user.Email)
		fmt.Printf("fullname: %s\n", user.FullName)
	}
}

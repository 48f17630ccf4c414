package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	cfg "github.com/example/vicere/internal/config"
	"github.com/example/vicere/internal/devserver"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
	slog.SetDefault(logger)

	s := devserver.New(devserver.Options{
		Secret:             []byte(c.JwtSecret),
		ConsumerKey:        c.ConsumerKey,
		ConsumerSecret:     c.ConsumerSecret,
		RateLimitPerMinute: 120,
		Logger:             logger,
	})
	user, err := s.Users.Add(devserver.User{
		Login:       "dev",
		Email:       c.DevUserEmail,
		DisplayName: "Dev User",
		HasCustomer: true,
		FirstName:   "Dev",
		LastName:    "User",
		CPF:         "529.982.247-25",
		Points:      100,
	}, c.DevUserPassword)
	if err != nil {
		log.Fatalf("seeding dev user: %v", err)
	}
	logger.Info("seeded user", slog.Int64("id", user.ID), slog.String("email", user.Email))

	srv := &http.Server{Handler: s.Handler(), Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		fmt.Println("Starting Vicere dev server on", c.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed:%+v", err)
	}
	fmt.Println("Server exited properly")
}

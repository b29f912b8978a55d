package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otp-auth-api/internal/config"
	"github.com/otp-auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/otp-auth-api/internal/infrastructure/google"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
	s3infra "github.com/otp-auth-api/internal/infrastructure/s3"
	"github.com/otp-auth-api/internal/infrastructure/smtp"
	"github.com/otp-auth-api/internal/infrastructure/sns"
	transporthttp "github.com/otp-auth-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// The cookie codec cannot run without a signing secret.
	codec, err := jwtinfra.NewCodec(cfg.SessionSecret, cfg.IsProduction())
	if err != nil {
		log.Fatalf("session codec: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// S3 store for avatars.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Google sign-in (optional — routes fall back to not-implemented).
	var googleVerifier *googleinfra.Verifier
	if cfg.GoogleClientID != "" {
		googleVerifier = googleinfra.NewVerifier(cfg.GoogleClientID)
	} else {
		log.Println("WARN: GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		Codec:            codec,
		GoogleVerifier:   googleVerifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

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

	"github.com/go-prayer-verify/internal/config"
	"github.com/go-prayer-verify/internal/infrastructure/awscfg"
	"github.com/go-prayer-verify/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-prayer-verify/internal/infrastructure/jwt"
	"github.com/go-prayer-verify/internal/infrastructure/smtp"
	"github.com/go-prayer-verify/internal/infrastructure/sns"
	transporthttp "github.com/go-prayer-verify/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	awsCfg, err := awscfg.Load(ctx, cfg, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// JWT provider (optional; admin routes are disabled without it).
	var tokenVerifier *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		tokenVerifier = p
	} else {
		log.Printf("WARN: JWT provider not available, admin routes disabled: %v", err)
	}

	mailer, err := smtp.NewMailer(cfg)
	if err != nil {
		log.Fatalf("smtp: %v", err)
	}

	// SNS publisher (optional; events are dropped without a topic).
	var publisher sns.EventPublisher = sns.Noop{}
	if cfg.SNSTopicARN != "" {
		snsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
		if err != nil {
			log.Fatalf("aws config for sns: %v", err)
		}
		publisher = sns.NewPublisher(sns.NewClient(snsCfg, cfg.AWSEndpointURL), cfg.SNSTopicARN)
	}

	deps := &transporthttp.Deps{
		CodeRepo:    dynamo.NewCodeRepo(dynamoClient, cfg.DynamoTables.VerificationCodes),
		SettingRepo: dynamo.NewSettingRepo(dynamoClient, cfg.DynamoTables.AdminSettings),
		Mailer:      mailer,
		Publisher:   publisher,
	}
	if tokenVerifier != nil {
		deps.TokenVerifier = tokenVerifier
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

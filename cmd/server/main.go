package main

import (
	"context"
	"time"

	"replydesk/internal/config"
	"replydesk/internal/database"
	"replydesk/internal/dispatch"
	"replydesk/internal/generator"
	"replydesk/internal/notify"
	"replydesk/internal/relay"
	"replydesk/internal/server"
	"replydesk/internal/similarity"
	"replydesk/internal/store"
)

const queueSize = 64

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := cfg.SetupLogger()

	// Initialize database connection and ensure the schema exists
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	logger.Info().Msg("Database connection established successfully")

	st := store.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.CreateMessagesTable(ctx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("Schema bootstrap failed")
	}
	cancel()

	// Similarity engine over template exchanges
	engine := similarity.NewEngine(
		similarity.NewLexicalVectorizer(similarity.DefaultWeights()),
		cfg.DisplayThreshold,
		cfg.AutoResponseThreshold,
	)

	// Generation backend and orchestrator
	backend := generator.NewClient(cfg.BackendURL, cfg.Model)
	gen := generator.New(backend, st, cfg.SystemPrompt,
		time.Duration(cfg.GenerationTimeout)*time.Second, logger)

	// Outbound relay and failure escalation
	outbound := relay.New(cfg.RelayURL, time.Duration(cfg.RelayTimeout)*time.Second, logger)
	escalator := notify.New(cfg.SendGridAPIKey, cfg.EscalationEmail)

	// Processing worker
	dispatcher := dispatch.New(st, engine, gen, outbound, escalator,
		cfg.AutoGenerate, queueSize, logger)
	dispatcher.Start()

	// Create and initialize server
	srv := server.New(cfg, st, engine, gen, outbound, dispatcher, logger)
	srv.Initialize()

	// Start server. Fatal exits the process, so drain the worker first.
	if err := srv.Start(); err != nil {
		dispatcher.Stop()
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
	dispatcher.Stop()
}

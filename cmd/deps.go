package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"
	"tradechat/api"
	"tradechat/internal"
	"tradechat/internal/app"
	"tradechat/internal/repository"
	"tradechat/internal/service"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func CloseDependencies(handler *api.ApiHandler) {
	if handler.Db == nil {
		return
	}
	err := handler.Db.Close()
	if err != nil {
		log.Fatalf("failed to close db: %v", err)
	}
}

func InitializeDependencies() (*api.ApiHandler, error) {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	secrets, err := internal.LoadSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	cfg := secrets.Trading

	var exchangeRepository repository.ExchangeRepository
	switch strings.ToLower(cfg.Broker) {
	case "alpaca":
		exchangeRepository = repository.NewAlpacaRepository(secrets.Alpaca.ApiKey, secrets.Alpaca.ApiSecret, secrets.Alpaca.Endpoint)
	case "gateio":
		exchangeRepository = repository.NewGateIoRepository(secrets.GateIo.ApiKey, secrets.GateIo.ApiSecret, secrets.GateIo.BaseUrl)
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}

	priceService := service.NewPriceService(exchangeRepository)
	positionService := service.NewPositionService(exchangeRepository, priceService, cfg.QuoteAsset)
	executionService := service.NewExecutionService(
		exchangeRepository,
		positionService,
		priceService,
		service.ExecutionConfig{
			QuoteAsset:            cfg.QuoteAsset,
			MinOrderNotional:      cfg.MinOrderNotional,
			MaxUnconfirmedSymbols: cfg.MaxUnconfirmedSymbols,
			MaxUnconfirmedTotal:   cfg.MaxUnconfirmedTotal,
			ConfirmationPolicy:    cfg.ConfirmationPolicy,
			DryRun:                cfg.DryRun,
		},
	)
	dialogService := service.NewDialogService(time.Duration(cfg.ContextTTLSeconds) * time.Second)

	var gptRepository repository.GptRepository
	if secrets.ChatGPTApiKey != "" {
		gptRepository, err = repository.NewGptRepository(secrets.ChatGPTApiKey)
		if err != nil {
			return nil, err
		}
	}

	var journalRepository repository.JournalRepository
	if cfg.JournalPath != "" {
		journalRepository = repository.NewCsvJournalRepository(cfg.JournalPath)
	}

	var dbConn *sql.DB
	var orderLogRepository repository.OrderLogRepository
	if secrets.Db != nil {
		dbConn, err = sql.Open("postgres", secrets.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		orderLogRepository = repository.NewOrderLogRepository(dbConn)
	}

	chatHandler := app.NewChatHandler(
		service.NewIntentService(),
		executionService,
		positionService,
		dialogService,
		gptRepository,
		journalRepository,
		orderLogRepository,
	)

	return &api.ApiHandler{
		Db:              dbConn,
		ChatHandler:     chatHandler,
		PositionService: positionService,
		SigningSecret:   secrets.ApiSigningSecret,
	}, nil
}

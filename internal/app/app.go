// Package app builds the object graph shared by the Lambda entrypoint and the
// local HTTP server.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"seafood-agent/handler"
	"seafood-agent/internal/catalog"
	"seafood-agent/internal/integrations/openai"
	"seafood-agent/internal/integrations/paramstore"
	"seafood-agent/internal/intent"
	"seafood-agent/internal/ledger"
	"seafood-agent/internal/quote"
	"seafood-agent/internal/repository"
	"seafood-agent/internal/store"
	"seafood-agent/internal/usecase"
)

type App struct {
	Handler *handler.Handler
	// Ledger is nil when the relational store could not be reached at start.
	Ledger *ledger.Ledger
}

// New wires every component. A relational store that cannot be opened is
// logged and left out; the assistant then answers data commands with a
// not-connected reply.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*App, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(cfg.AWSMaxAttempts))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	contexts, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable, cfg.ContextTTL)
	if err != nil {
		return nil, fmt.Errorf("create state client: %w", err)
	}
	llm, err := openai.NewClient(params, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}
	router, err := intent.NewRouter(llm, log, intent.WithTimeout(cfg.ClassifyTimeout))
	if err != nil {
		return nil, fmt.Errorf("create intent router: %w", err)
	}

	backend, err := openBackend(cfg, log)
	if err != nil {
		log.Error("relational store unavailable", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	assistant, err := usecase.NewAssistant(contexts, router, backend, log, usecase.Config{
		MaxContextItems:  cfg.MaxContextItems,
		MaxMessageLength: cfg.MaxMessageLength,
		ShareBaseURL:     cfg.ShareBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	h, err := handler.NewHandler(assistant, log)
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}
	return &App{Handler: h, Ledger: backend.Ledger}, nil
}

func openBackend(cfg Config, log *zap.Logger) (usecase.Backend, error) {
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return usecase.Backend{}, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return usecase.Backend{}, err
		}
	}
	cat, err := catalog.New(db, catalog.NewCache(cfg.CatalogTTL), log)
	if err != nil {
		return usecase.Backend{}, err
	}
	led, err := ledger.New(db, log)
	if err != nil {
		return usecase.Backend{}, err
	}
	quotes, err := quote.NewService(db, cat, log)
	if err != nil {
		return usecase.Backend{}, err
	}
	return usecase.Backend{Store: db, Ledger: led, Quotes: quotes, Catalog: cat}, nil
}

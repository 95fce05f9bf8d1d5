package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/scholargraph/backend/internal/util"
	"github.com/scholargraph/backend/pkg/ai"
	oai "github.com/scholargraph/backend/pkg/ai/ollama"
	gai "github.com/scholargraph/backend/pkg/ai/openai"
	"github.com/scholargraph/backend/pkg/common"
	"github.com/scholargraph/backend/pkg/logger"
)

type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	AiClient ai.GraphAIClient
}

type AppContext struct {
	echo.Context
	App *App
}

// NewAIClient builds the text-analysis client selected by AI_ADAPTER.
func NewAIClient() ai.GraphAIClient {
	if util.GetEnv("AI_CHAT_EXTRACT_MODEL") == "" {
		logger.Fatal("Invalid AI configuration", "err", &common.ConfigurationError{Key: "AI_CHAT_EXTRACT_MODEL"})
	}

	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			BaseURL:         util.GetEnv("AI_CHAT_URL"),
			ApiKey:          util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
			ChatURL:         util.GetEnv("AI_CHAT_URL"),
			ChatKey:         util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	aiClient ai.GraphAIClient,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn:   db,
				Queue:    queue,
				AiClient: aiClient,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

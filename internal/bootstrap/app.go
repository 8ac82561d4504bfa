package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdfchat/internal/ai"
	"pdfchat/internal/app"
	"pdfchat/internal/chunker"
	"pdfchat/internal/config"
	"pdfchat/internal/ingest"
	"pdfchat/internal/metrics"
	"pdfchat/internal/model"
	"pdfchat/internal/platform/mysql"
	"pdfchat/internal/platform/rabbitmq"
	"pdfchat/internal/platform/redis"
	"pdfchat/internal/store"
	transporthttp "pdfchat/internal/transport/http"
	"pdfchat/internal/transport/http/handler"
	"pdfchat/internal/vectorindex"
	"pdfchat/internal/worker"
)

// App wires configuration, storage, broker and the HTTP router together.
type App struct {
	Config *config.Config
	Router *gin.Engine

	db          *gorm.DB
	redisClient *redisv9.Client
	rabbitConn  *amqp.Connection
	persistWkr  *worker.EventPersistWorker
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	if cfg.App.GinMode != "" {
		gin.SetMode(cfg.App.GinMode)
	}

	db, err := mysql.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("connect mysql failed: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.ConversationTurn{},
		&model.QueryEvent{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("connect redis failed: %w", err)
	}

	eventRepo := metrics.NewEventRepository(db)

	a := &App{
		Config:      cfg,
		db:          db,
		redisClient: redisClient,
	}

	var recorder metrics.Recorder
	if cfg.Metrics.Broker {
		conn, err := rabbitmq.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq failed: %w", err)
		}
		a.rabbitConn = conn

		recorder = metrics.NewQueueRecorder(rabbitmq.NewEventPublisher(conn, cfg.RabbitMQ.EventQueue))

		wkr := worker.NewEventPersistWorker(conn, eventRepo, cfg.RabbitMQ.EventQueue)
		if err := wkr.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("start event persist worker failed: %w", err)
		}
		a.persistWkr = wkr
	} else {
		recorder = metrics.NewDirectRecorder(eventRepo)
	}

	client := ai.NewOpenAICompatibleClient(cfg.LLM.MaxRetries)
	embedCfg := ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
		Timeout: time.Duration(cfg.LLM.EmbeddingTimeoutSeconds) * time.Second,
	}
	chatCfg := ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.GenerationTimeoutSeconds) * time.Second,
	}
	gateway := ai.NewGateway(client, embedCfg, cfg.Ingest.EmbeddingBatchSize)
	chat := ai.NewChat(client, chatCfg)

	index := vectorindex.NewSQLStore(db)
	splitter := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	pipeline := ingest.NewPipeline(splitter, gateway, index)

	historyCache := store.NewHistoryCache(redisClient, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	conversations := store.NewCachedConversationStore(store.NewSQLConversationStore(db), historyCache)

	retriever := app.NewRetriever(gateway, index, cfg.Ingest.DefaultTopK)
	synthesizer := app.NewSynthesizer(chat, cfg.LLM.MaxContextTurns)
	querySvc := app.NewQueryService(retriever, synthesizer, conversations, recorder)

	aggregator := metrics.NewAggregator(eventRepo)

	requestTimeout := time.Duration(cfg.App.RequestTimeoutSeconds) * time.Second
	a.Router = transporthttp.NewRouter(transporthttp.RouterDeps{
		JWTSecret: cfg.Auth.JWTSecret,
		Query:     handler.NewQueryHandler(querySvc, requestTimeout),
		History:   handler.NewHistoryHandler(querySvc),
		Documents: handler.NewDocumentsHandler(pipeline, index, cfg.Ingest.Dir),
		Metrics:   handler.NewMetricsHandler(aggregator),
	})

	return a, nil
}

func (a *App) Close() {
	if a.persistWkr != nil {
		a.persistWkr.Close()
	}
	if a.rabbitConn != nil {
		if err := a.rabbitConn.Close(); err != nil {
			log.Printf("close rabbitmq connection: %v", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			log.Printf("close redis client: %v", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("close mysql connection: %v", err)
			}
		}
	}
}

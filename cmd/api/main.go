package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/internal/env"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/lexicon"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/matcher"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/metrics"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/parser"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/queue"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/ratelimiter"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/repo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/resolver"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/source"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/memory"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/mongo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/suggest"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/worker"
)

const version = "0.1.0"

//	@title			School Menu Allergen Converter
//	@description	API for converting school menus into allergen-safe variants

//	@contact.name	API Support

// @BasePath	/api/v1
func main() {
	_ = godotenv.Load()

	cfg := config{
		addr:   env.GetString("ADDR", ":8080"),
		apiURL: env.GetString("EXTERNAL_URL", "localhost:8080"),
		env:    env.GetString("ENV", "development"),
		rateLimiter: ratelimiter.Config{
			RequestsPerTimeFrame: env.GetInt("RATELIMITER_REQUESTS_COUNT", 20),
			TimeFrame:            time.Second * 5,
			Enabled:              env.GetBool("RATE_LIMITER_ENABLED", true),
		},
		mongo: mongoConfig{
			URI:      env.GetString("MONGO_URI", ""),
			Database: env.GetString("MONGO_DATABASE", "menu_converter"),
			Timeout:  time.Second * 10,
		},
		rabbitMQ: rabbitMQConfig{
			URL:           env.GetString("RABBITMQ_URL", ""),
			MaxRetries:    env.GetInt("RABBITMQ_MAX_RETRIES", 3),
			RetryDelay:    time.Second * 2,
			PrefetchCount: env.GetInt("RABBITMQ_PREFETCH_COUNT", 10),
		},
		suggestion: suggestionConfig{
			apiKey:     env.GetString("OPENAI_API_KEY", ""),
			baseURL:    env.GetString("OPENAI_BASE_URL", ""),
			model:      env.GetString("OPENAI_MODEL", ""),
			maxRetries: env.GetInt("SUGGESTION_MAX_RETRIES", suggest.DefaultMaxRetries),
			retryDelay: time.Duration(env.GetInt("SUGGESTION_RETRY_DELAY_MS", 2000)) * time.Millisecond,
			cacheTTL:   time.Duration(env.GetInt("SUGGESTION_CACHE_TTL_MINUTES", 24*60)) * time.Minute,
		},
		resolver: resolver.Config{
			BatchSize:      env.GetInt("SUGGESTION_BATCH_SIZE", 10),
			MaxConcurrency: env.GetInt("SUGGESTION_MAX_CONCURRENCY", 4),
		},
		redisAddr:    env.GetString("REDIS_ADDR", ""),
		sheetsAPIKey: env.GetString("GOOGLE_SHEETS_API_KEY", ""),
		lexiconPath:  env.GetString("LEXICON_PATH", ""),
	}

	// logger
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	// rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// storage: mongo when configured, in-memory otherwise
	var storage *mongo.Storage
	var ruleRepo repo.RuleRepository
	var taskRepo repo.TaskRepository
	var menuRepo repo.MenuRepository

	if cfg.mongo.URI != "" {
		var err error
		storage, err = mongo.New(mongo.Config{
			URI:      cfg.mongo.URI,
			Database: cfg.mongo.Database,
			Timeout:  cfg.mongo.Timeout,
		})
		if err != nil {
			logger.Fatalw("failed to connect to MongoDB", "error", err)
		}

		logger.Info("connected to MongoDB")

		// create indexes
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := storage.CreateIndexes(ctx); err != nil {
			logger.Warnw("failed to create indexes", "error", err)
		} else {
			logger.Info("MongoDB indexes created successfully")
		}

		ruleRepo = mongo.NewRuleRepository(storage.Database())
		taskRepo = mongo.NewTaskRepository(storage.Database())
		menuRepo = mongo.NewMenuRepository(storage.Database())
	} else {
		logger.Warn("MONGO_URI not set, using in-memory stores; data will not survive a restart")
		ruleRepo = memory.NewRuleStore()
		taskRepo = memory.NewTaskStore()
		menuRepo = memory.NewMenuStore()
	}

	// rabbitmq broker: async conversions need it, everything else works without
	var broker queue.Broker
	if cfg.rabbitMQ.URL != "" {
		rabbit, err := queue.NewRabbitMQBroker(queue.Config{
			URL:           cfg.rabbitMQ.URL,
			MaxRetries:    cfg.rabbitMQ.MaxRetries,
			RetryDelay:    cfg.rabbitMQ.RetryDelay,
			PrefetchCount: cfg.rabbitMQ.PrefetchCount,
		})
		if err != nil {
			logger.Fatalw("failed to connect to RabbitMQ", "error", err)
		}

		logger.Info("connected to RabbitMQ")
		broker = rabbit
	} else {
		logger.Warn("RABBITMQ_URL not set, async conversions are disabled")
	}

	// allergen lexicon
	lex := lexicon.Default()
	if cfg.lexiconPath != "" {
		loaded, err := lexicon.Load(cfg.lexiconPath)
		if err != nil {
			logger.Fatalw("failed to load lexicon", "path", cfg.lexiconPath, "error", err)
		}
		lex = loaded
		logger.Infow("lexicon loaded", "path", cfg.lexiconPath)
	}

	// suggestion client
	var suggester suggest.Suggester
	if cfg.suggestion.apiKey != "" {
		client, err := suggest.NewClient(suggest.Config{
			APIKey:     cfg.suggestion.apiKey,
			BaseURL:    cfg.suggestion.baseURL,
			Model:      cfg.suggestion.model,
			MaxRetries: cfg.suggestion.maxRetries,
			RetryDelay: cfg.suggestion.retryDelay,
		}, logger)
		if err != nil {
			logger.Fatalw("failed to create suggestion client", "error", err)
		}
		suggester = client

		if cfg.redisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
			suggester = suggest.NewCached(client, rdb, cfg.suggestion.cacheTTL, logger)
			logger.Infow("suggestion cache enabled", "addr", cfg.redisAddr)
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, menus not fully covered by substitution rules will fail to convert")
	}

	// google sheets source
	var fetcher service.GridFetcher
	if cfg.sheetsAPIKey != "" {
		fetcher = source.NewSheetsFetcher(cfg.sheetsAPIKey)
		logger.Info("Google Sheets source initialized")
	} else {
		logger.Warn("Google Sheets API key not provided, spreadsheet conversions are disabled")
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	menuParser := parser.New(parser.DefaultLayout())
	menuResolver := resolver.New(matcher.New(lex), ruleRepo, suggester, cfg.resolver, logger)

	conversionService := service.NewConversionService(service.Deps{
		Parser:   menuParser,
		Resolver: menuResolver,
		Menus:    menuRepo,
		Tasks:    taskRepo,
		Broker:   broker,
		Fetcher:  fetcher,
		Metrics:  m,
		Logger:   logger,
	})
	ruleService := service.NewRuleService(ruleRepo, logger)

	var conversionWorker *worker.ConversionWorker
	if broker != nil {
		conversionWorker = worker.NewConversionWorker(conversionService, broker, logger)
	}

	app := &application{
		config:            cfg,
		logger:            logger,
		rateLimiter:       rateLimiter,
		storage:           storage,
		broker:            broker,
		registry:          registry,
		conversionService: conversionService,
		ruleService:       ruleService,
		conversionWorker:  conversionWorker,
	}

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/djkgamc/ExcelDataAnalyzer/docs"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/queue"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/ratelimiter"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/resolver"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/service"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/store/mongo"
	"github.com/djkgamc/ExcelDataAnalyzer/internal/worker"
)

type application struct {
	config            config
	logger            *zap.SugaredLogger
	rateLimiter       ratelimiter.Limiter
	storage           *mongo.Storage
	broker            queue.Broker
	registry          *prometheus.Registry
	conversionService *service.ConversionService
	ruleService       *service.RuleService
	conversionWorker  *worker.ConversionWorker
}

type config struct {
	addr         string
	env          string
	apiURL       string
	rateLimiter  ratelimiter.Config
	mongo        mongoConfig
	rabbitMQ     rabbitMQConfig
	suggestion   suggestionConfig
	resolver     resolver.Config
	redisAddr    string
	sheetsAPIKey string
	lexiconPath  string
}

type mongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type rabbitMQConfig struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
}

type suggestionConfig struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	retryDelay time.Duration
	cacheTTL   time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Post("/convert", app.convertHandler)

		r.Post("/conversions", app.createConversionHandler)
		r.Get("/conversions/{task_id}", app.getConversionHandler)

		r.Get("/menus", app.listMenusHandler)
		r.Get("/menus/{menu_id}", app.getMenuHandler)
		r.Delete("/menus/{menu_id}", app.deleteMenuHandler)
		r.Get("/menus/{menu_id}/export", app.exportMenuHandler)

		r.Post("/rules", app.createRuleHandler)
		r.Get("/rules", app.listRulesHandler)
		r.Get("/rules/defaults", app.listDefaultRulesHandler)
		r.Get("/rules/{rule_id}", app.getRuleHandler)
		r.Put("/rules/{rule_id}", app.updateRuleHandler)
		r.Delete("/rules/{rule_id}", app.deleteRuleHandler)

		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	// docs
	docs.SwaggerInfo.Title = "School Menu Allergen Converter"
	docs.SwaggerInfo.Description = "API for converting school menus into allergen-safe variants"
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/api/v1"

	// worker
	if app.conversionWorker != nil {
		if err := app.conversionWorker.Start(); err != nil {
			return fmt.Errorf("failed to start conversion worker: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		if app.conversionWorker != nil {
			app.conversionWorker.Stop()
		}

		if app.storage != nil {
			if err := app.storage.Close(ctx); err != nil {
				app.logger.Errorw("error closing MongoDB", "error", err)
			} else {
				app.logger.Info("MongoDB connection closed gracefully")
			}
		}

		if app.broker != nil {
			if err := app.broker.Close(); err != nil {
				app.logger.Errorw("error closing RabbitMQ", "error", err)
			} else {
				app.logger.Info("RabbitMQ connection closed gracefully")
			}
		}

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server have started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}

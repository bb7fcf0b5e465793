package main

import (
	"fmt"
	"os"

	"github.com/nurpe/trip-settlements/internal/auth"
	"github.com/nurpe/trip-settlements/internal/config"
	"github.com/nurpe/trip-settlements/internal/db"
	"github.com/nurpe/trip-settlements/internal/events"
	"github.com/nurpe/trip-settlements/internal/excel"
	httphandler "github.com/nurpe/trip-settlements/internal/http"
	"github.com/nurpe/trip-settlements/internal/http/middleware"
	"github.com/nurpe/trip-settlements/internal/idgen"
	"github.com/nurpe/trip-settlements/internal/logger"
	"github.com/nurpe/trip-settlements/internal/metrics"
	"github.com/nurpe/trip-settlements/internal/pdf"
	"github.com/nurpe/trip-settlements/internal/repository"
	"github.com/nurpe/trip-settlements/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)
	metrics.Init()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	folios, err := idgen.NewFolioGenerator(cfg.Settlements.NodeID, cfg.Settlements.FolioPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init folio generator")
	}

	publisher := events.NewNoopPublisher()
	if cfg.AMQP.URL != "" {
		dialed, closeFn, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect broker")
		}
		defer func() {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("broker close failed")
			}
		}()
		publisher = dialed
	} else {
		log.Warn().Msg("AMQP_URL not set, status change events are dropped")
	}

	store := repository.NewStore(database)
	settlementService := service.NewSettlementService(store, folios, publisher, log)
	expenseService := service.NewExpenseService(store, settlementService, log)
	exportService := service.NewExportService(store, excel.NewGenerator(), pdf.NewGenerator())

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(settlementService, expenseService, exportService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting settlements service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

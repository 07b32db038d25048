package handlers

import (
	"database/sql"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/repositories"
	"daily-sheet-service/internal/services"
	"daily-sheet-service/internal/validation"
)

// SetupRouter wires repositories, services and handlers over db and mounts
// them under /api.
func SetupRouter(db *sql.DB, cfg *config.Config, draftService *services.DraftService, logger logrus.FieldLogger) http.Handler {
	sheetRepo := repositories.NewSheetRepository(db)
	entryRepo := repositories.NewEntryRepository(db)
	denominationRepo := repositories.NewDenominationRepository(db)

	validator := validation.New(validation.Options{
		RowLimit:  cfg.Sheet.RowLimit,
		LookAhead: cfg.Sheet.LookAhead(),
		LookBack:  cfg.Sheet.LookBack(),
	})
	ledgerService := services.NewLedgerService(db,
		repositories.NewDebtorRepository(db),
		repositories.NewCollectionRepository(db),
		repositories.NewExpenseRepository(db),
	)
	closingService := services.NewClosingService(db, sheetRepo, entryRepo, denominationRepo,
		ledgerService, cfg.Sheet.RowLimit, logger)

	validate := newRequestValidator()
	sheetHandler := NewSheetHandler(services.NewSheetService(db, sheetRepo), closingService, validate, logger)
	entryHandler := NewEntryHandler(
		services.NewEntryService(db, sheetRepo, entryRepo, validator),
		services.NewDenominationService(db, sheetRepo, denominationRepo, validator),
		validate,
		logger,
	)
	reportHandler := NewReportHandler(services.NewReportService(sheetRepo, entryRepo, denominationRepo), logger)
	ledgerHandler := NewLedgerHandler(ledgerService, validate, logger)
	draftHandler := NewDraftHandler(draftService, logger)

	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()

	api.Use(loggingMiddleware(logger))
	if cfg.RateLimit.RPS > 0 {
		api.Use(newIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).middleware)
	}
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/sheets", sheetHandler.CreateOrGet).Methods(http.MethodPost)
	api.HandleFunc("/sheets/{id:[0-9]+}/reconciliation", sheetHandler.Reconciliation).Methods(http.MethodGet)
	api.HandleFunc("/sheets/{id:[0-9]+}/close", sheetHandler.Close).Methods(http.MethodPost)
	api.HandleFunc("/sheets/{id:[0-9]+}", sheetHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/sheets/{date}", sheetHandler.GetByDate).Methods(http.MethodGet)

	api.HandleFunc("/entries", entryHandler.SaveEntries).Methods(http.MethodPost)
	api.HandleFunc("/entries/{sheetId:[0-9]+}", entryHandler.ListEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries/{sheetId:[0-9]+}", entryHandler.DeleteEntries).Methods(http.MethodDelete)

	api.HandleFunc("/denominations", entryHandler.SaveDenominations).Methods(http.MethodPost)
	api.HandleFunc("/denominations/{sheetId:[0-9]+}", entryHandler.ListDenominations).Methods(http.MethodGet)
	api.HandleFunc("/denominations/{sheetId:[0-9]+}", entryHandler.DeleteDenominations).Methods(http.MethodDelete)

	api.HandleFunc("/reports/dates/list", reportHandler.ListDates).Methods(http.MethodGet)
	api.HandleFunc("/reports/range/{start}/{end}", reportHandler.Range).Methods(http.MethodGet)
	api.HandleFunc("/reports/summary/overview", reportHandler.Overview).Methods(http.MethodGet)
	api.HandleFunc("/reports/{sheetId:[0-9]+}/export", reportHandler.Export).Methods(http.MethodGet)
	api.HandleFunc("/reports/{sheetId:[0-9]+}", reportHandler.Generate).Methods(http.MethodGet)

	api.HandleFunc("/debtors", ledgerHandler.CreateDebtor).Methods(http.MethodPost)
	api.HandleFunc("/debtors", ledgerHandler.ListDebtors).Methods(http.MethodGet)
	api.HandleFunc("/debtors/pending", ledgerHandler.PendingDebtors).Methods(http.MethodGet)
	api.HandleFunc("/collections", ledgerHandler.CreateCollection).Methods(http.MethodPost)
	api.HandleFunc("/collections", ledgerHandler.ListCollections).Methods(http.MethodGet)
	api.HandleFunc("/collections/match", ledgerHandler.MatchCollection).Methods(http.MethodPost)
	api.HandleFunc("/expenses", ledgerHandler.CreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses", ledgerHandler.ListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses/{id:[0-9]+}", ledgerHandler.DeleteExpense).Methods(http.MethodDelete)

	api.HandleFunc("/drafts", draftHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{date}", draftHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{date}", draftHandler.Put).Methods(http.MethodPut)
	api.HandleFunc("/drafts/{date}", draftHandler.Delete).Methods(http.MethodDelete)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{requestIDHeader}),
	)
	return cors(router)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

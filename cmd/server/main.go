package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sespe/emendas-bi/internal/api/handlers"
	"github.com/sespe/emendas-bi/internal/api/middleware"
	"github.com/sespe/emendas-bi/internal/auth"
	"github.com/sespe/emendas-bi/internal/dataset"
	"github.com/sespe/emendas-bi/internal/logger"
)

// Defaults for the published amendment sheet. Both are overridable by
// flag or environment.
const (
	defaultSheetID = "1EiFehMxLM5DdIBu5ZCdMv4wQpZCf5fYMVdkUzrnqT5w"
	defaultGID     = "1186502103"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Load .env if present, without failing when missing.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log := logger.New()
		log.Warn().Err(err).Msg("Failed to load .env")
	}

	var (
		port        = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		profileName = flag.String("profile", envOr("DASHBOARD_PROFILE", "painel"), "schema profile: painel or compacto")
		sheetID     = flag.String("sheet-id", envOr("SHEET_ID", defaultSheetID), "Google spreadsheet ID")
		gid         = flag.String("gid", envOr("SHEET_GID", defaultGID), "sheet tab GID for the CSV export")
		csvURL      = flag.String("csv-url", os.Getenv("CSV_URL"), "full CSV export URL (overrides -sheet-id/-gid)")
		sheetsKey   = flag.String("sheets-key", os.Getenv("SHEETS_SERVICE_ACCOUNT"), "service account key file; when set, read via the Sheets API instead of the CSV export")
		sheetRange  = flag.String("sheet-range", envOr("SHEET_RANGE", "Página1"), "sheet name or A1 range for the Sheets API source")
		credentials = flag.String("credentials", envOr("CREDENTIALS_FILE", "credentials.json"), "path to the credentials JSON file")
		secrets     = flag.String("secrets", os.Getenv("SECRETS_FILE"), "path to a TOML secrets file with a [credentials] section")
		cacheTTL    = flag.Duration("cache-ttl", dataset.DefaultCacheTTL, "dataset cache time-to-live")
	)
	flag.Parse()

	log := logger.New()

	profile, err := dataset.ProfileByName(*profileName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid profile")
	}

	ctx := context.Background()

	var source dataset.Source
	if *sheetsKey != "" {
		sheetsSource, err := dataset.NewSheetsSource(ctx, *sheetsKey, *sheetID, *sheetRange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Sheets API source")
		}
		source = sheetsSource
	} else if *csvURL != "" {
		source = &dataset.CSVSource{URL: *csvURL}
	} else {
		source = dataset.NewCSVSource(*sheetID, *gid)
	}

	loader := dataset.NewLoader(source, profile, *cacheTTL, log)
	store := auth.NewStore(*credentials, *secrets, log)
	sessions := auth.NewSessions()

	authHandler := handlers.NewAuthHandler(store, sessions, log)
	dashboardHandler := handlers.NewDashboardHandler(loader, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHandler.Logout(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.Handle("/api/me", middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			authHandler.Me(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Dashboard endpoints, all behind the session gate.
	dashboard := http.NewServeMux()
	dashboard.HandleFunc("/api/dashboard/state", methodHandler(http.MethodGet, dashboardHandler.State))
	dashboard.HandleFunc("/api/dashboard/filters", methodHandler(http.MethodPost, dashboardHandler.UpdateFilter))
	dashboard.HandleFunc("/api/dashboard/filters/reset", methodHandler(http.MethodPost, dashboardHandler.ResetFilters))
	dashboard.HandleFunc("/api/dashboard/data", methodHandler(http.MethodGet, dashboardHandler.Data))
	dashboard.HandleFunc("/api/dashboard/aggregate", methodHandler(http.MethodGet, dashboardHandler.Aggregate))
	dashboard.HandleFunc("/api/dashboard/timeseries", methodHandler(http.MethodGet, dashboardHandler.TimeSeries))
	dashboard.HandleFunc("/api/dashboard/crosstab", methodHandler(http.MethodGet, dashboardHandler.Crosstab))
	dashboard.HandleFunc("/api/dashboard/execution", methodHandler(http.MethodGet, dashboardHandler.Execution))
	dashboard.HandleFunc("/api/dashboard/export", methodHandler(http.MethodGet, dashboardHandler.Export))
	mux.Handle("/api/dashboard/", middleware.RequireAuth(dashboard))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.WithSession(sessions)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", *port).
			Str("profile", profile.Name).
			Msg("Starting dashboard server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func methodHandler(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

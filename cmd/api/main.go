// Command api serves the Google Drive sales ingest endpoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/drive"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/ingest"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-forecast/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Server.Mode, cfg.App.LogLevel)

	driveService, err := drive.NewService(context.Background(), cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	store := postgres.NewStore(db)
	importer := ingest.NewImporter(store.Products, store.Sales)
	ingestService := drive.NewIngestService(driveService, importer, cfg.App.UploadDir)

	r := mux.NewRouter()
	drive.NewHandler(driveService, ingestService).RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	logger.Log.Info().Str("addr", addr).Msg("Drive ingest server starting")
	if err := srv.ListenAndServe(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Drive ingest server stopped")
	}
}

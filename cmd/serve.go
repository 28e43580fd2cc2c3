package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/altiore-conseil/veille-cli/internal/generate"
	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scans and signal review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		signals := store.NewSignalStore(env.KV)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/scan", func(w http.ResponseWriter, req *http.Request) {
			report, err := env.Scanner.Run(req.Context())
			if err != nil {
				zap.L().Error("api scan failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		r.Post("/scan/{watchlistID}", func(w http.ResponseWriter, req *http.Request) {
			rec, err := env.Scanner.ScanOne(req.Context(), chi.URLParam(req, "watchlistID"))
			if err != nil {
				zap.L().Error("api single scan failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Post("/signals/{id}/generate", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			rec, err := signals.Get(req.Context(), id)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}

			gen := generate.New(env.LLM,
				generate.WithModel(cfg.LLM.Model),
				generate.WithMaxTokens(cfg.LLM.MaxTokens),
			)
			content, err := gen.GenerateApproach(req.Context(), *rec)
			if err != nil {
				zap.L().Error("api generate failed", zap.String("id", id), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if err := signals.AttachGeneratedContent(req.Context(), id, *content); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, content)
		})

		r.Get("/signals", func(w http.ResponseWriter, req *http.Request) {
			records, err := signals.Load(req.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if records == nil {
				records = []model.SignalRecord{}
			}
			writeJSON(w, http.StatusOK, records)
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port(servePort)),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func port(flag int) int {
	if flag != 0 {
		return flag
	}
	return cfg.Server.Port
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

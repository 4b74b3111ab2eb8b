package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/monitoring"
	"github.com/regdesk/circular-cli/internal/pipeline"
	"github.com/regdesk/circular-cli/internal/store"
)

var serveAddr string

// triggerFunc launches one pipeline run for a pre-created run row. The
// serve handler calls it in a goroutine; tests substitute their own. A
// nil persist leaves the configured persistence gate in place.
type triggerFunc func(ctx context.Context, runID string, pages []int, downloadDir string, persist *bool)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow trigger server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, cfg.Download.Dir)
		if err != nil {
			return err
		}
		defer env.Close()

		// Runs triggered over HTTP outlive the request; they stop only
		// when the server itself shuts down.
		runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
		defer cancelRuns()

		trigger := func(_ context.Context, runID string, pages []int, dir string, persist *bool) {
			var opts []pipeline.RunOption
			if persist != nil {
				opts = append(opts, pipeline.WithPersist(*persist))
			}
			if _, err := env.Pipeline.RunWithID(runCtx, runID, pages, dir, opts...); err != nil {
				zap.L().Error("triggered run failed",
					zap.String("run_id", runID),
					zap.Error(err),
				)
				markRunFailed(context.WithoutCancel(runCtx), env.Store, runID, err)
			}
		}

		handler := newServeHandler(env.Store, cfg.Download.Dir, trigger)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.Store),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			cancelRuns()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newServeHandler builds the HTTP routes over the store and trigger.
func newServeHandler(st store.Store, defaultDir string, trigger triggerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/workflow", func(r chi.Router) {
		r.Post("/trigger", handleTrigger(st, defaultDir, trigger))
		r.Get("/status/{runID}", handleStatus(st))
		r.Get("/runs", handleListRuns(st))
		r.Delete("/runs", handleClearRuns(st))
		r.Get("/stats", handleStats(st))
	})

	return r
}

func handleTrigger(st store.Store, defaultDir string, trigger triggerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Pages       []int  `json:"pages"`
			DownloadDir string `json:"download_dir"`
			Persist     *bool  `json:"persist"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Pages) == 0 {
			req.Pages = []int{1}
		}
		dir := req.DownloadDir
		if dir == "" {
			dir = defaultDir
		}

		runID := model.NewRunID()
		if _, err := st.CreateRun(r.Context(), runID, req.Pages, dir); err != nil {
			zap.L().Error("trigger: create run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create run")
			return
		}

		go trigger(r.Context(), runID, req.Pages, dir, req.Persist)

		writeJSON(w, http.StatusAccepted, map[string]any{
			"run_id": runID,
			"status": "accepted",
			"pages":  req.Pages,
		})
	}
}

// markRunFailed closes out the run row when the pipeline never reached
// finalization, so the run does not stay running forever.
func markRunFailed(ctx context.Context, st store.Store, runID string, cause error) {
	err := st.CompleteRun(ctx, runID, model.RunStatusFailed,
		[]string{cause.Error()}, nil)
	if err != nil {
		zap.L().Error("failed to record run failure",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

func handleStatus(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		filter := store.RunFilter{
			Status: model.RunStatus(r.URL.Query().Get("status")),
			Limit:  limit,
		}

		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
	}
}

func handleClearRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := st.ClearRuns(r.Context())
		if err != nil {
			zap.L().Error("clear runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to clear runs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
	}
}

func handleStats(st store.Store) http.HandlerFunc {
	collector := monitoring.NewCollector(st)
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := collector.Collect(r.Context(), 50)
		if err != nil {
			zap.L().Error("stats failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to collect stats")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotsmith/internal/catalog"
	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/internal/push"
	"github.com/sells-group/lotsmith/internal/session"
	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

// maxArchiveBytes bounds catalog uploads.
const maxArchiveBytes = 256 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srvState := &serverState{
			ctx:         ctx,
			sessions:    make(map[string]*session.Session),
			newEnricher: func() session.Enricher { return buildEnricher(cfg) },
			sessionCfg:  sessionConfig(cfg),
			am:          buildAMClient(cfg),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(srvState),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serverState holds what the HTTP handlers share: the live sessions and the
// wiring needed to create new ones.
type serverState struct {
	ctx context.Context

	mu       sync.Mutex
	sessions map[string]*session.Session

	newEnricher func() session.Enricher
	sessionCfg  session.Config
	am          auctionmethod.Client
}

func (s *serverState) add(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *serverState) get(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// sessionView is the JSON shape returned for session state queries.
type sessionView struct {
	ID      string              `json:"id"`
	Summary model.Summary       `json:"summary"`
	Lots    []model.EnrichedLot `json:"lots"`
}

func buildRouter(s *serverState) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/sessions", s.handleCreateSession)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.withSession(s.handleGetSession))
		r.Post("/pause", s.withSession(s.handlePause))
		r.Post("/resume", s.withSession(s.handleResume))
		r.Post("/stop", s.withSession(s.handleStop))
		r.Get("/export", s.withSession(s.handleExport))
		r.Post("/push", s.withSession(s.handlePush))
		r.Post("/lots/{lot}/edit", s.withSession(s.handleEdit))
		r.Post("/lots/{lot}/rerun", s.withSession(s.handleRerun))
	})

	r.Get("/auctions", func(w http.ResponseWriter, r *http.Request) {
		auctions, err := s.am.Auctions(r.Context(), 100)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"auctions": auctions})
	})

	r.Get("/amtest", func(w http.ResponseWriter, r *http.Request) {
		ok, steps := push.Verify(r.Context(), s.am)
		writeJSON(w, http.StatusOK, map[string]any{"ok": ok, "steps": steps})
	})

	return r
}

// withSession resolves the {id} URL param before calling the handler.
func (s *serverState) withSession(h func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h(w, r, sess)
	}
}

func (s *serverState) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	data, err := readArchive(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lots, err := catalog.ParseArchive(data)
	if err != nil {
		if eris.Is(err, catalog.ErrNoTabularFile) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(lots) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "archive contains no lots")
		return
	}

	sess := session.New(uuid.NewString(), lots, s.newEnricher(), s.sessionCfg)
	sess.OnUpdate(func(index int, lot model.EnrichedLot) {
		zap.L().Debug("lot updated",
			zap.String("session", sess.ID),
			zap.String("lot", lot.Original.LotNumber),
			zap.String("status", string(lot.Status)),
		)
	})
	s.add(sess)

	go func() {
		if err := sess.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			zap.L().Error("session run failed",
				zap.String("session", sess.ID),
				zap.Error(err),
			)
		}
	}()

	writeJSON(w, http.StatusCreated, sessionView{
		ID:      sess.ID,
		Summary: sess.Summary(),
		Lots:    sess.Snapshot(),
	})
}

func (s *serverState) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, sessionView{
		ID:      sess.ID,
		Summary: sess.Summary(),
		Lots:    sess.Snapshot(),
	})
}

func (s *serverState) handlePause(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Pause(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *serverState) handleResume(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Resume(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *serverState) handleStop(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *serverState) handleEdit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := sess.Edit(chi.URLParam(r, "lot"), req.Title, req.Description); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "edited"})
}

func (s *serverState) handleRerun(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Rerun(r.Context(), chi.URLParam(r, "lot")); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
}

func (s *serverState) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	out, err := catalog.ExportCSV(sess.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog-enriched.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *serverState) handlePush(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		AuctionID string `json:"auction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuctionID == "" {
		writeError(w, http.StatusBadRequest, "auction_id is required")
		return
	}

	results, err := push.New(s.am).Push(r.Context(), req.AuctionID, sess.Snapshot())
	if err != nil {
		if eris.Is(err, push.ErrNoItems) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	for _, res := range results {
		if !res.Success {
			continue
		}
		if err := sess.MarkPushed(res.LotNumber, res.ItemID); err != nil {
			zap.L().Warn("push: mark pushed failed",
				zap.String("session", sess.ID),
				zap.String("lot", res.LotNumber),
				zap.Error(err),
			)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// readArchive accepts either a multipart upload with an "archive" field or a
// raw zip body.
func readArchive(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxArchiveBytes)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxArchiveBytes); err != nil {
			return nil, eris.Wrap(err, "parse multipart form")
		}
		f, _, err := r.FormFile("archive")
		if err != nil {
			return nil, eris.Wrap(err, "archive field is required")
		}
		defer f.Close() //nolint:errcheck
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read request body")
	}
	if len(data) == 0 {
		return nil, eris.New("request body is empty")
	}
	return data, nil
}

// writeSessionError maps session sentinels onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case eris.Is(err, session.ErrNotRerunnable), eris.Is(err, session.ErrStopped), eris.Is(err, session.ErrNothingPending):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
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

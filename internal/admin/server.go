package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"robotarena-sim/internal/logging"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/sim"
	"robotarena-sim/internal/world"
)

// Server exposes the simulation over HTTP: a status page, a JSON snapshot
// and endpoints that edit the arena or drive remote robots.
type Server struct {
	Sim *sim.Simulator
	tpl *template.Template
	log *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates an admin server controlling s.
func NewServer(s *sim.Simulator) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sim: s, tpl: tpl, log: slog.Default()}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /control/{action}", s.handleControl)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /agents", s.handleAddAgent)
	mux.HandleFunc("PATCH /agents/{id}", s.handleUpdateAgent)
	mux.HandleFunc("DELETE /agents/{id}", s.handleRemoveAgent)
	mux.HandleFunc("POST /obstacles", s.handleAddObstacle)
	mux.HandleFunc("PATCH /obstacles/{id}", s.handleUpdateObstacle)
	mux.HandleFunc("DELETE /obstacles/{id}", s.handleRemoveObstacle)
	mux.HandleFunc("GET /scene", s.handleGetScene)
	mux.HandleFunc("POST /scene", s.handleLoadScene)
	mux.HandleFunc("DELETE /scene", s.handleClearScene)
	return mux
}

// Start serves the admin UI on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.log = logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Info("admin UI listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, errors.New("id must be an integer")
	}
	return id, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.tpl.Execute(w, s.Sim.Snapshot()); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Snapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "start":
		s.Sim.Start()
	case "pause":
		s.Sim.Pause()
	case "resume":
		s.Sim.Resume()
	case "stop":
		s.Sim.Stop()
	case "step":
		if !s.Sim.Step() {
			writeError(w, http.StatusConflict, errors.New("run has terminated"))
			return
		}
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown action "+r.PathValue("action")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": s.Sim.State().String(), "tick": s.Sim.Ticks()})
}

type commandRequest struct {
	Command string `json:"command"`
	Agent   int    `json:"agent,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cmd, ok := world.ParseCommand(req.Command)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown command "+req.Command))
		return
	}
	if req.Agent == 0 {
		writeJSON(w, http.StatusOK, map[string]int{"delivered": s.Sim.SendCommand(cmd)})
		return
	}
	if !s.Sim.SendCommandTo(req.Agent, cmd) {
		writeError(w, http.StatusNotFound, sim.ErrUnknownAgent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"delivered": 1})
}

// mutationStatus maps simulator errors to HTTP status codes.
func mutationStatus(err error) int {
	switch {
	case errors.Is(err, world.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, world.ErrUnknownKind):
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) handleAddAgent(w http.ResponseWriter, r *http.Request) {
	var spec world.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Sim.AddAgent(spec); err != nil {
		writeError(w, mutationStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var u sim.AgentUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.Sim.UpdateAgent(id, u) {
		writeError(w, http.StatusNotFound, sim.ErrUnknownAgent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.Sim.RemoveAgent(id) {
		writeError(w, http.StatusNotFound, sim.ErrUnknownAgent)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddObstacle(w http.ResponseWriter, r *http.Request) {
	var spec world.ObstacleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Sim.AddObstacle(spec); err != nil {
		writeError(w, mutationStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

func (s *Server) handleUpdateObstacle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var u sim.ObstacleUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.Sim.UpdateObstacle(id, u) {
		writeError(w, http.StatusNotFound, sim.ErrUnknownObstacle)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveObstacle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.Sim.RemoveObstacle(id) {
		writeError(w, http.StatusNotFound, sim.ErrUnknownObstacle)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	sc := s.Sim.Scene()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, sc)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := scene.Write(w, sc); err != nil {
		s.log.Error("write scene", "err", err)
	}
}

// handleLoadScene accepts scene text. With replace=true the arena is cleared first.
func (s *Server) handleLoadScene(w http.ResponseWriter, r *http.Request) {
	sc, err := scene.Parse(r.Body, s.log)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
	if err := s.Sim.LoadScene(sc, replace); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"records": sc.Len()})
}

func (s *Server) handleClearScene(w http.ResponseWriter, r *http.Request) {
	s.Sim.ClearWorld()
	w.WriteHeader(http.StatusNoContent)
}

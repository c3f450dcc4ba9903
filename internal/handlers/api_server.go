// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/herdgame/herd/internal/game"
	"github.com/herdgame/herd/internal/middleware"
	"github.com/herdgame/herd/internal/session"
)

// Server owns the room store, the session registry, and the prompt catalog,
// and exposes them over HTTP.
type Server struct {
	Rooms    *game.RoomStore
	Sessions *session.Registry
	Prompts  *game.PromptSelector
	Logger   *logrus.Logger
}

// NewServer builds a Server with an empty room store and a prompt catalog
// loaded from PROMPTS_FILE (falling back to the built-in set).
func NewServer(logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
		if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			logger.SetLevel(lvl)
		}
	}
	return &Server{
		Rooms:    game.NewRoomStore(),
		Sessions: session.NewRegistry(),
		Prompts:  loadPromptCatalog(logger),
		Logger:   logger,
	}
}

func loadPromptCatalog(logger *logrus.Logger) *game.PromptSelector {
	if path := os.Getenv("PROMPTS_FILE"); path != "" {
		catalog, err := game.LoadPrompts(path)
		if err != nil {
			logger.Warnf("failed to load prompts from %s, using built-in catalog: %v", path, err)
		} else if len(catalog) > 0 {
			logger.Infof("loaded %d prompts from %s", len(catalog), path)
			return game.NewPromptSelector(catalog)
		}
	}
	return game.NewPromptSelector(nil)
}

// Routes assembles the HTTP surface: a liveness ping at the root and the
// realtime endpoint at /ws, wrapped in request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", PingHandler)
	mux.Handle("/ws", RoomWSHandler(s.Logger, s))
	return middleware.LogMiddleware(s.Logger)(mux)
}

// PingHandler responds to health checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

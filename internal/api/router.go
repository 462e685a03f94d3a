package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the session API. ws, when non-nil, serves /ws/kiosk.
func NewRouter(h *Handlers, ws http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	if ws != nil {
		mux.Handle("/ws/kiosk", ws)
	}

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleAvatarToken(w, r)
	})

	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.HandleCreateSession(w, r)
			return
		case http.MethodGet:
			h.HandleListSessions(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
		// /sessions/{id} | /start | /end | /events | /input
		path := strings.TrimSuffix(r.URL.Path, "/")
		const prefix = "/sessions/"
		if !strings.HasPrefix(path, prefix) {
			http.NotFound(w, r)
			return
		}
		rest := strings.TrimPrefix(path, prefix)
		parts := strings.Split(rest, "/")
		if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
			http.NotFound(w, r)
			return
		}
		id := parts[0]
		tail := ""
		if len(parts) > 1 {
			tail = parts[1]
		}

		method := map[string]string{
			"":       http.MethodGet,
			"start":  http.MethodPost,
			"end":    http.MethodPost,
			"events": http.MethodGet,
			"input":  http.MethodPost,
		}
		want, ok := method[tail]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method != want {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch tail {
		case "":
			h.HandleGetSession(w, r, id)
		case "start":
			h.HandleStartSession(w, r, id)
		case "end":
			h.HandleEndSession(w, r, id)
		case "events":
			h.HandleListEvents(w, r, id)
		case "input":
			h.HandleInput(w, r, id)
		}
	})

	return mux
}

package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
)

// AdminHandler expõe status e reset para ferramentas internas:
//
//	GET  /status?identity=ip:1.2.3.4&class=description[&tier=pro]
//	POST /reset?identity=ip:1.2.3.4&class=description
//
// Não faz autorização; monte atrás de algo confiável.
func AdminHandler(admin application.AdminService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		id, class, ok := adminTarget(w, r)
		if !ok {
			return
		}
		tier := domain.Tier(strings.ToLower(r.URL.Query().Get("tier")))

		st, err := admin.Status(r.Context(), id, class, tier)
		if err != nil {
			logger.Error("rate limit status failed", "identity", id, "class", class, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "status unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, st)
	})
	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		id, class, ok := adminTarget(w, r)
		if !ok {
			return
		}
		if err := admin.Reset(r.Context(), id, class); err != nil {
			logger.Error("rate limit reset failed", "identity", id, "class", class, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reset unavailable"})
			return
		}
		logger.Info("rate limit reset", "identity", id, "class", class)
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func adminTarget(w http.ResponseWriter, r *http.Request) (domain.Identity, domain.ClassKey, bool) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("identity"))
	class := strings.TrimSpace(q.Get("class"))
	if id == "" || class == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity and class are required"})
		return "", "", false
	}
	return domain.Identity(id), domain.ClassKey(class), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

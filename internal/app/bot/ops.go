package bot

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	chirender "github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/subscription-bot/internal/config"
	"github.com/magabrotheeeer/subscription-bot/internal/storage/repository"
)

// newOpsServer собирает служебный HTTP-сервер: проверка живости
// и метрики Prometheus. Наружу он не публикуется.
func newOpsServer(cfg config.OpsServer, db *repository.Storage) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := repository.CheckDatabaseReady(db); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			chirender.JSON(w, r, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		chirender.JSON(w, r, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

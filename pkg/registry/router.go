package registry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/metador-go/ih5/internal/logger"
	"github.com/metador-go/ih5/pkg/catalog"
)

// NewRouter builds the chi router serving the registry's read-only API.
//
// Routes:
//   - GET /health
//   - GET /chains
//   - GET /chains/{name}/manifest
//   - GET /chains/{name}/userblocks
func NewRouter(store *catalog.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handler{store: store}

	r.Get("/health", h.health)
	r.Route("/chains", func(r chi.Router) {
		r.Get("/", h.listChains)
		r.Get("/{name}/manifest", h.manifest)
		r.Get("/{name}/userblocks", h.userBlocks)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("registry request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

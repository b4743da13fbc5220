// Package api exposes the SheetDrop HTTP surface: a chi router, its
// middleware chain and the handlers that translate requests into service
// calls.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/SheetDrop/internal/api/middleware"
	"github.com/dharsanguruparan/SheetDrop/internal/api/response"
	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/config"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/service"
)

// authRateLimit caps credential endpoints per client IP.
const authRateLimit = 20

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Config   *config.Config
	Gate     *auth.Gate
	Auth     *service.AuthService
	Datasets *service.DatasetService
	Charts   *service.ChartService
	Admin    *service.AdminService
	AI       *service.AIService
	// DB is optional; when set, /api/health reports its reachability.
	DB Pinger
}

// Server holds the handlers. Build the router with Routes.
type Server struct {
	cfg      *config.Config
	gate     *auth.Gate
	auth     *service.AuthService
	datasets *service.DatasetService
	charts   *service.ChartService
	admin    *service.AdminService
	ai       *service.AIService
	db       Pinger
	started  time.Time
}

// New constructs a Server.
func New(d Deps) *Server {
	return &Server{
		cfg:      d.Config,
		gate:     d.Gate,
		auth:     d.Auth,
		datasets: d.Datasets,
		charts:   d.Charts,
		admin:    d.Admin,
		ai:       d.AI,
		db:       d.DB,
		started:  time.Now(),
	}
}

// Routes builds the router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(response.ExposeCauses(!s.cfg.IsProduction()))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.Server.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Refresh-Token", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(clientIP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, apperr.Missing("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.ErrorBody{Message: "Method not allowed"})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if n := s.cfg.Server.RateLimitRequests; n > 0 {
			r.Use(httprate.Limit(n, s.cfg.Server.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(tooManyRequests)))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(authRateLimit, time.Minute))
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/refresh", s.handleRefresh)
			})
			r.With(s.gate.OptionalAuthenticate).Post("/logout", s.handleLogout)
			r.With(s.gate.Authenticate).Get("/me", s.handleMe)
		})

		r.Get("/files/download", s.handleSignedDownload)
		r.With(s.gate.OptionalAuthenticate).Get("/datasets/public", s.handlePublicDatasets)

		r.Group(func(r chi.Router) {
			r.Use(s.gate.Authenticate)
			owned := auth.AuthorizeOwnerOrAdmin(s.ownerFromParam("id"))

			r.Route("/upload", func(r chi.Router) {
				r.Post("/", s.handleUpload)
				r.Get("/", s.handleHistory)
				r.With(owned).Put("/{id}/content", s.handleUpdateContent)
				r.With(owned).Delete("/{id}", s.handleDeleteDataset)
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", s.handleHistory)
				r.Get("/stats/summary", s.handleStats)
				r.With(owned).Get("/{id}", s.handleGetDataset)
				r.With(owned).Patch("/{id}", s.handleUpdateMeta)
				r.With(owned).Get("/{id}/download-url", s.handleDownloadURL)
			})

			r.Route("/charts", func(r chi.Router) {
				chartOwned := auth.AuthorizeOwnerOrAdmin(s.ownerFromParam("fileId"))
				r.Get("/templates", s.handleChartTemplates)
				r.With(chartOwned).Get("/generate/{fileId}", s.handleGenerateChart)
				r.With(chartOwned).Get("/columns/{fileId}", s.handleChartColumns)
				r.Post("/save", s.handleSaveChart)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", s.handleChat)
				r.Post("/insights", s.handleInsights)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.Authorize(model.RoleAdmin))
				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Get("/users/{id}", s.handleGetUser)
				r.Put("/users/{id}", s.handleUpdateUser)
				r.Delete("/users/{id}", s.handleDeleteUser)
				r.Get("/activity", s.handleListActivity)
				r.Post("/activity", s.handleCreateActivity)
				r.Get("/data", s.handleListData)
				r.Get("/data/{id}", s.handleGetData)
				r.Put("/data/{id}", s.handleUpdateData)
				r.Delete("/data/{id}", s.handleDeleteData)
				r.Post("/data/{id}/reprocess", s.handleReprocessData)
				r.Get("/analytics", s.handleAnalytics)
			})
		})
	})

	return r
}

// ownerFromParam resolves the owner of the dataset named by a URL parameter.
func (s *Server) ownerFromParam(param string) auth.OwnerResolver {
	return func(r *http.Request) (string, error) {
		return s.datasets.Owner(r.Context(), chi.URLParam(r, param))
	}
}

// clientIP stores the caller address for activity entries. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(service.WithClientIP(r.Context(), ip)))
	})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusTooManyRequests, response.ErrorBody{
		Message: "Too many requests from this IP, please try again later.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":      "OK",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"environment": s.cfg.Server.Environment,
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			body["status"] = "DEGRADED"
			body["database"] = "unreachable"
			response.JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	response.OK(w, body)
}

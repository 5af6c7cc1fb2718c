package server

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/smartshop/internal/handler"
	"github.com/dukerupert/smartshop/internal/middleware"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/session"
	"github.com/dukerupert/smartshop/internal/validation"
	ws "github.com/dukerupert/smartshop/internal/websocket"
	"github.com/dukerupert/smartshop/web"
)

// Options are the settings the router needs from the configuration.
type Options struct {
	Debounce      time.Duration
	AssetOrigin   string
	SecureCookies bool
	// OriginPatterns are the extra hosts allowed to open the websocket.
	OriginPatterns []string
}

type Server struct {
	reg         *session.Registry
	hub         *ws.Hub
	authH       *handler.AuthHandler
	dashboardH  *handler.DashboardHandler
	listH       *handler.ListHandler
	adminH      *handler.AdminHandler
	rateLimiter *middleware.RateLimiter
	origins     []string
	logger      *slog.Logger
}

func New(reg *session.Registry, render *handler.Renderer, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	rs := handler.NewResponder(render, hub, reg, logger.With("component", "handler"))
	v := validation.New()

	return &Server{
		reg:         reg,
		hub:         hub,
		authH:       handler.NewAuthHandler(rs, v, opts.SecureCookies, logger.With("component", "auth")),
		dashboardH:  handler.NewDashboardHandler(rs, logger.With("component", "dashboard")),
		listH:       handler.NewListHandler(rs, opts.Debounce, logger.With("component", "lists")),
		adminH:      handler.NewAdminHandler(rs, v, opts.Debounce, opts.AssetOrigin, logger.With("component", "admin")),
		rateLimiter: middleware.NewRateLimiter(10, time.Minute),
		origins:     opts.OriginPatterns,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Registry returns the browser session registry for cleanup tasks.
func (s *Server) Registry() *session.Registry {
	return s.reg
}

// Hub returns the toast hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		panic(err)
	}

	// Public routes
	mux.HandleFunc("GET /login", s.authH.LoginPage)
	mux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	mux.HandleFunc("GET /register", s.authH.RegisterPage)
	mux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /email/verify", s.authH.VerifyEmail)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /health", s.healthHandler)

	s.registerProtectedRoutes(mux)

	h := middleware.LoadSession(s.reg)(mux)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": s.reg.Len(), "sockets": s.hub.ClientCount()})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc)(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	authed := middleware.RequireAuth(s.reg)
	signedIn := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}
	role := func(r model.Role) func(http.HandlerFunc) http.Handler {
		gate := middleware.RequireRole(r)
		return func(h http.HandlerFunc) http.Handler {
			return authed(gate(h))
		}
	}
	client, company, admin := role(model.RoleClient), role(model.RoleCompany), role(model.RoleAdmin)

	mux.Handle("GET /{$}", signedIn(s.dashboardH.Home))
	mux.Handle("POST /email/resend", signedIn(s.authH.ResendVerification))
	mux.Handle("GET /ws", signedIn(ws.HandleWebSocket(s.hub, s.origins)))

	// Client lists
	mux.Handle("GET /lists", client(s.listH.MyLists))
	mux.Handle("GET /lists/new", client(s.listH.NewList))
	mux.Handle("POST /lists", client(s.listH.SaveList))
	mux.Handle("GET /lists/{id}", client(s.listH.ShowList))
	mux.Handle("GET /lists/{id}/export", client(s.listH.Export))
	mux.Handle("POST /lists/{id}/optimize", client(s.listH.Optimize))
	mux.Handle("POST /lists/{id}/complete", client(s.listH.Complete))
	mux.Handle("POST /lists/{id}/favorite", client(s.listH.Favorite))

	// Builder and viewer partials (HTMX)
	mux.Handle("GET /partials/products", client(s.listH.ProductsPartial))
	mux.Handle("POST /partials/builder/add/{id}", client(s.listH.BuilderAdd))
	mux.Handle("POST /partials/builder/remove/{id}", client(s.listH.BuilderRemove))
	mux.Handle("POST /partials/builder/unit/{id}", client(s.listH.BuilderUnit))
	mux.Handle("POST /partials/lists/{id}/items/{item}/toggle", client(s.listH.ToggleItem))

	// Company
	mux.Handle("POST /company/products/import", company(s.dashboardH.ImportProducts))

	// Admin management
	mux.Handle("GET /admin/{entity}", admin(s.adminH.Index))
	mux.Handle("GET /admin/{entity}/export", admin(s.adminH.Export))
	mux.Handle("GET /admin/{entity}/new", admin(s.adminH.New))
	mux.Handle("POST /admin/{entity}", admin(s.adminH.Create))
	mux.Handle("GET /admin/{entity}/{id}/edit", admin(s.adminH.Edit))
	mux.Handle("POST /admin/{entity}/{id}", admin(s.adminH.Update))
	mux.Handle("GET /partials/admin/{entity}", admin(s.adminH.Table))
	mux.Handle("POST /partials/admin/{entity}/{id}/toggle-delete", admin(s.adminH.ToggleDelete))
	mux.Handle("GET /partials/admin/users/form", admin(s.adminH.UserForm))
	mux.Handle("GET /partials/pickers/{ref}", admin(s.adminH.Picker))
}

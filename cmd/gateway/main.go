package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/hankgpa/gpa-live/internal/api/http"
	auth "github.com/hankgpa/gpa-live/internal/auth/middleware"
	"github.com/hankgpa/gpa-live/internal/config"
	"github.com/hankgpa/gpa-live/internal/course"
	"github.com/hankgpa/gpa-live/internal/db"
	"github.com/hankgpa/gpa-live/internal/ratelimit"
	syncx "github.com/hankgpa/gpa-live/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := course.NewSQLStore(dbh, cfg.DBDriver)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Core services ---
	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	hub := syncx.NewHub()
	app := &api.App{Store: store, Hub: hub, Events: syncx.NewEventRepo(dbh)}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, cfg.LocalUsers))
	}

	// REST API (JWT -> identity in context -> rate limit)
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.Timeout(30 * time.Second))
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(api.RateLimitMiddleware(limiter))

		pr.Get("/api/courses", app.ListCoursesHandler())
		pr.Post("/api/courses", app.AddCourseHandler())
		pr.Delete("/api/courses/{id}", app.DeleteCourseHandler())
		pr.Get("/api/rules", app.ListRulesHandler())
		pr.Put("/api/rules", app.ReplaceRulesHandler())
	})

	// Live channel. No request timeout here; the connection is long-lived and
	// each message is rate-limited inside the handler.
	r.Group(func(wr chi.Router) {
		wr.Use(auth.JWTMiddleware(authSvc))
		wr.Get("/ws", app.WSHandler(limiter, origins))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

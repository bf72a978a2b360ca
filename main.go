package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buildwise/backend/config"
	"github.com/buildwise/backend/handlers"
	"github.com/buildwise/backend/middleware"
	"github.com/buildwise/backend/service"
	"github.com/buildwise/backend/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; document uploads will fail")
	}

	authHandler := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret}
	usersHandler := &handlers.UsersHandler{DB: db}
	projectsHandler := &handlers.ProjectsHandler{DB: db}
	tasksHandler := &handlers.TasksHandler{DB: db}
	documentsHandler := &handlers.DocumentsHandler{
		DB:       db,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	if s3Service != nil {
		documentsHandler.S3 = s3Service
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"message":"BuildWise API is running"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Duration(cfg.RateWindowSec)*time.Second))

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, db))

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Put("/auth/password", authHandler.ChangePassword)

			r.Get("/users", usersHandler.List)
			r.Put("/users/{id}", usersHandler.Update)
			r.Delete("/users/{id}", usersHandler.Delete)

			r.Get("/projects", projectsHandler.List)
			r.Post("/projects", projectsHandler.Create)
			r.Get("/projects/{id}", projectsHandler.Get)
			r.Put("/projects/{id}", projectsHandler.Update)
			r.Delete("/projects/{id}", projectsHandler.Delete)
			r.Post("/projects/{id}/team", projectsHandler.AddTeamMember)
			r.Delete("/projects/{id}/team/{userId}", projectsHandler.RemoveTeamMember)

			r.Get("/tasks", tasksHandler.List)
			r.Post("/tasks", tasksHandler.Create)
			r.Get("/tasks/{id}", tasksHandler.Get)
			r.Put("/tasks/{id}", tasksHandler.Update)
			r.Delete("/tasks/{id}", tasksHandler.Delete)
			r.Post("/tasks/{id}/comments", tasksHandler.AddComment)
			r.Put("/tasks/{id}/progress", tasksHandler.SetProgress)

			r.Get("/documents", documentsHandler.List)
			r.Post("/documents/upload", documentsHandler.Upload)
			r.Get("/documents/{id}", documentsHandler.Get)
			r.Put("/documents/{id}", documentsHandler.Update)
			r.Delete("/documents/{id}", documentsHandler.Delete)
			r.Get("/documents/{id}/download", documentsHandler.Download)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}

package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"anoa.com/labeebacademy/internal/backend"
	"anoa.com/labeebacademy/internal/config"
	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/jobs"
	"anoa.com/labeebacademy/internal/middleware"

	adminHttp "anoa.com/labeebacademy/internal/modules/admin/delivery/http"
	adminService "anoa.com/labeebacademy/internal/modules/admin/service"

	searchService "anoa.com/labeebacademy/internal/modules/search/service"

	statHttp "anoa.com/labeebacademy/internal/modules/stat/delivery/http"
	statService "anoa.com/labeebacademy/internal/modules/stat/service"

	uploadHttp "anoa.com/labeebacademy/internal/modules/upload/delivery/http"
	uploadService "anoa.com/labeebacademy/internal/modules/upload/service"

	userHttp "anoa.com/labeebacademy/internal/modules/user/delivery/http"
	userRepo "anoa.com/labeebacademy/internal/modules/user/repository"
	userService "anoa.com/labeebacademy/internal/modules/user/service"

	videoHttp "anoa.com/labeebacademy/internal/modules/video/delivery/http"
	videoRepo "anoa.com/labeebacademy/internal/modules/video/repository"
	videoService "anoa.com/labeebacademy/internal/modules/video/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	engine    *gin.Engine
	scheduler *jobs.Scheduler
	port      string
}

func NewServer(cfg *config.Config, client *backend.Client) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := userRepo.NewUserRepository(client.DB)
	videoRepo := videoRepo.NewVideoRepository(client.DB)

	tokens := userService.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL, userService.NewSessionStore(client.Redis))
	resolver := userService.NewRoleResolver(userRepo)
	authSvc := userService.NewAuthService(userRepo, resolver, tokens)
	authHandler := userHttp.NewAuthHandler(authSvc)

	adminSvc := adminService.NewAdminService(userRepo)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	publisher := uploadService.NewPublisher(client.Redis, cfg.UploadTaskRetention)
	tracker := uploadService.NewTracker(uploadService.NewLocker(client.Redis), publisher, cfg.UploadLockTTL)
	uploadHandler := uploadHttp.NewUploadHandler(tracker, publisher)

	var index searchService.VideoIndex
	if client.Search != nil {
		index = searchService.NewVideoIndex(client.Search)
	}

	videoSvc := videoService.NewVideoService(videoRepo, client.Blobs, tracker, index)
	videoHandler := videoHttp.NewVideoHandler(videoSvc, cfg.UploadSpoolDir)

	statSvc := statService.NewStatService(userRepo, videoRepo)
	statHandler := statHttp.NewStatHandler(statSvc)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Register(jobs.NewPruneUploadsJob(tracker, cfg.UploadTaskRetention, cfg.JobSchedule)); err != nil {
		return nil, err
	}
	if cfg.OrphanBlobRetention > 0 {
		if err := scheduler.Register(jobs.NewSweepOrphansJob(videoSvc, cfg.OrphanBlobRetention, cfg.JobSchedule)); err != nil {
			return nil, err
		}
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/navigation"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, tokens)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)
	}
	api.GET("/navigation", authMiddleware.OptionalAuth(), authHandler.CheckRoute)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/session", authHandler.Session)

		protected.GET("/videos", videoHandler.GetAllVideos)
		protected.GET("/videos/search", videoHandler.SearchVideos)
		protected.GET("/videos/:id", videoHandler.GetVideo)

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireRole(entity.RoleAdmin))
		{
			adminGroup.POST("/videos", videoHandler.UploadVideo)
			adminGroup.PUT("/videos/:id", videoHandler.UpdateVideo)
			adminGroup.DELETE("/videos/:id", videoHandler.DeleteVideo)

			adminGroup.GET("/uploads/:id", uploadHandler.GetTask)
			adminGroup.GET("/uploads/:id/ws", uploadHandler.StreamTask)
			adminGroup.DELETE("/uploads/:id", uploadHandler.CancelTask)

			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.PUT("/users/:id/role", adminHandler.ChangeRole)

			adminGroup.GET("/stats", statHandler.GetSummary)
		}
	}

	return &Server{
		engine:    router,
		scheduler: scheduler,
		port:      cfg.Port,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// waits for running jobs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.engine,
	}

	s.scheduler.Start()
	defer s.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

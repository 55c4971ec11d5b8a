package routes

import (
	"time"

	"maplive-service/internal/api/handlers"
	"maplive-service/internal/api/middleware"
	"maplive-service/internal/hub"
	"maplive-service/internal/repositories"
	"maplive-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	engine           *gin.Engine
	wsHandler        *handlers.WSHandler
	authHandler      *handlers.AuthHandler
	sessionHandler   *handlers.SessionHandler
	ticketHandler    *handlers.TicketHandler
	presenceHandler  *handlers.PresenceHandler
	standingsHandler *handlers.StandingsHandler
	rateLimitMW      *middleware.RateLimitMiddleware
	authMW           *middleware.AuthMiddleware
}

func NewRouter(
	liveHub *hub.Hub,
	redisClient *redis.Client,
	db *gorm.DB,
	jwtSecret string,
	tokenTTL time.Duration,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)

	authService := services.NewAuthService(userRepo, jwtSecret, tokenTTL)
	sessionService := services.NewSessionService(sessionRepo)
	ticketService := services.NewTicketService(ticketRepo)

	var presenceService services.PresenceService
	var standingsService services.StandingsService
	if redisClient != nil {
		presenceService = services.NewPresenceService(redisClient)
		standingsService = services.NewStandingsService(redisClient)
	}

	return &Router{
		engine:           engine,
		wsHandler:        handlers.NewWSHandler(liveHub, presenceService),
		authHandler:      handlers.NewAuthHandler(authService),
		sessionHandler:   handlers.NewSessionHandler(sessionService),
		ticketHandler:    handlers.NewTicketHandler(ticketService, liveHub),
		presenceHandler:  handlers.NewPresenceHandler(presenceService),
		standingsHandler: handlers.NewStandingsHandler(standingsService),
		rateLimitMW:      middleware.NewRateLimitMiddleware(redisClient),
		authMW:           middleware.NewAuthMiddleware(authService),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// Hub endpoints. Session hub admits guests, the rest require a token.
	hubs := r.engine.Group("/hubs")
	{
		hubs.GET("/session", r.authMW.WSAuth(true), r.wsHandler.HandleSession)
		hubs.GET("/groupCollaboration", r.authMW.WSAuth(false), r.wsHandler.HandleGroupCollaboration)
		hubs.GET("/support-tickets", r.authMW.WSAuth(false), r.wsHandler.HandleSupportTickets)
		hubs.GET("/notifications", r.authMW.WSAuth(false), r.wsHandler.HandleNotifications)
	}

	// Public routes
	public := api.Group("/auth")
	public.Use(r.rateLimitMW.RateLimitIP(20, time.Minute))
	{
		public.POST("/register", r.authHandler.Register)
		public.POST("/login", r.authHandler.Login)
	}
	api.GET("/sessions/code/:code", r.rateLimitMW.RateLimitIP(60, time.Minute), r.sessionHandler.Lookup)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		sessions := auth.Group("/sessions")
		sessions.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			sessions.POST("/", r.sessionHandler.Create)
			sessions.GET("/", r.sessionHandler.List)
			sessions.GET("/:id", r.sessionHandler.Get)
			sessions.POST("/:id/start", r.sessionHandler.Start)
			sessions.POST("/:id/end", r.sessionHandler.End)
			sessions.GET("/:id/standings", r.standingsHandler.Get)
			sessions.DELETE("/:id", r.sessionHandler.Delete)
		}

		auth.GET("/users/:id/presence", r.presenceHandler.Get)

		tickets := auth.Group("/tickets")
		tickets.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			tickets.POST("/", r.ticketHandler.Create)
			tickets.GET("/", r.ticketHandler.List)
			tickets.GET("/:id", r.ticketHandler.Get)
			tickets.PUT("/:id", r.ticketHandler.Update)
			tickets.POST("/:id/replies", r.ticketHandler.Reply)
			tickets.POST("/:id/close", r.ticketHandler.Close)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}

package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/config"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/handlers"
	auth_handlers "github.com/squadran/squadran-api/handlers/auth"
	institution_handlers "github.com/squadran/squadran-api/handlers/institution"
	media_handlers "github.com/squadran/squadran-api/handlers/media"
	message_handlers "github.com/squadran/squadran-api/handlers/message"
	post_handlers "github.com/squadran/squadran-api/handlers/post"
	user_handlers "github.com/squadran/squadran-api/handlers/user"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/services/media"
	"github.com/squadran/squadran-api/utils/auth"
	"github.com/squadran/squadran-api/utils/cache"
	"github.com/squadran/squadran-api/utils/middleware"
)

// SetupRoutes wires every endpoint of the API onto app
func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnviornmentVariable) {
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "squadran-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        24 * time.Hour,
		RefreshExpiry: 7 * 24 * time.Hour,
		Issuer:        jwtIssuer,
	})

	// Redis backs the token blacklist, brute force lockouts and live message
	// delivery. All three degrade gracefully without it.
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		var err error
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Token revocation, lockouts and message push are disabled.", err)
			redisCache = nil
		}
	}

	var blacklist *auth.BlacklistService
	var bruteForce *middleware.BruteForceProtection
	if redisCache != nil {
		blacklist = auth.NewBlacklistService(redisCache)
		bruteForce = middleware.NewBruteForceProtection(redisCache)
	}

	uploader, err := media.NewUploader(env)
	if err != nil {
		log.Printf("Warning: Failed to configure media storage: %v. Uploads are disabled.", err)
	}

	// Services
	authService := services.NewAuthService(store, jwtManager, blacklist, env)
	institutionService := services.NewInstitutionService(store, redisCache)
	postService := services.NewPostService(store)
	userService := services.NewUserService(store)
	messageService := services.NewMessageService(store, redisCache)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(authService, bruteForce)
	institutionHandler := institution_handlers.NewInstitutionHandler(institutionService, uploader)
	postHandler := post_handlers.NewPostHandler(postService)
	userHandler := user_handlers.NewUserHandler(userService)
	messageHandler := message_handlers.NewMessageHandler(messageService)
	mediaHandler := media_handlers.NewMediaHandler(uploader)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, blacklist, store)

	// Health
	app.Get("/health", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	api := app.Group("/api/v1")

	// Auth (public, lockout-guarded)
	authGroup := api.Group("/auth")
	if bruteForce != nil {
		authGroup.Use(bruteForce.CheckLockout())
	}
	authGroup.Post("/signup/student", authHandler.SignupStudent)
	authGroup.Post("/signup/alumni", authHandler.SignupAlumni)
	authGroup.Post("/login/student", authHandler.LoginStudent)
	authGroup.Post("/login/alumni", authHandler.LoginAlumni)
	authGroup.Post("/login/admin", authHandler.LoginInstAdmin)
	authGroup.Post("/login/superadmin", authHandler.LoginSuperAdmin)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authHandler.Logout)

	// Institutions (discovery is public, management is super admin only)
	instGroup := api.Group("/institutions")
	instGroup.Get("/", institutionHandler.List)
	instGroup.Get("/code/:code", institutionHandler.GetByCode)
	instGroup.Get("/:id", institutionHandler.GetByID)
	instGroup.Post("/", authMiddleware.Required(), authMiddleware.RequireSuperAdmin(), institutionHandler.Create)
	instGroup.Delete("/:id", authMiddleware.Required(), authMiddleware.RequireSuperAdmin(), institutionHandler.Delete)

	// Onboarding requests
	requestGroup := api.Group("/requests")
	requestGroup.Post("/", institutionHandler.SubmitRequest)
	requestGroup.Get("/pending", authMiddleware.Required(), authMiddleware.RequireSuperAdmin(), institutionHandler.PendingRequests)
	requestGroup.Post("/:id/approve", authMiddleware.Required(), authMiddleware.RequireSuperAdmin(), institutionHandler.ApproveRequest)

	// Posts
	postGroup := api.Group("/posts", authMiddleware.Required())
	postGroup.Get("/", postHandler.Feed)
	postGroup.Post("/", postHandler.Create)
	postGroup.Get("/pending", authMiddleware.RequireInstitutionAdmin(), postHandler.Pending)
	postGroup.Get("/author/:uid", postHandler.ByAuthor)
	postGroup.Post("/:id/verify", authMiddleware.RequireInstitutionAdmin(), postHandler.Verify)
	postGroup.Delete("/:id", authMiddleware.RequireInstitutionAdmin(), postHandler.Delete)
	postGroup.Post("/:id/like", postHandler.ToggleLike)
	postGroup.Post("/:id/comments", postHandler.AddComment)

	// Users
	userGroup := api.Group("/users", authMiddleware.Required())
	userGroup.Get("/me", userHandler.Me)
	userGroup.Patch("/me", userHandler.UpdateProfile)
	userGroup.Get("/directory", userHandler.Directory)
	userGroup.Get("/admin", authMiddleware.RequireInstitutionAdmin(), userHandler.AdminList)
	userGroup.Get("/:uid", userHandler.GetByID)
	userGroup.Post("/:uid/block", authMiddleware.RequireInstitutionAdmin(), userHandler.ToggleBlock)
	userGroup.Delete("/:uid", authMiddleware.RequireInstitutionAdmin(), userHandler.Delete)

	// Messages
	messageGroup := api.Group("/messages", authMiddleware.Required())
	messageGroup.Post("/", messageHandler.Send)
	messageGroup.Get("/conversations", messageHandler.Conversations)
	messageGroup.Get("/stream", messageHandler.Stream)
	messageGroup.Get("/:uid", messageHandler.Thread)

	// Media
	api.Post("/media/:kind", authMiddleware.Required(), mediaHandler.Upload)
}

package app

import (
	"fmt"
	"os"
	"time"

	"github.com/squadran/squadran-api/api"
	"github.com/squadran/squadran-api/config"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/router"
	"github.com/squadran/squadran-api/services/cron"
	"github.com/squadran/squadran-api/utils/middleware"
)

// startStore picks the persistence backend from the environment: "postgres"
// for the JSONB document store, "file" for the local serialized store.
func startStore(env *config.EnviornmentVariable) (database.Storage, error) {
	switch env.STORE_BACKEND {
	case "file":
		return database.StartFileStore(env.STORE_DATA_DIR)
	case "postgres":
		store, err := database.StartGORM()
		if err != nil {
			print("Check whether Postgres is running or not\n")
			print("If not running, run the following command:\n")
			print("  make docker-up   (for Docker setup)\n")
			print("  make db-up       (for local PostgreSQL)\n")
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want postgres or file)", env.STORE_BACKEND)
	}
}

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	store, err := startStore(getEnv)
	if err != nil {
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize the document store\n")
		return err
	}

	// Maintenance jobs (enabled unless CRON_ENABLED=false)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		cronManager = cron.NewCronManager(store)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), store)
	app := server.GetEngine()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
	})

	// Setup Routes
	router.SetupRoutes(app, store, getEnv)

	// Get the PORT & Start the Server
	return server.Run()
}

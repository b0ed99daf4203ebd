package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/auth"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/database"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/handlers"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/logging"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/optimizer"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/orchestrator"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/store"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.InitLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("could not init logger: %v", err)
	}
	defer logger.Sync()

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	opt, err := optimizer.New(context.Background(), optimizer.ConfigFromEnv())
	if err != nil {
		logger.Fatal("could not init optimizer", zap.Error(err))
	}

	st := store.New(db)
	h := &handlers.Handler{
		DB:           db,
		Store:        st,
		Orchestrator: orchestrator.New(st, opt, logger),
		Log:          logger,
	}

	r := handlers.NewRouter(h)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logger.Info("server starting",
		zap.String("port", port),
		zap.String("optimizer", opt.Name()))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}

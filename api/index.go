package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/auth"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/database"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/handlers"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/logging"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/optimizer"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/orchestrator"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/store"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	logger, err := logging.InitLogger("production")
	if err != nil {
		log.Fatalf("could not init logger: %v", err)
	}

	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)

	opt, err := optimizer.New(context.Background(), optimizer.ConfigFromEnv())
	if err != nil {
		log.Fatalf("could not init optimizer: %v", err)
	}

	st := store.New(db)
	h := &handlers.Handler{
		DB:           db,
		Store:        st,
		Orchestrator: orchestrator.New(st, opt, logger),
		Log:          logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(h)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}

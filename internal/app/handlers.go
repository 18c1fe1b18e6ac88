package app

import (
	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/http/handlers"
	"github.com/tessella/tessella-backend/internal/platform/logger"
)

type Handlers struct {
	Run    *handlers.RunHandler
	Health *handlers.HealthHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Run:    handlers.NewRunHandler(serviceset.Run),
		Health: handlers.NewHealthHandler(db),
	}
}

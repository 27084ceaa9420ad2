// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"friendus/internal/http/handlers"
	"friendus/internal/http/middleware"
	"friendus/internal/modules/activity"
	"friendus/internal/modules/planjob"
)

// Deps are the services behind the API. Activities and Credits need the
// database and are optional; their routes are only registered when set.
type Deps struct {
	Jobs       *planjob.Service
	Activities *activity.Service
	Credits    handlers.CreditReader
	Logger     *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth())

	planHandler := handlers.NewPlanHandler(deps.Jobs, logger)
	api.POST("/plans", planHandler.Submit)
	api.POST("/plans/generate", planHandler.Generate)
	api.GET("/plans/:id", planHandler.Get)
	api.DELETE("/plans/:id", planHandler.Cancel)
	api.GET("/plans/:id/ws", planHandler.Watch)

	if deps.Activities != nil {
		activityHandler := handlers.NewActivityHandler(deps.Activities, deps.Jobs)
		api.POST("/rooms/:room_id/activities/from-plan", activityHandler.AcceptPlan)
		api.GET("/rooms/:room_id/activities", activityHandler.List)
		api.POST("/rooms/:room_id/activities", activityHandler.Add)
		api.DELETE("/rooms/:room_id/activities/:id", activityHandler.Delete)
		api.POST("/rooms/:room_id/constraints", activityHandler.AddConstraint)
		api.DELETE("/rooms/:room_id/constraints/:id", activityHandler.DeleteConstraint)
	}

	if deps.Credits != nil {
		creditsHandler := handlers.NewCreditsHandler(deps.Credits)
		api.GET("/me/credits", creditsHandler.Get)
	}

	return r
}

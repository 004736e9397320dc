package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stockforecast/config"
	"stockforecast/handlers"
	"stockforecast/pipeline"
	"stockforecast/session"
)

// Deps are the long-lived services the routes are built on.
type Deps struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Sessions *session.Manager
}

func SetupRoutes(router *gin.Engine, deps Deps) error {
	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	tmpl, err := handlers.Templates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	dashboardHandler := handlers.NewDashboardHandler(deps.Pipeline, deps.Config.Page)
	forecastHandler := handlers.NewForecastHandler(deps.Pipeline)
	overviewHandler := handlers.NewOverviewHandler(deps.Pipeline)
	runsHandler := handlers.NewRunsHandler(deps.Pipeline.Recorder())

	router.GET("/", handlers.SessionMiddleware(deps.Sessions), dashboardHandler.GetDashboard)

	// Only the dashboard starts sessions; API calls reuse one when the
	// browser sends its cookie.
	api := router.Group("/api/v1", handlers.AttachSession(deps.Sessions))
	api.GET("/forecast", forecastHandler.GetForecast)
	api.GET("/forecast/export", forecastHandler.ExportForecast)
	api.GET("/forecast/overview", overviewHandler.GetOverview)
	api.GET("/series", forecastHandler.GetSeries)
	api.GET("/charts/:kind", forecastHandler.GetChart)
	api.GET("/runs", runsHandler.GetRuns)

	return nil
}

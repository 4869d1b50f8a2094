package handlers

import (
	"catalog-import-service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter registers every endpoint of the service
func NewRouter(
	logger *logrus.Entry,
	allowedOrigins []string,
	healthHandler *HealthHandler,
	importHandler *ImportHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(allowedOrigins))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.GET("/template", importHandler.GetTemplate)
			imports.POST("/validate", importHandler.ValidateRows)
			imports.POST("", importHandler.CreateImport)
			imports.GET("", importHandler.ListImports)
			imports.GET("/:id", importHandler.GetImport)
			imports.GET("/:id/results", importHandler.GetImportResults)
		}

		v1.POST("/store/test", importHandler.TestConnection)
	}

	return router
}

package buildserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	"github.com/buildsync/buildsync/internal/version"
)

func (s *Server) setupRoutes() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	httpLogger := slog.Default().WithGroup("http")
	r.Use(slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelDebug,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.BestSpeed, gzip.WithExcludedPaths([]string{"/uploads/"})))

	r.GET("/healthz", healthHandler)

	// signed urls live outside the api and carry their own credential
	r.PUT("/uploads/:token", s.handleUpload)

	v1 := r.Group("/v1/projects/:projectId/environments/:environmentId")
	v1.Use(s.bearerAuth())
	{
		v1.GET("/builds/:buildId", s.handleGetBuild)
		v1.POST("/builds/:buildId/files", s.handleCreateOrUpdateFile)
		v1.GET("/builds/:buildId/files", s.handleListFiles)
		v1.DELETE("/builds/:buildId/files", s.handleDeleteFile)
		v1.POST("/builds/:buildId/versions", s.handleCreateVersion)
	}

	r.NoRoute(func(ctx *gin.Context) {
		abortWithProblem(ctx, http.StatusNotFound, CodeRouteNotFound, "no such route: "+ctx.Request.URL.Path)
	})

	return r.Handler()
}

func healthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Detailed(),
	})
}

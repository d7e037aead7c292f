package buildserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildsync/buildsync/internal/buildsdk"
)

const CodeRouteNotFound = "E_ROUTE_NOT_FOUND"

func abortWithProblem(ctx *gin.Context, status int, code, detail string, details ...buildsdk.ValidationDetail) {
	ctx.Abort()
	_ = ctx.Error(errors.New(detail))
	ctx.PureJSON(status, buildsdk.APIError{
		StatusCode: status,
		Code:       code,
		Title:      http.StatusText(status),
		Detail:     detail,
		Details:    details,
	})
}

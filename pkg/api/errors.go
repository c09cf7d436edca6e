package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// StatusFor maps an error onto an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidArgument, errors.ErrorTypeTypeMismatch:
		return http.StatusBadRequest
	case errors.ErrorTypeMissingCurve, errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeNonConvergence:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), ErrorResponse{
		Error: err.Error(),
		Type:  errors.TypeOf(err).String(),
	})
}

func notFoundRoute(path string) error {
	return errors.NotFound("no route for " + path)
}

// README: Shared handler helpers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"epsilon/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), errorResponse{Error: err.Error()})
}

// README: Shared JSON helpers and the error-to-status mapping.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/modules/area"
	"kurye/internal/modules/order"
)

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeData(c *gin.Context, status int, v any) {
	c.JSON(status, dataResponse{Data: v})
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeList applies the client contract that an empty result is a 404, not
// an error: consumers treat 404 bodies as "nothing here yet".
func writeList[T any](c *gin.Context, items []T) {
	if len(items) == 0 {
		writeData(c, http.StatusNotFound, []T{})
		return
	}
	writeData(c, http.StatusOK, items)
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrValidation), errors.Is(err, area.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrConflict), errors.Is(err, order.ErrInvalidState):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

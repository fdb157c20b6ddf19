// README: REST fallback for location pings and the pull side of the relay.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/modules/location"
	"kurye/internal/realtime"
	"kurye/internal/types"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{location: svc}
}

// Update accepts a ping over HTTP for clients whose socket is down. Same
// silent-drop guard as the socket path: the response never reveals whether
// the sample was actually relayed.
func (h *LocationHandler) Update(c *gin.Context) {
	var msg realtime.LocationUpdateMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.location.Relay(c.Request.Context(), msg); err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Latest serves the newest sample for an order's assigned courier, for
// pull-based refresh when the socket missed the event.
func (h *LocationHandler) Latest(c *gin.Context) {
	orderID := types.ID(c.Param("id"))
	courierID := types.ID(c.Query("courierId"))
	sample, ok, err := h.location.Latest(c.Request.Context(), orderID, courierID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "no location recorded")
		return
	}
	writeData(c, http.StatusOK, sample)
}

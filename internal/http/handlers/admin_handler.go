// README: Admin emitters: broadcast notices, force feed refresh, force logout.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/realtime"
	"kurye/internal/types"
)

type AdminHandler struct {
	hub *realtime.Hub
}

func NewAdminHandler(hub *realtime.Hub) *AdminHandler {
	return &AdminHandler{hub: hub}
}

type adminNotifyReq struct {
	// Room defaults to the all-couriers broadcast when empty.
	Room    string `json:"room"`
	Message string `json:"message"`
}

func (h *AdminHandler) Notify(c *gin.Context) {
	var req adminNotifyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}
	room := req.Room
	if room == "" {
		room = realtime.RoomCouriers
	}
	h.hub.Publish(room, realtime.EventAdminNotification, gin.H{"message": req.Message})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) RefreshFeeds(c *gin.Context) {
	h.hub.Publish(realtime.RoomCouriers, realtime.EventRefreshOrderList, nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type forceLogoutReq struct {
	CourierID string `json:"courierId"`
}

func (h *AdminHandler) ForceLogout(c *gin.Context) {
	var req forceLogoutReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CourierID == "" {
		writeError(c, http.StatusBadRequest, "missing courierId")
		return
	}
	h.hub.Publish(realtime.CourierRoom(types.ID(req.CourierID)), realtime.EventForceLogout, nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

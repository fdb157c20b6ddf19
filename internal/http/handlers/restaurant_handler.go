// README: Restaurant-facing listings and delivery-area management.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/modules/area"
	"kurye/internal/modules/order"
	"kurye/internal/types"
)

type RestaurantHandler struct {
	order *order.Service
	areas *area.Service
}

func NewRestaurantHandler(orderSvc *order.Service, areaSvc *area.Service) *RestaurantHandler {
	return &RestaurantHandler{order: orderSvc, areas: areaSvc}
}

// Orders lists the restaurant's non-terminal orders.
func (h *RestaurantHandler) Orders(c *gin.Context) {
	orders, err := h.order.ListOpenByRestaurant(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeList(c, summaries(h.order, orders))
}

// Pending lists the reconciliation queue.
func (h *RestaurantHandler) Pending(c *gin.Context) {
	orders, err := h.order.ListPendingApproval(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeList(c, summaries(h.order, orders))
}

func (h *RestaurantHandler) Totals(c *gin.Context) {
	t, err := h.order.RestaurantTotals(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"deliveredCount": t.DeliveredCount,
		"reconciliation": t.Reconciliation,
		"fees":           t.Fees,
	})
}

type createAreaReq struct {
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
}

func (h *RestaurantHandler) CreateArea(c *gin.Context) {
	var req createAreaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.areas.Create(c.Request.Context(), area.CreateCommand{
		RestaurantID: types.ID(c.Param("id")),
		Neighborhood: req.Neighborhood,
		City:         req.City,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusCreated, a)
}

func (h *RestaurantHandler) Areas(c *gin.Context) {
	areas, err := h.areas.ListByRestaurant(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeList(c, areas)
}

func (h *RestaurantHandler) DeleteArea(c *gin.Context) {
	ok, err := h.areas.Delete(c.Request.Context(), types.ID(c.Param("id")), types.ID(c.Param("areaId")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "delivery area not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

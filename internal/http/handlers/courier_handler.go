// README: Courier-facing listings: open feed, active deliveries, settlement totals.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/modules/order"
	"kurye/internal/types"
)

type CourierHandler struct {
	order *order.Service
}

func NewCourierHandler(svc *order.Service) *CourierHandler {
	return &CourierHandler{order: svc}
}

// Feed lists every waiting order, oldest first.
func (h *CourierHandler) Feed(c *gin.Context) {
	orders, err := h.order.ListWaiting(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeList(c, summaries(h.order, orders))
}

// Active lists the courier's in-flight deliveries.
func (h *CourierHandler) Active(c *gin.Context) {
	orders, err := h.order.ListActiveByCourier(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeList(c, summaries(h.order, orders))
}

// Totals reports delivered count, reconciliation sum, and earned fees.
func (h *CourierHandler) Totals(c *gin.Context) {
	t, err := h.order.CourierTotals(c.Request.Context(), types.ID(c.Param("id")))
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

func summaries(svc *order.Service, orders []*order.Order) []order.Summary {
	out := make([]order.Summary, len(orders))
	for i, o := range orders {
		out[i] = svc.Summarize(o)
	}
	return out
}

// README: Order lifecycle handlers: create, fetch, edit, delete, accept, cancel, deliver, approve.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kurye/internal/modules/order"
	"kurye/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type orderPayloadReq struct {
	RestaurantID           string      `json:"restaurantId"`
	Neighborhood           string      `json:"neighborhood"`
	PaymentMethod          string      `json:"odemeYontemi"`
	CashAmount             types.Money `json:"nakitTutari"`
	CardAmount             types.Money `json:"bankaTutari"`
	GiftAmount             types.Money `json:"hediyeTutari"`
	CourierFee             types.Money `json:"kuryeUcreti"`
	RestaurantFee          types.Money `json:"restoranUcreti"`
	PreparationTimeMinutes int         `json:"hazirlikSuresi"`
	ImageRef               string      `json:"imageRef"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req orderPayloadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		RestaurantID:           types.ID(req.RestaurantID),
		Neighborhood:           req.Neighborhood,
		PaymentMethod:          order.PaymentMethod(req.PaymentMethod),
		CashAmount:             req.CashAmount,
		CardAmount:             req.CardAmount,
		GiftAmount:             req.GiftAmount,
		CourierFee:             req.CourierFee,
		RestaurantFee:          req.RestaurantFee,
		PreparationTimeMinutes: req.PreparationTimeMinutes,
		ImageRef:               req.ImageRef,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusCreated, h.order.Summarize(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, h.order.Summarize(o))
}

func (h *OrderHandler) Edit(c *gin.Context) {
	var req orderPayloadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Edit(c.Request.Context(), order.EditCommand{
		OrderID:      types.ID(c.Param("id")),
		RestaurantID: types.ID(req.RestaurantID),
		Patch: order.EditPatch{
			Neighborhood:           req.Neighborhood,
			PaymentMethod:          order.PaymentMethod(req.PaymentMethod),
			CashAmount:             req.CashAmount,
			CardAmount:             req.CardAmount,
			GiftAmount:             req.GiftAmount,
			CourierFee:             req.CourierFee,
			RestaurantFee:          req.RestaurantFee,
			PreparationTimeMinutes: req.PreparationTimeMinutes,
			ImageRef:               req.ImageRef,
		},
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, h.order.Summarize(o))
}

type restaurantActionReq struct {
	RestaurantID string `json:"restaurantId"`
}

type courierActionReq struct {
	CourierID string `json:"courierId"`
}

func (h *OrderHandler) Delete(c *gin.Context) {
	var req restaurantActionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.RestaurantID == "" {
		writeError(c, http.StatusBadRequest, "missing restaurantId")
		return
	}
	err := h.order.DeleteByRestaurant(c.Request.Context(), order.RestaurantDeleteCommand{
		OrderID:      types.ID(c.Param("id")),
		RestaurantID: types.ID(req.RestaurantID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *OrderHandler) Accept(c *gin.Context) {
	var req courierActionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CourierID == "" {
		writeError(c, http.StatusBadRequest, "missing courierId")
		return
	}
	o, err := h.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: types.ID(req.CourierID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, h.order.Summarize(o))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req courierActionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CourierID == "" {
		writeError(c, http.StatusBadRequest, "missing courierId")
		return
	}
	err := h.order.CancelByCourier(c.Request.Context(), order.CourierCancelCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: types.ID(req.CourierID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": order.StatusWaiting})
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	var req courierActionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CourierID == "" {
		writeError(c, http.StatusBadRequest, "missing courierId")
		return
	}
	o, err := h.order.Deliver(c.Request.Context(), order.DeliverCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: types.ID(req.CourierID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, h.order.Summarize(o))
}

func (h *OrderHandler) Approve(c *gin.Context) {
	var req restaurantActionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.RestaurantID == "" {
		writeError(c, http.StatusBadRequest, "missing restaurantId")
		return
	}
	o, err := h.order.Approve(c.Request.Context(), order.ApproveCommand{
		OrderID:      types.ID(c.Param("id")),
		RestaurantID: types.ID(req.RestaurantID),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeData(c, http.StatusOK, h.order.Summarize(o))
}

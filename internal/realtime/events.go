// README: The full socket vocabulary: room names, outbound event names, inbound messages.
package realtime

import (
	"encoding/json"
	"fmt"

	"kurye/internal/types"
)

// Outbound event names. These are referenced verbatim by the mobile clients;
// renaming any of them is a breaking protocol change.
const (
	EventNewOrderAdded                     = "newOrderAdded"
	EventOrderAccepted                     = "orderAccepted"
	EventOrderUpdated                      = "orderUpdated"
	EventOrderStatusUpdate                 = "orderStatusUpdate"
	EventOrderDelivered                    = "orderDelivered"
	EventOrderPendingApproval              = "orderPendingApproval"
	EventOrderApproved                     = "orderApproved"
	EventOrderCancelled                    = "orderCancelled"
	EventOrderDeleted                      = "orderDeleted"
	EventOrderDeletedByCourierNotification = "orderDeletedByCourierNotification"
	EventOrderAutoDeleted                  = "orderAutoDeleted"
	EventDeliveryOverdue                   = "deliveryOverdue"
	EventLocationUpdate                    = "locationUpdate"
	EventRefreshOrderList                  = "refreshOrderList"
	EventForceLogout                       = "forceLogout"
	EventAdminNotification                 = "adminNotification"
)

// Inbound event names.
const (
	inJoinCourierRoom    = "joinCourierRoom"
	inJoinRestaurantRoom = "joinRestaurantRoom"
	inJoinRoom           = "joinRoom"
	inJoinOrder          = "joinOrder"
	inLocationUpdate     = "locationUpdate"
	inLeaveOrder         = "leaveOrder"
)

// RoomCouriers is the broadcast room every connected courier sits in.
const RoomCouriers = "couriers"

func CourierRoom(id types.ID) string    { return "courier_" + string(id) }
func RestaurantRoom(id types.ID) string { return "restaurant_" + string(id) }
func OrderRoom(id types.ID) string      { return "order_" + string(id) }

// Event is a single outbound message as written to the wire.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// envelope is the wire form of every inbound message.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound message payloads, one struct per event tag.

type JoinCourierRoomMsg struct {
	CourierID types.ID `json:"courierId"`
}

type JoinRestaurantRoomMsg struct {
	RestaurantID types.ID `json:"restaurantId"`
}

type JoinRoomMsg struct {
	Room string `json:"room"`
}

type JoinOrderMsg struct {
	OrderID types.ID `json:"orderId"`
}

// LocationUpdateMsg is a courier GPS ping tagged with the order it belongs to.
// Speed, heading, and accuracy are optional on the wire.
type LocationUpdateMsg struct {
	CourierID   types.ID `json:"courierId"`
	OrderID     types.ID `json:"orderId"`
	Lat         float64  `json:"latitude"`
	Lng         float64  `json:"longitude"`
	Speed       *float64 `json:"speed,omitempty"`
	Heading     *float64 `json:"heading,omitempty"`
	Accuracy    *float64 `json:"accuracy,omitempty"`
	TimestampMs int64    `json:"timestamp"`
}

// Inbound is the tagged union of every message a client may send.
type Inbound interface{ inbound() }

func (JoinCourierRoomMsg) inbound()    {}
func (JoinRestaurantRoomMsg) inbound() {}
func (JoinRoomMsg) inbound()           {}
func (JoinOrderMsg) inbound()          {}
func (LocationUpdateMsg) inbound()     {}

// LeaveOrderMsg drops the connection out of an order room once the client
// stops watching that order.
type LeaveOrderMsg struct {
	OrderID types.ID `json:"orderId"`
}

func (LeaveOrderMsg) inbound() {}

// DecodeInbound parses one wire message into its typed form. Unknown tags are
// an error; the dispatcher logs and drops them.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	switch env.Event {
	case inJoinCourierRoom:
		var m JoinCourierRoomMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case inJoinRestaurantRoom:
		var m JoinRestaurantRoomMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case inJoinRoom:
		var m JoinRoomMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case inJoinOrder:
		var m JoinOrderMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case inLeaveOrder:
		var m LeaveOrderMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case inLocationUpdate:
		var m LocationUpdateMsg
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

func decodePayload(env envelope, dst any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decoding %s payload: %w", env.Event, err)
	}
	return nil
}

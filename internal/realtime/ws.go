// README: gorilla/websocket transport; one read pump dispatching typed messages, one write pump.
package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// LocationSink receives courier GPS pings carried over the socket. Implemented
// by the location relay service.
type LocationSink interface {
	Relay(ctx context.Context, msg LocationUpdateMsg) error
}

// Gateway upgrades HTTP requests to socket sessions and routes their traffic.
type Gateway struct {
	hub      *Hub
	location LocationSink
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewGateway(hub *Hub, location LocationSink, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		hub:      hub,
		location: location,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile clients connect from app webviews with no Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve upgrades the request and runs the session until the peer goes away.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := g.hub.NewConn()
	go g.writePump(ws, conn)
	g.readPump(r.Context(), ws, conn)
}

func (g *Gateway) readPump(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	defer conn.Close()
	defer ws.Close()

	ws.SetReadLimit(maxMsgSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Debug("websocket read", zap.Error(err))
			}
			return
		}
		msg, err := DecodeInbound(raw)
		if err != nil {
			g.log.Debug("dropping malformed message", zap.Error(err))
			continue
		}
		g.dispatch(ctx, conn, msg)
	}
}

// dispatch is the single routing point for the whole inbound vocabulary.
func (g *Gateway) dispatch(ctx context.Context, conn *Conn, msg Inbound) {
	switch m := msg.(type) {
	case JoinCourierRoomMsg:
		conn.Join(CourierRoom(m.CourierID))
		conn.Join(RoomCouriers)
	case JoinRestaurantRoomMsg:
		conn.Join(RestaurantRoom(m.RestaurantID))
	case JoinRoomMsg:
		conn.Join(m.Room)
	case JoinOrderMsg:
		conn.Join(OrderRoom(m.OrderID))
	case LeaveOrderMsg:
		conn.Leave(OrderRoom(m.OrderID))
	case LocationUpdateMsg:
		if g.location == nil {
			return
		}
		// Rejections are deliberate silence: an unassigned sender learns
		// nothing about who holds the order.
		if err := g.location.Relay(ctx, m); err != nil {
			g.log.Debug("location relay", zap.Error(err))
		}
	}
}

func (g *Gateway) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer ws.Close()

	for {
		select {
		case ev, ok := <-conn.Outbox():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

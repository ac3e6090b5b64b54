package wsnet

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const relaySendBuffer = 256

type relayConn struct {
	id         uuid.UUID
	federation string
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
}

// Relay is an http.Handler that upgrades requests to WebSocket and forwards
// every text message a connection sends to the other connections of the
// same federation. Slow receivers lose messages rather than stall senders.
type Relay struct {
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu    sync.RWMutex
	conns map[uuid.UUID]*relayConn
}

func NewRelay() *Relay {
	return &Relay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:   logrus.WithField("component", "relay"),
		conns: make(map[uuid.UUID]*relayConn),
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.WithError(err).Warn("upgrade failed")
		return
	}
	rc := &relayConn{
		id:         uuid.New(),
		federation: req.URL.Query().Get("federation"),
		conn:       conn,
		send:       make(chan []byte, relaySendBuffer),
		done:       make(chan struct{}),
	}
	r.add(rc)
	log := r.log.WithFields(logrus.Fields{"conn": rc.id, "federation": rc.federation})
	log.Info("joined")

	go r.writeLoop(rc)
	defer func() {
		r.remove(rc.id)
		close(rc.done)
		_ = conn.Close()
		log.Info("left")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("read")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		r.broadcast(rc, data)
	}
}

func (r *Relay) writeLoop(rc *relayConn) {
	for {
		select {
		case <-rc.done:
			return
		case data := <-rc.send:
			_ = rc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := rc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = rc.conn.Close()
				return
			}
		}
	}
}

func (r *Relay) add(rc *relayConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[rc.id] = rc
}

func (r *Relay) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *Relay) broadcast(from *relayConn, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, rc := range r.conns {
		if id == from.id || rc.federation != from.federation {
			continue
		}
		select {
		case rc.send <- data:
		default:
			r.log.WithField("conn", id).Debug("send buffer full, message dropped")
		}
	}
}

// Connections returns the number of connected federates.
func (r *Relay) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

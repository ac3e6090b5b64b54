package wsnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/simnet-io/interop/interop"
)

// DefaultQueueSize bounds the number of received but undecoded updates.
const DefaultQueueSize = 4096

const writeTimeout = 2 * time.Second

// ErrNotConnected is returned by EncodeOutbound before InitNetwork or after Close.
var ErrNotConnected = errors.New("wsnet: not connected")

func init() {
	interop.RegisterProtocol("ws", func(cfg interop.ProtocolConfig, netCfg *interop.Config) (interop.Protocol, error) {
		if cfg.URL == "" {
			return nil, errors.New("ws: protocol.url is required")
		}
		return NewClient(cfg.URL, netCfg.FederationName, cfg.QueueSize), nil
	})
}

// Client is a Protocol that exchanges entity states through a Relay.
type Client struct {
	url        string
	federation string
	log        *logrus.Entry

	conn    *websocket.Conn
	inbound chan interop.EntityUpdate
	wg      sync.WaitGroup
	closed  atomic.Bool

	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex

	dropped   atomic.Uint64
	malformed atomic.Uint64
}

// NewClient returns a client for the relay at rawURL. The federation is sent
// as a query parameter so the relay only forwards traffic of the same
// federation.
func NewClient(rawURL, federation string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Client{
		url:        rawURL,
		federation: federation,
		log:        logrus.WithFields(logrus.Fields{"protocol": "ws", "url": rawURL}),
		inbound:    make(chan interop.EntityUpdate, queueSize),
	}
}

// InitNetwork dials the relay and starts the reader.
func (c *Client) InitNetwork() error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parsing relay url: %w", err)
	}
	q := u.Query()
	q.Set("federation", c.federation)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}
	c.conn = conn
	c.wg.Add(1)
	go c.readLoop()
	c.log.Infof("connected to relay as federation %q", c.federation)
	return nil
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.log.WithError(err).Warn("relay connection lost")
			}
			return
		}
		var msg stateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reject(err)
			continue
		}
		u, err := msg.update()
		if err != nil {
			c.reject(err)
			continue
		}
		select {
		case c.inbound <- u:
		default:
			if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
				c.log.Warnf("inbound queue full, %d updates dropped", n)
			}
		}
	}
}

func (c *Client) reject(err error) {
	if n := c.malformed.Add(1); n == 1 || n%1000 == 0 {
		c.log.Warnf("%d malformed messages (last: %v)", n, err)
	}
}

// DecodeInbound returns every update received since the last call.
func (c *Client) DecodeInbound() []interop.EntityUpdate {
	var out []interop.EntityUpdate
	for {
		select {
		case u := <-c.inbound:
			out = append(out, u)
		default:
			return out
		}
	}
}

func (c *Client) EncodeOutbound(u interop.OutboundUpdate, _ float64) error {
	if c.conn == nil || c.closed.Load() {
		return ErrNotConnected
	}
	data, err := json.Marshal(newStateMessage(u))
	if err != nil {
		return fmt.Errorf("encoding %s/%d: %w", u.FederateName, u.PlayerID, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("sending %s/%d: %w", u.FederateName, u.PlayerID, err)
	}
	return nil
}

// Close says goodbye to the relay and waits for the reader to stop.
func (c *Client) Close() error {
	if c.conn == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// Stats returns the dropped and malformed message counts.
func (c *Client) Stats() (dropped, malformed uint64) {
	return c.dropped.Load(), c.malformed.Load()
}

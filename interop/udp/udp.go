package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/sirupsen/logrus"

	"github.com/simnet-io/interop/interop"
)

// DefaultQueueSize bounds the number of received but undecoded updates.
const DefaultQueueSize = 4096

const maxDatagram = 64 * 1024

func init() {
	interop.RegisterProtocol("udp", func(cfg interop.ProtocolConfig, netCfg *interop.Config) (interop.Protocol, error) {
		if cfg.RemoteAddress == "" {
			return nil, errors.New("udp: protocol.remote_address is required")
		}
		local := cfg.LocalAddress
		if local == "" {
			local = fmt.Sprintf(":%d", DefaultPort)
		}
		return New(Config{
			LocalAddress:  local,
			RemoteAddress: cfg.RemoteAddress,
			Federation:    netCfg.FederationName,
			QueueSize:     cfg.QueueSize,
		}), nil
	})
}

// Config parameterises a UDP protocol.
type Config struct {
	LocalAddress  string // host:port to listen on
	RemoteAddress string // host:port (unicast or broadcast) to send to
	// Federation is stamped on sent PDUs; received PDUs of another
	// federation are ignored.
	Federation string
	QueueSize  int
}

// Protocol exchanges entity-state PDUs over UDP. A reader goroutine decodes
// datagrams into a bounded queue that DecodeInbound drains.
type Protocol struct {
	cfg Config
	log *logrus.Entry

	conn    *net.UDPConn
	remote  *net.UDPAddr
	inbound chan interop.EntityUpdate
	wg      sync.WaitGroup
	closed  atomic.Bool

	sendMu sync.Mutex
	buf    gopacket.SerializeBuffer

	dropped      atomic.Uint64
	decodeErrors atomic.Uint64
	foreign      atomic.Uint64
}

func New(cfg Config) *Protocol {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Protocol{
		cfg:     cfg,
		log:     logrus.WithFields(logrus.Fields{"protocol": "udp", "local": cfg.LocalAddress}),
		inbound: make(chan interop.EntityUpdate, cfg.QueueSize),
		buf:     gopacket.NewSerializeBuffer(),
	}
}

// InitNetwork binds the local socket and starts the reader.
func (p *Protocol) InitNetwork() error {
	laddr, err := net.ResolveUDPAddr("udp", p.cfg.LocalAddress)
	if err != nil {
		return fmt.Errorf("resolving local address: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", p.cfg.RemoteAddress)
	if err != nil {
		return fmt.Errorf("resolving remote address: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", p.cfg.LocalAddress, err)
	}
	p.conn = conn
	p.remote = raddr
	p.wg.Add(1)
	go p.readLoop()
	p.log.Infof("listening on %s, sending to %s", conn.LocalAddr(), raddr)
	return nil
}

// LocalAddr returns the bound address, or nil before InitNetwork.
func (p *Protocol) LocalAddr() net.Addr {
	if p.conn == nil {
		return nil
	}
	return p.conn.LocalAddr()
}

func (p *Protocol) readLoop() {
	defer p.wg.Done()
	var pdu EntityStatePDU
	parser := gopacket.NewDecodingLayerParser(LayerTypeEntityState, &pdu)
	parser.IgnoreUnsupported = true
	decoded := make([]gopacket.LayerType, 0, 1)
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			if p.closed.Load() {
				return
			}
			p.log.WithError(err).Warn("read")
			continue
		}
		if err := parser.DecodeLayers(buf[:n], &decoded); err != nil || len(decoded) == 0 {
			if c := p.decodeErrors.Add(1); c == 1 || c%1000 == 0 {
				p.log.Warnf("%d undecodable datagrams (last: %v)", c, err)
			}
			continue
		}
		if pdu.Federation != p.cfg.Federation {
			p.foreign.Add(1)
			continue
		}
		u := interop.EntityUpdate{
			PlayerID:     pdu.PlayerID,
			FederateName: pdu.Federate,
			EntityType:   pdu.EntityType,
			State:        pdu.State,
			DRModel:      pdu.DRModel,
			Timestamp:    pdu.Timestamp,
		}
		select {
		case p.inbound <- u:
		default:
			if c := p.dropped.Add(1); c == 1 || c%1000 == 0 {
				p.log.Warnf("inbound queue full, %d updates dropped", c)
			}
		}
	}
}

// DecodeInbound returns every update received since the last call.
func (p *Protocol) DecodeInbound() []interop.EntityUpdate {
	var out []interop.EntityUpdate
	for {
		select {
		case u := <-p.inbound:
			out = append(out, u)
		default:
			return out
		}
	}
}

func (p *Protocol) EncodeOutbound(u interop.OutboundUpdate, _ float64) error {
	if p.conn == nil || p.closed.Load() {
		return errors.New("udp: not connected")
	}
	pdu := &EntityStatePDU{
		NetworkID:  u.NetworkID,
		PlayerID:   u.PlayerID,
		EntityType: u.EntityType,
		DRModel:    u.DRModel,
		Timestamp:  u.Timestamp,
		State:      u.State,
		Federation: p.cfg.Federation,
		Federate:   u.FederateName,
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := gopacket.SerializeLayers(p.buf, gopacket.SerializeOptions{}, pdu); err != nil {
		return fmt.Errorf("encoding %s/%d: %w", u.FederateName, u.PlayerID, err)
	}
	if _, err := p.conn.WriteToUDP(p.buf.Bytes(), p.remote); err != nil {
		return fmt.Errorf("sending %s/%d: %w", u.FederateName, u.PlayerID, err)
	}
	return nil
}

// Close stops the reader and releases the socket.
func (p *Protocol) Close() error {
	if p.conn == nil || !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.conn.Close()
	p.wg.Wait()
	return err
}

// Stats returns the dropped, undecodable and foreign-federation datagram counts.
func (p *Protocol) Stats() (dropped, undecodable, foreign uint64) {
	return p.dropped.Load(), p.decodeErrors.Load(), p.foreign.Load()
}

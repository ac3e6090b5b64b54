// Package udp sends and receives entity states as datagrams. Each datagram
// carries one entity-state PDU, implemented as a gopacket layer so captures
// decode with the standard gopacket tooling. It registers the "udp" protocol.
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnet-io/interop/interop"
)

// DefaultPort is the conventional entity-state port; UDP payloads on it
// decode as EntityStatePDU.
const DefaultPort = 3000

const (
	pduMagic      = 0x4e49 // "NI"
	pduVersion    = 1
	pduTypeEntity = 1
	fixedLen      = 148
)

// LayerTypeEntityState is the gopacket layer type of EntityStatePDU.
var LayerTypeEntityState = gopacket.RegisterLayerType(1701, gopacket.LayerTypeMetadata{
	Name:    "EntityState",
	Decoder: gopacket.DecodeFunc(decodeEntityState),
})

func init() {
	layers.RegisterUDPPortLayerType(layers.UDPPort(DefaultPort), LayerTypeEntityState)
}

// Decoding errors.
var (
	ErrShortPDU   = errors.New("entity-state pdu truncated")
	ErrBadMagic   = errors.New("not an entity-state pdu")
	ErrBadVersion = errors.New("unsupported pdu version")
)

// EntityStatePDU is one entity state on the wire. All integers are big endian
// and floats are IEEE 754 binary64.
//
//	 0  magic "NI"       2  version         3  pdu type
//	 4  network id       6  player id       8  entity type (8 bytes)
//	16  dr model        17  federation len 18  federate len   19  reserved
//	20  timestamp       28  position, velocity, acceleration, orientation,
//	                        angular velocity (5 x 24 bytes)
//	148 federation name, then federate name
type EntityStatePDU struct {
	layers.BaseLayer

	NetworkID  uint16
	PlayerID   uint16
	EntityType interop.EntityType
	DRModel    interop.DeadReckoning
	Timestamp  float64
	State      interop.EntityState
	Federation string
	Federate   string
}

func (p *EntityStatePDU) LayerType() gopacket.LayerType { return LayerTypeEntityState }

func (p *EntityStatePDU) CanDecode() gopacket.LayerClass { return LayerTypeEntityState }

func (p *EntityStatePDU) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

// Payload makes the PDU an application layer; it never carries a payload.
func (p *EntityStatePDU) Payload() []byte { return nil }

func (p *EntityStatePDU) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < fixedLen {
		df.SetTruncated()
		return fmt.Errorf("%w: %d bytes", ErrShortPDU, len(data))
	}
	be := binary.BigEndian
	if be.Uint16(data[0:2]) != pduMagic || data[3] != pduTypeEntity {
		return ErrBadMagic
	}
	if data[2] != pduVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, data[2])
	}
	fedLen, nameLen := int(data[17]), int(data[18])
	total := fixedLen + fedLen + nameLen
	if len(data) < total {
		df.SetTruncated()
		return fmt.Errorf("%w: names need %d bytes, have %d", ErrShortPDU, total, len(data))
	}

	p.NetworkID = be.Uint16(data[4:6])
	p.PlayerID = be.Uint16(data[6:8])
	p.EntityType = interop.EntityType{
		Kind:        data[8],
		Domain:      data[9],
		Country:     be.Uint16(data[10:12]),
		Category:    data[12],
		Subcategory: data[13],
		Specific:    data[14],
		Extra:       data[15],
	}
	p.DRModel = interop.DeadReckoning(data[16])
	p.Timestamp = getFloat(data[20:28])
	p.State = interop.EntityState{
		Position:        getVec(data[28:52]),
		Velocity:        getVec(data[52:76]),
		Acceleration:    getVec(data[76:100]),
		Orientation:     getVec(data[100:124]),
		AngularVelocity: getVec(data[124:148]),
	}
	p.Federation = string(data[fixedLen : fixedLen+fedLen])
	p.Federate = string(data[fixedLen+fedLen : total])
	p.BaseLayer = layers.BaseLayer{Contents: data[:total], Payload: data[total:]}
	return nil
}

func (p *EntityStatePDU) SerializeTo(b gopacket.SerializeBuffer, _ gopacket.SerializeOptions) error {
	if len(p.Federation) > math.MaxUint8 || len(p.Federate) > math.MaxUint8 {
		return fmt.Errorf("federation and federate names are limited to %d bytes", math.MaxUint8)
	}
	total := fixedLen + len(p.Federation) + len(p.Federate)
	data, err := b.PrependBytes(total)
	if err != nil {
		return err
	}
	be := binary.BigEndian
	be.PutUint16(data[0:2], pduMagic)
	data[2] = pduVersion
	data[3] = pduTypeEntity
	be.PutUint16(data[4:6], p.NetworkID)
	be.PutUint16(data[6:8], p.PlayerID)
	et := p.EntityType
	data[8], data[9] = et.Kind, et.Domain
	be.PutUint16(data[10:12], et.Country)
	data[12], data[13], data[14], data[15] = et.Category, et.Subcategory, et.Specific, et.Extra
	data[16] = uint8(p.DRModel)
	data[17] = uint8(len(p.Federation))
	data[18] = uint8(len(p.Federate))
	data[19] = 0
	putFloat(data[20:28], p.Timestamp)
	putVec(data[28:52], p.State.Position)
	putVec(data[52:76], p.State.Velocity)
	putVec(data[76:100], p.State.Acceleration)
	putVec(data[100:124], p.State.Orientation)
	putVec(data[124:148], p.State.AngularVelocity)
	copy(data[fixedLen:], p.Federation)
	copy(data[fixedLen+len(p.Federation):], p.Federate)
	return nil
}

func decodeEntityState(data []byte, pb gopacket.PacketBuilder) error {
	pdu := &EntityStatePDU{}
	if err := pdu.DecodeFromBytes(data, pb); err != nil {
		return err
	}
	pb.AddLayer(pdu)
	pb.SetApplicationLayer(pdu)
	return nil
}

func getFloat(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) }

func putFloat(b []byte, v float64) { binary.BigEndian.PutUint64(b, math.Float64bits(v)) }

func getVec(b []byte) r3.Vec {
	return r3.Vec{X: getFloat(b[0:8]), Y: getFloat(b[8:16]), Z: getFloat(b[16:24])}
}

func putVec(b []byte, v r3.Vec) {
	putFloat(b[0:8], v.X)
	putFloat(b[8:16], v.Y)
	putFloat(b[16:24], v.Z)
}

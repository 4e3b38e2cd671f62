package gossip

import (
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/schema"
)

// kind tags which of the three gossip message shapes a Gossip-opcode internode body carries.
type kind uint8

const (
	kindSyn  kind = 1
	kindAck  kind = 2
	kindAck2 kind = 3
)

// Syn is the originator's opening message: a digest of every endpoint it knows about.
type Syn struct {
	Digests []Digest
}

// Ack is a peer's reply to a Syn: full EndpointState for every endpoint where the peer's data is
// strictly newer than the digest it received, and digests for endpoints where its own copy is
// strictly older, so the originator knows what to send back in Ack2.
type Ack struct {
	States  map[string]*schema.EndpointState // keyed by endpoint.String()
	Request []Digest
}

// Ack2 is the originator's final reply: full EndpointState for every endpoint the peer asked for.
type Ack2 struct {
	States map[string]*schema.EndpointState
}

func encodeStates(states map[string]*schema.EndpointState, dest io.Writer) error {
	if err := primitive.WriteInt(int32(len(states)), dest); err != nil {
		return err
	}
	for ipStr, state := range states {
		ip := net.ParseIP(ipStr)
		if err := primitive.WriteInetAddr(ip, dest); err != nil {
			return err
		}
		if err := schema.Encode(state, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeStates(source io.Reader) (map[string]*schema.EndpointState, error) {
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*schema.EndpointState, count)
	for i := int32(0); i < count; i++ {
		ip, err := primitive.ReadInetAddr(source)
		if err != nil {
			return nil, err
		}
		state, err := schema.Decode(source)
		if err != nil {
			return nil, err
		}
		out[ip.String()] = state
	}
	return out, nil
}

// EncodeMessage serializes one of *Syn, *Ack or *Ack2 into a byte slice suitable as an internode
// Gossip-opcode frame body.
func EncodeMessage(msg interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch m := msg.(type) {
	case *Syn:
		buf.WriteByte(byte(kindSyn))
		if err := encodeDigests(m.Digests, buf); err != nil {
			return nil, fmt.Errorf("cannot encode SYN: %w", err)
		}
	case *Ack:
		buf.WriteByte(byte(kindAck))
		if err := encodeStates(m.States, buf); err != nil {
			return nil, fmt.Errorf("cannot encode ACK: %w", err)
		}
		if err := encodeDigests(m.Request, buf); err != nil {
			return nil, fmt.Errorf("cannot encode ACK: %w", err)
		}
	case *Ack2:
		buf.WriteByte(byte(kindAck2))
		if err := encodeStates(m.States, buf); err != nil {
			return nil, fmt.Errorf("cannot encode ACK2: %w", err)
		}
	default:
		return nil, fmt.Errorf("gossip: cannot encode message of type %T", msg)
	}
	return buf.Bytes(), nil
}

// DecodeMessage parses a byte slice produced by EncodeMessage back into *Syn, *Ack or *Ack2.
func DecodeMessage(body []byte) (interface{}, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("gossip: empty message body")
	}
	source := bytes.NewReader(body[1:])
	switch kind(body[0]) {
	case kindSyn:
		digests, err := decodeDigests(source)
		if err != nil {
			return nil, fmt.Errorf("cannot decode SYN: %w", err)
		}
		return &Syn{Digests: digests}, nil
	case kindAck:
		states, err := decodeStates(source)
		if err != nil {
			return nil, fmt.Errorf("cannot decode ACK: %w", err)
		}
		request, err := decodeDigests(source)
		if err != nil {
			return nil, fmt.Errorf("cannot decode ACK: %w", err)
		}
		return &Ack{States: states, Request: request}, nil
	case kindAck2:
		states, err := decodeStates(source)
		if err != nil {
			return nil, fmt.Errorf("cannot decode ACK2: %w", err)
		}
		return &Ack2{States: states}, nil
	default:
		return nil, fmt.Errorf("gossip: unknown message kind 0x%02x", body[0])
	}
}

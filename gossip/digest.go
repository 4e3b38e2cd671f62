package gossip

import (
	"fmt"
	"io"
	"net"

	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/schema"
)

// Digest is the compact per-endpoint summary exchanged in a SYN, per §4.7: the endpoint's address
// and the highest (generation, version) the sender has observed for it.
type Digest struct {
	Endpoint   net.IP
	Generation int64
	Version    uint32
}

func (d Digest) String() string {
	return fmt.Sprintf("%v:(gen=%d,ver=%d)", d.Endpoint, d.Generation, d.Version)
}

func digestFrom(ip net.IP, state *schema.EndpointState) Digest {
	return Digest{Endpoint: ip, Generation: state.Heartbeat.Generation, Version: state.Heartbeat.Version}
}

// isNewerThan reports whether d's (generation, version) sorts strictly after other's.
func (d Digest) isNewerThan(other schema.HeartbeatState) bool {
	if d.Generation != other.Generation {
		return d.Generation > other.Generation
	}
	return d.Version > other.Version
}

// isOlderThan reports whether d's (generation, version) sorts strictly before other's.
func (d Digest) isOlderThan(other schema.HeartbeatState) bool {
	if d.Generation != other.Generation {
		return d.Generation < other.Generation
	}
	return d.Version < other.Version
}

func encodeDigest(d Digest, dest io.Writer) error {
	ip4 := d.Endpoint.To4()
	if ip4 == nil {
		return fmt.Errorf("gossip digest requires an IPv4 endpoint, got %v", d.Endpoint)
	}
	if _, err := dest.Write(ip4); err != nil {
		return err
	}
	// generation is carried on the wire as 16 bytes (u128) per §4.7; this implementation's
	// generation values fit in an int64, so the high 8 bytes are always zero.
	var hi [8]byte
	if _, err := dest.Write(hi[:]); err != nil {
		return err
	}
	if err := primitive.WriteLong(d.Generation, dest); err != nil {
		return err
	}
	return primitive.WriteInt(int32(d.Version), dest)
}

func decodeDigest(source io.Reader) (Digest, error) {
	var ip [4]byte
	if _, err := io.ReadFull(source, ip[:]); err != nil {
		return Digest{}, err
	}
	var hi [8]byte
	if _, err := io.ReadFull(source, hi[:]); err != nil {
		return Digest{}, err
	}
	generation, err := primitive.ReadLong(source)
	if err != nil {
		return Digest{}, err
	}
	version, err := primitive.ReadInt(source)
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		Endpoint:   net.IPv4(ip[0], ip[1], ip[2], ip[3]),
		Generation: generation,
		Version:    uint32(version),
	}, nil
}

func encodeDigests(digests []Digest, dest io.Writer) error {
	if err := primitive.WriteInt(int32(len(digests)), dest); err != nil {
		return err
	}
	for _, d := range digests {
		if err := encodeDigest(d, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeDigests(source io.Reader) ([]Digest, error) {
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	out := make([]Digest, count)
	for i := int32(0); i < count; i++ {
		d, err := decodeDigest(source)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

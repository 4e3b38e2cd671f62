// Package internode implements the peer-to-peer transport of §4.8: a connection pool keyed by
// peer address, framing messages per the internode frame layout of §4.1 ([ip u32][length
// u32][opcode u8] then body), and dispatching received bodies to a registered Handler by opcode.
// The body schemas themselves belong to the components that own them: coordinator (Query,
// Response) and gossip (Gossip).
package internode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/frame"
)

// OpCode identifies the kind of message carried in an internode frame body.
type OpCode uint8

const (
	OpCodeQuery    OpCode = 0x01
	OpCodeResponse OpCode = 0x02
	OpCodeGossip   OpCode = 0x03
)

func (o OpCode) String() string {
	switch o {
	case OpCodeQuery:
		return "QUERY"
	case OpCodeResponse:
		return "RESPONSE"
	case OpCodeGossip:
		return "GOSSIP"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(o))
	}
}

// DefaultPort is the internode listen port, per §6 ("default 0x4645").
const DefaultPort = 0x4645

// headerLength is the fixed 9-byte internode frame header: 4 (ip) + 4 (length) + 1 (opcode).
const headerLength = 9

// compressedFlag marks a body as having been passed through the configured MessageCompressor
// before framing. The flag occupies the first byte of the frame body so a receiver that has no
// compressor configured still fails loudly instead of misinterpreting compressed bytes.
const compressedFlag = 0x01
const uncompressedFlag = 0x00

// Header is the internode frame header: the sender's IPv4 address, the body length, and the
// opcode selecting how the body should be interpreted.
type Header struct {
	SourceIP   net.IP
	BodyLength uint32
	OpCode     OpCode
}

func encodeHeader(h *Header, dest io.Writer) error {
	var buf [headerLength]byte
	ip4 := h.SourceIP.To4()
	if ip4 == nil {
		return fmt.Errorf("internode header requires an IPv4 source address, got %v", h.SourceIP)
	}
	copy(buf[0:4], ip4)
	binary.BigEndian.PutUint32(buf[4:8], h.BodyLength)
	buf[8] = byte(h.OpCode)
	_, err := dest.Write(buf[:])
	return err
}

func decodeHeader(source io.Reader) (*Header, error) {
	var buf [headerLength]byte
	if _, err := io.ReadFull(source, buf[:]); err != nil {
		return nil, err
	}
	return &Header{
		SourceIP:   net.IPv4(buf[0], buf[1], buf[2], buf[3]),
		BodyLength: binary.BigEndian.Uint32(buf[4:8]),
		OpCode:     OpCode(buf[8]),
	}, nil
}

// Handler is invoked once per received internode message, on its own goroutine.
type Handler func(from net.IP, opcode OpCode, body []byte)

// Transport owns the internode listener and an outbound connection pool keyed by "ip:port". It
// never holds the pool's lock across a network send (§5 shared-resource policy).
type Transport struct {
	LocalIP     net.IP
	ListenAddr  string
	Handler     Handler
	DialTimeout time.Duration

	// Compressor, if non-nil, is applied to outgoing bodies at least CompressionThreshold bytes
	// long; CompressionThreshold of zero disables compression regardless of Compressor.
	Compressor          frame.BodyCompressor
	CompressionThreshold int

	mu       sync.Mutex
	conns    map[string]net.Conn
	listener net.Listener
	wg       sync.WaitGroup
	closed   bool
}

// NewTransport returns a Transport for localIP, listening on listenAddr once Listen is called.
func NewTransport(localIP net.IP, listenAddr string, handler Handler) *Transport {
	return &Transport{
		LocalIP:     localIP,
		ListenAddr:  listenAddr,
		Handler:     handler,
		DialTimeout: 3 * time.Second,
		conns:       make(map[string]net.Conn),
	}
}

// Listen starts accepting internode connections in the background.
func (t *Transport) Listen() error {
	listener, err := net.Listen("tcp", t.ListenAddr)
	if err != nil {
		return fmt.Errorf("internode transport: cannot listen on %s: %w", t.ListenAddr, err)
	}
	t.listener = listener
	t.wg.Add(1)
	go t.acceptLoop()
	log.Info().Msgf("internode transport: listening on %s", t.ListenAddr)
	return nil
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.isClosed() {
				return
			}
			log.Error().Err(err).Msg("internode transport: accept failed")
			return
		}
		t.wg.Add(1)
		go t.serveConn(conn)
	}
}

func (t *Transport) serveConn(conn net.Conn) {
	defer t.wg.Done()
	defer conn.Close()
	for {
		header, err := decodeHeader(conn)
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("internode transport: connection closed reading header")
			}
			return
		}
		body := make([]byte, header.BodyLength)
		if _, err := io.ReadFull(conn, body); err != nil {
			log.Error().Err(err).Msg("internode transport: connection closed reading body")
			return
		}
		body, err = t.maybeDecompress(body)
		if err != nil {
			log.Error().Err(err).Msg("internode transport: cannot decompress body")
			continue
		}
		if t.Handler != nil {
			go t.Handler(header.SourceIP, header.OpCode, body)
		}
	}
}

// Send delivers body to peerAddr (host:port), opening a connection if none is pooled yet. On I/O
// error the pooled connection is dropped and the send retried once against a fresh connection;
// a second failure is returned to the caller.
func (t *Transport) Send(peerAddr string, opcode OpCode, body []byte) error {
	if err := t.sendOnce(peerAddr, opcode, body); err != nil {
		t.drop(peerAddr)
		return t.sendOnce(peerAddr, opcode, body)
	}
	return nil
}

func (t *Transport) sendOnce(peerAddr string, opcode OpCode, body []byte) error {
	conn, err := t.getConn(peerAddr)
	if err != nil {
		return err
	}
	encodedBody, err := t.maybeCompress(body)
	if err != nil {
		return fmt.Errorf("internode transport: cannot compress body: %w", err)
	}
	header := &Header{SourceIP: t.LocalIP, BodyLength: uint32(len(encodedBody)), OpCode: opcode}
	if err := encodeHeader(header, conn); err != nil {
		return err
	}
	_, err = conn.Write(encodedBody)
	if err != nil {
		return err
	}
	return nil
}

func (t *Transport) getConn(peerAddr string) (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conn, ok := t.conns[peerAddr]; ok {
		return conn, nil
	}
	conn, err := net.DialTimeout("tcp", peerAddr, t.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("internode transport: cannot dial %s: %w", peerAddr, err)
	}
	t.conns[peerAddr] = conn
	return conn, nil
}

func (t *Transport) drop(peerAddr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if conn, ok := t.conns[peerAddr]; ok {
		conn.Close()
		delete(t.conns, peerAddr)
	}
}

func (t *Transport) maybeCompress(body []byte) ([]byte, error) {
	if t.Compressor == nil || t.CompressionThreshold <= 0 || len(body) < t.CompressionThreshold {
		return append([]byte{uncompressedFlag}, body...), nil
	}
	src := bytes.NewReader(body)
	dest := &bytes.Buffer{}
	if err := t.Compressor.Compress(src, dest); err != nil {
		return nil, err
	}
	return append([]byte{compressedFlag}, dest.Bytes()...), nil
}

func (t *Transport) maybeDecompress(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	flag, payload := body[0], body[1:]
	if flag == uncompressedFlag {
		return payload, nil
	}
	if t.Compressor == nil {
		return nil, fmt.Errorf("internode transport: received compressed body with no compressor configured")
	}
	src := bytes.NewReader(payload)
	dest := &bytes.Buffer{}
	if err := t.Compressor.Decompress(src, dest); err != nil {
		return nil, err
	}
	return dest.Bytes(), nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops accepting connections and closes every pooled outbound connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	for addr, conn := range t.conns {
		conn.Close()
		delete(t.conns, addr)
	}
	t.mu.Unlock()
	if t.listener != nil {
		_ = t.listener.Close()
	}
	t.wg.Wait()
	return nil
}

// Command node boots one rusticdb node: it starts the gossip engine, the internode transport,
// the coordinator and the client-facing CQL server, and runs until interrupted.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rusticdb/rusticdb/compression/lz4"
	"github.com/rusticdb/rusticdb/compression/snappy"
	"github.com/rusticdb/rusticdb/config"
	"github.com/rusticdb/rusticdb/coordinator"
	"github.com/rusticdb/rusticdb/frame"
	"github.com/rusticdb/rusticdb/gossip"
	"github.com/rusticdb/rusticdb/internode"
	"github.com/rusticdb/rusticdb/partitioner"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/schema"
	"github.com/rusticdb/rusticdb/storage"

	"github.com/rusticdb/rusticdb/client"
)

// Exit codes per the CLI contract: 0 clean shutdown, 1 bad arguments, 2 I/O or bind failure.
const (
	exitOK        = 0
	exitBadArgs   = 1
	exitStartupIO = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}

	nodeIP := net.ParseIP(cfg.NodeIP)
	if nodeIP == nil {
		fmt.Fprintf(os.Stderr, "config: %q is not a valid IP address\n", cfg.NodeIP)
		return exitBadArgs
	}

	logFile, err := setupLogger(cfg.LogDir, nodeIP)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStartupIO
	}
	defer logFile.Close()

	log.Info().Msgf("node %s starting, storage=%s", nodeIP, cfg.StoragePath)

	catalog := schema.NewCatalog()
	store := storage.New(cfg.StoragePath, nodeIP)
	ring := partitioner.New()
	if err := ring.AddNode(nodeIP); err != nil {
		log.Error().Err(err).Msg("cannot add local node to the partitioner ring")
		return exitStartupIO
	}

	_, internodePortStr, err := net.SplitHostPort(cfg.InternodeListenAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: invalid internode listen address %q\n", cfg.InternodeListenAddress)
		return exitBadArgs
	}
	internodePort := 0
	fmt.Sscanf(internodePortStr, "%d", &internodePort)

	transport := internode.NewTransport(nodeIP, cfg.InternodeListenAddress, nil)
	if codec, ok := compressorFor(cfg.InternodeCompression); ok {
		transport.Compressor = codec
		transport.CompressionThreshold = cfg.InternodeCompressionThreshold
	}

	coord := coordinator.NewCoordinator(nodeIP, internodePort, catalog, store, ring, transport)
	coord.Timeout = cfg.RequestTimeout

	engine := gossip.NewEngine(nodeIP, internodePort, time.Now().UnixNano(), catalog, transport, coord)
	engine.TickInterval = cfg.GossipTickInterval
	engine.FailThreshold = cfg.FailThreshold
	engine.RemoveThreshold = cfg.RemoveThreshold
	coord.IsAlive = engine.IsUp

	transport.Handler = func(from net.IP, opcode internode.OpCode, body []byte) {
		switch opcode {
		case internode.OpCodeQuery:
			coord.HandleQuery(from, body)
		case internode.OpCodeResponse:
			coord.HandleResponse(from, body)
		case internode.OpCodeGossip:
			engine.HandleMessage(from, body)
		default:
			log.Warn().Msgf("internode: unknown opcode %v from %v", opcode, from)
		}
	}

	if err := transport.Listen(); err != nil {
		log.Error().Err(err).Msg("cannot start internode transport")
		return exitStartupIO
	}

	for _, seed := range loadSeeds(cfg.SeedsPath) {
		if seed.Equal(nodeIP) {
			continue
		}
		if err := ring.AddNode(seed); err != nil {
			log.Warn().Err(err).Msgf("cannot add seed %v to the ring", seed)
			continue
		}
		engine.AddSeed(seed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)
	defer engine.Stop()

	server := client.NewCqlServer(cfg.ClientListenAddress, nil)
	server.RequestHandlers = []client.RequestHandler{
		client.NewConnectionInitializationHandler(func(string) {}),
		coord.NewQueryHandler(),
	}
	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			log.Error().Err(err).Msg("cannot load TLS certificate")
			return exitStartupIO
		}
		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	if err := server.Start(serverCtx); err != nil {
		serverCancel()
		log.Error().Err(err).Msg("cannot start CQL server")
		return exitStartupIO
	}
	defer func() {
		serverCancel()
		_ = server.Close()
	}()

	log.Info().Msgf("node %s ready: client=%s internode=%s", nodeIP, cfg.ClientListenAddress, cfg.InternodeListenAddress)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
	return exitOK
}

// compressorFor maps a config-selected codec name to the teacher's frame.BodyCompressor
// implementations, so the same Snappy/LZ4 codecs used on the client wire can also be applied to
// internode traffic above CompressionThreshold (§4.1).
func compressorFor(codec primitive.Compression) (frame.BodyCompressor, bool) {
	switch codec {
	case primitive.CompressionSnappy:
		return snappy.BodyCompressor{}, true
	case primitive.CompressionLz4:
		return lz4.BodyCompressor{}, true
	default:
		return nil, false
	}
}

// loadSeeds returns the seed list named by path. When path is itself an IP address (as the SEED
// environment variable supplies) that address is the whole list; otherwise it reads one IP
// address per non-empty, non-comment line from the file at path. A missing file is
// treated as an empty seed list: a node is always allowed to start as the first member of a ring.
func loadSeeds(path string) []net.IP {
	if ip := net.ParseIP(path); ip != nil {
		return []net.IP{ip}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var seeds []net.IP
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if ip := net.ParseIP(line); ip != nil {
			seeds = append(seeds, ip)
		}
	}
	return seeds
}

// setupLogger points the global zerolog logger at <log_dir>/node_<ip>.log, rendering
// "[LEVEL] [RFC3339-UTC timestamp]: message" lines via a ConsoleWriter with custom formatters
// rather than zerolog's default JSON encoding.
func setupLogger(logDir string, nodeIP net.IP) (*os.File, error) {
	path := filepath.Join(logDir, fmt.Sprintf("node_%s.log", nodeIP.String()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	writer := zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("[%s]", i)
		},
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%s]", strings.ToUpper(fmt.Sprintf("%s", i)))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf(": %s", i)
		},
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.TimestampFieldName, zerolog.MessageFieldName},
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
	return f, nil
}

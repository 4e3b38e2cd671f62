// Package config implements the node bootstrap configuration of SPEC_FULL.md §4.9's ambient
// addition: CLI flags with environment variable overrides, following the teacher's own idiom of
// exported Default* constants and plain struct fields rather than a third-party config library
// (see DESIGN.md for why this is the one component built on the standard library alone).
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/rusticdb/rusticdb/gossip"
	"github.com/rusticdb/rusticdb/primitive"
)

var (
	errUsage              = errors.New("config: usage: node <node_ip> [flags]")
	errInvalidCompression = errors.New("config: internode-compression must be one of NONE, SNAPPY or LZ4")
)

const (
	DefaultClientListenPort    = 9042
	DefaultInternodeListenPort = 7000
	DefaultHealthPort          = 7001

	// DefaultInternodeCompressionThreshold is the minimum body size, in bytes, above which an
	// internode frame is compressed (§4.1's ambient compression-wiring addition).
	DefaultInternodeCompressionThreshold = 512
)

// Config is a node's complete bootstrap configuration, populated by Parse from CLI flags and
// environment variable overrides.
type Config struct {
	NodeIP      string
	StoragePath string
	SeedsPath   string

	ClientListenAddress    string
	InternodeListenAddress string
	HealthListenAddress    string

	TLSCertPath string
	TLSKeyPath  string

	GossipTickInterval time.Duration
	FailThreshold      int
	RemoveThreshold    int

	InternodeCompression          primitive.Compression
	InternodeCompressionThreshold int

	RequestTimeout time.Duration

	LogDir string
}

// Default returns a Config seeded with every Default* constant, for nodeIP and storagePath.
func Default(nodeIP, storagePath string) *Config {
	return &Config{
		NodeIP:                        nodeIP,
		StoragePath:                   storagePath,
		SeedsPath:                     "seed_nodes.txt",
		ClientListenAddress:           net_joinPort(nodeIP, DefaultClientListenPort),
		InternodeListenAddress:        net_joinPort(nodeIP, DefaultInternodeListenPort),
		HealthListenAddress:           net_joinPort(nodeIP, DefaultHealthPort),
		GossipTickInterval:            gossip.DefaultTickInterval,
		FailThreshold:                 gossip.DefaultFailThreshold,
		RemoveThreshold:               gossip.DefaultRemoveThreshold,
		InternodeCompression:          primitive.CompressionSnappy,
		InternodeCompressionThreshold: DefaultInternodeCompressionThreshold,
		RequestTimeout:                3 * time.Second,
		LogDir:                        ".",
	}
}

func net_joinPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// Parse builds a Config from positional args (node_ip, optional storage_path), CLI flags and
// environment variable overrides (applied after the flags, so a set variable wins over both a
// flag default and an explicitly passed flag). Flags mirror the teacher's own plain-struct-and-flag bootstrap pattern; no
// third-party config/env library is used.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("rusticdb-node", flag.ContinueOnError)

	var (
		storagePath     = fs.String("storage", "", "storage root directory")
		seedsPath       = fs.String("seeds", "seed_nodes.txt", "path to the seed node list")
		clientPort      = fs.Int("client-port", DefaultClientListenPort, "client-facing CQL listen port")
		internodePort   = fs.Int("internode-port", DefaultInternodeListenPort, "internode transport listen port")
		healthPort      = fs.Int("health-port", DefaultHealthPort, "health/metrics listen port")
		tlsCert         = fs.String("tls-cert", "", "TLS certificate path (empty disables TLS)")
		tlsKey          = fs.String("tls-key", "", "TLS private key path")
		tickInterval    = fs.Duration("gossip-tick", gossip.DefaultTickInterval, "gossip tick interval")
		failThreshold   = fs.Int("fail-threshold", gossip.DefaultFailThreshold, "missed ticks before marking a peer DOWN")
		removeThreshold = fs.Int("remove-threshold", gossip.DefaultRemoveThreshold, "additional missed ticks before removing a DOWN peer")
		compression     = fs.String("internode-compression", string(primitive.CompressionSnappy), "internode compression codec: NONE, SNAPPY or LZ4")
		compressionMin  = fs.Int("internode-compression-threshold", DefaultInternodeCompressionThreshold, "minimum body size, in bytes, that triggers internode compression")
		requestTimeout  = fs.Duration("request-timeout", 3*time.Second, "coordinator open-query timeout")
		logDir          = fs.String("log-dir", ".", "directory for this node's log file")
	)

	if len(args) < 1 {
		return nil, errUsage
	}
	nodeIP := args[0]
	positional := args[1:]
	if err := fs.Parse(positional); err != nil {
		return nil, err
	}

	cfg := Default(nodeIP, *storagePath)
	cfg.SeedsPath = *seedsPath
	cfg.ClientListenAddress = net_joinPort(nodeIP, *clientPort)
	cfg.InternodeListenAddress = net_joinPort(nodeIP, *internodePort)
	cfg.HealthListenAddress = net_joinPort(nodeIP, *healthPort)
	cfg.TLSCertPath = *tlsCert
	cfg.TLSKeyPath = *tlsKey
	cfg.GossipTickInterval = *tickInterval
	cfg.FailThreshold = *failThreshold
	cfg.RemoveThreshold = *removeThreshold
	cfg.InternodeCompression = primitive.Compression(*compression)
	cfg.InternodeCompressionThreshold = *compressionMin
	cfg.RequestTimeout = *requestTimeout
	cfg.LogDir = *logDir

	applyEnvOverrides(cfg)

	if *storagePath == "" {
		if len(positional) > 0 && positional[0] != "" && positional[0][0] != '-' {
			cfg.StoragePath = positional[0]
		}
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = "."
	}
	if !cfg.InternodeCompression.IsValid() {
		return nil, errInvalidCompression
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment tooling override the node address and seed list without
// touching argv (SEED holds a single seed IP, which takes the seed file's place), matching the NODE_ADDR / SEED environment variables spec.md's CLI section calls
// for.
func applyEnvOverrides(cfg *Config) {
	if addr := os.Getenv("NODE_ADDR"); addr != "" {
		cfg.NodeIP = addr
	}
	if seed := os.Getenv("SEED"); seed != "" {
		cfg.SeedsPath = seed
	}
	if dir := os.Getenv("RUSTICDB_LOG_DIR"); dir != "" {
		cfg.LogDir = dir
	}
}

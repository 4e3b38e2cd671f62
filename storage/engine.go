// Package storage implements the on-disk segment-file storage engine: one CSV-like file per
// (keyspace, table, role), where role is either "primary" (rows this node owns) or "replication"
// (rows this node holds as a successor replica).
package storage

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/rusticdb/rusticdb/rusticerr"
)

// Role distinguishes the two directories a keyspace's tables are stored under.
type Role string

const (
	RolePrimary     Role = "primary"
	RoleReplication Role = "replication"
)

// Engine owns the filesystem root for one node's segment files.
type Engine struct {
	root string
	ip   string

	mu      sync.Mutex
	schemas map[string]*TableSchema // "keyspace.table" -> schema
}

// New returns an Engine rooted at root for the node identified by ip.
func New(root string, ip net.IP) *Engine {
	return &Engine{root: root, ip: ip.String(), schemas: make(map[string]*TableSchema)}
}

func underscoredIP(ip string) string {
	return strings.ReplaceAll(ip, ".", "_")
}

func (e *Engine) keyspaceRoot(keyspace string) string {
	return filepath.Join(e.root, "keyspaces_of_"+underscoredIP(e.ip), keyspace)
}

func (e *Engine) tableDir(keyspace string, role Role) string {
	if role == RolePrimary {
		return e.keyspaceRoot(keyspace)
	}
	return filepath.Join(e.keyspaceRoot(keyspace), string(RoleReplication))
}

func (e *Engine) segmentPath(keyspace, table string, role Role) string {
	return filepath.Join(e.tableDir(keyspace, role), table+".csv")
}

func (e *Engine) indexPath(keyspace, table string, role Role) string {
	return filepath.Join(e.tableDir(keyspace, role), table+"_index.csv")
}

// ResetRoot deletes and recreates this node's keyspaces directory. Used by tests and by a fresh
// node join.
func (e *Engine) ResetRoot() error {
	dir := filepath.Join(e.root, "keyspaces_of_"+underscoredIP(e.ip))
	if err := os.RemoveAll(dir); err != nil {
		return rusticerr.ServerError("cannot remove keyspaces directory: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rusticerr.ServerError("cannot create keyspaces directory: %v", err)
	}
	log.Trace().Msgf("storage: reset root at %s", dir)
	return nil
}

// TableSchema records what the engine needs to know about a table's column layout.
type TableSchema struct {
	Keyspace         string
	Table            string
	Columns          []string // declared order, including key columns
	PartitionKeys    []string
	ClusteringKeys   []string
	ClusteringOrders map[string]string // "ASC" or "DESC", keyed by clustering column
}

func schemaKey(keyspace, table string) string { return keyspace + "." + table }

func (e *Engine) schemaFor(keyspace, table string) (*TableSchema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	schema, ok := e.schemas[schemaKey(keyspace, table)]
	if !ok {
		return nil, rusticerr.Invalid("unknown table %s.%s", keyspace, table)
	}
	return schema, nil
}

func (e *Engine) putSchema(schema *TableSchema) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemas[schemaKey(schema.Keyspace, schema.Table)] = schema
}

func (e *Engine) dropSchema(keyspace, table string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.schemas, schemaKey(keyspace, table))
}

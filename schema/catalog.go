package schema

import (
	"sync"
	"sync/atomic"

	"github.com/rusticdb/rusticdb/rusticerr"
)

// Catalog is a node's view of cluster schema: the keyspaces and tables it knows about, along with
// a monotonic schema version bumped on every local DDL mutation. A node's ApplicationState.Keyspaces
// snapshot (disseminated by gossip) is always Catalog.Snapshot(); conversely, when gossip learns of
// a peer with a strictly higher schema version, it calls Adopt to replace the local view wholesale,
// per §4.6 ("full replacement of the affected KeyspaceSchema").
type Catalog struct {
	mu       sync.RWMutex
	version  uint32
	keyspace map[string]*KeyspaceSchema
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{keyspace: make(map[string]*KeyspaceSchema)}
}

// Version returns the current local schema version.
func (c *Catalog) Version() uint32 {
	return atomic.LoadUint32(&c.version)
}

func (c *Catalog) bumpLocked() {
	c.version++
}

// Keyspace returns the named keyspace, or an Invalid error if it is unknown.
func (c *Catalog) Keyspace(name string) (*KeyspaceSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ks, ok := c.keyspace[name]
	if !ok {
		return nil, rusticerr.Invalid("unknown keyspace %s", name)
	}
	return ks, nil
}

// Table returns the named table within keyspace, or an Invalid error if either is unknown.
func (c *Catalog) Table(keyspace, table string) (*TableSchema, error) {
	ks, err := c.Keyspace(keyspace)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := ks.Tables[table]
	if !ok {
		return nil, rusticerr.Invalid("unknown table %s.%s", keyspace, table)
	}
	return t, nil
}

// ReplicationFactor returns the configured replication factor for keyspace.
func (c *Catalog) ReplicationFactor(keyspace string) (int, error) {
	ks, err := c.Keyspace(keyspace)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ks.ReplicationFactor, nil
}

// CreateKeyspace registers a new keyspace. Returns AlreadyExists unless ifNotExists is set.
func (c *Catalog) CreateKeyspace(name, class string, rf int, createStatement string, ifNotExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keyspace[name]; ok {
		if ifNotExists {
			return nil
		}
		return rusticerr.AlreadyExists("keyspace %s already exists", name)
	}
	c.keyspace[name] = &KeyspaceSchema{
		Name:              name,
		CreateStatement:   createStatement,
		ReplicationClass:  class,
		ReplicationFactor: rf,
		Tables:            make(map[string]*TableSchema),
	}
	c.bumpLocked()
	return nil
}

// AlterKeyspace updates an existing keyspace's replication options.
func (c *Catalog) AlterKeyspace(name, class string, rf int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks, ok := c.keyspace[name]
	if !ok {
		return rusticerr.Invalid("unknown keyspace %s", name)
	}
	ks.ReplicationClass = class
	ks.ReplicationFactor = rf
	c.bumpLocked()
	return nil
}

// DropKeyspace removes a keyspace. Returns Invalid unless ifExists is set.
func (c *Catalog) DropKeyspace(name string, ifExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keyspace[name]; !ok {
		if ifExists {
			return nil
		}
		return rusticerr.Invalid("keyspace %s does not exist", name)
	}
	delete(c.keyspace, name)
	c.bumpLocked()
	return nil
}

// CreateTable registers table within keyspace. Returns AlreadyExists unless ifNotExists is set.
func (c *Catalog) CreateTable(keyspace string, table *TableSchema, ifNotExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks, ok := c.keyspace[keyspace]
	if !ok {
		return rusticerr.Invalid("unknown keyspace %s", keyspace)
	}
	if _, ok := ks.Tables[table.Name]; ok {
		if ifNotExists {
			return nil
		}
		return rusticerr.AlreadyExists("table %s.%s already exists", keyspace, table.Name)
	}
	ks.Tables[table.Name] = table
	c.bumpLocked()
	return nil
}

// DropTable removes a table from keyspace. Returns Invalid unless ifExists is set.
func (c *Catalog) DropTable(keyspace, table string, ifExists bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks, ok := c.keyspace[keyspace]
	if !ok {
		if ifExists {
			return nil
		}
		return rusticerr.Invalid("unknown keyspace %s", keyspace)
	}
	if _, ok := ks.Tables[table]; !ok {
		if ifExists {
			return nil
		}
		return rusticerr.Invalid("unknown table %s.%s", keyspace, table)
	}
	delete(ks.Tables, table)
	c.bumpLocked()
	return nil
}

// ReplaceTable overwrites a table's definition in place, used by ALTER TABLE.
func (c *Catalog) ReplaceTable(keyspace string, table *TableSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ks, ok := c.keyspace[keyspace]
	if !ok {
		return rusticerr.Invalid("unknown keyspace %s", keyspace)
	}
	ks.Tables[table.Name] = table
	c.bumpLocked()
	return nil
}

// Snapshot returns a deep copy of every keyspace known locally, suitable for embedding in an
// outgoing ApplicationState.
func (c *Catalog) Snapshot() map[string]*KeyspaceSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*KeyspaceSchema, len(c.keyspace))
	for name, ks := range c.keyspace {
		out[name] = ks.Clone()
	}
	return out
}

// Adopt replaces the local schema wholesale with a peer's, provided peerVersion is strictly newer
// than the local version. Returns true if the adoption took place.
func (c *Catalog) Adopt(keyspaces map[string]*KeyspaceSchema, peerVersion uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if peerVersion <= c.version {
		return false
	}
	next := make(map[string]*KeyspaceSchema, len(keyspaces))
	for name, ks := range keyspaces {
		next[name] = ks.Clone()
	}
	c.keyspace = next
	c.version = peerVersion
	return true
}

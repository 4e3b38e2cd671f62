package schema

import (
	"fmt"
	"io"

	"github.com/rusticdb/rusticdb/primitive"
)

// HeartbeatState is the generation/version pair described in §4.6: generation is fixed at process
// start (wall-clock seconds), version increments once per local gossip tick. Ordering is
// lexicographic on (generation, version).
type HeartbeatState struct {
	Generation int64
	Version    uint32
}

// IsNewerThan reports whether h sorts strictly after other in (generation, version) order.
func (h HeartbeatState) IsNewerThan(other HeartbeatState) bool {
	if h.Generation != other.Generation {
		return h.Generation > other.Generation
	}
	return h.Version > other.Version
}

// IncVersion bumps the local version. Called once per gossip tick; generation never changes for
// the lifetime of the process.
func (h *HeartbeatState) IncVersion() {
	h.Version++
}

func (h HeartbeatState) String() string {
	return fmt.Sprintf("(gen=%d, ver=%d)", h.Generation, h.Version)
}

// Status is the liveness label carried in ApplicationState.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusBoot    Status = "BOOTSTRAPPING"
	StatusUnknown Status = "UNKNOWN"
)

// ApplicationState is the per-endpoint payload gossiped alongside HeartbeatState: liveness
// status, the node's current schema version, and a full snapshot of its keyspaces.
type ApplicationState struct {
	Status        Status
	SchemaVersion uint32
	Keyspaces     map[string]*KeyspaceSchema
}

// Clone returns a deep copy of a.
func (a ApplicationState) Clone() ApplicationState {
	out := ApplicationState{Status: a.Status, SchemaVersion: a.SchemaVersion, Keyspaces: make(map[string]*KeyspaceSchema, len(a.Keyspaces))}
	for name, ks := range a.Keyspaces {
		out.Keyspaces[name] = ks.Clone()
	}
	return out
}

// EndpointState is the complete gossiped state for one node: its heartbeat and its application
// state. A node picks up a peer's EndpointState wholesale when the peer's HeartbeatState sorts
// strictly after the locally-known copy.
type EndpointState struct {
	Heartbeat   HeartbeatState
	Application ApplicationState
}

// IsNewerThan reports whether e should replace other as the locally-known state for an endpoint.
func (e *EndpointState) IsNewerThan(other *EndpointState) bool {
	if other == nil {
		return true
	}
	return e.Heartbeat.IsNewerThan(other.Heartbeat)
}

// Clone returns a deep copy of e.
func (e *EndpointState) Clone() *EndpointState {
	return &EndpointState{Heartbeat: e.Heartbeat, Application: e.Application.Clone()}
}

// Encode writes e to dest: generation, version, status, schema version, then a count-prefixed
// list of keyspaces.
func Encode(e *EndpointState, dest io.Writer) error {
	if err := primitive.WriteLong(e.Heartbeat.Generation, dest); err != nil {
		return fmt.Errorf("cannot write generation: %w", err)
	}
	if err := primitive.WriteInt(int32(e.Heartbeat.Version), dest); err != nil {
		return fmt.Errorf("cannot write version: %w", err)
	}
	if err := primitive.WriteString(string(e.Application.Status), dest); err != nil {
		return fmt.Errorf("cannot write status: %w", err)
	}
	if err := primitive.WriteInt(int32(e.Application.SchemaVersion), dest); err != nil {
		return fmt.Errorf("cannot write schema version: %w", err)
	}
	if err := primitive.WriteInt(int32(len(e.Application.Keyspaces)), dest); err != nil {
		return fmt.Errorf("cannot write keyspace count: %w", err)
	}
	for _, ks := range e.Application.Keyspaces {
		if err := encodeKeyspace(ks, dest); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads an EndpointState previously written by Encode.
func Decode(source io.Reader) (*EndpointState, error) {
	generation, err := primitive.ReadLong(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read generation: %w", err)
	}
	version, err := primitive.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read version: %w", err)
	}
	status, err := primitive.ReadString(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read status: %w", err)
	}
	schemaVersion, err := primitive.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read schema version: %w", err)
	}
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read keyspace count: %w", err)
	}
	keyspaces := make(map[string]*KeyspaceSchema, count)
	for i := int32(0); i < count; i++ {
		ks, err := decodeKeyspace(source)
		if err != nil {
			return nil, err
		}
		keyspaces[ks.Name] = ks
	}
	return &EndpointState{
		Heartbeat: HeartbeatState{Generation: generation, Version: uint32(version)},
		Application: ApplicationState{
			Status:        Status(status),
			SchemaVersion: uint32(schemaVersion),
			Keyspaces:     keyspaces,
		},
	}, nil
}

func encodeKeyspace(ks *KeyspaceSchema, dest io.Writer) error {
	if err := primitive.WriteString(ks.Name, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(ks.CreateStatement, dest); err != nil {
		return err
	}
	if err := primitive.WriteString(ks.ReplicationClass, dest); err != nil {
		return err
	}
	if err := primitive.WriteInt(int32(ks.ReplicationFactor), dest); err != nil {
		return err
	}
	if err := primitive.WriteInt(int32(len(ks.Tables)), dest); err != nil {
		return err
	}
	for _, t := range ks.Tables {
		if err := encodeTable(t, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeKeyspace(source io.Reader) (*KeyspaceSchema, error) {
	name, err := primitive.ReadString(source)
	if err != nil {
		return nil, err
	}
	createStmt, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	class, err := primitive.ReadString(source)
	if err != nil {
		return nil, err
	}
	rf, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	tables := make(map[string]*TableSchema, count)
	for i := int32(0); i < count; i++ {
		t, err := decodeTable(source)
		if err != nil {
			return nil, err
		}
		tables[t.Name] = t
	}
	return &KeyspaceSchema{
		Name:              name,
		CreateStatement:   createStmt,
		ReplicationClass:  class,
		ReplicationFactor: int(rf),
		Tables:            tables,
	}, nil
}

func encodeTable(t *TableSchema, dest io.Writer) error {
	if err := primitive.WriteString(t.Name, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(t.CreateStatement, dest); err != nil {
		return err
	}
	if err := primitive.WriteInt(int32(len(t.Columns)), dest); err != nil {
		return err
	}
	for _, c := range t.Columns {
		if err := primitive.WriteString(c.Name, dest); err != nil {
			return err
		}
		if err := primitive.WriteString(c.Type, dest); err != nil {
			return err
		}
		if err := primitive.WriteByte(uint8(c.Kind), dest); err != nil {
			return err
		}
		if err := primitive.WriteByte(uint8(c.Order), dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeTable(source io.Reader) (*TableSchema, error) {
	name, err := primitive.ReadString(source)
	if err != nil {
		return nil, err
	}
	createStmt, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, count)
	for i := int32(0); i < count; i++ {
		colName, err := primitive.ReadString(source)
		if err != nil {
			return nil, err
		}
		colType, err := primitive.ReadString(source)
		if err != nil {
			return nil, err
		}
		kind, err := primitive.ReadByte(source)
		if err != nil {
			return nil, err
		}
		order, err := primitive.ReadByte(source)
		if err != nil {
			return nil, err
		}
		columns[i] = Column{Name: colName, Type: colType, Kind: ColumnKind(kind), Order: ClusteringOrder(order)}
	}
	return &TableSchema{Name: name, CreateStatement: createStmt, Columns: columns}, nil
}

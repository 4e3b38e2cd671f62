// Package schema implements the per-endpoint schema representation disseminated by gossip (§4.6):
// heartbeat state, application state, and the keyspace/table definitions a node's ApplicationState
// snapshot carries. The node-local authoritative copy of this data lives in a Catalog (catalog.go);
// EndpointState (endpoint.go) is the versioned envelope gossip exchanges between peers.
package schema

// ColumnKind classifies a column's role in a table's primary key, mirroring cql.ColumnKind but
// kept as its own type since schema is disseminated independently of any one node's parser.
type ColumnKind int

const (
	ColumnKindRegular ColumnKind = iota
	ColumnKindPartitionKey
	ColumnKindClusteringKey
)

// ClusteringOrder is the declared sort direction of a clustering column.
type ClusteringOrder int

const (
	ClusteringOrderAsc ClusteringOrder = iota
	ClusteringOrderDesc
)

// Column describes one column of a TableSchema.
type Column struct {
	Name  string
	Type  string
	Kind  ColumnKind
	Order ClusteringOrder
}

// TableSchema is the gossip-disseminated shape of one table: its declared column vector plus the
// original CREATE TABLE text, kept around so a node that adopts a peer's schema can answer
// `system_schema`-style introspection without reconstructing DDL from the column vector.
type TableSchema struct {
	Name            string
	CreateStatement string
	Columns         []Column
}

// PartitionKeys returns the partition-key column names, in declared order.
func (t *TableSchema) PartitionKeys() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Kind == ColumnKindPartitionKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// ClusteringKeys returns the clustering-key column names, in declared order.
func (t *TableSchema) ClusteringKeys() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Kind == ColumnKindClusteringKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// ClusteringOrders returns the declared ASC/DESC tag for every clustering column, keyed by name.
func (t *TableSchema) ClusteringOrders() map[string]string {
	out := make(map[string]string)
	for _, c := range t.Columns {
		if c.Kind != ColumnKindClusteringKey {
			continue
		}
		if c.Order == ClusteringOrderDesc {
			out[c.Name] = "DESC"
		} else {
			out[c.Name] = "ASC"
		}
	}
	return out
}

// ColumnNames returns every column name in declared order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy of t.
func (t *TableSchema) Clone() *TableSchema {
	out := &TableSchema{Name: t.Name, CreateStatement: t.CreateStatement}
	out.Columns = append(out.Columns, t.Columns...)
	return out
}

// KeyspaceSchema is the gossip-disseminated shape of one keyspace: its replication options and
// the tables it currently owns.
type KeyspaceSchema struct {
	Name              string
	CreateStatement   string
	ReplicationClass  string
	ReplicationFactor int
	Tables            map[string]*TableSchema
}

// Clone returns a deep copy of k, including every table.
func (k *KeyspaceSchema) Clone() *KeyspaceSchema {
	out := &KeyspaceSchema{
		Name:              k.Name,
		CreateStatement:   k.CreateStatement,
		ReplicationClass:  k.ReplicationClass,
		ReplicationFactor: k.ReplicationFactor,
		Tables:            make(map[string]*TableSchema, len(k.Tables)),
	}
	for name, t := range k.Tables {
		out.Tables[name] = t.Clone()
	}
	return out
}

package coordinator

import (
	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/message"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/schema"
)

// DDL statements are applied directly to the local Catalog and storage engine; §4.6 disseminates
// the resulting schema version and KeyspaceSchema snapshot to peers via gossip rather than a
// dedicated internode RPC, so no fan-out happens here.

func (c *Coordinator) execCreateKeyspace(s *cql.CreateKeyspace) (message.Message, error) {
	if err := c.Storage.CreateKeyspace(s); err != nil {
		return nil, err
	}
	if err := c.Catalog.CreateKeyspace(s.Keyspace, s.ReplicationClass, s.ReplicationFactor, "", s.IfNotExists); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeCreated,
		Target:     primitive.SchemaChangeTargetKeyspace,
		Keyspace:   s.Keyspace,
	}, nil
}

func (c *Coordinator) execAlterKeyspace(s *cql.AlterKeyspace) (message.Message, error) {
	if err := c.Catalog.AlterKeyspace(s.Keyspace, s.ReplicationClass, s.ReplicationFactor); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeUpdated,
		Target:     primitive.SchemaChangeTargetKeyspace,
		Keyspace:   s.Keyspace,
	}, nil
}

func (c *Coordinator) execDropKeyspace(s *cql.DropKeyspace) (message.Message, error) {
	if err := c.Storage.DropKeyspace(s); err != nil {
		return nil, err
	}
	if err := c.Catalog.DropKeyspace(s.Keyspace, s.IfExists); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeDropped,
		Target:     primitive.SchemaChangeTargetKeyspace,
		Keyspace:   s.Keyspace,
	}, nil
}

func (c *Coordinator) execCreateTable(s *cql.CreateTable) (message.Message, error) {
	if err := c.Storage.CreateTable(s); err != nil {
		return nil, err
	}
	if err := c.Catalog.CreateTable(s.Keyspace, tableSchemaFromCreate(s), s.IfNotExists); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeCreated,
		Target:     primitive.SchemaChangeTargetTable,
		Keyspace:   s.Keyspace,
		Object:     s.Table,
	}, nil
}

func (c *Coordinator) execAlterTable(s *cql.AlterTable) (message.Message, error) {
	if err := c.Storage.AlterTable(s); err != nil {
		return nil, err
	}
	t, err := c.Catalog.Table(s.Keyspace, s.Table)
	if err != nil {
		return nil, err
	}
	next := applyAlterToSchema(t, s)
	if err := c.Catalog.ReplaceTable(s.Keyspace, next); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeUpdated,
		Target:     primitive.SchemaChangeTargetTable,
		Keyspace:   s.Keyspace,
		Object:     s.Table,
	}, nil
}

func (c *Coordinator) execDropTable(s *cql.DropTable) (message.Message, error) {
	if err := c.Storage.DropTable(s); err != nil {
		return nil, err
	}
	if err := c.Catalog.DropTable(s.Keyspace, s.Table, s.IfExists); err != nil {
		return nil, err
	}
	return &message.SchemaChangeResult{
		ChangeType: primitive.SchemaChangeTypeDropped,
		Target:     primitive.SchemaChangeTargetTable,
		Keyspace:   s.Keyspace,
		Object:     s.Table,
	}, nil
}

func tableSchemaFromCreate(s *cql.CreateTable) *schema.TableSchema {
	t := &schema.TableSchema{Name: s.Table}
	for _, col := range s.Columns {
		c := schema.Column{Name: col.Name, Type: col.Type}
		switch col.Kind {
		case cql.ColumnKindPartitionKey:
			c.Kind = schema.ColumnKindPartitionKey
		case cql.ColumnKindClusteringKey:
			c.Kind = schema.ColumnKindClusteringKey
			if s.ClusteringOrders[col.Name] == cql.ClusteringOrderDesc {
				c.Order = schema.ClusteringOrderDesc
			}
		}
		t.Columns = append(t.Columns, c)
	}
	return t
}

// applyAlterToSchema rebuilds a schema.TableSchema's column vector to reflect an ALTER TABLE op,
// mirroring storage.Engine.AlterTable's own rewrite so the gossip-disseminated Catalog entry
// never drifts from the on-disk segment layout.
func applyAlterToSchema(t *schema.TableSchema, s *cql.AlterTable) *schema.TableSchema {
	next := t.Clone()
	switch s.Op {
	case cql.AlterTableAdd:
		kind := schema.ColumnKindRegular
		switch s.Column.Kind {
		case cql.ColumnKindPartitionKey:
			kind = schema.ColumnKindPartitionKey
		case cql.ColumnKindClusteringKey:
			kind = schema.ColumnKindClusteringKey
		}
		next.Columns = append(next.Columns, schema.Column{Name: s.Column.Name, Type: s.Column.Type, Kind: kind})
	case cql.AlterTableDrop:
		filtered := next.Columns[:0:0]
		for _, c := range next.Columns {
			if c.Name != s.DropName {
				filtered = append(filtered, c)
			}
		}
		next.Columns = filtered
	case cql.AlterTableRename:
		for i, c := range next.Columns {
			if c.Name == s.FromName {
				next.Columns[i].Name = s.ToName
			}
		}
	}
	return next
}

// ensureSchemaLocal registers every keyspace/table the Catalog currently knows about with the
// local storage engine, idempotently. Called after gossip adopts a peer's schema (§4.6), so a
// node that did not originate a CREATE TABLE can still serve reads/writes for it.
func (c *Coordinator) ensureSchemaLocal() {
	for _, ks := range c.Catalog.Snapshot() {
		_ = c.Storage.CreateKeyspace(&cql.CreateKeyspace{
			Keyspace:          ks.Name,
			IfNotExists:       true,
			ReplicationClass:  ks.ReplicationClass,
			ReplicationFactor: ks.ReplicationFactor,
		})
		for _, t := range ks.Tables {
			_ = c.Storage.CreateTable(createTableFromSchema(ks.Name, t))
		}
	}
}

func createTableFromSchema(keyspace string, t *schema.TableSchema) *cql.CreateTable {
	stmt := &cql.CreateTable{
		Keyspace:         keyspace,
		Table:            t.Name,
		IfNotExists:      true,
		ClusteringOrders: map[string]cql.ClusteringOrder{},
	}
	for _, c := range t.Columns {
		col := cql.Column{Name: c.Name, Type: c.Type}
		switch c.Kind {
		case schema.ColumnKindPartitionKey:
			col.Kind = cql.ColumnKindPartitionKey
		case schema.ColumnKindClusteringKey:
			col.Kind = cql.ColumnKindClusteringKey
			if c.Order == schema.ClusteringOrderDesc {
				stmt.ClusteringOrders[c.Name] = cql.ClusteringOrderDesc
			}
		}
		stmt.Columns = append(stmt.Columns, col)
	}
	return stmt
}

package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/rusticerr"
)

// CreateKeyspace creates the primary and replication directories for a new keyspace.
func (e *Engine) CreateKeyspace(stmt *cql.CreateKeyspace) error {
	dir := e.keyspaceRoot(stmt.Keyspace)
	if _, err := os.Stat(dir); err == nil {
		if stmt.IfNotExists {
			return nil
		}
		return rusticerr.AlreadyExists("keyspace %s already exists", stmt.Keyspace)
	}
	if err := os.MkdirAll(filepath.Join(dir, string(RoleReplication)), 0o755); err != nil {
		return rusticerr.ServerError("cannot create keyspace %s: %v", stmt.Keyspace, err)
	}
	log.Trace().Msgf("storage: created keyspace %s", stmt.Keyspace)
	return nil
}

// DropKeyspace recursively removes a keyspace's directory tree.
func (e *Engine) DropKeyspace(stmt *cql.DropKeyspace) error {
	dir := e.keyspaceRoot(stmt.Keyspace)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if stmt.IfExists {
			return nil
		}
		return rusticerr.Invalid("keyspace %s does not exist", stmt.Keyspace)
	}
	if err := os.RemoveAll(dir); err != nil {
		return rusticerr.ServerError("cannot drop keyspace %s: %v", stmt.Keyspace, err)
	}
	log.Trace().Msgf("storage: dropped keyspace %s", stmt.Keyspace)
	return nil
}

func schemaFromCreateTable(stmt *cql.CreateTable) *TableSchema {
	schema := &TableSchema{
		Keyspace:         stmt.Keyspace,
		Table:            stmt.Table,
		ClusteringOrders: map[string]string{},
	}
	for _, col := range stmt.Columns {
		schema.Columns = append(schema.Columns, col.Name)
		switch col.Kind {
		case cql.ColumnKindPartitionKey:
			schema.PartitionKeys = append(schema.PartitionKeys, col.Name)
		case cql.ColumnKindClusteringKey:
			schema.ClusteringKeys = append(schema.ClusteringKeys, col.Name)
		}
	}
	for name, order := range stmt.ClusteringOrders {
		if order == cql.ClusteringOrderDesc {
			schema.ClusteringOrders[name] = "DESC"
		} else {
			schema.ClusteringOrders[name] = "ASC"
		}
	}
	return schema
}

// CreateTable writes the header-only primary and replication segment files for a new table.
func (e *Engine) CreateTable(stmt *cql.CreateTable) error {
	for _, role := range []Role{RolePrimary, RoleReplication} {
		path := e.segmentPath(stmt.Keyspace, stmt.Table, role)
		if _, err := os.Stat(path); err == nil {
			if stmt.IfNotExists {
				e.putSchema(schemaFromCreateTable(stmt))
				return nil
			}
			return rusticerr.AlreadyExists("table %s.%s already exists", stmt.Keyspace, stmt.Table)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return rusticerr.ServerError("cannot create table directory: %v", err)
		}
		schema := schemaFromCreateTable(stmt)
		if err := writeHeader(path, schema.Columns); err != nil {
			return err
		}
	}
	e.putSchema(schemaFromCreateTable(stmt))
	log.Trace().Msgf("storage: created table %s.%s", stmt.Keyspace, stmt.Table)
	return nil
}

// DropTable deletes both segment files and both index files for a table.
func (e *Engine) DropTable(stmt *cql.DropTable) error {
	schema, err := e.schemaFor(stmt.Keyspace, stmt.Table)
	if err != nil {
		if stmt.IfExists {
			return nil
		}
		return err
	}
	for _, role := range []Role{RolePrimary, RoleReplication} {
		_ = os.Remove(e.segmentPath(stmt.Keyspace, stmt.Table, role))
		_ = os.Remove(e.indexPath(stmt.Keyspace, stmt.Table, role))
	}
	e.dropSchema(stmt.Keyspace, stmt.Table)
	log.Trace().Msgf("storage: dropped table %s.%s", stmt.Keyspace, stmt.Table)
	_ = schema
	return nil
}

// AlterTable applies an ADD, DROP or RENAME column operation, rewriting every row of both
// segment files to match the new column vector. Column type modification is rejected.
func (e *Engine) AlterTable(stmt *cql.AlterTable) error {
	schema, err := e.schemaFor(stmt.Keyspace, stmt.Table)
	if err != nil {
		return err
	}
	newSchema := *schema
	newSchema.Columns = append([]string(nil), schema.Columns...)

	// sourceColumns tracks, position-for-position with newSchema.Columns, which old column name
	// holds each cell's value. For ADD/DROP the position and name move together, so sourceColumns
	// and newSchema.Columns agree; for RENAME the column keeps its position and data but gets a
	// new name, so sourceColumns must keep the *old* name at that position while newSchema.Columns
	// gets the new one. Looking the value up by newSchema.Columns's name (as a prior revision did)
	// finds nothing under the old name and silently zeroes the renamed column.
	sourceColumns := append([]string(nil), schema.Columns...)

	switch stmt.Op {
	case cql.AlterTableAdd:
		newSchema.Columns = append(newSchema.Columns, stmt.Column.Name)
		sourceColumns = append(sourceColumns, "")
	case cql.AlterTableDrop:
		if contains(schema.PartitionKeys, stmt.DropName) || contains(schema.ClusteringKeys, stmt.DropName) {
			return rusticerr.Invalid("cannot drop key column %s", stmt.DropName)
		}
		newSchema.Columns = removeString(newSchema.Columns, stmt.DropName)
		sourceColumns = removeString(sourceColumns, stmt.DropName)
	case cql.AlterTableRename:
		for i, c := range newSchema.Columns {
			if c == stmt.FromName {
				newSchema.Columns[i] = stmt.ToName
			}
		}
		renameKeyColumn(&newSchema, stmt.FromName, stmt.ToName)
	}

	for _, role := range []Role{RolePrimary, RoleReplication} {
		if err := rewriteSegmentColumns(e.segmentPath(stmt.Keyspace, stmt.Table, role), schema.Columns, sourceColumns, newSchema.Columns); err != nil {
			return err
		}
	}
	e.putSchema(&newSchema)
	log.Trace().Msgf("storage: altered table %s.%s", stmt.Keyspace, stmt.Table)
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func removeString(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func renameKeyColumn(schema *TableSchema, from, to string) {
	for i, c := range schema.PartitionKeys {
		if c == from {
			schema.PartitionKeys[i] = to
		}
	}
	for i, c := range schema.ClusteringKeys {
		if c == from {
			schema.ClusteringKeys[i] = to
		}
	}
	if order, ok := schema.ClusteringOrders[from]; ok {
		delete(schema.ClusteringOrders, from)
		schema.ClusteringOrders[to] = order
	}
}

// rewriteSegmentColumns rewrites a segment file's header and every row to align with newColumns.
// sourceColumns is positionally parallel to newColumns: sourceColumns[i] names the old column
// supplying newColumns[i]'s value (the empty string for a column with no old counterpart, i.e. an
// ADD). Reading sourceColumns[i] rather than newColumns[i] out of the decoded row is what lets a
// RENAME carry its data forward even though the column's name changed.
func rewriteSegmentColumns(path string, oldColumns, sourceColumns, newColumns []string) error {
	rows, err := readAllRows(path, oldColumns)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	remapped := make([]row, 0, len(rows))
	for _, r := range rows {
		values := make([]string, len(newColumns))
		for i := range newColumns {
			if src := sourceColumns[i]; src != "" {
				values[i] = r.values[src]
			}
		}
		remapped = append(remapped, row{values: mapFromColumns(newColumns, values), timestamp: r.timestamp})
	}
	return writeAllRows(path, newColumns, remapped)
}

func mapFromColumns(columns, values []string) map[string]string {
	m := make(map[string]string, len(columns))
	for i, c := range columns {
		if i < len(values) {
			m[c] = values[i]
		}
	}
	return m
}

func writeHeader(path string, columns []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(columns, ",")+"\n"), 0o644); err != nil {
		return rusticerr.ServerError("cannot write segment header: %v", err)
	}
	return nil
}

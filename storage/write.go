package storage

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/rusticerr"
)

func ensureSegmentExists(path string, columns []string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return writeHeader(path, columns)
	}
	return nil
}

// upsert implements the write path of §4.5: stream-scan the segment for a row with the same
// identity, and either append a new row, replace an existing one whose stored timestamp is
// older, or silently drop an out-of-order write.
func (e *Engine) upsert(schema *TableSchema, role Role, keyValues, setValues map[string]string, timestamp int64, ifNotExists bool) error {
	path := e.segmentPath(schema.Keyspace, schema.Table, role)
	if err := ensureSegmentExists(path, schema.Columns); err != nil {
		return err
	}
	rows, err := readAllRows(path, schema.Columns)
	if err != nil {
		return rusticerr.ServerError("cannot read segment %s: %v", path, err)
	}

	targetIdentity := identity(schema, keyValues)
	found := -1
	for i, r := range rows {
		if r.identity(schema) == targetIdentity {
			found = i
			break
		}
	}

	if found < 0 {
		values := merge(keyValues, setValues, nil)
		rows = append(rows, row{values: values, timestamp: timestamp})
		if err := writeAllRows(path, schema.Columns, rows); err != nil {
			return err
		}
		return e.rebuildIndex(schema, role)
	}

	if ifNotExists {
		return rusticerr.AlreadyExists("row already exists in %s.%s", schema.Keyspace, schema.Table)
	}
	if timestamp <= rows[found].timestamp {
		log.Trace().Msgf("storage: dropping stale write to %s.%s (ts=%d <= stored=%d)",
			schema.Keyspace, schema.Table, timestamp, rows[found].timestamp)
		return nil
	}
	rows[found] = row{values: merge(keyValues, setValues, rows[found].values), timestamp: timestamp}
	if err := writeAllRows(path, schema.Columns, rows); err != nil {
		return err
	}
	return e.rebuildIndex(schema, role)
}

// merge layers keyValues then setValues over an existing row's values (or zero values if nil),
// so that a partial UPDATE only overwrites the columns it names.
func merge(keyValues, setValues, existing map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range keyValues {
		out[k] = v
	}
	for k, v := range setValues {
		out[k] = v
	}
	return out
}

// Insert executes an INSERT statement against role (RolePrimary for the owner, RoleReplication
// for a replica target).
func (e *Engine) Insert(stmt *cql.Insert, role Role, timestamp int64) error {
	schema, err := e.schemaFor(stmt.Keyspace, stmt.Table)
	if err != nil {
		return err
	}
	values := make(map[string]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		values[c] = stmt.Values[i]
	}
	keyValues := make(map[string]string)
	for _, k := range append(append([]string{}, schema.PartitionKeys...), schema.ClusteringKeys...) {
		keyValues[k] = values[k]
	}
	setValues := make(map[string]string)
	for k, v := range values {
		if !contains(schema.PartitionKeys, k) && !contains(schema.ClusteringKeys, k) {
			setValues[k] = v
		}
	}
	return e.upsert(schema, role, keyValues, setValues, timestamp, stmt.IfNotExists)
}

// Update executes an UPDATE statement. keyValues must supply every partition and clustering
// column value, typically extracted from the WHERE clause by the coordinator.
func (e *Engine) Update(stmt *cql.Update, role Role, keyValues map[string]string, timestamp int64) error {
	schema, err := e.schemaFor(stmt.Keyspace, stmt.Table)
	if err != nil {
		return err
	}
	if err := cql.ValidateSetColumns(&cql.Schema{PartitionKeys: schema.PartitionKeys, ClusteringKeys: schema.ClusteringKeys}, stmt.SetOrder); err != nil {
		return err
	}
	return e.upsert(schema, role, keyValues, stmt.Set, timestamp, false)
}

package storage

import "github.com/rusticdb/rusticdb/rusticerr"

// Delete implements the delete path of §4.5 against role: a row-level delete (columns empty)
// replaces every non-key cell with the empty string (a tombstone), a cell-level delete empties
// only the listed columns. The row's timestamp is always bumped to the incoming timestamp so
// tombstones participate in last-write-wins reconciliation.
func (e *Engine) Delete(keyspace, table string, role Role, keyValues map[string]string, columns []string, timestamp int64) error {
	schema, err := e.schemaFor(keyspace, table)
	if err != nil {
		return err
	}
	path := e.segmentPath(keyspace, table, role)
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
		return nil
	}
	if timestamp <= rows[found].timestamp {
		return nil
	}

	tombstoneTargets := columns
	if len(tombstoneTargets) == 0 {
		tombstoneTargets = schema.Columns
	}
	values := make(map[string]string, len(schema.Columns))
	for k, v := range rows[found].values {
		values[k] = v
	}
	for _, c := range tombstoneTargets {
		if contains(schema.PartitionKeys, c) || contains(schema.ClusteringKeys, c) {
			continue
		}
		values[c] = ""
	}
	rows[found] = row{values: values, timestamp: timestamp}
	if err := writeAllRows(path, schema.Columns, rows); err != nil {
		return err
	}
	return e.rebuildIndex(schema, role)
}

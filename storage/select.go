package storage

import (
	"os"

	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/rusticerr"
)

// ResultRow is one reconciled row returned by Select, carrying the timestamp it was written with
// so the coordinator can apply last-write-wins across replica responses.
type ResultRow struct {
	Values    map[string]string
	Timestamp int64
	Tombstone bool
}

// Select implements the read path of §4.5 against role: the clustering index narrows the scan to
// the byte range for the first clustering column's restriction, if any; remaining predicates,
// ORDER BY and LIMIT are then applied in memory.
func (e *Engine) Select(stmt *cql.Select, role Role) ([]ResultRow, error) {
	schema, err := e.schemaFor(stmt.Keyspace, stmt.Table)
	if err != nil {
		return nil, err
	}

	rows, err := e.scanForSelect(schema, role, stmt.Where)
	if err != nil {
		return nil, err
	}

	var results []ResultRow
	for _, r := range rows {
		if stmt.Where != nil && !stmt.Where.Evaluate(r.values) {
			continue
		}
		tombstone := isTombstone(schema, r)
		values := r.values
		if len(stmt.Columns) > 0 {
			projected := make(map[string]string, len(stmt.Columns))
			for _, c := range stmt.Columns {
				projected[c] = r.values[c]
			}
			values = projected
		}
		results = append(results, ResultRow{Values: values, Timestamp: r.timestamp, Tombstone: tombstone})
	}

	if stmt.OrderBy != nil && stmt.OrderBy.Order == cql.ClusteringOrderDesc &&
		schema.ClusteringOrders[stmt.OrderBy.Column] != "DESC" {
		reverse(results)
	} else if stmt.OrderBy != nil && stmt.OrderBy.Order == cql.ClusteringOrderAsc &&
		schema.ClusteringOrders[stmt.OrderBy.Column] == "DESC" {
		reverse(results)
	}

	if stmt.Limit > 0 && len(results) > stmt.Limit {
		results = results[:stmt.Limit]
	}
	return results, nil
}

func reverse(rows []ResultRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// isTombstone reports whether every non-key column of r is empty, the on-disk marker for a
// deleted row.
func isTombstone(schema *TableSchema, r row) bool {
	for _, c := range schema.Columns {
		if contains(schema.PartitionKeys, c) || contains(schema.ClusteringKeys, c) {
			continue
		}
		if r.values[c] != "" {
			return false
		}
	}
	return true
}

// scanForSelect reads the segment file, using the clustering index to narrow the byte range read
// when WHERE restricts the first clustering column by equality; otherwise it scans the full file.
func (e *Engine) scanForSelect(schema *TableSchema, role Role, where *cql.Condition) ([]row, error) {
	path := e.segmentPath(schema.Keyspace, schema.Table, role)
	if len(schema.ClusteringKeys) == 0 || where == nil {
		return readAllRows(path, schema.Columns)
	}

	fields := where.Fields()
	firstCol := schema.ClusteringKeys[0]
	ops, restricted := fields[firstCol]
	if !restricted || !hasEquality(ops) {
		return readAllRows(path, schema.Columns)
	}

	value := equalityValue(where, firstCol)
	entries, err := readIndex(e.indexPath(schema.Keyspace, schema.Table, role))
	if err != nil {
		if os.IsNotExist(err) {
			return readAllRows(path, schema.Columns)
		}
		return nil, rusticerr.ServerError("cannot read clustering index: %v", err)
	}
	var rows []row
	for _, entry := range entries {
		if entry.key == value {
			spanRows, err := readRowsInRange(path, schema.Columns, entry.start, entry.end)
			if err != nil {
				return nil, err
			}
			rows = append(rows, spanRows...)
		}
	}
	return rows, nil
}

func hasEquality(ops []cql.Operator) bool {
	for _, op := range ops {
		if op == cql.OperatorEqual {
			return true
		}
	}
	return false
}

func equalityValue(c *cql.Condition, field string) string {
	if c == nil {
		return ""
	}
	if c.IsSimple() {
		if c.Field == field && c.Operator == cql.OperatorEqual {
			return c.Value
		}
		return ""
	}
	if v := equalityValue(c.Left, field); v != "" {
		return v
	}
	return equalityValue(c.Right, field)
}

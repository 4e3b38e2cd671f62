package coordinator

import (
	"strings"

	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/datatype"
	"github.com/rusticdb/rusticdb/message"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/rusticerr"
	"github.com/rusticdb/rusticdb/schema"
	"github.com/rusticdb/rusticdb/storage"
)

// keySchema adapts a *schema.TableSchema to the minimal shape cql's validators need.
func keySchema(t *schema.TableSchema) *cql.Schema {
	return &cql.Schema{PartitionKeys: t.PartitionKeys(), ClusteringKeys: t.ClusteringKeys()}
}

// extractEquals walks a WHERE/IF condition tree collecting every field restricted by equality
// that appears in keys, so the coordinator can turn a WHERE clause into the concrete key-value
// map UPDATE/DELETE/SELECT-by-key need to address a single partition.
func extractEquals(c *cql.Condition, keys []string, out map[string]string) {
	if c == nil {
		return
	}
	if c.IsSimple() {
		if c.Operator == cql.OperatorEqual && contains(keys, c.Field) {
			out[c.Field] = c.Value
		}
		return
	}
	extractEquals(c.Left, keys, out)
	extractEquals(c.Right, keys, out)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// rowIdentity concatenates a row's key-column values in schema order, used to deduplicate and
// reconcile SELECT replies gathered from multiple replicas.
func rowIdentity(values map[string]string, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = values[k]
	}
	return strings.Join(parts, "\x00")
}

func (c *Coordinator) timestampFor(override *int64) int64 {
	if override != nil {
		return *override
	}
	return c.clock.next()
}

func (c *Coordinator) execInsert(s *cql.Insert, consistency primitive.ConsistencyLevel, clientID string) (message.Message, error) {
	t, err := c.Catalog.Table(s.Keyspace, s.Table)
	if err != nil {
		return nil, err
	}
	rf, err := c.Catalog.ReplicationFactor(s.Keyspace)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(s.Columns))
	for i, col := range s.Columns {
		values[col] = s.Values[i]
	}
	pk := t.PartitionKeys()
	for _, k := range pk {
		if _, ok := values[k]; !ok {
			return nil, rusticerr.Invalid("INSERT must supply partition key %q", k)
		}
	}
	timestamp := c.timestampFor(s.Timestamp)
	partitionKey := rowIdentity(values, pk)
	primary, replicas, err := c.targets(s.Keyspace, partitionKey)
	if err != nil {
		return nil, err
	}

	build := func(replication bool) *remoteQuery {
		return &remoteQuery{
			ClientID:    clientID,
			Replication: replication,
			Keyspace:    s.Keyspace,
			Table:       s.Table,
			Op:          remoteOpInsert,
			Timestamp:   timestamp,
			Columns:     s.Columns,
			Values:      s.Values,
			IfNotExists: s.IfNotExists,
		}
	}
	q, err := c.dispatch(kindWrite, rf, consistency, primary, replicas, build, c.applyRemote)
	if err != nil {
		return nil, c.writeOutcome(err, q)
	}
	_, _, _, firstErr := q.snapshot()
	if firstErr != nil {
		if rerr := rusticerr.AsErr(firstErr); rerr != nil && rerr.Kind == rusticerr.KindAlreadyExists {
			return nil, rerr
		}
	}
	return &message.VoidResult{}, nil
}

func (c *Coordinator) execUpdate(s *cql.Update, consistency primitive.ConsistencyLevel, clientID string) (message.Message, error) {
	t, err := c.Catalog.Table(s.Keyspace, s.Table)
	if err != nil {
		return nil, err
	}
	ks := keySchema(t)
	if err := cql.ValidateWhere(ks, s.Where); err != nil {
		return nil, err
	}
	if err := cql.ValidateSetColumns(ks, s.SetOrder); err != nil {
		return nil, err
	}
	rf, err := c.Catalog.ReplicationFactor(s.Keyspace)
	if err != nil {
		return nil, err
	}
	keyValues := make(map[string]string)
	allKeys := append(append([]string{}, t.PartitionKeys()...), t.ClusteringKeys()...)
	extractEquals(s.Where, allKeys, keyValues)
	timestamp := c.clock.next()
	partitionKey := rowIdentity(keyValues, t.PartitionKeys())
	primary, replicas, err := c.targets(s.Keyspace, partitionKey)
	if err != nil {
		return nil, err
	}

	build := func(replication bool) *remoteQuery {
		return &remoteQuery{
			ClientID:    clientID,
			Replication: replication,
			Keyspace:    s.Keyspace,
			Table:       s.Table,
			Op:          remoteOpUpdate,
			Timestamp:   timestamp,
			KeyValues:   keyValues,
			SetColumns:  s.SetOrder,
			SetValues:   s.Set,
		}
	}
	q, err := c.dispatch(kindWrite, rf, consistency, primary, replicas, build, c.applyRemote)
	if err != nil {
		return nil, c.writeOutcome(err, q)
	}
	return &message.VoidResult{}, nil
}

func (c *Coordinator) execDelete(s *cql.Delete, consistency primitive.ConsistencyLevel, clientID string) (message.Message, error) {
	t, err := c.Catalog.Table(s.Keyspace, s.Table)
	if err != nil {
		return nil, err
	}
	ks := keySchema(t)
	if err := cql.ValidateWhere(ks, s.Where); err != nil {
		return nil, err
	}
	if err := cql.ValidateDeleteColumns(ks, s.Columns); err != nil {
		return nil, err
	}
	rf, err := c.Catalog.ReplicationFactor(s.Keyspace)
	if err != nil {
		return nil, err
	}
	keyValues := make(map[string]string)
	allKeys := append(append([]string{}, t.PartitionKeys()...), t.ClusteringKeys()...)
	extractEquals(s.Where, allKeys, keyValues)
	timestamp := c.timestampFor(s.Timestamp)
	partitionKey := rowIdentity(keyValues, t.PartitionKeys())
	primary, replicas, err := c.targets(s.Keyspace, partitionKey)
	if err != nil {
		return nil, err
	}

	build := func(replication bool) *remoteQuery {
		return &remoteQuery{
			ClientID:      clientID,
			Replication:   replication,
			Keyspace:      s.Keyspace,
			Table:         s.Table,
			Op:            remoteOpDelete,
			Timestamp:     timestamp,
			KeyValues:     keyValues,
			DeleteColumns: s.Columns,
		}
	}
	q, err := c.dispatch(kindWrite, rf, consistency, primary, replicas, build, c.applyRemote)
	if err != nil {
		return nil, c.writeOutcome(err, q)
	}
	return &message.VoidResult{}, nil
}

func (c *Coordinator) execSelect(s *cql.Select, consistency primitive.ConsistencyLevel, clientID string) (message.Message, error) {
	t, err := c.Catalog.Table(s.Keyspace, s.Table)
	if err != nil {
		return nil, err
	}
	ks := keySchema(t)
	if err := cql.ValidateWhere(ks, s.Where); err != nil {
		return nil, err
	}
	if err := cql.ValidateOrderBy(ks, s.OrderBy); err != nil {
		return nil, err
	}
	rf, err := c.Catalog.ReplicationFactor(s.Keyspace)
	if err != nil {
		return nil, err
	}
	pk := t.PartitionKeys()
	ck := t.ClusteringKeys()
	keyValues := make(map[string]string)
	extractEquals(s.Where, pk, keyValues)
	partitionKey := rowIdentity(keyValues, pk)
	primary, replicas, err := c.targets(s.Keyspace, partitionKey)
	if err != nil {
		return nil, err
	}

	// Every replica returns full, unprojected rows so the coordinator can reconcile by key before
	// applying the statement's own column projection and LIMIT as the last step.
	build := func(replication bool) *remoteQuery {
		return &remoteQuery{
			ClientID:    clientID,
			Replication: replication,
			Keyspace:    s.Keyspace,
			Table:       s.Table,
			Op:          remoteOpSelect,
			Where:       s.Where,
			OrderBy:     s.OrderBy,
		}
	}
	q, err := c.dispatch(kindSelect, rf, consistency, primary, replicas, build, c.applyRemote)
	if err != nil {
		return nil, c.readOutcome(err, q)
	}
	_, _, rows, _ := q.snapshot()

	allKeys := append(append([]string{}, pk...), ck...)
	reconciled := make(map[string]storage.ResultRow)
	for _, r := range rows {
		id := rowIdentity(r.Values, allKeys)
		existing, ok := reconciled[id]
		if !ok || r.Timestamp > existing.Timestamp {
			reconciled[id] = r
		}
	}

	out := make([]storage.ResultRow, 0, len(reconciled))
	for _, r := range reconciled {
		if r.Tombstone {
			continue
		}
		out = append(out, r)
	}
	sortRows(out, s.OrderBy, ck)
	if s.Limit > 0 && len(out) > s.Limit {
		out = out[:s.Limit]
	}

	columns := s.Columns
	if len(columns) == 0 {
		columns = t.ColumnNames()
	}
	return rowsResult(s.Keyspace, s.Table, columns, out), nil
}

func sortRows(rows []storage.ResultRow, orderBy *cql.OrderBy, clusteringKeys []string) {
	if orderBy == nil || len(clusteringKeys) == 0 {
		return
	}
	col := orderBy.Column
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			a, b := rows[j-1].Values[col], rows[j].Values[col]
			less := a < b
			if orderBy.Order == cql.ClusteringOrderDesc {
				less = a > b
			}
			if less {
				break
			}
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

// writeOutcome maps a dispatch failure (insufficient live replicas, or a quorum timeout) onto the
// write-specific rusticerr.Err kinds §4.4 calls for.
func (c *Coordinator) writeOutcome(dispatchErr error, q *openQuery) error {
	if rerr, ok := dispatchErr.(*rusticerr.Err); ok {
		return rerr
	}
	if q != nil {
		_, _, _, firstErr := q.snapshot()
		if firstErr != nil {
			return firstErr
		}
	}
	return rusticerr.WriteTimeout("write did not reach the required consistency level in time")
}

func (c *Coordinator) readOutcome(dispatchErr error, q *openQuery) error {
	if rerr, ok := dispatchErr.(*rusticerr.Err); ok {
		return rerr
	}
	if q != nil {
		_, _, _, firstErr := q.snapshot()
		if firstErr != nil {
			return firstErr
		}
	}
	return rusticerr.ReadTimeout("read did not reach the required consistency level in time")
}

// rowsResult packs reconciled, projected rows into a client-facing RowsResult. Every column is
// carried as a Varchar: the storage engine stores every cell as text, per the Open Question
// resolution recorded in DESIGN.md.
func rowsResult(keyspace, table string, columns []string, rows []storage.ResultRow) *message.RowsResult {
	cols := make([]*message.ColumnMetadata, len(columns))
	for i, name := range columns {
		cols[i] = &message.ColumnMetadata{Keyspace: keyspace, Table: table, Name: name, Index: int32(i), Type: datatype.Varchar}
	}
	data := make(message.RowSet, len(rows))
	for i, r := range rows {
		row := make(message.Row, len(columns))
		for j, name := range columns {
			v, ok := r.Values[name]
			if !ok {
				row[j] = nil
				continue
			}
			row[j] = []byte(v)
		}
		data[i] = row
	}
	return &message.RowsResult{
		Metadata: &message.RowsMetadata{ColumnCount: int32(len(columns)), Columns: cols},
		Data:     data,
	}
}

// Package coordinator implements the query coordination and placement logic of §4.4: resolving a
// statement's target replicas via the partitioner, fanning it out over the local storage engine
// and the internode transport, and reconciling replies into the client-facing result.
package coordinator

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rusticdb/rusticdb/cql"
	"github.com/rusticdb/rusticdb/primitive"
	"github.com/rusticdb/rusticdb/storage"
)

// remoteOp identifies which storage operation a RemoteQuery carries.
type remoteOp uint8

const (
	remoteOpInsert remoteOp = 1
	remoteOpUpdate remoteOp = 2
	remoteOpDelete remoteOp = 3
	remoteOpSelect remoteOp = 4
)

// remoteQuery is the internode OpCodeQuery body: a statement already resolved by the originating
// coordinator down to concrete key/set values, addressed to one specific replica.
type remoteQuery struct {
	QueryID     uint32
	ClientID    string
	Replication bool
	Keyspace    string
	Table       string
	Op          remoteOp
	Timestamp   int64

	Columns []string // INSERT column list, or SELECT projection (nil means SELECT *)
	Values  []string // INSERT values, aligned with Columns

	KeyValues map[string]string // UPDATE/DELETE/SELECT-by-key partition+clustering values

	SetColumns []string
	SetValues  map[string]string

	DeleteColumns []string // empty means row-level delete
	IfNotExists   bool

	Where   *cql.Condition
	OrderBy *cql.OrderBy
	Limit   int32
}

// remoteRow mirrors storage.ResultRow across the wire.
type remoteRow struct {
	Values    map[string]string
	Timestamp int64
	Tombstone bool
}

// remoteResponse is the internode OpCodeResponse body.
type remoteResponse struct {
	QueryID   uint32
	Success   bool
	ErrorKind uint8
	ErrorText string
	Rows      []remoteRow
}

func encodeStringSlice(values []string, dest io.Writer) error {
	if err := primitive.WriteInt(int32(len(values)), dest); err != nil {
		return err
	}
	for _, v := range values {
		if err := primitive.WriteLongString(v, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeStringSlice(source io.Reader) ([]string, error) {
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]string, count)
	for i := int32(0); i < count; i++ {
		v, err := primitive.ReadLongString(source)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func encodeStringMap(values map[string]string, dest io.Writer) error {
	if err := primitive.WriteInt(int32(len(values)), dest); err != nil {
		return err
	}
	for k, v := range values {
		if err := primitive.WriteLongString(k, dest); err != nil {
			return err
		}
		if err := primitive.WriteLongString(v, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeStringMap(source io.Reader) (map[string]string, error) {
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, count)
	for i := int32(0); i < count; i++ {
		k, err := primitive.ReadLongString(source)
		if err != nil {
			return nil, err
		}
		v, err := primitive.ReadLongString(source)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// presence-prefixed condition encoding: a leading byte, 0 for nil, 1 for simple, 2 for complex.
func encodeCondition(c *cql.Condition, dest io.Writer) error {
	if c == nil {
		return primitive.WriteByte(0, dest)
	}
	if c.IsSimple() {
		if err := primitive.WriteByte(1, dest); err != nil {
			return err
		}
		if err := primitive.WriteLongString(c.Field, dest); err != nil {
			return err
		}
		if err := primitive.WriteByte(uint8(c.Operator), dest); err != nil {
			return err
		}
		return primitive.WriteLongString(c.Value, dest)
	}
	if err := primitive.WriteByte(2, dest); err != nil {
		return err
	}
	if err := primitive.WriteByte(uint8(c.LogicalOp), dest); err != nil {
		return err
	}
	if err := encodeCondition(c.Left, dest); err != nil {
		return err
	}
	return encodeCondition(c.Right, dest)
}

func decodeCondition(source io.Reader) (*cql.Condition, error) {
	tag, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		field, err := primitive.ReadLongString(source)
		if err != nil {
			return nil, err
		}
		op, err := primitive.ReadByte(source)
		if err != nil {
			return nil, err
		}
		value, err := primitive.ReadLongString(source)
		if err != nil {
			return nil, err
		}
		return cql.NewSimpleCondition(field, cql.Operator(op), value), nil
	case 2:
		logicalOp, err := primitive.ReadByte(source)
		if err != nil {
			return nil, err
		}
		left, err := decodeCondition(source)
		if err != nil {
			return nil, err
		}
		right, err := decodeCondition(source)
		if err != nil {
			return nil, err
		}
		return cql.NewComplexCondition(left, cql.LogicalOperator(logicalOp), right), nil
	default:
		return nil, fmt.Errorf("coordinator: unknown condition tag 0x%02x", tag)
	}
}

func encodeOrderBy(o *cql.OrderBy, dest io.Writer) error {
	if o == nil {
		return primitive.WriteByte(0, dest)
	}
	if err := primitive.WriteByte(1, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(o.Column, dest); err != nil {
		return err
	}
	return primitive.WriteByte(uint8(o.Order), dest)
}

func decodeOrderBy(source io.Reader) (*cql.OrderBy, error) {
	tag, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	column, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	order, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	return &cql.OrderBy{Column: column, Order: cql.ClusteringOrder(order)}, nil
}

func encodeRemoteQuery(q *remoteQuery, dest io.Writer) error {
	if err := primitive.WriteInt(int32(q.QueryID), dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(q.ClientID, dest); err != nil {
		return err
	}
	replicationByte := uint8(0)
	if q.Replication {
		replicationByte = 1
	}
	if err := primitive.WriteByte(replicationByte, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(q.Keyspace, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(q.Table, dest); err != nil {
		return err
	}
	if err := primitive.WriteByte(uint8(q.Op), dest); err != nil {
		return err
	}
	if err := primitive.WriteLong(q.Timestamp, dest); err != nil {
		return err
	}
	if err := encodeStringSlice(q.Columns, dest); err != nil {
		return err
	}
	if err := encodeStringSlice(q.Values, dest); err != nil {
		return err
	}
	if err := encodeStringMap(q.KeyValues, dest); err != nil {
		return err
	}
	if err := encodeStringSlice(q.SetColumns, dest); err != nil {
		return err
	}
	if err := encodeStringMap(q.SetValues, dest); err != nil {
		return err
	}
	if err := encodeStringSlice(q.DeleteColumns, dest); err != nil {
		return err
	}
	ifNotExistsByte := uint8(0)
	if q.IfNotExists {
		ifNotExistsByte = 1
	}
	if err := primitive.WriteByte(ifNotExistsByte, dest); err != nil {
		return err
	}
	if err := encodeCondition(q.Where, dest); err != nil {
		return err
	}
	if err := encodeOrderBy(q.OrderBy, dest); err != nil {
		return err
	}
	return primitive.WriteInt(q.Limit, dest)
}

func decodeRemoteQuery(body []byte) (*remoteQuery, error) {
	source := bytes.NewReader(body)
	queryID, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	clientID, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	replicationByte, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	keyspace, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	table, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	op, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	timestamp, err := primitive.ReadLong(source)
	if err != nil {
		return nil, err
	}
	columns, err := decodeStringSlice(source)
	if err != nil {
		return nil, err
	}
	values, err := decodeStringSlice(source)
	if err != nil {
		return nil, err
	}
	keyValues, err := decodeStringMap(source)
	if err != nil {
		return nil, err
	}
	setColumns, err := decodeStringSlice(source)
	if err != nil {
		return nil, err
	}
	setValues, err := decodeStringMap(source)
	if err != nil {
		return nil, err
	}
	deleteColumns, err := decodeStringSlice(source)
	if err != nil {
		return nil, err
	}
	ifNotExistsByte, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	where, err := decodeCondition(source)
	if err != nil {
		return nil, err
	}
	orderBy, err := decodeOrderBy(source)
	if err != nil {
		return nil, err
	}
	limit, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	return &remoteQuery{
		QueryID:       uint32(queryID),
		ClientID:      clientID,
		Replication:   replicationByte == 1,
		Keyspace:      keyspace,
		Table:         table,
		Op:            remoteOp(op),
		Timestamp:     timestamp,
		Columns:       columns,
		Values:        values,
		KeyValues:     keyValues,
		SetColumns:    setColumns,
		SetValues:     setValues,
		DeleteColumns: deleteColumns,
		IfNotExists:   ifNotExistsByte == 1,
		Where:         where,
		OrderBy:       orderBy,
		Limit:         limit,
	}, nil
}

func encodeRemoteResponse(r *remoteResponse, dest io.Writer) error {
	if err := primitive.WriteInt(int32(r.QueryID), dest); err != nil {
		return err
	}
	successByte := uint8(0)
	if r.Success {
		successByte = 1
	}
	if err := primitive.WriteByte(successByte, dest); err != nil {
		return err
	}
	if err := primitive.WriteByte(r.ErrorKind, dest); err != nil {
		return err
	}
	if err := primitive.WriteLongString(r.ErrorText, dest); err != nil {
		return err
	}
	if err := primitive.WriteInt(int32(len(r.Rows)), dest); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := encodeStringMap(row.Values, dest); err != nil {
			return err
		}
		if err := primitive.WriteLong(row.Timestamp, dest); err != nil {
			return err
		}
		tombstoneByte := uint8(0)
		if row.Tombstone {
			tombstoneByte = 1
		}
		if err := primitive.WriteByte(tombstoneByte, dest); err != nil {
			return err
		}
	}
	return nil
}

func decodeRemoteResponse(body []byte) (*remoteResponse, error) {
	source := bytes.NewReader(body)
	queryID, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	successByte, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	errorKind, err := primitive.ReadByte(source)
	if err != nil {
		return nil, err
	}
	errorText, err := primitive.ReadLongString(source)
	if err != nil {
		return nil, err
	}
	count, err := primitive.ReadInt(source)
	if err != nil {
		return nil, err
	}
	rows := make([]remoteRow, count)
	for i := int32(0); i < count; i++ {
		values, err := decodeStringMap(source)
		if err != nil {
			return nil, err
		}
		timestamp, err := primitive.ReadLong(source)
		if err != nil {
			return nil, err
		}
		tombstoneByte, err := primitive.ReadByte(source)
		if err != nil {
			return nil, err
		}
		rows[i] = remoteRow{Values: values, Timestamp: timestamp, Tombstone: tombstoneByte == 1}
	}
	return &remoteResponse{
		QueryID:   uint32(queryID),
		Success:   successByte == 1,
		ErrorKind: errorKind,
		ErrorText: errorText,
		Rows:      rows,
	}, nil
}

func toRemoteRows(rows []storage.ResultRow) []remoteRow {
	out := make([]remoteRow, len(rows))
	for i, r := range rows {
		out[i] = remoteRow{Values: r.Values, Timestamp: r.Timestamp, Tombstone: r.Tombstone}
	}
	return out
}

func fromRemoteRows(rows []remoteRow) []storage.ResultRow {
	out := make([]storage.ResultRow, len(rows))
	for i, r := range rows {
		out[i] = storage.ResultRow{Values: r.Values, Timestamp: r.Timestamp, Tombstone: r.Tombstone}
	}
	return out
}

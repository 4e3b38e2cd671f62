package cql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CreateKeyspace(t *testing.T) {
	stmt, err := Parse("CREATE KEYSPACE ks WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 3}")
	require.NoError(t, err)
	ck, ok := stmt.(*CreateKeyspace)
	require.True(t, ok)
	assert.Equal(t, "ks", ck.Keyspace)
	assert.Equal(t, "SimpleStrategy", ck.ReplicationClass)
	assert.Equal(t, 3, ck.ReplicationFactor)
}

func TestParse_CreateKeyspace_RejectsNonSimpleStrategy(t *testing.T) {
	_, err := Parse("CREATE KEYSPACE ks WITH REPLICATION = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3}")
	assert.Error(t, err)
}

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE ks.t (pk TEXT, ck INT, v INT, PRIMARY KEY (pk, ck)) WITH CLUSTERING ORDER BY (ck DESC)")
	require.NoError(t, err)
	ct, ok := stmt.(*CreateTable)
	require.True(t, ok)
	assert.Equal(t, "ks", ct.Keyspace)
	assert.Equal(t, "t", ct.Table)
	require.Len(t, ct.Columns, 3)
	assert.Equal(t, ColumnKindPartitionKey, ct.Columns[0].Kind)
	assert.Equal(t, ColumnKindClusteringKey, ct.Columns[1].Kind)
	assert.Equal(t, ColumnKindRegular, ct.Columns[2].Kind)
	assert.Equal(t, ClusteringOrderDesc, ct.ClusteringOrders["ck"])
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO ks.t (pk, v) VALUES ('a', 1)")
	require.NoError(t, err)
	ins, ok := stmt.(*Insert)
	require.True(t, ok)
	assert.Equal(t, []string{"pk", "v"}, ins.Columns)
	assert.Equal(t, []string{"a", "1"}, ins.Values)
	assert.False(t, ins.IfNotExists)
}

func TestParse_Insert_IfNotExists(t *testing.T) {
	stmt, err := Parse("INSERT INTO ks.t (pk) VALUES ('a') IF NOT EXISTS")
	require.NoError(t, err)
	ins := stmt.(*Insert)
	assert.True(t, ins.IfNotExists)
}

func TestParse_Update(t *testing.T) {
	stmt, err := Parse("UPDATE ks.t SET v = 2 WHERE pk = 'a'")
	require.NoError(t, err)
	upd, ok := stmt.(*Update)
	require.True(t, ok)
	assert.Equal(t, "2", upd.Set["v"])
	require.NotNil(t, upd.Where)
	assert.Equal(t, "pk", upd.Where.Field)
}

func TestParse_Delete_RowLevel(t *testing.T) {
	stmt, err := Parse("DELETE FROM ks.t WHERE pk = 'a'")
	require.NoError(t, err)
	del, ok := stmt.(*Delete)
	require.True(t, ok)
	assert.Empty(t, del.Columns)
	assert.Equal(t, "pk", del.Where.Field)
}

func TestParse_Select_Star(t *testing.T) {
	stmt, err := Parse("SELECT * FROM ks.t WHERE pk = 'a' ORDER BY ck DESC LIMIT 10")
	require.NoError(t, err)
	sel, ok := stmt.(*Select)
	require.True(t, ok)
	assert.Nil(t, sel.Columns)
	require.NotNil(t, sel.OrderBy)
	assert.Equal(t, "ck", sel.OrderBy.Column)
	assert.Equal(t, ClusteringOrderDesc, sel.OrderBy.Order)
	assert.Equal(t, 10, sel.Limit)
}

func TestParse_Select_Columns(t *testing.T) {
	stmt, err := Parse("SELECT v FROM ks.t WHERE pk = 'a'")
	require.NoError(t, err)
	sel := stmt.(*Select)
	assert.Equal(t, []string{"v"}, sel.Columns)
}

func TestValidateWhere_RequiresPartitionKeyEquality(t *testing.T) {
	schema := &Schema{PartitionKeys: []string{"pk"}, ClusteringKeys: []string{"ck"}}
	where, err := ParseCondition(Tokenize("ck = 1"))
	require.NoError(t, err)
	assert.Error(t, ValidateWhere(schema, where))
}

func TestValidateWhere_RangeThenLaterPredicateRejected(t *testing.T) {
	schema := &Schema{PartitionKeys: []string{"pk"}, ClusteringKeys: []string{"ck1", "ck2"}}
	where, err := ParseCondition(Tokenize("pk = 'a' AND ck1 > 1 AND ck2 = 2"))
	require.NoError(t, err)
	assert.Error(t, ValidateWhere(schema, where))
}

func TestValidateSetColumns_RejectsKeyColumn(t *testing.T) {
	schema := &Schema{PartitionKeys: []string{"pk"}}
	assert.Error(t, ValidateSetColumns(schema, []string{"pk"}))
	assert.NoError(t, ValidateSetColumns(schema, []string{"v"}))
}

package cql

import "github.com/rusticdb/rusticdb/rusticerr"

// Schema is the minimal table shape validation needs: partition- and clustering-key column names,
// in declared order, plus the full column set.
type Schema struct {
	PartitionKeys  []string
	ClusteringKeys []string
	Columns        map[string]string // name -> type
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ValidateWhere enforces that partition keys are restricted by equality and that clustering-key
// range restrictions respect positional ordering: a range predicate on clustering position k
// forbids any predicate on positions > k.
func ValidateWhere(schema *Schema, where *Condition) error {
	if where == nil {
		if len(schema.PartitionKeys) > 0 {
			return rusticerr.Invalid("WHERE clause must restrict all partition keys by equality")
		}
		return nil
	}
	fields := where.Fields()
	for _, pk := range schema.PartitionKeys {
		ops, ok := fields[pk]
		if !ok {
			return rusticerr.Invalid("WHERE clause must restrict partition key %q by equality", pk)
		}
		for _, op := range ops {
			if op != OperatorEqual {
				return rusticerr.Invalid("partition key %q may only be restricted by equality", pk)
			}
		}
	}
	sawRangeAt := -1
	for i, ck := range schema.ClusteringKeys {
		ops, ok := fields[ck]
		if !ok {
			continue
		}
		if sawRangeAt >= 0 {
			return rusticerr.Invalid(
				"clustering column %q cannot be restricted after a range restriction on an earlier clustering column", ck)
		}
		for _, op := range ops {
			if op != OperatorEqual {
				sawRangeAt = i
			}
		}
	}
	return nil
}

// ValidateSetColumns rejects UPDATE ... SET clauses that target a partition or clustering key.
func ValidateSetColumns(schema *Schema, setOrder []string) error {
	for _, name := range setOrder {
		if contains(schema.PartitionKeys, name) || contains(schema.ClusteringKeys, name) {
			return rusticerr.Invalid("column %q is a key column and cannot be updated", name)
		}
	}
	return nil
}

// ValidateDeleteColumns rejects a DELETE column list that names a partition or clustering key.
func ValidateDeleteColumns(schema *Schema, columns []string) error {
	for _, name := range columns {
		if contains(schema.PartitionKeys, name) || contains(schema.ClusteringKeys, name) {
			return rusticerr.Invalid("column %q is a key column and cannot be deleted individually", name)
		}
	}
	return nil
}

// ValidateOrderBy enforces that ORDER BY names exactly one clustering column.
func ValidateOrderBy(schema *Schema, orderBy *OrderBy) error {
	if orderBy == nil {
		return nil
	}
	if !contains(schema.ClusteringKeys, orderBy.Column) {
		return rusticerr.Invalid("ORDER BY column %q is not a clustering column", orderBy.Column)
	}
	return nil
}

package cql

import (
	"strconv"
	"strings"

	"github.com/rusticdb/rusticdb/rusticerr"
)

// Parse tokenizes and parses a single CQL statement into its typed AST.
func Parse(query string) (Statement, error) {
	tokens := Tokenize(query)
	// drop a trailing statement terminator
	if n := len(tokens); n > 0 && tokens[n-1] == ";" {
		tokens = tokens[:n-1]
	}
	if len(tokens) == 0 {
		return nil, rusticerr.SyntaxError("empty query")
	}
	switch strings.ToUpper(tokens[0]) {
	case "CREATE":
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "KEYSPACE") {
			return parseCreateKeyspace(tokens[2:])
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "TABLE") {
			return parseCreateTable(tokens[2:])
		}
	case "ALTER":
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "KEYSPACE") {
			return parseAlterKeyspace(tokens[2:])
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "TABLE") {
			return parseAlterTable(tokens[2:])
		}
	case "DROP":
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "KEYSPACE") {
			return parseDropKeyspace(tokens[2:])
		}
		if len(tokens) > 1 && strings.EqualFold(tokens[1], "TABLE") {
			return parseDropTable(tokens[2:])
		}
	case "USE":
		return parseUse(tokens[1:])
	case "INSERT":
		return parseInsert(tokens[1:])
	case "UPDATE":
		return parseUpdate(tokens[1:])
	case "DELETE":
		return parseDelete(tokens[1:])
	case "SELECT":
		return parseSelect(tokens[1:])
	}
	return nil, rusticerr.SyntaxError("unrecognized statement starting with %q", tokens[0])
}

func consumeIfNotExists(tokens []string) ([]string, bool) {
	if len(tokens) >= 3 && strings.EqualFold(tokens[0], "IF") &&
		strings.EqualFold(tokens[1], "NOT") && strings.EqualFold(tokens[2], "EXISTS") {
		return tokens[3:], true
	}
	return tokens, false
}

func consumeIfExists(tokens []string) ([]string, bool) {
	if len(tokens) >= 2 && strings.EqualFold(tokens[0], "IF") && strings.EqualFold(tokens[1], "EXISTS") {
		return tokens[2:], true
	}
	return tokens, false
}

// consumeTimestampClause recognizes a trailing WITH TIMESTAMP=n clause, used by INSERT and DELETE
// to let a client override the coordinator-assigned write timestamp.
func consumeTimestampClause(tokens []string) ([]string, *int64) {
	if len(tokens) >= 4 && strings.EqualFold(tokens[0], "WITH") &&
		strings.EqualFold(tokens[1], "TIMESTAMP") && tokens[2] == "=" {
		if v, err := strconv.ParseInt(tokens[3], 10, 64); err == nil {
			return tokens[4:], &v
		}
	}
	return tokens, nil
}

func splitKeyspaceTable(name string) (keyspace, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// splitTopLevel splits tokens on commas that are not nested inside parentheses.
func splitTopLevel(tokens []string) [][]string {
	var groups [][]string
	var current []string
	depth := 0
	for _, t := range tokens {
		switch {
		case isLeftParen(t):
			depth++
			current = append(current, t)
		case isRightParen(t):
			depth--
			current = append(current, t)
		case t == "," && depth == 0:
			groups = append(groups, current)
			current = nil
		default:
			current = append(current, t)
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func parseReplication(tokens []string) (class string, factor int, err error) {
	// WITH REPLICATION = { 'class': 'SimpleStrategy', 'replication_factor': 3 }
	for i, t := range tokens {
		if stripQuotes(t) == "class" && i+2 < len(tokens) {
			class = stripQuotes(tokens[i+2])
		}
		if stripQuotes(t) == "replication_factor" && i+2 < len(tokens) {
			factor, err = strconv.Atoi(stripQuotes(tokens[i+2]))
			if err != nil {
				return "", 0, rusticerr.SyntaxError("invalid replication_factor: %v", tokens[i+2])
			}
		}
	}
	if class == "" {
		return "", 0, rusticerr.SyntaxError("missing replication class")
	}
	return class, factor, nil
}

func parseCreateKeyspace(tokens []string) (Statement, error) {
	tokens, ifNotExists := consumeIfNotExists(tokens)
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("CREATE KEYSPACE missing name")
	}
	name := tokens[0]
	tokens = tokens[1:]
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "WITH") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "REPLICATION") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && tokens[0] == "=" {
		tokens = tokens[1:]
	}
	class, factor, err := parseReplication(tokens)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(class, "SimpleStrategy") {
		return nil, rusticerr.ConfigError("replication class %q is not supported", class)
	}
	return &CreateKeyspace{Keyspace: name, IfNotExists: ifNotExists, ReplicationClass: class, ReplicationFactor: factor}, nil
}

func parseAlterKeyspace(tokens []string) (Statement, error) {
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("ALTER KEYSPACE missing name")
	}
	name := tokens[0]
	tokens = tokens[1:]
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "WITH") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "REPLICATION") {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 && tokens[0] == "=" {
		tokens = tokens[1:]
	}
	class, factor, err := parseReplication(tokens)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(class, "SimpleStrategy") {
		return nil, rusticerr.ConfigError("replication class %q is not supported", class)
	}
	return &AlterKeyspace{Keyspace: name, ReplicationClass: class, ReplicationFactor: factor}, nil
}

func parseDropKeyspace(tokens []string) (Statement, error) {
	tokens, ifExists := consumeIfExists(tokens)
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("DROP KEYSPACE missing name")
	}
	return &DropKeyspace{Keyspace: tokens[0], IfExists: ifExists}, nil
}

func parseUse(tokens []string) (Statement, error) {
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("USE missing keyspace name")
	}
	return &UseKeyspace{Keyspace: tokens[0]}, nil
}

func parseColumnDef(group []string) (Column, error) {
	if len(group) < 2 {
		return Column{}, rusticerr.SyntaxError("invalid column definition")
	}
	col := Column{Name: group[0], Type: group[1]}
	for i := 2; i < len(group); i++ {
		if strings.EqualFold(group[i], "PRIMARY") && i+1 < len(group) && strings.EqualFold(group[i+1], "KEY") {
			col.Kind = ColumnKindPartitionKey
		}
	}
	return col, nil
}

func parseCreateTable(tokens []string) (Statement, error) {
	tokens, ifNotExists := consumeIfNotExists(tokens)
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("CREATE TABLE missing name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	tokens = tokens[1:]
	if len(tokens) == 0 || !isLeftParen(tokens[0]) {
		return nil, rusticerr.SyntaxError("CREATE TABLE missing column list")
	}
	depth := 0
	end := -1
	for i, t := range tokens {
		if isLeftParen(t) {
			depth++
		} else if isRightParen(t) {
			depth--
			if depth == 0 {
				end = i
				break
			}
		}
	}
	if end < 0 {
		return nil, rusticerr.SyntaxError("unterminated CREATE TABLE column list")
	}
	inner := tokens[1:end]
	groups := splitTopLevel(inner)

	var columns []Column
	var primaryKeyCols []string
	partitionKeyCount := 1
	for _, g := range groups {
		if len(g) > 0 && strings.EqualFold(g[0], "PRIMARY") && len(g) > 1 && strings.EqualFold(g[1], "KEY") {
			// PRIMARY KEY ( pk , ck1 , ck2 ) or PRIMARY KEY ( ( pk1 , pk2 ) , ck1 )
			pkTokens := g[2:]
			if len(pkTokens) > 0 && isLeftParen(pkTokens[0]) {
				pkTokens = pkTokens[1 : len(pkTokens)-1]
			}
			for subIdx, sub := range splitTopLevel(pkTokens) {
				if len(sub) == 1 {
					primaryKeyCols = append(primaryKeyCols, sub[0])
				} else if subIdx == 0 && len(sub) > 2 && isLeftParen(sub[0]) {
					partitionKeyCount = 0
					for _, inner := range splitTopLevel(sub[1 : len(sub)-1]) {
						if len(inner) == 1 {
							primaryKeyCols = append(primaryKeyCols, inner[0])
							partitionKeyCount++
						}
					}
				}
			}
			continue
		}
		col, err := parseColumnDef(g)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	for i := range columns {
		for pkIdx, pkName := range primaryKeyCols {
			if columns[i].Name == pkName {
				if pkIdx < partitionKeyCount {
					columns[i].Kind = ColumnKindPartitionKey
				} else {
					columns[i].Kind = ColumnKindClusteringKey
				}
			}
		}
	}

	rest := tokens[end+1:]
	orders := map[string]ClusteringOrder{}
	if len(rest) > 0 && strings.EqualFold(rest[0], "WITH") {
		rest = rest[1:]
		if len(rest) >= 2 && strings.EqualFold(rest[0], "CLUSTERING") && strings.EqualFold(rest[1], "ORDER") {
			rest = rest[2:]
			if len(rest) > 0 && strings.EqualFold(rest[0], "BY") {
				rest = rest[1:]
			}
			if len(rest) > 0 && isLeftParen(rest[0]) {
				rest = rest[1 : len(rest)-1]
			}
			for _, sub := range splitTopLevel(rest) {
				if len(sub) >= 1 {
					order := ClusteringOrderAsc
					if len(sub) >= 2 && strings.EqualFold(sub[1], "DESC") {
						order = ClusteringOrderDesc
					}
					orders[sub[0]] = order
				}
			}
		}
	}

	return &CreateTable{Keyspace: ks, Table: table, IfNotExists: ifNotExists, Columns: columns, ClusteringOrders: orders}, nil
}

func parseAlterTable(tokens []string) (Statement, error) {
	if len(tokens) < 2 {
		return nil, rusticerr.SyntaxError("ALTER TABLE missing name or operation")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	switch strings.ToUpper(tokens[1]) {
	case "ADD":
		if len(tokens) < 4 {
			return nil, rusticerr.SyntaxError("ALTER TABLE ADD missing column definition")
		}
		return &AlterTable{Keyspace: ks, Table: table, Op: AlterTableAdd,
			Column: Column{Name: tokens[2], Type: tokens[3]}}, nil
	case "DROP":
		if len(tokens) < 3 {
			return nil, rusticerr.SyntaxError("ALTER TABLE DROP missing column name")
		}
		return &AlterTable{Keyspace: ks, Table: table, Op: AlterTableDrop, DropName: tokens[2]}, nil
	case "RENAME":
		if len(tokens) < 5 || !strings.EqualFold(tokens[3], "TO") {
			return nil, rusticerr.SyntaxError("ALTER TABLE RENAME missing TO clause")
		}
		return &AlterTable{Keyspace: ks, Table: table, Op: AlterTableRename, FromName: tokens[2], ToName: tokens[4]}, nil
	case "ALTER":
		return nil, rusticerr.Invalid("ALTER TABLE column type modification is not supported")
	default:
		return nil, rusticerr.SyntaxError("unrecognized ALTER TABLE operation %q", tokens[1])
	}
}

func parseDropTable(tokens []string) (Statement, error) {
	tokens, ifExists := consumeIfExists(tokens)
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("DROP TABLE missing name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	return &DropTable{Keyspace: ks, Table: table, IfExists: ifExists}, nil
}

func parseInsert(tokens []string) (Statement, error) {
	if len(tokens) < 1 || !strings.EqualFold(tokens[0], "INTO") {
		return nil, rusticerr.SyntaxError("INSERT missing INTO")
	}
	tokens = tokens[1:]
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("INSERT missing table name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	tokens = tokens[1:]
	if len(tokens) == 0 || !isLeftParen(tokens[0]) {
		return nil, rusticerr.SyntaxError("INSERT missing column list")
	}
	colEnd := indexOfMatchingParen(tokens, 0)
	if colEnd < 0 {
		return nil, rusticerr.SyntaxError("unterminated INSERT column list")
	}
	var columns []string
	for _, g := range splitTopLevel(tokens[1:colEnd]) {
		if len(g) == 1 {
			columns = append(columns, g[0])
		}
	}
	tokens = tokens[colEnd+1:]
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], "VALUES") {
		return nil, rusticerr.SyntaxError("INSERT missing VALUES")
	}
	tokens = tokens[1:]
	if len(tokens) == 0 || !isLeftParen(tokens[0]) {
		return nil, rusticerr.SyntaxError("INSERT missing values list")
	}
	valEnd := indexOfMatchingParen(tokens, 0)
	if valEnd < 0 {
		return nil, rusticerr.SyntaxError("unterminated INSERT values list")
	}
	var values []string
	for _, g := range splitTopLevel(tokens[1:valEnd]) {
		if len(g) == 1 {
			values = append(values, stripQuotes(g[0]))
		}
	}
	tokens = tokens[valEnd+1:]
	tokens, ifNotExists := consumeIfNotExists(tokens)
	tokens, timestamp := consumeTimestampClause(tokens)
	if len(columns) != len(values) {
		return nil, rusticerr.Invalid("INSERT column count does not match value count")
	}
	return &Insert{Keyspace: ks, Table: table, Columns: columns, Values: values, IfNotExists: ifNotExists, Timestamp: timestamp}, nil
}

func indexOfMatchingParen(tokens []string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(tokens); i++ {
		if isLeftParen(tokens[i]) {
			depth++
		} else if isRightParen(tokens[i]) {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseUpdate(tokens []string) (Statement, error) {
	if len(tokens) < 1 {
		return nil, rusticerr.SyntaxError("UPDATE missing table name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	tokens = tokens[1:]
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], "SET") {
		return nil, rusticerr.SyntaxError("UPDATE missing SET clause")
	}
	tokens = tokens[1:]

	whereIdx := findKeyword(tokens, "WHERE")
	ifIdx := findKeyword(tokens, "IF")
	setEnd := len(tokens)
	if whereIdx >= 0 {
		setEnd = whereIdx
	}
	setClause := tokens[:setEnd]
	set := map[string]string{}
	var setOrder []string
	for _, g := range splitTopLevel(setClause) {
		if len(g) == 3 && g[1] == "=" {
			set[g[0]] = stripQuotes(g[2])
			setOrder = append(setOrder, g[0])
		}
	}

	var where, ifCond *Condition
	end := len(tokens)
	if ifIdx >= 0 {
		end = ifIdx
	}
	if whereIdx >= 0 {
		whereTokens := tokens[whereIdx+1 : end]
		cond, err := ParseCondition(whereTokens)
		if err != nil {
			return nil, err
		}
		where = cond
	}
	if ifIdx >= 0 {
		cond, err := ParseCondition(tokens[ifIdx+1:])
		if err != nil {
			return nil, err
		}
		ifCond = cond
	}
	return &Update{Keyspace: ks, Table: table, Set: set, SetOrder: setOrder, Where: where, If: ifCond}, nil
}

func findKeyword(tokens []string, keyword string) int {
	depth := 0
	for i, t := range tokens {
		if isLeftParen(t) {
			depth++
		} else if isRightParen(t) {
			depth--
		} else if depth == 0 && strings.EqualFold(t, keyword) {
			return i
		}
	}
	return -1
}

func parseDelete(tokens []string) (Statement, error) {
	var columns []string
	if len(tokens) > 0 && !strings.EqualFold(tokens[0], "FROM") {
		fromIdx := findKeyword(tokens, "FROM")
		if fromIdx < 0 {
			return nil, rusticerr.SyntaxError("DELETE missing FROM")
		}
		for _, g := range splitTopLevel(tokens[:fromIdx]) {
			if len(g) == 1 {
				columns = append(columns, g[0])
			}
		}
		tokens = tokens[fromIdx:]
	}
	if len(tokens) == 0 || !strings.EqualFold(tokens[0], "FROM") {
		return nil, rusticerr.SyntaxError("DELETE missing FROM")
	}
	tokens = tokens[1:]
	if len(tokens) == 0 {
		return nil, rusticerr.SyntaxError("DELETE missing table name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	tokens = tokens[1:]

	whereIdx := findKeyword(tokens, "WHERE")
	if whereIdx < 0 {
		return nil, rusticerr.SyntaxError("DELETE missing WHERE clause")
	}
	rest := tokens[whereIdx+1:]
	ifIdx := findKeyword(rest, "IF")
	withIdx := findKeyword(rest, "WITH")
	whereEnd := len(rest)
	if ifIdx >= 0 && (withIdx < 0 || ifIdx < withIdx) {
		whereEnd = ifIdx
	} else if withIdx >= 0 {
		whereEnd = withIdx
	}
	where, err := ParseCondition(rest[:whereEnd])
	if err != nil {
		return nil, err
	}

	ifExists := false
	var ifCond *Condition
	trailing := rest[whereEnd:]
	if ifIdx >= 0 && whereEnd == ifIdx {
		ifTokens := trailing[1:] // drop "IF"
		withInIf := findKeyword(ifTokens, "WITH")
		ifEnd := len(ifTokens)
		if withInIf >= 0 {
			ifEnd = withInIf
		}
		trailing = ifTokens[ifEnd:]
		ifTokens = ifTokens[:ifEnd]
		if len(ifTokens) == 1 && strings.EqualFold(ifTokens[0], "EXISTS") {
			ifExists = true
		} else {
			ifCond, err = ParseCondition(ifTokens)
			if err != nil {
				return nil, err
			}
		}
	}
	_, timestamp := consumeTimestampClause(trailing)
	return &Delete{Keyspace: ks, Table: table, Columns: columns, Where: where, IfExists: ifExists, If: ifCond, Timestamp: timestamp}, nil
}

func parseSelect(tokens []string) (Statement, error) {
	fromIdx := findKeyword(tokens, "FROM")
	if fromIdx < 0 {
		return nil, rusticerr.SyntaxError("SELECT missing FROM")
	}
	var columns []string
	colTokens := tokens[:fromIdx]
	if !(len(colTokens) == 1 && colTokens[0] == "*") {
		for _, g := range splitTopLevel(colTokens) {
			if len(g) == 1 {
				columns = append(columns, g[0])
			}
		}
	}
	tokens = tokens[fromIdx+1:]
	if len(tokens) == 0 {
		return nil, rusticerr.SyntaxError("SELECT missing table name")
	}
	ks, table := splitKeyspaceTable(tokens[0])
	tokens = tokens[1:]

	whereIdx := findKeyword(tokens, "WHERE")
	orderIdx := findKeyword(tokens, "ORDER")
	limitIdx := findKeyword(tokens, "LIMIT")

	var where *Condition
	whereEnd := len(tokens)
	for _, idx := range []int{orderIdx, limitIdx} {
		if idx >= 0 && idx < whereEnd {
			whereEnd = idx
		}
	}
	if whereIdx >= 0 {
		cond, err := ParseCondition(tokens[whereIdx+1 : whereEnd])
		if err != nil {
			return nil, err
		}
		where = cond
	}

	var orderBy *OrderBy
	if orderIdx >= 0 {
		orderTokenEnd := len(tokens)
		if limitIdx >= 0 && limitIdx > orderIdx {
			orderTokenEnd = limitIdx
		}
		rest := tokens[orderIdx+1 : orderTokenEnd]
		if len(rest) > 0 && strings.EqualFold(rest[0], "BY") {
			rest = rest[1:]
		}
		if len(rest) < 1 {
			return nil, rusticerr.SyntaxError("ORDER BY missing column")
		}
		order := ClusteringOrderAsc
		if len(rest) >= 2 && strings.EqualFold(rest[1], "DESC") {
			order = ClusteringOrderDesc
		}
		orderBy = &OrderBy{Column: rest[0], Order: order}
	}

	limit := 0
	if limitIdx >= 0 {
		if limitIdx+1 >= len(tokens) {
			return nil, rusticerr.SyntaxError("LIMIT missing value")
		}
		n, err := strconv.Atoi(tokens[limitIdx+1])
		if err != nil {
			return nil, rusticerr.SyntaxError("invalid LIMIT value %q", tokens[limitIdx+1])
		}
		limit = n
	}

	return &Select{Keyspace: ks, Table: table, Columns: columns, Where: where, OrderBy: orderBy, Limit: limit}, nil
}

package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rusticdb/rusticdb/rusticerr"
)

func sortKey(schema *TableSchema, r row) []string {
	var key []string
	for _, c := range schema.PartitionKeys {
		key = append(key, r.values[c])
	}
	for _, c := range schema.ClusteringKeys {
		key = append(key, r.values[c])
	}
	return key
}

// sortRows orders rows by partition key, then by clustering key honoring each column's declared
// ASC/DESC order, so the on-disk layout matches what the read path and the clustering index both
// assume.
func sortRows(schema *TableSchema, rows []row) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, c := range schema.PartitionKeys {
			if rows[i].values[c] != rows[j].values[c] {
				return rows[i].values[c] < rows[j].values[c]
			}
		}
		for _, c := range schema.ClusteringKeys {
			vi, vj := rows[i].values[c], rows[j].values[c]
			if vi == vj {
				continue
			}
			if schema.ClusteringOrders[c] == "DESC" {
				return vi > vj
			}
			return vi < vj
		}
		return false
	})
}

// rebuildIndex re-sorts the segment's rows and rewrites it, then rewrites the sibling
// "<table>_index.csv" file with one (clustering_key, start_byte, end_byte) line per contiguous run
// of rows sharing a value of the first clustering column. Rows are sorted by partition key first,
// so a value that occurs in several partitions gets one line per partition.
func (e *Engine) rebuildIndex(schema *TableSchema, role Role) error {
	path := e.segmentPath(schema.Keyspace, schema.Table, role)
	rows, err := readAllRows(path, schema.Columns)
	if err != nil {
		return rusticerr.ServerError("cannot read segment %s: %v", path, err)
	}
	sortRows(schema, rows)
	if err := writeAllRows(path, schema.Columns, rows); err != nil {
		return err
	}

	if len(schema.ClusteringKeys) == 0 {
		return nil
	}
	firstClusteringCol := schema.ClusteringKeys[0]

	f, err := os.Open(path)
	if err != nil {
		return rusticerr.ServerError("cannot open segment %s: %v", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var offset int64
	if scanner.Scan() {
		offset += int64(len(scanner.Bytes())) + 1
	}

	type span struct {
		key        string
		start, end int64
	}
	var spans []span
	for scanner.Scan() {
		line := scanner.Bytes()
		start := offset
		end := start + int64(len(line)) + 1
		offset = end
		r, err := decodeRow(schema.Columns, string(line))
		if err != nil {
			return err
		}
		key := r.values[firstClusteringCol]
		if len(spans) > 0 && spans[len(spans)-1].key == key {
			spans[len(spans)-1].end = end
		} else {
			spans = append(spans, span{key: key, start: start, end: end})
		}
	}

	indexPath := e.indexPath(schema.Keyspace, schema.Table, role)
	idxFile, err := os.Create(indexPath)
	if err != nil {
		return rusticerr.ServerError("cannot create index file: %v", err)
	}
	defer idxFile.Close()
	w := bufio.NewWriter(idxFile)
	if _, err := fmt.Fprintln(w, "clustering_key,start_byte,end_byte"); err != nil {
		return rusticerr.ServerError("cannot write index header: %v", err)
	}
	for _, s := range spans {
		if _, err := fmt.Fprintf(w, "%s,%d,%d\n", s.key, s.start, s.end); err != nil {
			return rusticerr.ServerError("cannot write index row: %v", err)
		}
	}
	return w.Flush()
}

// readRowsInRange decodes every row whose bytes lie in [start, end) of the segment file at path,
// the byte span recorded in the clustering index for one distinct clustering-key value.
func readRowsInRange(path string, columns []string, start, end int64) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rusticerr.ServerError("cannot open segment %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, rusticerr.ServerError("cannot seek segment %s: %v", path, err)
	}
	buf := make([]byte, end-start)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, rusticerr.ServerError("cannot read segment %s: %v", path, err)
	}
	var rows []row
	for _, line := range strings.Split(strings.TrimRight(string(buf), "\n"), "\n") {
		if line == "" {
			continue
		}
		r, err := decodeRow(columns, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

type indexEntry struct {
	key        string
	start, end int64
}

func readIndex(path string) ([]indexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []indexEntry
	scanner := bufio.NewScanner(f)
	scanner.Scan() // header: "clustering_key,start_byte,end_byte" (§3)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) != 3 {
			continue
		}
		start, err1 := strconv.ParseInt(parts[1], 10, 64)
		end, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		entries = append(entries, indexEntry{key: parts[0], start: start, end: end})
	}
	return entries, nil
}

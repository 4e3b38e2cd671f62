package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rusticdb/rusticdb/rusticerr"
)

// row is one decoded segment-file line: a column->value map plus its last-write-wins timestamp.
type row struct {
	values    map[string]string
	timestamp int64
}

// encodeRow renders a row as one RFC 4180 record, "v1,...,vn,timestamp" in columns order, using
// encoding/csv so a value containing a comma or a double quote round-trips correctly; spec.md's
// hand-rolled ";timestamp" suffix becomes simply the record's last field.
//
// Segment files and the clustering index are both still read one bufio.Scanner line at a time (to
// decode rows and to compute index byte offsets), so a CSV record is not allowed to legitimately
// span more than one physical line: a value containing a literal newline is rejected here rather
// than silently quoted into a multi-line record that readAllRows/readRowsInRange would then split
// into corrupt partial rows.
func encodeRow(columns []string, r row) (string, error) {
	fields := make([]string, len(columns)+1)
	for i, c := range columns {
		if strings.ContainsAny(r.values[c], "\n\r") {
			return "", rusticerr.Invalid("column %s: value contains an embedded newline, which segment files cannot store", c)
		}
		fields[i] = r.values[c]
	}
	fields[len(columns)] = strconv.FormatInt(r.timestamp, 10)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return "", rusticerr.ServerError("cannot encode segment row: %v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", rusticerr.ServerError("cannot encode segment row: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// decodeRow parses one CSV-encoded "v1,...,vn,timestamp" line against columns.
func decodeRow(columns []string, line string) (row, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = len(columns) + 1
	record, err := reader.Read()
	if err != nil {
		return row{}, rusticerr.ServerError("malformed segment row: %q: %v", line, err)
	}
	ts, err := strconv.ParseInt(record[len(columns)], 10, 64)
	if err != nil {
		return row{}, rusticerr.ServerError("malformed segment row timestamp: %q", line)
	}
	m := make(map[string]string, len(columns))
	for i, c := range columns {
		m[c] = record[i]
	}
	return row{values: m, timestamp: ts}, nil
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, rusticerr.ServerError("segment file %s has no header", path)
	}
	if scanner.Text() == "" {
		return nil, nil
	}
	return strings.Split(scanner.Text(), ","), nil
}

// readAllRows reads every data row in a segment file, in on-disk order.
func readAllRows(path string, columns []string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, nil // empty file, no header
	}
	var rows []row
	for scanner.Scan() {
		line := scanner.Text()
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

// writeAllRows rewrites a segment file's header and rows from scratch.
func writeAllRows(path string, columns []string, rows []row) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return rusticerr.ServerError("cannot create temporary segment file: %v", err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(strings.Join(columns, ",") + "\n"); err != nil {
		f.Close()
		return rusticerr.ServerError("cannot write segment header: %v", err)
	}
	for _, r := range rows {
		encoded, err := encodeRow(columns, r)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := w.WriteString(encoded + "\n"); err != nil {
			f.Close()
			return rusticerr.ServerError("cannot write segment row: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return rusticerr.ServerError("cannot flush segment file: %v", err)
	}
	if err := f.Close(); err != nil {
		return rusticerr.ServerError("cannot close segment file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rusticerr.ServerError("cannot rename segment file into place: %v", err)
	}
	return nil
}

// identity extracts the primary-key identity (partition keys then clustering keys, in schema
// order) that uniquely addresses a row within its segment file.
func identity(schema *TableSchema, values map[string]string) string {
	var parts []string
	for _, k := range schema.PartitionKeys {
		parts = append(parts, values[k])
	}
	for _, k := range schema.ClusteringKeys {
		parts = append(parts, values[k])
	}
	return strings.Join(parts, "\x00")
}

func (r row) identity(schema *TableSchema) string {
	return identity(schema, r.values)
}

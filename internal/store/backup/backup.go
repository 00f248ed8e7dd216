// Package backup implements the incremental JSON-array persistence used by
// both stores. Each backup file holds one JSON array; new records are
// appended without re-serializing records that are already durable. The file
// is rewritten through a temp file and an atomic rename, so it is a
// well-formed array at every instant.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// File is one JSON-array backup file on disk.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Append serializes the given records and splices them onto the end of the
// array. The whole file is rewritten via temp file + rename; a crash at any
// point leaves either the old or the new array in place, never a partial one.
func (f *File) Append(records []any) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	var buf bytes.Buffer
	body := bytes.TrimSpace(existing)
	if len(body) == 0 {
		buf.WriteString("[\n")
	} else {
		if body[len(body)-1] != ']' {
			return fmt.Errorf("backup file %s is malformed: missing closing bracket", f.path)
		}
		// Strip the closing bracket and re-open the array.
		body = bytes.TrimRight(body[:len(body)-1], " \t\r\n")
		buf.Write(body)
		buf.WriteString(",\n")
	}

	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to serialize backup record: %w", err)
		}
		buf.Write(data)
		if i < len(records)-1 {
			buf.WriteString(",\n")
		}
	}
	buf.WriteString("\n]\n")

	return f.replace(buf.Bytes())
}

// replace atomically swaps the file contents.
func (f *File) replace(data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp backup file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp backup file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp backup file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace backup file: %w", err)
	}
	return nil
}

// Load parses the full array into out. A missing or empty file leaves out
// untouched. If the array is truncated (e.g. a crash under an older,
// non-atomic writer), Load repairs it by cutting back to the last complete
// record and logs a warning; any other malformation is an error, since a
// corrupt backup means the server would continue in an inconsistent state.
func (f *File) Load(out any) error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}

	repaired, ok := repairArray(data)
	if !ok {
		return fmt.Errorf("backup file %s is malformed beyond repair", f.path)
	}
	if err := json.Unmarshal(repaired, out); err != nil {
		return fmt.Errorf("backup file %s is malformed beyond repair: %w", f.path, err)
	}

	slog.Warn("Recovered truncated backup file",
		slog.String("path", f.path),
		slog.Int("bytes_dropped", len(data)-len(repaired)))

	// Persist the repaired array so the next Append sees a closed bracket.
	return f.replace(repaired)
}

// repairArray cuts a truncated JSON array back to the last complete record
// and closes the bracket. Candidate cut points are tried from the end of the
// data backwards until closing the array yields valid JSON.
func repairArray(data []byte) ([]byte, bool) {
	for end := len(data); end > 0; {
		cut := bytes.LastIndexByte(data[:end], '}')
		if cut < 0 {
			return nil, false
		}
		repaired := append(append([]byte{}, data[:cut+1]...), []byte("\n]\n")...)
		if json.Valid(repaired) {
			return repaired, true
		}
		end = cut
	}
	return nil, false
}

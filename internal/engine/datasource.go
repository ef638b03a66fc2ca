package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// datasource caches the parsed CSV rows of the current !DATASOURCE so
// changing !DATASOURCE_LINE does not re-read the file.
type datasource struct {
	path string
	rows [][]string
}

// reloadDatasource re-resolves !DATASOURCE against !FOLDER_DATASOURCE,
// reads the CSV when it changed, and populates the !COLn columns for the
// row selected by !DATASOURCE_LINE.
func (e *Executor) reloadDatasource() error {
	name := e.store.Text("!DATASOURCE")
	if name == "" {
		e.clearColumns()
		e.mu.Lock()
		e.ds = nil
		e.mu.Unlock()
		return nil
	}

	path := name
	if !filepath.IsAbs(path) {
		if folder := e.store.Text("!FOLDER_DATASOURCE"); folder != "" {
			path = filepath.Join(folder, name)
		}
	}

	e.mu.Lock()
	ds := e.ds
	e.mu.Unlock()

	if ds == nil || ds.path != path {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open datasource: %w", err)
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.FieldsPerRecord = -1 // ragged rows are common in legacy data
		rows, err := r.ReadAll()
		if err != nil {
			return fmt.Errorf("cannot read datasource: %w", err)
		}
		ds = &datasource{path: path, rows: rows}
		e.mu.Lock()
		e.ds = ds
		e.mu.Unlock()
	}

	line := int(e.store.Number("!DATASOURCE_LINE", 1))
	if line < 1 || line > len(ds.rows) {
		return fmt.Errorf("datasource line %d out of range (1..%d)", line, len(ds.rows))
	}
	row := ds.rows[line-1]

	e.clearColumns()
	for i, field := range row {
		_ = e.store.SetSystem(fmt.Sprintf("!COL%d", i+1), field)
	}
	_ = e.store.SetSystem("!DATASOURCE_COLUMNS", len(row))
	return nil
}

func (e *Executor) clearColumns() {
	snap := e.store.Snapshot()
	for name := range snap {
		if len(name) > 4 && name[:4] == "!COL" {
			_ = e.store.SetSystem(name, "")
		}
	}
	_ = e.store.SetSystem("!DATASOURCE_COLUMNS", 0)
}

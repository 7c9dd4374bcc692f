package source

import (
	"database/sql"
	"fmt"
)

// Rows is a Lazy source over *sql.Rows, the canonical single-pass sequence:
// a result set can only be walked forward, once. Each item is a
// map[string]any keyed by column name.
//
// The source does not own the rows; the caller closes them after iteration
// (the optimizer's reconstructed source makes that safe, since every row is
// still observed exactly once).
type Rows struct {
	rows    *sql.Rows
	columns []string
	err     error
}

// FromRows adapts a result set into a Lazy source. Works with any
// database/sql driver; the driver must be imported by the host application.
func FromRows(rows *sql.Rows) *Rows {
	return &Rows{rows: rows}
}

// Err returns the first scan/iteration error, nil on clean exhaustion.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// SinglePass reports true.
func (r *Rows) SinglePass() bool { return true }

// Next scans the next row into a map keyed by column name.
func (r *Rows) Next() (any, bool) {
	if r.err != nil {
		return nil, false
	}

	if !r.rows.Next() {
		return nil, false
	}

	if r.columns == nil {
		cols, err := r.rows.Columns()
		if err != nil {
			r.err = fmt.Errorf("sql source: columns: %w", err)
			return nil, false
		}
		r.columns = cols
	}

	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = fmt.Errorf("sql source: scan: %w", err)
		return nil, false
	}

	record := make(map[string]any, len(r.columns))
	for i, col := range r.columns {
		// Normalize driver []byte payloads to string so records survive
		// the wire codec and compare cleanly in tests.
		if b, ok := values[i].([]byte); ok {
			record[col] = string(b)
		} else {
			record[col] = values[i]
		}
	}
	return record, true
}

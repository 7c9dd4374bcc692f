package source

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSV is a Lazy source yielding one map[string]any per CSV record. Records
// stream from the reader as they are pulled, so arbitrarily large files never
// materialize in memory.
type CSV struct {
	reader  *csv.Reader
	headers []string
	started bool
	err     error

	// HasHeader treats the first record as column names. When false,
	// columns are named col_1, col_2, ...
	HasHeader bool
}

// FromCSV adapts a CSV stream into a Lazy source with ',' as delimiter and a
// header row expected.
func FromCSV(r io.Reader) *CSV {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return &CSV{reader: reader, HasHeader: true}
}

// WithDelimiter sets the field delimiter. Must be called before the first
// Next.
func (c *CSV) WithDelimiter(d rune) *CSV {
	c.reader.Comma = d
	return c
}

// WithoutHeader disables header handling; columns get generated names.
func (c *CSV) WithoutHeader() *CSV {
	c.HasHeader = false
	return c
}

// Err returns the first read error encountered, nil on clean exhaustion.
// A malformed row terminates the source; check Err after iteration when that
// matters.
func (c *CSV) Err() error {
	return c.err
}

// SinglePass reports true.
func (c *CSV) SinglePass() bool { return true }

// Next yields the next record as a map keyed by column name.
func (c *CSV) Next() (any, bool) {
	if c.err != nil {
		return nil, false
	}

	if !c.started {
		c.started = true
		if c.HasHeader {
			headers, err := c.reader.Read()
			if err != nil {
				if err != io.EOF {
					c.err = fmt.Errorf("csv source: read header: %w", err)
				}
				return nil, false
			}
			c.headers = headers
		}
	}

	row, err := c.reader.Read()
	if err != nil {
		if err != io.EOF {
			c.err = fmt.Errorf("csv source: read row: %w", err)
		}
		return nil, false
	}

	if c.headers == nil {
		c.headers = make([]string, len(row))
		for i := range c.headers {
			c.headers[i] = fmt.Sprintf("col_%d", i+1)
		}
	}

	record := make(map[string]any, len(row))
	for i, val := range row {
		if i < len(c.headers) {
			record[c.headers[i]] = val
		} else {
			record[fmt.Sprintf("col_%d", i+1)] = val
		}
	}
	return record, true
}

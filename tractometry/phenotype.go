package tractometry

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// PhenotypeTable is a per-subject table read from a study's subjects file.
// Cells stay raw strings; numeric parsing happens at target-selection time
// so untouched columns survive a round trip byte-compatible.
type PhenotypeTable struct {
	IndexCol string     // header of the subject identity column
	Columns  []string   // remaining columns in file order
	Index    []string   // subject ID of each row
	Rows     [][]string // cells aligned with Columns

	delim  rune
	lookup map[string]int
}

// NewPhenotypeTable builds an empty in-memory table with the given identity
// column and data columns, written comma-delimited.
func NewPhenotypeTable(indexCol string, columns []string) *PhenotypeTable {
	return &PhenotypeTable{
		IndexCol: indexCol,
		Columns:  append([]string(nil), columns...),
		delim:    ',',
		lookup:   make(map[string]int),
	}
}

// AddRow appends a row for subject. Cells align with Columns; short rows
// are padded with empty cells.
func (p *PhenotypeTable) AddRow(subject string, cells []string) {
	row := make([]string, len(p.Columns))
	copy(row, cells)
	if p.lookup == nil {
		p.lookup = make(map[string]int)
	}
	if _, dup := p.lookup[subject]; !dup {
		p.lookup[subject] = len(p.Index)
	}
	p.Index = append(p.Index, subject)
	p.Rows = append(p.Rows, row)
}

// ReadPhenotypeFile reads a subjects table from path. Comma, tab and
// semicolon delimiters are auto-detected. An empty indexCol selects the
// first column as the subject index; otherwise the named column is used.
func ReadPhenotypeFile(path, indexCol string) (*PhenotypeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subjects file: %w", err)
	}
	defer f.Close()

	p, err := ReadPhenotype(f, indexCol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadPhenotype parses a delimited subjects table from r. Index artifact
// columns named "Unnamed: N" are dropped.
func ReadPhenotype(r io.Reader, indexCol string) (*PhenotypeTable, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read subjects table: %w", err)
	}
	delim := sniffDelimiter(string(head))

	cr := csv.NewReader(br)
	cr.Comma = delim
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read subjects table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("subjects table is empty")
	}

	header := records[0]
	idx := 0
	if indexCol != "" {
		idx = -1
		for i, name := range header {
			if name == indexCol {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, indexCol)
		}
	}

	p := &PhenotypeTable{
		IndexCol: header[idx],
		Columns:  make([]string, 0, len(header)-1),
		delim:    delim,
		lookup:   make(map[string]int, len(records)-1),
	}
	cols := make([]int, 0, len(header)-1)
	for i, name := range header {
		if i == idx {
			continue
		}
		if strings.HasPrefix(name, "Unnamed:") {
			// Index column leaked by a previous export; ignore it.
			continue
		}
		cols = append(cols, i)
		p.Columns = append(p.Columns, name)
	}
	for _, record := range records[1:] {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = record[c]
		}
		subject := record[idx]
		if _, dup := p.lookup[subject]; !dup {
			p.lookup[subject] = len(p.Index)
		}
		p.Index = append(p.Index, subject)
		p.Rows = append(p.Rows, row)
	}
	return p, nil
}

// sniffDelimiter picks the delimiter with the most occurrences in the
// header line, defaulting to comma.
func sniffDelimiter(head string) rune {
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, n := ',', strings.Count(head, ",")
	if c := strings.Count(head, "\t"); c > n {
		best, n = '\t', c
	}
	if c := strings.Count(head, ";"); c > n {
		best = ';'
	}
	return best
}

// ColumnIndex returns the position of name in Columns, or -1.
func (p *PhenotypeTable) ColumnIndex(name string) int {
	for i, c := range p.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Lookup returns the cells of the first row whose subject matches. Later
// rows with the same subject are shadowed so joins stay one-to-one.
func (p *PhenotypeTable) Lookup(subject string) ([]string, bool) {
	i, ok := p.lookup[subject]
	if !ok {
		return nil, false
	}
	return p.Rows[i], true
}

// Write emits the table with its original delimiter and column order.
func (p *PhenotypeTable) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = p.delim
	if cw.Comma == 0 {
		cw.Comma = ','
	}

	header := append([]string{p.IndexCol}, p.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write subjects header: %w", err)
	}
	for i, row := range p.Rows {
		record := append([]string{p.Index[i]}, row...)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write subjects row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path.
func (p *PhenotypeTable) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create subjects file: %w", err)
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

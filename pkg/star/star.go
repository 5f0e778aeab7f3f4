// Package star parses STAR metadata files into column-oriented tables.
//
// Every data_ block becomes one Table. A loop_ contributes one row per record,
// a run of key/value pairs contributes a single row. Column names are stored
// without the leading underscore, so _rlnImagePixelSize is "rlnImagePixelSize".
package star

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
)

// Table is a single data block
type Table struct {
	Name    string
	Columns []string
	Values  map[string][]string
}

func newTable(name string) *Table {
	return &Table{Name: name, Values: make(map[string][]string)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Values[t.Columns[0]])
}

// Column returns the raw values of col
func (t *Table) Column(col string) ([]string, error) {
	values, ok := t.Values[col]
	if !ok {
		return nil, errdefs.NotFoundf("column %s in block %q", col, t.Name)
	}
	return values, nil
}

// Float parses col as floating point values
func (t *Table) Float(col string) ([]float64, error) {
	raw, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, s := range raw {
		if out[i], err = strconv.ParseFloat(s, 64); err != nil {
			return nil, errdefs.Formatf("column %s row %d: %v", col, i, err)
		}
	}
	return out, nil
}

// Int parses col as integers
func (t *Table) Int(col string) ([]int, error) {
	raw, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for i, s := range raw {
		if out[i], err = strconv.Atoi(s); err != nil {
			return nil, errdefs.Formatf("column %s row %d: %v", col, i, err)
		}
	}
	return out, nil
}

func (t *Table) addColumn(col string, lineNo int) error {
	if _, ok := t.Values[col]; ok {
		return errdefs.Formatf("line %d: duplicate column %s in block %q", lineNo, col, t.Name)
	}
	t.Columns = append(t.Columns, col)
	t.Values[col] = nil
	return nil
}

// File holds the blocks of a STAR file in order of appearance
type File struct {
	Tables []*Table
}

// Table returns the block called name, without its data_ prefix
func (f *File) Table(name string) (*Table, bool) {
	for _, t := range f.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Load parses the STAR file at path
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errdefs.NotFoundf("%s", path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.L().Debug().Str("path", path).Int("blocks", len(file.Tables)).Msg("read STAR")
	return file, nil
}

type state int

const (
	stateNone state = iota
	statePairs
	stateLoopHeader
	stateLoopRows
)

// parser tracks the block being filled
type parser struct {
	file    *File
	table   *Table
	state   state
	pending []string
	lineNo  int
}

// Parse reads STAR content from r
func Parse(r io.Reader) (*File, error) {
	p := &parser{file: &File{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		p.lineNo++
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read STAR content: %w", err)
	}
	if err := p.endLoop(); err != nil {
		return nil, err
	}
	return p.file, nil
}

func (p *parser) line(text string) error {
	switch {
	case text == "" || strings.HasPrefix(text, "#"):
		return nil

	case strings.HasPrefix(text, "data_"):
		if err := p.endLoop(); err != nil {
			return err
		}
		p.table = newTable(strings.TrimPrefix(text, "data_"))
		p.file.Tables = append(p.file.Tables, p.table)
		p.state = stateNone
		return nil
	}

	if p.table == nil {
		return errdefs.Formatf("line %d: content before first data_ block", p.lineNo)
	}

	switch {
	case text == "loop_":
		if err := p.endLoop(); err != nil {
			return err
		}
		if len(p.table.Columns) > 0 {
			return errdefs.Formatf("line %d: block %q already has columns", p.lineNo, p.table.Name)
		}
		p.state = stateLoopHeader
		return nil

	case strings.HasPrefix(text, "_") && p.state != stateLoopRows:
		fields, err := tokenize(text)
		if err != nil {
			return errdefs.Formatf("line %d: %v", p.lineNo, err)
		}
		col := strings.TrimPrefix(fields[0], "_")
		if p.state == stateLoopHeader {
			// Anything after the name is a column index comment
			return p.table.addColumn(col, p.lineNo)
		}
		return p.pair(col, fields[1:])

	case strings.HasPrefix(text, "_"):
		if err := p.endLoop(); err != nil {
			return err
		}
		return errdefs.Formatf("line %d: block %q mixes a loop with key/value pairs", p.lineNo, p.table.Name)
	}

	if p.state != stateLoopHeader && p.state != stateLoopRows {
		return errdefs.Formatf("line %d: value outside of a loop", p.lineNo)
	}
	if len(p.table.Columns) == 0 {
		return errdefs.Formatf("line %d: loop without columns", p.lineNo)
	}
	p.state = stateLoopRows

	fields, err := tokenize(text)
	if err != nil {
		return errdefs.Formatf("line %d: %v", p.lineNo, err)
	}
	// Records may span several lines
	p.pending = append(p.pending, fields...)
	for len(p.pending) >= len(p.table.Columns) {
		for i, col := range p.table.Columns {
			p.table.Values[col] = append(p.table.Values[col], p.pending[i])
		}
		p.pending = p.pending[len(p.table.Columns):]
	}
	return nil
}

func (p *parser) pair(col string, values []string) error {
	if p.state == stateNone && len(p.table.Columns) > 0 {
		return errdefs.Formatf("line %d: block %q mixes a loop with key/value pairs", p.lineNo, p.table.Name)
	}
	if len(values) != 1 {
		return errdefs.Formatf("line %d: key %s needs exactly one value, got %d", p.lineNo, col, len(values))
	}
	if err := p.table.addColumn(col, p.lineNo); err != nil {
		return err
	}
	p.table.Values[col] = []string{values[0]}
	p.state = statePairs
	return nil
}

func (p *parser) endLoop() error {
	if len(p.pending) > 0 {
		return errdefs.Formatf("line %d: incomplete record in block %q", p.lineNo, p.table.Name)
	}
	if p.state == stateLoopHeader || p.state == stateLoopRows {
		p.state = stateNone
	}
	return nil
}

// tokenize splits on whitespace, keeping quoted values together
func tokenize(text string) ([]string, error) {
	var fields []string
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '#':
			return fields, nil
		case c == '"' || c == '\'':
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote")
			}
			fields = append(fields, text[i+1:i+1+end])
			i += end + 2
		default:
			j := i
			for j < len(text) && text[j] != ' ' && text[j] != '\t' {
				j++
			}
			fields = append(fields, text[i:j])
			i = j
		}
	}
	return fields, nil
}

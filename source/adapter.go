package source

import (
	"io"

	"go.uber.org/zap"

	"github.com/wippyai/livid/schema"
)

// Adapter shapes producer records into rows of the current output column
// set. Fields are matched by exact column name and parsed under the output
// column's type; anything that does not match or parse becomes an empty
// cell.
type Adapter struct {
	prod    Producer
	log     *zap.Logger
	input   schema.Columns
	output  schema.Columns
	mapping []int
	read    int
}

// NewAdapter wraps prod. A nil logger disables logging.
func NewAdapter(prod Producer, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		prod:  prod,
		log:   log,
		input: schema.NewColumns(prod.Header()),
	}
}

// Input returns the input column set: the producer's header, all Text.
func (a *Adapter) Input() schema.Columns { return a.input }

// Output returns the column set rows are currently shaped to.
func (a *Adapter) Output() schema.Columns { return a.output }

// Bind rebuilds the output-to-input map for output. Duplicate input
// names resolve to the first occurrence.
func (a *Adapter) Bind(output schema.Columns) {
	a.output = output
	a.mapping = make([]int, len(output))
	unmatched := 0
	for i, col := range output {
		idx, ok := a.input.Lookup(col.Name)
		if !ok {
			unmatched++
		}
		a.mapping[i] = idx
	}
	a.log.Debug("bound output columns",
		zap.Int("output", len(output)),
		zap.Int("unmatched", unmatched),
		zap.Ints("mapping", a.mapping))
}

// Mapping returns the output-to-input map; -1 marks an unmatched column.
func (a *Adapter) Mapping() []int { return a.mapping }

// Next returns the next row, or io.EOF when the input is exhausted.
func (a *Adapter) Next() (schema.Row, error) {
	rec, err := a.prod.Read()
	if err != nil {
		return nil, err
	}
	a.read++

	row := make(schema.Row, len(a.output))
	for i, col := range a.output {
		idx := a.mapping[i]
		if idx < 0 || idx >= len(rec) {
			row[i] = schema.EmptyCell(col.Type)
			continue
		}
		row[i] = schema.Parse(col.Type, rec[idx])
	}
	return row, nil
}

// Reset repositions the adapter to the first data row and zeroes the
// read counter.
func (a *Adapter) Reset() error {
	a.read = 0
	return a.prod.Rewind()
}

// RowsRead is the number of rows returned since the last Reset.
func (a *Adapter) RowsRead() int { return a.read }

// Sample returns the first data record, or nil for an input without data
// rows. The adapter is left reset.
func (a *Adapter) Sample() ([]string, error) {
	if err := a.Reset(); err != nil {
		return nil, err
	}
	rec, err := a.prod.Read()
	if err != nil && err != io.EOF {
		return nil, err
	}
	sample := append([]string(nil), rec...)
	if err := a.Reset(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return sample, nil
}

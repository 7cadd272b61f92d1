package signature

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// LabelColumn is the name of the label column in the Arrow rendering.
const LabelColumn = "label"

// Row is one signature formatted for display.
type Row struct {
	Label  string    `json:"label"`
	Cells  []string  `json:"cells"`
	Values []float64 `json:"values"`
}

// Table is the reference table: rows are labels, columns are VOC names.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// FormatLevel renders a VOC level to one decimal place.
func FormatLevel(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Table renders the store as a display table.
func (s *Store) Table() Table {
	t := Table{Columns: VOCNames(), Rows: make([]Row, 0, s.Len())}
	s.Each(func(sig Signature) bool {
		row := Row{
			Label:  sig.Label,
			Cells:  make([]string, len(sig.Levels)),
			Values: make([]float64, len(sig.Levels)),
		}
		for i, v := range sig.Levels {
			row.Cells[i] = FormatLevel(v)
			row.Values[i] = v
		}
		t.Rows = append(t.Rows, row)
		return true
	})
	return t
}

// Schema is the Arrow schema of the signature table: a non-null label
// column followed by one float64 column per VOC.
func Schema() *arrow.Schema {
	fields := make([]arrow.Field, 0, Dimensions+1)
	fields = append(fields, arrow.Field{Name: LabelColumn, Type: arrow.BinaryTypes.String})
	for _, name := range vocNames {
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.NewSchema(fields, nil)
}

// Record builds the signature table as an Arrow record. The caller owns the
// record and must Release it.
func (s *Store) Record(mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewRecordBuilder(mem, Schema())
	defer b.Release()

	labels := b.Field(0).(*array.StringBuilder)
	s.Each(func(sig Signature) bool {
		labels.Append(sig.Label)
		for i, v := range sig.Levels {
			b.Field(i + 1).(*array.Float64Builder).Append(v)
		}
		return true
	})
	return b.NewRecord()
}

// FromRecord decodes a record produced by Record back into signatures.
func FromRecord(rec arrow.Record) ([]Signature, error) {
	if int(rec.NumCols()) != Dimensions+1 {
		return nil, fmt.Errorf("signature record: expected %d columns, got %d", Dimensions+1, rec.NumCols())
	}
	labels, ok := rec.Column(0).(*array.String)
	if !ok {
		return nil, fmt.Errorf("signature record: column %q is %s, want utf8", rec.ColumnName(0), rec.Column(0).DataType())
	}
	cols := make([]*array.Float64, Dimensions)
	for i := range cols {
		col, ok := rec.Column(i + 1).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("signature record: column %q is %s, want float64", rec.ColumnName(i+1), rec.Column(i+1).DataType())
		}
		cols[i] = col
	}

	out := make([]Signature, 0, rec.NumRows())
	for row := 0; row < int(rec.NumRows()); row++ {
		sig := Signature{Label: labels.Value(row), Levels: make([]float64, Dimensions)}
		for i, col := range cols {
			sig.Levels[i] = col.Value(row)
		}
		out = append(out, sig)
	}
	return out, nil
}

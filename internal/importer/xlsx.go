package importer

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// ImportXLSX reads one sheet (opts.Sheet, default the first) of a
// spreadsheet export and maps its rows with the same positional columns and
// header detection as CSV.
func ImportXLSX(path string, opts Options) ([]model.Keyword, error) {
	rows, err := ReadXLSX(path, opts.Sheet)
	if err != nil {
		return nil, err
	}

	cols := opts.Columns
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}
	src := sourceOr(opts.Source, model.SourceManualCSV)

	out := []model.Keyword{}
	for i, row := range rows {
		if i == 0 && len(row) > 0 && IsHeaderCell(row[0]) {
			continue
		}
		if kw, ok := RowToKeyword(row, cols, src); ok {
			out = append(out, kw)
		}
	}

	zap.L().Info("importer: keywords imported",
		zap.String("path", path),
		zap.String("format", string(FormatXLSX)),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// ReadXLSX returns every row of the sheet at sheetIndex as strings.
func ReadXLSX(path string, sheetIndex int) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	if sheetIndex < 0 || sheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("importer: sheet index %d out of range (file has %d sheets)", sheetIndex, len(f.Sheets))
	}

	sheet := f.Sheets[sheetIndex]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

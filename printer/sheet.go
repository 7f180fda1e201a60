package printer

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/xuri/excelize/v2"

	"github.com/luno/sepadoc/internal/tmpl"
)

// Sheet is the first worksheet of a spreadsheet template with its print metrics in points.
type Sheet struct {
	Grid       tmpl.Grid
	ColWidths  []float64
	RowHeights []float64
}

// Width is the natural print width of the sheet.
func (s *Sheet) Width() float64 {
	var w float64
	for _, cw := range s.ColWidths {
		w += cw
	}

	return w
}

// Height is the natural print height of the sheet.
func (s *Sheet) Height() float64 {
	var h float64
	for _, rh := range s.RowHeights {
		h += rh
	}

	return h
}

// colWidthPoints converts a width in characters, as stored by spreadsheets, into points.
func colWidthPoints(chars float64) float64 {
	return (chars*7 + 5) * 0.75
}

// LoadSheet reads the first worksheet of the spreadsheet at path.
func LoadSheet(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sheet", j.MKV{"path": path})
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheet", j.MKV{"path": path})
	}

	name := sheets[0]
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Wrap(err, "read rows", j.MKV{"path": path, "sheet": name})
	}

	s := &Sheet{Grid: tmpl.NewGrid(rows)}

	for col := 1; col <= s.Grid.NumCols(); col++ {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return nil, errors.Wrap(err, "column name")
		}

		w, err := f.GetColWidth(name, colName)
		if err != nil {
			return nil, errors.Wrap(err, "column width", j.MKV{"column": colName})
		}

		s.ColWidths = append(s.ColWidths, colWidthPoints(w))
	}

	for row := 1; row <= s.Grid.NumRows(); row++ {
		h, err := f.GetRowHeight(name, row)
		if err != nil {
			return nil, errors.Wrap(err, "row height", j.MKV{"row": row})
		}

		s.RowHeights = append(s.RowHeights, h)
	}

	return s, nil
}

// FillSheet writes the cells of filled that differ from the template at templatePath and saves the result as out.
// The styles of the template are kept.
func FillSheet(templatePath, out string, template, filled tmpl.Grid) error {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return errors.Wrap(err, "open sheet", j.MKV{"path": templatePath})
	}
	defer f.Close()

	name := f.GetSheetList()[0]
	for row := 0; row < filled.NumRows(); row++ {
		for col := 0; col < filled.NumCols(); col++ {
			v, ok := filled.Cell(row, col)
			if !ok {
				continue
			}

			if orig, _ := template.Cell(row, col); orig == v {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(col+1, row+1)
			if err != nil {
				return errors.Wrap(err, "cell name")
			}

			err = f.SetCellStr(name, cell, v)
			if err != nil {
				return errors.Wrap(err, "set cell", j.MKV{"cell": cell})
			}
		}
	}

	err = f.SaveAs(out)
	if err != nil {
		return errors.Wrap(err, "save sheet", j.MKV{"path": out})
	}

	return nil
}

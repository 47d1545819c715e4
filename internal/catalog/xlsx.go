package catalog

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lotsmith/internal/model"
)

// parseXLSX reads an items list from an XLSX workbook. Some AuctionMethod
// exports ship "Items List.xlsx" instead of CSV; the first sheet carries the
// same header-mapped columns.
func parseXLSX(data []byte) ([]model.Lot, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("catalog: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowToStrings(sheet.Rows[0])
	setters := make([]func(*model.Lot, string), len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		for _, c := range columns {
			if c.header == name {
				setters[i] = c.set
				break
			}
		}
	}

	var lots []model.Lot
	for _, row := range sheet.Rows[1:] {
		if lot, ok := rowToLot(rowToStrings(row), setters); ok {
			lots = append(lots, lot)
		}
	}

	return lots, nil
}

func rowToStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}

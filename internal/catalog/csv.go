package catalog

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/lotsmith/internal/model"
)

// parseCSV reads a header-mapped items list. Unknown columns are ignored and
// missing columns leave their fields empty; every value is trimmed. A UTF-8
// BOM, common in AuctionMethod exports, is stripped by the decoder.
func parseCSV(r io.Reader) ([]model.Lot, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read csv header")
	}

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
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read csv row")
		}
		if lot, ok := rowToLot(record, setters); ok {
			lots = append(lots, lot)
		}
	}

	return lots, nil
}

// rowToLot maps a raw row through the column setters. Rows with no non-empty
// cell are skipped; AuctionMethod exports often end with blank lines.
func rowToLot(record []string, setters []func(*model.Lot, string)) (model.Lot, bool) {
	var lot model.Lot
	empty := true
	for i, raw := range record {
		if i >= len(setters) || setters[i] == nil {
			continue
		}
		v := strings.TrimSpace(raw)
		if v != "" {
			empty = false
		}
		setters[i](&lot, v)
	}
	return lot, !empty
}

package catalog

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotsmith/internal/model"
)

// ExportCSV renders lots back into the AuctionMethod CSV layout with the
// enriched title and description substituted for the originals. Column order
// and header names match the import contract exactly. Takes copies so an
// export can run concurrently with the enrichment loop.
func ExportCSV(lots []model.EnrichedLot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Headers()); err != nil {
		return nil, eris.Wrap(err, "catalog: write csv header")
	}

	row := make([]string, len(columns))
	for _, lot := range lots {
		for i, c := range columns {
			switch c.header {
			case "Title":
				row[i] = lot.EnrichedTitle
			case "Description":
				row[i] = lot.EnrichedDescription
			default:
				row[i] = c.get(&lot.Original)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrapf(err, "catalog: write csv row for lot %s", lot.Original.LotNumber)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "catalog: flush csv")
	}
	return buf.Bytes(), nil
}

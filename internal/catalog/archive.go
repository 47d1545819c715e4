package catalog

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotsmith/internal/model"
)

// ErrNoTabularFile is returned when an archive contains no items list in any
// supported format. The upload fails as a whole; no partial batch is created.
var ErrNoTabularFile = eris.New("catalog: no items list (CSV or XLSX) found in archive")

const leadImagesDir = "Lead Images/"

// ParseArchive reads an AuctionMethod export ZIP and returns its lots in file
// order, each with a lead image attached when one matches the lot number.
// Images that match no lot are ignored; lots without an image proceed bare.
func ParseArchive(data []byte) ([]model.Lot, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open archive")
	}

	lots, err := parseItemsList(zr)
	if err != nil {
		return nil, err
	}

	images, err := readLeadImages(zr)
	if err != nil {
		return nil, err
	}

	for i := range lots {
		if img, ok := images[strings.TrimSpace(lots[i].LotNumber)]; ok {
			lots[i].Image = img
		}
	}

	return lots, nil
}

// parseItemsList locates and parses the tabular file. "Items List.csv" wins
// over other CSVs, any CSV wins over XLSX.
func parseItemsList(zr *zip.Reader) ([]model.Lot, error) {
	var csvFile, anyCSV, xlsxFile *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ToLower(path.Base(f.Name))
		switch {
		case name == "items list.csv":
			csvFile = f
		case strings.HasSuffix(name, ".csv") && anyCSV == nil:
			anyCSV = f
		case strings.HasSuffix(name, ".xlsx") && xlsxFile == nil:
			xlsxFile = f
		}
	}
	if csvFile == nil {
		csvFile = anyCSV
	}

	switch {
	case csvFile != nil:
		rc, err := csvFile.Open()
		if err != nil {
			return nil, eris.Wrap(err, "catalog: open items list")
		}
		defer rc.Close() //nolint:errcheck
		return parseCSV(rc)
	case xlsxFile != nil:
		raw, err := readEntry(xlsxFile)
		if err != nil {
			return nil, err
		}
		return parseXLSX(raw)
	default:
		return nil, ErrNoTabularFile
	}
}

// readLeadImages collects "Lead Images/<lot>.<ext>" entries keyed by lot number.
func readLeadImages(zr *zip.Reader) (map[string]*model.Image, error) {
	images := make(map[string]*model.Image)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, leadImagesDir) {
			continue
		}

		base := path.Base(f.Name)
		ext := strings.ToLower(path.Ext(base))
		var mime string
		switch ext {
		case ".jpg", ".jpeg":
			mime = "image/jpeg"
		case ".png":
			mime = "image/png"
		default:
			continue
		}

		lotNum := strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
		if lotNum == "" {
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		images[lotNum] = &model.Image{Data: data, MimeType: mime}
	}
	return images, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", f.Name)
	}
	return data, nil
}

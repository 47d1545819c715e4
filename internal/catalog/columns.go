// Package catalog parses AuctionMethod catalog exports and writes enriched
// CSV files. An export is a ZIP containing one items list (CSV or XLSX) and
// an optional "Lead Images" folder with one image per lot number.
package catalog

import "github.com/sells-group/lotsmith/internal/model"

// column binds an items-list header to its field on model.Lot. The header
// names and their order are a stable contract: downstream consumers of the
// exported CSV depend on both.
type column struct {
	header string
	get    func(*model.Lot) string
	set    func(*model.Lot, string)
}

var columns = []column{
	{"Lot #", func(l *model.Lot) string { return l.LotNumber }, func(l *model.Lot, v string) { l.LotNumber = v }},
	{"Title", func(l *model.Lot) string { return l.Title }, func(l *model.Lot, v string) { l.Title = v }},
	{"Sequence #", func(l *model.Lot) string { return l.SequenceNumber }, func(l *model.Lot, v string) { l.SequenceNumber = v }},
	{"Featured", func(l *model.Lot) string { return l.Featured }, func(l *model.Lot, v string) { l.Featured = v }},
	{"No Cc Payment", func(l *model.Lot) string { return l.NoCcPayment }, func(l *model.Lot, v string) { l.NoCcPayment = v }},
	{"Tax Premium Only", func(l *model.Lot) string { return l.TaxPremiumOnly }, func(l *model.Lot, v string) { l.TaxPremiumOnly = v }},
	{"Premium", func(l *model.Lot) string { return l.Premium }, func(l *model.Lot, v string) { l.Premium = v }},
	{"Tax Code", func(l *model.Lot) string { return l.TaxCode }, func(l *model.Lot, v string) { l.TaxCode = v }},
	{"Category", func(l *model.Lot) string { return l.Category }, func(l *model.Lot, v string) { l.Category = v }},
	{"Videos", func(l *model.Lot) string { return l.Videos }, func(l *model.Lot, v string) { l.Videos = v }},
	{"Description", func(l *model.Lot) string { return l.Description }, func(l *model.Lot, v string) { l.Description = v }},
	{"Quantity", func(l *model.Lot) string { return l.Quantity }, func(l *model.Lot, v string) { l.Quantity = v }},
	{"Increment Scheme", func(l *model.Lot) string { return l.IncrementScheme }, func(l *model.Lot, v string) { l.IncrementScheme = v }},
	{"Flat Increment", func(l *model.Lot) string { return l.FlatIncrement }, func(l *model.Lot, v string) { l.FlatIncrement = v }},
	{"Starting Bid", func(l *model.Lot) string { return l.StartingBid }, func(l *model.Lot, v string) { l.StartingBid = v }},
	{"Reserve Price", func(l *model.Lot) string { return l.ReservePrice }, func(l *model.Lot, v string) { l.ReservePrice = v }},
	{"Consignor", func(l *model.Lot) string { return l.Consignor }, func(l *model.Lot, v string) { l.Consignor = v }},
	{"Mapping Country", func(l *model.Lot) string { return l.MappingCountry }, func(l *model.Lot, v string) { l.MappingCountry = v }},
	{"Mapping Address", func(l *model.Lot) string { return l.MappingAddress }, func(l *model.Lot, v string) { l.MappingAddress = v }},
	{"Mapping City", func(l *model.Lot) string { return l.MappingCity }, func(l *model.Lot, v string) { l.MappingCity = v }},
	{"Mapping State", func(l *model.Lot) string { return l.MappingState }, func(l *model.Lot, v string) { l.MappingState = v }},
	{"Mapping Zip", func(l *model.Lot) string { return l.MappingZip }, func(l *model.Lot, v string) { l.MappingZip = v }},
	{"Location ID", func(l *model.Lot) string { return l.LocationID }, func(l *model.Lot, v string) { l.LocationID = v }},
	{"Live", func(l *model.Lot) string { return l.Live }, func(l *model.Lot, v string) { l.Live = v }},
	{"New Lot #", func(l *model.Lot) string { return l.NewLotNumber }, func(l *model.Lot, v string) { l.NewLotNumber = v }},
	{"Buy Now Price", func(l *model.Lot) string { return l.BuyNowPrice }, func(l *model.Lot, v string) { l.BuyNowPrice = v }},
}

// Headers returns the exported CSV column headers in contract order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

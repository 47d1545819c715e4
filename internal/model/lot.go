// Package model defines the auction lot records and their enrichment lifecycle.
package model

// LotStatus represents the enrichment state of a single lot.
type LotStatus string

const (
	StatusPending    LotStatus = "pending"
	StatusProcessing LotStatus = "processing"
	StatusEnriched   LotStatus = "enriched"
	StatusError      LotStatus = "error"
	StatusEdited     LotStatus = "edited"
	StatusPushed     LotStatus = "pushed"
)

// Terminal reports whether the status is one the sequential run loop will
// never revisit. Only terminal lots are eligible for a manual rerun.
func (s LotStatus) Terminal() bool {
	switch s {
	case StatusEnriched, StatusError, StatusEdited, StatusPushed:
		return true
	}
	return false
}

// Image is a lead image attached to a lot.
type Image struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// Lot is a single row from an AuctionMethod items export. Immutable once
// ingested; the enrichment workflow never writes back into it.
type Lot struct {
	LotNumber       string `json:"lot_number"`
	Title           string `json:"title"`
	SequenceNumber  string `json:"sequence_number"`
	Featured        string `json:"featured"`
	NoCcPayment     string `json:"no_cc_payment"`
	TaxPremiumOnly  string `json:"tax_premium_only"`
	Premium         string `json:"premium"`
	TaxCode         string `json:"tax_code"`
	Category        string `json:"category"`
	Videos          string `json:"videos"`
	Description     string `json:"description"`
	Quantity        string `json:"quantity"`
	IncrementScheme string `json:"increment_scheme"`
	FlatIncrement   string `json:"flat_increment"`
	StartingBid     string `json:"starting_bid"`
	ReservePrice    string `json:"reserve_price"`
	Consignor       string `json:"consignor"`
	MappingCountry  string `json:"mapping_country"`
	MappingAddress  string `json:"mapping_address"`
	MappingCity     string `json:"mapping_city"`
	MappingState    string `json:"mapping_state"`
	MappingZip      string `json:"mapping_zip"`
	LocationID      string `json:"location_id"`
	Live            string `json:"live"`
	NewLotNumber    string `json:"new_lot_number"`
	BuyNowPrice     string `json:"buy_now_price"`

	Image *Image `json:"image,omitempty"`
}

// EnrichedLot wraps a Lot with its mutable enrichment state. One exists per
// ingested lot for the lifetime of a session, in ingestion order.
type EnrichedLot struct {
	Original            Lot       `json:"original"`
	EnrichedTitle       string    `json:"enriched_title"`
	EnrichedDescription string    `json:"enriched_description"`
	Status              LotStatus `json:"status"`
	Err                 string    `json:"error,omitempty"`
	ItemID              string    `json:"item_id,omitempty"`
}

// NewEnrichedLot wraps a freshly ingested lot in its initial enrichment state.
func NewEnrichedLot(lot Lot) *EnrichedLot {
	return &EnrichedLot{
		Original:            lot,
		EnrichedTitle:       lot.Title,
		EnrichedDescription: lot.Description,
		Status:              StatusPending,
	}
}

// SetResult records a successful enrichment. Empty result fields fall back to
// the original values so a partial backend payload never produces a hole in
// the review grid.
func (e *EnrichedLot) SetResult(title, description string) {
	if title == "" {
		title = e.Original.Title
	}
	if description == "" {
		description = e.Original.Description
	}
	e.EnrichedTitle = title
	e.EnrichedDescription = description
	e.Status = StatusEnriched
	e.Err = ""
}

// SetFailure records a failed enrichment attempt. The enriched fields are
// reset to the originals so a failure never leaves stale partial output.
func (e *EnrichedLot) SetFailure(msg string) {
	e.EnrichedTitle = e.Original.Title
	e.EnrichedDescription = e.Original.Description
	e.Status = StatusError
	e.Err = msg
}

// ApplyEdit stores an operator edit. Editing an automatically enriched lot
// moves it to edited; edits in any other status keep the current status.
func (e *EnrichedLot) ApplyEdit(title, description string) {
	e.EnrichedTitle = title
	e.EnrichedDescription = description
	if e.Status == StatusEnriched {
		e.Status = StatusEdited
	}
}

// MarkPushed records a successful push to the catalog service.
func (e *EnrichedLot) MarkPushed(itemID string) {
	e.Status = StatusPushed
	e.ItemID = itemID
	e.Err = ""
}

// Pushable reports whether the lot is in a state eligible for pushing.
func (e *EnrichedLot) Pushable() bool {
	return e.Status == StatusEnriched || e.Status == StatusEdited
}

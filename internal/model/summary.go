package model

// Summary holds the aggregate counts shown to the operator. It is a pure
// projection of stored lot statuses; nothing here is a second source of truth.
type Summary struct {
	Total     int `json:"total"`
	Enriched  int `json:"enriched"`
	Errors    int `json:"errors"`
	Remaining int `json:"remaining"`
	Pushed    int `json:"pushed"`
}

// Summarize derives aggregate counts from the stored statuses. Edited lots
// count as enriched: an operator correction is still a completed lot.
func Summarize(lots []*EnrichedLot) Summary {
	s := Summary{Total: len(lots)}
	for _, l := range lots {
		switch l.Status {
		case StatusEnriched, StatusEdited:
			s.Enriched++
		case StatusError:
			s.Errors++
		case StatusPending, StatusProcessing:
			s.Remaining++
		case StatusPushed:
			s.Pushed++
		}
	}
	return s
}

// Complete reports whether every lot has left the processing phase.
func (s Summary) Complete() bool {
	return s.Remaining == 0
}

package auctionmethod

import (
	"encoding/json"
	"strconv"
)

// FlexID is an identifier the AM API returns as either a JSON number or a
// string, normalized to its string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// Auction is a single auction from the admin listing.
type Auction struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Starts string `json:"starts"`
	Ends   string `json:"ends"`
	Status string `json:"status"`
	City   string `json:"city"`
	State  string `json:"state"`
}

func (a Auction) IDString() string {
	return strconv.Itoa(a.ID)
}

// Item is a catalog item within an auction.
type Item struct {
	ID        FlexID `json:"id"`
	LotNumber string `json:"lot_number"`
	Title     string `json:"title"`
}

type authResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type auctionsResponse struct {
	Auctions []Auction `json:"auctions"`
}

type itemsResponse struct {
	Items []Item `json:"items"`
}

// Package push writes enriched titles and descriptions back to AuctionMethod
// and verifies connectivity to it.
package push

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

// ErrNoItems is returned when the target auction has no items at all:
// there is nothing to match lots against, which is a different operator
// problem than individual lots failing to match.
var ErrNoItems = eris.New("push: auction has no items to match against")

// Result is the outcome for one lot in a push batch. ItemID identifies the
// matched catalog item so the caller can record the push against its own
// state.
type Result struct {
	LotNumber string `json:"lot_number"`
	ItemID    string `json:"item_id,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Pusher patches enriched lots into an AuctionMethod auction.
type Pusher struct {
	client auctionmethod.Client
}

// New creates a Pusher.
func New(client auctionmethod.Client) *Pusher {
	return &Pusher{client: client}
}

// Push patches the title and description of every pushable lot into the
// auction's matching items. Lots are matched by lot number, compared after
// trimming and numeric normalization ("07" matches "7"). Per-lot failures
// never abort the batch. Delivery is at least once: re-pushing a lot that
// regressed is safe.
//
// Push only reads the lots it is given; callers pass copies and record
// successful results against their own state, so a push can run concurrently
// with readers of the live batch.
func (p *Pusher) Push(ctx context.Context, auctionID string, lots []model.EnrichedLot) ([]Result, error) {
	items, err := p.client.Items(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, eris.Wrapf(ErrNoItems, "auction %s", auctionID)
	}

	byLot := make(map[string]auctionmethod.Item, len(items))
	for _, item := range items {
		if key := normalizeLot(item.LotNumber); key != "" {
			byLot[key] = item
		}
	}

	log := zap.L().With(zap.String("auction", auctionID))
	var results []Result
	for _, lot := range lots {
		if !lot.Pushable() {
			continue
		}

		lotNum := strings.TrimSpace(lot.Original.LotNumber)
		item, ok := byLot[normalizeLot(lotNum)]
		if !ok {
			results = append(results, Result{
				LotNumber: lotNum,
				Error:     fmt.Sprintf("Item not found for lot #%s", lotNum),
			})
			continue
		}

		err := p.client.PatchItem(ctx, auctionID, item.ID.String(), map[string]any{
			"title":       lot.EnrichedTitle,
			"description": lot.EnrichedDescription,
		})
		if err != nil {
			log.Warn("push: patch failed", zap.String("lot", lotNum), zap.Error(err))
			results = append(results, Result{LotNumber: lotNum, Error: err.Error()})
			continue
		}

		results = append(results, Result{LotNumber: lotNum, ItemID: item.ID.String(), Success: true})
	}

	log.Info("push: batch finished", zap.Int("lots", len(results)))
	return results, nil
}

// normalizeLot trims a lot number and strips leading zeros from purely
// numeric ones, so the string variants of the same integer compare equal.
func normalizeLot(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	stripped := strings.TrimLeft(s, "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

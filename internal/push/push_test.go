package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

type patchCall struct {
	itemID string
	fields map[string]any
}

type fakeClient struct {
	items    []auctionmethod.Item
	itemsErr error
	patchErr map[string]error
	auctions []auctionmethod.Auction
	authErr  error

	patches []patchCall
}

func (f *fakeClient) Authenticate(ctx context.Context) error { return f.authErr }

func (f *fakeClient) Auctions(ctx context.Context, limit int) ([]auctionmethod.Auction, error) {
	return f.auctions, nil
}

func (f *fakeClient) Items(ctx context.Context, auctionID string) ([]auctionmethod.Item, error) {
	return f.items, f.itemsErr
}

func (f *fakeClient) PatchItem(ctx context.Context, auctionID, itemID string, fields map[string]any) error {
	if err := f.patchErr[itemID]; err != nil {
		return err
	}
	f.patches = append(f.patches, patchCall{itemID: itemID, fields: fields})
	return nil
}

func (f *fakeClient) InvalidateToken() {}

func enrichedLot(lotNumber, title, desc string) model.EnrichedLot {
	lot := model.NewEnrichedLot(model.Lot{LotNumber: lotNumber, Title: "orig " + lotNumber})
	lot.SetResult(title, desc)
	return *lot
}

func TestPush_MatchesNormalizedLotNumbers(t *testing.T) {
	client := &fakeClient{
		items: []auctionmethod.Item{
			{ID: "1", LotNumber: "7", Title: "old"},
			{ID: "2", LotNumber: "012", Title: "old"},
		},
	}
	lots := []model.EnrichedLot{
		enrichedLot("07", "New Seven", "Seven desc"),
		enrichedLot("12 ", "New Twelve", "Twelve desc"),
		enrichedLot("9", "New Nine", "Nine desc"),
	}

	results, err := New(client).Push(context.Background(), "42", lots)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if !results[0].Success || !results[1].Success {
		t.Fatalf("matched lots should succeed: %+v", results[:2])
	}
	if results[0].ItemID != "1" || results[1].ItemID != "2" {
		t.Fatalf("results must carry the matched item ids: %+v", results[:2])
	}
	if results[2].Success {
		t.Fatal("lot 9 has no matching item and should fail")
	}
	if want := "Item not found for lot #9"; results[2].Error != want {
		t.Fatalf("error = %q, want %q", results[2].Error, want)
	}

	if len(client.patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(client.patches))
	}
	if client.patches[0].itemID != "1" || client.patches[1].itemID != "2" {
		t.Fatalf("patched wrong items: %+v", client.patches)
	}
	if got := client.patches[0].fields["title"]; got != "New Seven" {
		t.Fatalf("patched title = %v", got)
	}
	if got := client.patches[0].fields["description"]; got != "Seven desc" {
		t.Fatalf("patched description = %v", got)
	}
}

func TestPush_DoesNotMutateInput(t *testing.T) {
	client := &fakeClient{
		items: []auctionmethod.Item{{ID: "1", LotNumber: "1"}},
	}
	lots := []model.EnrichedLot{enrichedLot("1", "T1", "D1")}

	results, err := New(client).Push(context.Background(), "42", lots)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("push should succeed: %+v", results[0])
	}

	// The pushed status belongs to the batch owner; Push only reports.
	if lots[0].Status != model.StatusEnriched {
		t.Fatalf("input lot status changed to %s", lots[0].Status)
	}
	if lots[0].ItemID != "" {
		t.Fatalf("input lot item id set to %q", lots[0].ItemID)
	}
}

func TestPush_EmptyAuctionIsNoItems(t *testing.T) {
	client := &fakeClient{}
	lots := []model.EnrichedLot{enrichedLot("1", "T", "D")}

	_, err := New(client).Push(context.Background(), "42", lots)
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
}

func TestPush_PerLotFailureDoesNotAbortBatch(t *testing.T) {
	client := &fakeClient{
		items: []auctionmethod.Item{
			{ID: "1", LotNumber: "1"},
			{ID: "2", LotNumber: "2"},
		},
		patchErr: map[string]error{"1": fmt.Errorf("auctionmethod: status 500")},
	}
	lots := []model.EnrichedLot{
		enrichedLot("1", "T1", "D1"),
		enrichedLot("2", "T2", "D2"),
	}

	results, err := New(client).Push(context.Background(), "42", lots)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if results[0].Success {
		t.Fatal("lot 1 patch should have failed")
	}
	if results[0].Error == "" {
		t.Fatal("failed lot should carry the backend error")
	}
	if !results[1].Success {
		t.Fatalf("lot 2 should still succeed: %+v", results[1])
	}
	if results[1].ItemID != "2" {
		t.Fatalf("succeeding result must carry its item id: %+v", results[1])
	}
}

func TestPush_SkipsNonPushableLots(t *testing.T) {
	client := &fakeClient{
		items: []auctionmethod.Item{{ID: "1", LotNumber: "1"}},
	}
	pending := *model.NewEnrichedLot(model.Lot{LotNumber: "1", Title: "orig"})

	results, err := New(client).Push(context.Background(), "42", []model.EnrichedLot{pending})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("pending lot should be skipped, got %+v", results)
	}
	if len(client.patches) != 0 {
		t.Fatal("no patches expected for non-pushable lots")
	}
}

func TestNormalizeLot(t *testing.T) {
	cases := map[string]string{
		"7":    "7",
		"07":   "7",
		" 012": "12",
		"000":  "0",
		"7A":   "7A",
		"":     "",
	}
	for in, want := range cases {
		if got := normalizeLot(in); got != want {
			t.Errorf("normalizeLot(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerify_Steps(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		client := &fakeClient{auctions: []auctionmethod.Auction{{ID: 1}}}
		ok, steps := Verify(context.Background(), client)
		if !ok {
			t.Fatalf("verify failed: %+v", steps)
		}
		if len(steps) != 3 {
			t.Fatalf("got %d steps, want 3", len(steps))
		}
		for _, s := range steps {
			if !s.OK {
				t.Fatalf("step %q failed: %s", s.Name, s.Message)
			}
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		client := &fakeClient{authErr: auctionmethod.ErrMissingCredentials}
		ok, steps := Verify(context.Background(), client)
		if ok {
			t.Fatal("verify should fail without credentials")
		}
		if len(steps) != 1 || steps[0].Name != "credentials" || steps[0].OK {
			t.Fatalf("unexpected steps: %+v", steps)
		}
	})

	t.Run("auth failure", func(t *testing.T) {
		client := &fakeClient{authErr: auctionmethod.ErrAuthFailed}
		ok, steps := Verify(context.Background(), client)
		if ok {
			t.Fatal("verify should fail on bad credentials")
		}
		if len(steps) != 2 || steps[1].Name != "authenticate" || steps[1].OK {
			t.Fatalf("unexpected steps: %+v", steps)
		}
	})
}

package push

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

// Step is the outcome of one stage of a connectivity check.
type Step struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Verify runs a stepwise connectivity check against AuctionMethod:
// credentials are present, authentication succeeds, and the auction list
// is reachable. It stops at the first failing step and reports every step
// it ran. The boolean is true only when all steps passed.
func Verify(ctx context.Context, client auctionmethod.Client) (bool, []Step) {
	var steps []Step

	if err := client.Authenticate(ctx); err != nil {
		if eris.Is(err, auctionmethod.ErrMissingCredentials) {
			steps = append(steps, Step{
				Name:    "credentials",
				Message: "domain, email, or password not configured",
			})
			return false, steps
		}
		steps = append(steps, Step{Name: "credentials", OK: true, Message: "configured"})
		steps = append(steps, Step{Name: "authenticate", Message: err.Error()})
		return false, steps
	}
	steps = append(steps, Step{Name: "credentials", OK: true, Message: "configured"})
	steps = append(steps, Step{Name: "authenticate", OK: true, Message: "token issued"})

	auctions, err := client.Auctions(ctx, 10)
	if err != nil {
		steps = append(steps, Step{Name: "list auctions", Message: err.Error()})
		return false, steps
	}
	steps = append(steps, Step{
		Name:    "list auctions",
		OK:      true,
		Message: fmt.Sprintf("fetched %d auctions", len(auctions)),
	})

	return true, steps
}

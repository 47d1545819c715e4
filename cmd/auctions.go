package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

var auctionsLimit int

var auctionsCmd = &cobra.Command{
	Use:   "auctions",
	Short: "List auctions from AuctionMethod",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("push"); err != nil {
			return err
		}

		client := buildAMClient(cfg)
		auctions, err := client.Auctions(cmd.Context(), auctionsLimit)
		if err != nil {
			return eris.Wrap(err, "auctions list")
		}

		if len(auctions) == 0 {
			fmt.Fprintln(os.Stderr, "No auctions found.")
			return nil
		}

		formatAuctions(os.Stdout, auctions)
		return nil
	},
}

func init() {
	auctionsCmd.Flags().IntVar(&auctionsLimit, "limit", 100, "max number of auctions to display")
	rootCmd.AddCommand(auctionsCmd)
}

// formatAuctions writes a tabular list of auctions to w.
func formatAuctions(out io.Writer, auctions []auctionmethod.Auction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tSTARTS\tENDS\tLOCATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t------\t----\t--------")

	for _, a := range auctions {
		title := a.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}

		location := a.City
		if a.State != "" {
			if location != "" {
				location += ", "
			}
			location += a.State
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.IDString(),
			title,
			a.Status,
			a.Starts,
			a.Ends,
			location,
		)
	}
	_ = w.Flush()
}

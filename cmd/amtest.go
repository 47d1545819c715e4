package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lotsmith/internal/push"
)

var amtestCmd = &cobra.Command{
	Use:   "amtest",
	Short: "Check AuctionMethod connectivity",
	Long:  "Runs a stepwise connectivity check: credentials present, authentication, auction listing.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := buildAMClient(cfg)
		ok, steps := push.Verify(cmd.Context(), client)

		formatVerifySteps(os.Stdout, steps)
		if !ok {
			return eris.New("amtest: connectivity check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(amtestCmd)
}

// formatVerifySteps writes one line per check step to w.
func formatVerifySteps(w io.Writer, steps []push.Step) {
	for _, s := range steps {
		mark := "ok"
		if !s.OK {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", mark, s.Name, s.Message)
	}
}

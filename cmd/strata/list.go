package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		docs, err := s.List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if flagJSON {
			type item struct {
				Name    string    `json:"name"`
				Latest  int       `json:"latest"`
				Updated time.Time `json:"updated"`
			}
			items := make([]item, 0, len(docs))
			for _, d := range docs {
				items = append(items, item{d.Name, d.Latest, d.Updated})
			}
			return printJSON(w, items)
		}
		if len(docs) == 0 {
			fmt.Fprintln(w, "no documents")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tREV\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", d.Name, d.Latest, d.Updated.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

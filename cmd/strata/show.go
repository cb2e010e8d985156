package main

import (
	"github.com/spf13/cobra"
)

var flagRev int

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Load a stored document and print its groups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		doc, err := s.Load(cmd.Context(), args[0], flagRev, documentOptions(newKernel())...)
		if err != nil {
			return err
		}
		rev := flagRev
		if rev == 0 {
			revs, err := s.Revisions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rev = revs[len(revs)-1].Rev
		}
		return printDocument(cmd.OutOrStdout(), newDocumentView(args[0], rev, doc))
	},
}

func init() {
	showCmd.Flags().IntVar(&flagRev, "rev", 0, "revision to load (default: latest)")
}

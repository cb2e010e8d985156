package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/kernel"
	"github.com/chazu/strata/pkg/tessellate"
)

var (
	flagOut  string
	flagBody string
)

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Write the solid of a stored document to an STL file",
	Long: `Write the final solid of a stored document to an STL file. Every body
is merged into one solid unless --body picks a single one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagOut == "" {
			return fmt.Errorf("%w: --out is required", errUsage)
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		k := newKernel()
		doc, err := s.Load(cmd.Context(), args[0], flagRev, documentOptions(k)...)
		if err != nil {
			return err
		}

		var solid kernel.Solid
		var names []string
		for _, bs := range tessellate.Solids(doc) {
			if flagBody != "" && bs.Name != flagBody {
				continue
			}
			names = append(names, bs.Name)
			if solid == nil {
				solid = bs.Solid
			} else {
				solid = k.Union(solid, bs.Solid)
			}
		}
		if solid == nil {
			if flagBody != "" {
				return fmt.Errorf("%w: %s has no solid body %q", errUsage, args[0], flagBody)
			}
			return fmt.Errorf("%w: %s has no solid to export", errUsage, args[0])
		}

		if err := k.WriteSTL(solid, flagOut); err != nil {
			return fmt.Errorf("write %s: %w", flagOut, err)
		}
		logger.Info("exported", "document", args[0], "bodies", names, "path", flagOut)
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"path": flagOut, "bodies": names})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bodies)\n", flagOut, len(names))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "STL file to write")
	exportCmd.Flags().StringVar(&flagBody, "body", "", "export only this body")
	exportCmd.Flags().IntVar(&flagRev, "rev", 0, "revision to export (default: latest)")
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/engine"
)

var flagSaveAs string

var evalCmd = &cobra.Command{
	Use:   "eval <script>",
	Short: "Evaluate a script and print the resulting groups",
	Long: `Evaluate a Lisp part script, solve every sketch and build the solid
models. Use "-" to read the script from stdin. With --save the evaluated
document is stored as a new revision under the given name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readScript(cmd, args[0])
		if err != nil {
			return err
		}

		eng := engine.NewEngine(
			engine.WithTimeout(cfg.Eval.Timeout),
			engine.WithDocumentOptions(documentOptions(newKernel())...),
			engine.WithLogger(logger),
		)
		res, err := eng.Run(source)
		if err != nil {
			return err
		}
		if len(res.Errors) > 0 {
			if flagJSON {
				if err := printJSON(cmd.OutOrStdout(), documentView{Errors: res.Errors}); err != nil {
					return err
				}
			} else {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e)
				}
			}
			return fmt.Errorf("%s: %w", args[0], errEvalFailed)
		}

		var rev int
		if flagSaveAs != "" {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if rev, err = s.Save(cmd.Context(), flagSaveAs, res.Document); err != nil {
				return err
			}
		}
		return printDocument(cmd.OutOrStdout(), newDocumentView(flagSaveAs, rev, res.Document))
	},
}

func init() {
	evalCmd.Flags().StringVar(&flagSaveAs, "save", "", "store the evaluated document under this name")
}

func readScript(cmd *cobra.Command, path string) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

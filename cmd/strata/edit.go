package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/document"
)

var (
	flagAfter        string
	flagDeleteGroup  string
	flagDeleteEntity string
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <name> <group>",
	Short: "Move a group and store the result as a new revision",
	Long: `Move a group directly after the group named by --after, or to the
front when --after is omitted. Moves that would put a group before one it
depends on are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDocument(cmd, args[0], func(doc *document.Document) error {
			g, err := groupNamed(doc, args[1])
			if err != nil {
				return err
			}
			after := document.None
			if flagAfter != "" {
				a, err := groupNamed(doc, flagAfter)
				if err != nil {
					return err
				}
				after = a.ID
			}
			if err := doc.ReorderGroup(g.ID, after); err != nil {
				return err
			}
			// Everything downstream of the new front may have changed.
			doc.MarkGeneratePending(doc.GroupsSorted()[0].ID)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a group or entity and everything that depends on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (flagDeleteGroup == "") == (flagDeleteEntity == "") {
			return fmt.Errorf("%w: exactly one of --group or --entity is required", errUsage)
		}
		return editDocument(cmd, args[0], func(doc *document.Document) error {
			items := document.NewItemsToDelete()
			if flagDeleteGroup != "" {
				g, err := groupNamed(doc, flagDeleteGroup)
				if err != nil {
					return err
				}
				items.Groups.Add(g.ID)
			} else {
				en, err := entityNamed(doc, flagDeleteEntity)
				if err != nil {
					return err
				}
				items.Entities.Add(en.ID)
			}
			removed := doc.Delete(items)
			logger.Info("deleted items",
				"groups", len(removed.Groups),
				"entities", len(removed.Entities),
				"constraints", len(removed.Constraints))
			return nil
		})
	},
}

func init() {
	reorderCmd.Flags().StringVar(&flagAfter, "after", "", "place the group after this one (default: front)")
	deleteCmd.Flags().StringVar(&flagDeleteGroup, "group", "", "name of the group to delete")
	deleteCmd.Flags().StringVar(&flagDeleteEntity, "entity", "", "name of the entity to delete")
}

// editDocument loads the latest revision of name, applies edit, re-evaluates
// and saves the result as a new revision.
func editDocument(cmd *cobra.Command, name string, edit func(*document.Document) error) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.Load(cmd.Context(), name, 0, documentOptions(newKernel())...)
	if err != nil {
		return err
	}
	if err := edit(doc); err != nil {
		return err
	}
	doc.UpdatePending(document.None, nil)

	rev, err := s.Save(cmd.Context(), name, doc)
	if err != nil {
		return err
	}
	return printDocument(cmd.OutOrStdout(), newDocumentView(name, rev, doc))
}

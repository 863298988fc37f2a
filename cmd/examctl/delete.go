package main

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		name := args[0]

		ok, err := confirmOrRequireYes(yes, fmt.Sprintf("Delete exam %q", name))
		if err != nil || !ok {
			return err
		}

		err = current.repo.Delete(cmd.Context(), name)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("exam %q not found", name)
		}
		if err != nil {
			return err
		}
		current.invalidate(cmd.Context(), name)

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
		current.log.Info().Str("exam", name).Msg("Exam deleted")
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "Delete without asking")
}

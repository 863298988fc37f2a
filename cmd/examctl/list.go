package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stemsi/exambot/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored exams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := current.repo.ListRecords(cmd.Context())
		if err != nil {
			return err
		}
		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

func printRecords(out io.Writer, records []model.ExamRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHSK\tQUESTIONS\tDECK\tMAX WRONG\tTIME LIMIT\tUPDATED")
	for _, r := range records {
		d := r.Document
		maxWrong := "∞"
		if d.MaxWrong != nil {
			maxWrong = strconv.Itoa(*d.MaxWrong)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%ds\t%s\n",
			d.Name, d.HSKLevel, d.NumQuestions, len(d.Deck), maxWrong, d.Timelimit,
			r.UpdatedAt.Format(time.DateTime))
	}
	w.Flush()
}

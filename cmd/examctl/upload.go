package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/stemsi/exambot/internal/model"
	"github.com/stemsi/exambot/internal/service"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Validate and store exam decks from JSON or YAML files",
	Long:  "Validate and store exam decks from JSON or YAML files. Each exam is stored under its file name, so hsk1.yaml becomes \"hsk1\".",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		ctx := cmd.Context()

		for _, path := range args {
			doc, err := readExamFile(path)
			if err != nil {
				return err
			}

			_, err = current.repo.GetByName(ctx, doc.Name)
			switch {
			case err == nil:
				ok, err := confirmOrRequireYes(yes, fmt.Sprintf("Exam %q exists, overwrite", doc.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s\n", doc.Name)
					continue
				}
			case !errors.Is(err, pgx.ErrNoRows):
				return fmt.Errorf("look up %s: %w", doc.Name, err)
			}

			replaced, err := current.repo.Upsert(ctx, doc)
			if err != nil {
				return fmt.Errorf("store %s: %w", doc.Name, err)
			}
			current.invalidate(ctx, doc.Name)

			verb := "Created"
			if replaced {
				verb = "Replaced"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d cards, %d questions)\n",
				verb, doc.Name, len(doc.Deck), doc.NumQuestions)
			current.log.Info().Str("exam", doc.Name).Bool("replaced", replaced).Msg("Exam uploaded")
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().BoolP("yes", "y", false, "Overwrite existing exams without asking")
}

// readExamFile decodes and validates one deck file.
func readExamFile(path string) (*model.ExamDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := service.DecodeExamDocument(path, data)
	if err != nil {
		return nil, err
	}
	if _, err := doc.ToExam(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

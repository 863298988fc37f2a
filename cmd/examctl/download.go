package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stemsi/exambot/internal/model"
)

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Write a stored exam deck as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		doc, err := current.repo.GetByName(cmd.Context(), args[0])
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("exam %q not found", args[0])
		}
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return encodeExamDocument(out, doc, format)
	},
}

func init() {
	downloadCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	downloadCmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")
}

func encodeExamDocument(w io.Writer, doc *model.ExamDocument, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Command examctl manages the exam decks stored in PostgreSQL.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"inspectbot/internal/models"
)

var errCrawlFailed = errors.New("crawl stored no records")

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one acquisition pass and print its summary",
	RunE:  runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.pipeline.Run(ctx)
	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return err
	}
	if summary.Status == models.CrawlStatusFailed {
		return errCrawlFailed
	}
	return nil
}

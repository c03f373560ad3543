package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bitlatte/spacetraveling/internal/document"
	"github.com/Bitlatte/spacetraveling/internal/model"
	"github.com/Bitlatte/spacetraveling/internal/postgres"
	"github.com/Bitlatte/spacetraveling/internal/prismic"
)

const mirrorPageSize = 100

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copies every document from the content repository into Postgres",
	Long: `The mirror command pages through all documents of the configured type
in the Prismic repository and upserts them into the Postgres documents
table, creating it if needed. Point source.driver at postgres afterwards
to build or serve from the mirror.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := appConfig
		if cfg.Prismic.Endpoint == "" {
			return fmt.Errorf("prismic.endpoint is required to mirror")
		}
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required to mirror")
		}

		src, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres source: %w", err)
		}
		defer src.Close()
		if err := src.Migrate(ctx); err != nil {
			return err
		}

		client := prismic.NewClient(cfg.Prismic.Endpoint, cfg.Prismic.AccessToken)
		copied, skipped, err := mirrorDocuments(ctx, client, src, cfg.DocumentType, mirrorPageSize)
		if err != nil {
			return err
		}

		fmt.Printf("Mirrored %d %s documents (%d skipped).\n", copied, cfg.DocumentType, skipped)
		return nil
	},
}

// documentPager lists raw documents page by page; next is 0 on the last page.
type documentPager interface {
	Documents(ctx context.Context, docType string, pageSize, page int) (raws []document.Raw, next int, err error)
}

type documentSink interface {
	Upsert(ctx context.Context, raw document.Raw) error
}

// mirrorDocuments copies every document of docType from src to dst.
// Documents dst rejects as malformed are skipped and counted.
func mirrorDocuments(ctx context.Context, src documentPager, dst documentSink, docType string, pageSize int) (copied, skipped int, err error) {
	for page := 1; page > 0; {
		raws, next, err := src.Documents(ctx, docType, pageSize, page)
		if err != nil {
			return copied, skipped, err
		}
		for _, raw := range raws {
			err := dst.Upsert(ctx, raw)
			if errors.Is(err, model.ErrMalformedContent) {
				fmt.Printf("Warning: skipping document '%s': %v\n", raw.ID, err)
				skipped++
				continue
			}
			if err != nil {
				return copied, skipped, err
			}
			copied++
		}
		if next <= page {
			break
		}
		page = next
	}
	return copied, skipped, nil
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
}

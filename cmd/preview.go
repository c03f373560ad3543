package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bitlatte/spacetraveling/internal/page"
	"github.com/Bitlatte/spacetraveling/internal/termview"
)

var previewWidth int

var previewCmd = &cobra.Command{
	Use:   "preview <slug>",
	Short: "Prints a post in the terminal",
	Long: `The preview command fetches one post, assembles it exactly like the
post page (date, author and reading time included) and prints it to the
terminal. Useful to check a post before publishing the site.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, release, err := openDocumentClient(ctx, appConfig)
		if err != nil {
			return err
		}
		defer release()

		res, err := newController(client, appConfig).Generate(ctx, args[0])
		if err != nil {
			return err
		}
		if res.State == page.NotFound {
			return fmt.Errorf("post %q not found", args[0])
		}
		if res.Warnings != nil {
			logInfo.Printf("Post %s has malformed content: %v", args[0], res.Warnings)
		}
		fmt.Fprintln(cmd.OutOrStdout(), termview.Render(res.Page, previewWidth))
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewWidth, "width", "w", 80, "Wrap width in columns")
	rootCmd.AddCommand(previewCmd)
}

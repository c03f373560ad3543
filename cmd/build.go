package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bitlatte/spacetraveling/internal/config"
	"github.com/Bitlatte/spacetraveling/internal/model"
	"github.com/Bitlatte/spacetraveling/internal/page"
	"github.com/Bitlatte/spacetraveling/internal/pages"
	"github.com/Bitlatte/spacetraveling/internal/site"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generates the site ahead of time",
	Long: `The build command fetches every listing page and the most recent
posts from the content repository, renders them with the layouts from
'./layouts/' (or the built-in ones), renders local Markdown pages from
'./content/', copies './static/' and writes everything to the configured
output directory (default './public/'). Posts left out are generated on
first request by 'serve'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuildProcess(cmd.Context(), appConfig, siteData)
	},
}

func runBuildProcess(ctx context.Context, cfg config.Config, data *model.SiteData) error {
	started := time.Now()
	fmt.Println("Starting spacetraveling build...")
	fmt.Printf("Using OutputDir: '%s', BaseURL: '%s', SiteTitle: '%s'\n", cfg.OutputDir, cfg.BaseURL, cfg.SiteTitle)

	client, release, err := openDocumentClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()
	ctrl := newController(client, cfg)

	renderer, err := site.NewRenderer(cfg.LayoutsDir, data, cfg.Locale)
	if err != nil {
		return fmt.Errorf("failed to load layouts: %w", err)
	}
	items, err := pages.NewLoader().Load(cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}
	renderer.SetPages(items)

	fmt.Printf("Cleaning output directory: %s\n", cfg.OutputDir)
	if err := os.RemoveAll(cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to clean output directory '%s': %w", cfg.OutputDir, err)
	}
	if err := os.MkdirAll(cfg.OutputDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", cfg.OutputDir, err)
	}

	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		fmt.Printf("Copying static assets from '%s'\n", cfg.StaticDir)
		if err := site.CopyDir(cfg.StaticDir, cfg.OutputDir); err != nil {
			return fmt.Errorf("failed to copy static assets: %w", err)
		}
	}

	listed := 0
	for n := 1; n > 0; {
		listing, err := ctrl.Listing(ctx, n)
		if err != nil {
			return err
		}
		out := filepath.Join(cfg.OutputDir, "index.html")
		if n > 1 {
			out = site.OutputPath(cfg.OutputDir, fmt.Sprintf("/page/%d/", n))
		}
		if err := site.WriteFile(out, func(w io.Writer) error {
			return renderer.Home(w, &listing)
		}); err != nil {
			return fmt.Errorf("failed to write listing page %d: %w", n, err)
		}
		listed += len(listing.Posts)
		if listing.NextPage <= n {
			break
		}
		n = listing.NextPage
	}
	fmt.Printf("Generated listing with %d posts\n", listed)

	slugs, err := ctrl.Paths(ctx)
	if err != nil {
		return err
	}
	generated := 0
	for _, slug := range slugs {
		res, err := ctrl.Generate(ctx, slug)
		if err != nil {
			return err
		}
		if res.State == page.NotFound {
			fmt.Printf("Warning: post '%s' disappeared while building. Skipping.\n", slug)
			continue
		}
		if res.Warnings != nil {
			fmt.Printf("Warning: post '%s' has malformed content: %v\n", slug, res.Warnings)
		}
		out := site.OutputPath(cfg.OutputDir, "/post/"+slug+"/")
		if err := site.WriteFile(out, func(w io.Writer) error {
			return renderer.Post(w, res.Page)
		}); err != nil {
			return fmt.Errorf("failed to write post '%s': %w", slug, err)
		}
		fmt.Printf("Generated: %s\n", out)
		generated++
	}

	for _, item := range items {
		out := site.OutputPath(cfg.OutputDir, item.Permalink)
		if err := site.WriteFile(out, func(w io.Writer) error {
			return renderer.Page(w, item)
		}); err != nil {
			fmt.Printf("Error writing page '%s': %v. Skipping.\n", item.SourcePath, err)
			continue
		}
		fmt.Printf("Generated: %s\n", out)
	}

	if err := site.WriteFile(filepath.Join(cfg.OutputDir, "404.html"), renderer.NotFound); err != nil {
		return fmt.Errorf("failed to write not-found page: %w", err)
	}

	fmt.Printf("Build finished in %s: %d posts, %d pages.\n", time.Since(started).Round(time.Millisecond), generated, len(items))
	return nil
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

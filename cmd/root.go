package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bitlatte/spacetraveling/internal/config"
	"github.com/Bitlatte/spacetraveling/internal/model"
)

var cfgFile string
var appConfig config.Config
var siteData = &model.SiteData{}

var (
	logInfo  = log.New(os.Stdout, "INFO: ", log.Ltime)
	logError = log.New(os.Stderr, "ERROR: ", log.Ltime)
)

var rootCmd = &cobra.Command{
	Use:   "spacetraveling",
	Short: "spacetraveling - a blog generated from a headless CMS",
	Long: `spacetraveling fetches posts from a headless content repository and
renders them as HTML: a listing page plus one page per post, with an
estimated reading time. Build it ahead of time or serve it on demand.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute runs the root command with site as the shared site data.
func Execute(site *model.SiteData) {
	if site != nil {
		siteData = site
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

func initializeConfig(_ *cobra.Command) error {
	cfg, used, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if used != "" {
		fmt.Println("Using config file:", used)
	} else {
		fmt.Println("No config file found in current directory. Using default values and/or environment variables.")
	}

	appConfig = cfg
	siteData.Title = cfg.SiteTitle
	siteData.BaseURL = cfg.BaseURL
	return nil
}

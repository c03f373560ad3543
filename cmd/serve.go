package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Bitlatte/spacetraveling/internal/cache"
	"github.com/Bitlatte/spacetraveling/internal/pages"
	"github.com/Bitlatte/spacetraveling/internal/server"
	"github.com/Bitlatte/spacetraveling/internal/site"
)

var serverPort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site, regenerating pages on demand",
	Long: `The serve command renders pages on request and keeps them for the
revalidation window (default 30m) before generating them again. A post
that has not been generated yet is generated on its first request. The
layouts and content directories are watched; changes reload them and
purge the page cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := appConfig
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		client, release, err := openDocumentClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer release()

		store, closeStore, err := openPageStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		renderer, err := site.NewRenderer(cfg.LayoutsDir, siteData, cfg.Locale)
		if err != nil {
			return fmt.Errorf("failed to load layouts: %w", err)
		}
		loader := pages.NewLoader()
		items, err := loader.Load(cfg.ContentDir)
		if err != nil {
			return fmt.Errorf("failed to load pages: %w", err)
		}

		revalidator := cache.NewRevalidator(store, cfg.Revalidate, cache.WithErrorLog(logError))
		srv := server.New(server.Config{
			Pages:     newController(client, cfg),
			Renderer:  renderer,
			Cache:     revalidator,
			StaticDir: cfg.StaticDir,
			Window:    cfg.Revalidate,
			LogInfo:   logInfo,
			LogError:  logError,
		})
		srv.SetPages(items)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer watcher.Close()

		reload := func() {
			logInfo.Println("Reloading layouts and pages...")
			if err := renderer.Reload(); err != nil {
				logError.Printf("Error reloading layouts: %v", err)
				return
			}
			items, err := loader.Load(cfg.ContentDir)
			if err != nil {
				logError.Printf("Error reloading pages: %v", err)
				return
			}
			srv.SetPages(items)
			if err := revalidator.Purge(context.Background()); err != nil {
				logError.Printf("Error purging page cache: %v", err)
				return
			}
			logInfo.Println("Reloaded.")
		}
		go watch(watcher, 500*time.Millisecond, reload)

		for _, root := range []string{cfg.LayoutsDir, cfg.ContentDir} {
			addWatches(watcher, root)
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()

		logInfo.Printf("Serving site on http://localhost%s (revalidating every %s)", httpServer.Addr, cfg.Revalidate)
		logInfo.Println("Press Ctrl+C to stop the server.")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	},
}

// watch calls onChange once events on watcher have been quiet for debounce.
func watch(watcher *fsnotify.Watcher, debounce time.Duration, onChange func()) {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				continue
			}
			logInfo.Printf("Change detected: %s (%s)", event.Name, event.Op.String())

			// New subdirectories are not watched automatically.
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := watcher.Add(event.Name); err != nil {
					logError.Printf("Error adding new directory %s to watcher: %v", event.Name, err)
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logError.Printf("Watcher error: %v", err)
		}
	}
}

func addWatches(watcher *fsnotify.Watcher, root string) {
	if root == "" || !isDir(root) {
		logInfo.Printf("Directory '%s' not found, not watching.", root)
		return
	}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logError.Printf("Error walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if watchErr := watcher.Add(path); watchErr != nil {
				logError.Printf("Failed to watch %s: %v", path, watchErr)
			}
		}
		return nil
	})
	if err != nil {
		logError.Printf("Error walking %s for watching: %v", root, err)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 3000, "Port to serve the site on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkpic.dev/gtfs/downloader"
	"pkpic.dev/gtfs/storage"
)

var rootCmd = &cobra.Command{
	Use:          "pkpic",
	Short:        "PKP Intercity GTFS tool",
	Long:         "Derives in-seat transfer blocks for the PKP Intercity GTFS feed",
	SilenceUsage: true,
}

var (
	dbPath      string
	postgresURL string
	archive     string
	cacheFile   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "", "", "path to the SQLite feed database")
	rootCmd.PersistentFlags().StringVarP(&postgresURL, "postgres", "", "", "Postgres connection string (overrides --db)")
	rootCmd.PersistentFlags().StringVarP(&archive, "connections", "", "kpd_rozklad.zip", "timetable package path or URL")
	rootCmd.PersistentFlags().StringVarP(&cacheFile, "cache", "", "", "download cache file")
}

func openStorage() (storage.Storage, error) {
	if postgresURL != "" {
		return storage.NewPSQLStorage(postgresURL, false)
	}
	return storage.NewSQLiteStorage(dbPath)
}

// resolveArchive makes sure the timetable package is available as a
// local file, downloading it first if a URL was given.
func resolveArchive(ctx context.Context) (string, error) {
	if !strings.HasPrefix(archive, "http://") && !strings.HasPrefix(archive, "https://") {
		return archive, nil
	}

	var dl downloader.Downloader
	if cacheFile != "" {
		fs, err := downloader.NewFilesystem(cacheFile)
		if err != nil {
			return "", fmt.Errorf("opening cache: %w", err)
		}
		dl = fs
	} else {
		dl = downloader.NewMemory()
	}

	body, err := dl.Get(ctx, archive, downloader.GetOptions{
		Timeout:  120 * time.Second,
		Cache:    cacheFile != "",
		CacheTTL: 12 * time.Hour,
	})
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", archive, err)
	}

	path := filepath.Join(os.TempDir(), "kpd_rozklad.zip")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

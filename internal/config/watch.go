package config

import (
	"context"
	"os"
	"time"

	"vanrent/internal/models"

	"github.com/rs/zerolog"
)

// WatchCatalog loads the catalog, hands it to onUpdate and then polls the
// file's modification time, reloading on change. A file that fails to load
// is logged and the previous catalog stays in effect.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*Catalog)) error {
	if interval <= 0 {
		interval = models.CatalogReloadInterval * time.Second
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cat)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				lastMod = info.ModTime()

				cat, err := LoadCatalog(path)
				if err != nil {
					if logger != nil {
						logger.Error().Err(err).Str("path", path).Msg("catalog reload failed")
					}
					continue
				}
				if logger != nil {
					logger.Info().Str("path", path).
						Int("offices", len(cat.Offices)).
						Int("categories", len(cat.Categories)).
						Msg("catalog reloaded")
				}
				if onUpdate != nil {
					onUpdate(cat)
				}
			}
		}
	}()

	return nil
}

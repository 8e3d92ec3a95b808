package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"motodirectory/libs/directory"
)

// loadOnce runs the single directory load of this process and publishes the outcome.
func (a *App) loadOnce(ctx context.Context) error {
	start := time.Now()
	ds, err := a.loadDirectory(ctx)
	elapsed := time.Since(start)

	if err != nil {
		err = fmt.Errorf("%w: %w", directory.ErrLoadFailure, err)
		a.state.fail(err)
		a.metrics.recordLoad(statusFailed, elapsed, nil)
		a.log.Error("directory load failed",
			"source", a.cfg.DataSource,
			"path", a.cfg.DataPath,
			"duration_ms", elapsed.Milliseconds(),
			"err", err,
		)
		a.sendLoadFailureAlert(ctx, err, time.Now())
		return err
	}

	if !a.state.publish(ds, a.locale, time.Now()) {
		a.log.Warn("directory already loaded, ignoring second load")
		return nil
	}
	a.metrics.recordLoad(statusReady, elapsed, ds)
	a.log.Info("directory loaded",
		"source", a.cfg.DataSource,
		"shops", len(ds.Shops),
		"countries", len(ds.Countries),
		"cities", ds.Countries.TotalCities(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (a *App) fetchDirectory(ctx context.Context) (*directory.Dataset, error) {
	if a.cfg.DataSource == sourcePostgres {
		return a.storeLoadDirectory(ctx)
	}
	return readDirectorySource(ctx, a.client, a.cfg.DataPath)
}

// readDirectorySource decodes the directory document from a file path or an http(s) URL.
func readDirectorySource(ctx context.Context, client *http.Client, location string) (*directory.Dataset, error) {
	if isRemoteLocation(location) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", location, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("fetch %s: status %d: %s", location, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return directory.Decode(resp.Body)
	}

	file, err := os.Open(location)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return directory.Decode(file)
}

func isRemoteLocation(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

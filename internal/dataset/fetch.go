package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gaitlab/internal/storage"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Tracker defines the metrics methods needed by the dataset package.
type Tracker interface {
	DownloadInc()
	DownloadFailureInc()
	CacheHitInc()
	RowsLoadedAdd(int)
	RowRejectedInc()
	TrialsJoinedAdd(int)
}

// Fetcher downloads dataset files over HTTP when they are absent locally,
// keeping raw payloads in the BoltDB download cache so re-runs never hit
// the network.
type Fetcher struct {
	client  *resty.Client
	baseURL string
	dir     string
	store   *storage.Store
	tracker Tracker
}

// NewFetcher creates a fetcher rooted at dir. store may be nil to disable
// the download cache.
func NewFetcher(baseURL, dir string, timeout time.Duration, store *storage.Store, tracker Tracker) *Fetcher {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	return &Fetcher{client: r, baseURL: baseURL, dir: dir, store: store, tracker: tracker}
}

// Ensure makes each named file present under the data directory: existing
// files are left untouched, cached payloads are materialized from BoltDB,
// and anything else is fetched from the configured base URL.
func (f *Fetcher) Ensure(ctx context.Context, names ...string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	for _, name := range names {
		path := filepath.Join(f.dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		url := f.baseURL + "/" + name

		if f.store != nil {
			body, ok, err := f.store.GetDownload(url)
			if err != nil {
				return fmt.Errorf("download cache lookup for %s: %w", name, err)
			}
			if ok {
				if err := os.WriteFile(path, body, 0o644); err != nil {
					return fmt.Errorf("failed to write %s from cache: %w", name, err)
				}
				if f.tracker != nil {
					f.tracker.CacheHitInc()
				}
				log.Info().Str("file", name).Msg("Dataset file restored from cache")
				continue
			}
		}

		if f.baseURL == "" {
			return fmt.Errorf("dataset file %s is missing and no base URL is configured", name)
		}

		body, err := f.download(ctx, url)
		if err != nil {
			if f.tracker != nil {
				f.tracker.DownloadFailureInc()
			}
			return fmt.Errorf("failed to download %s: %w", name, err)
		}

		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if f.store != nil {
			if err := f.store.PutDownload(url, body); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("Failed to cache download, continuing")
			}
		}
		if f.tracker != nil {
			f.tracker.DownloadInc()
		}
		log.Info().Str("file", name).Int("bytes", len(body)).Msg("Dataset file downloaded")
	}

	return nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

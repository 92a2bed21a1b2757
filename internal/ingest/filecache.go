package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edusync/moodle-sync/internal/platform/logger"
)

// FileCacheEntry maps one file reference to its content digest and the
// local path holding its bytes for the rest of the run.
type FileCacheEntry struct {
	Hash string
	Path string
}

// Transport fetches remote file bytes. A non-success response is an
// error, not a body.
type Transport interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

type httpTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) Transport {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &httpTransport{client: &http.Client{Timeout: timeout}}
}

func (t *httpTransport) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// CacheFiles resolves every distinct reference to a content digest.
// References with a provided local path are stream-hashed in place;
// the rest are downloaded into dir, hashed as the bytes arrive. Work
// fans out across references with at most workers in flight; any
// single failure fails the whole cache build. The caller owns dir and
// its cleanup.
func CacheFiles(
	ctx context.Context,
	log *logger.Logger,
	transport Transport,
	dir string,
	providedPaths map[string]string,
	refs []string,
	workers int,
) (map[string]FileCacheEntry, error) {
	if workers <= 0 {
		workers = 4
	}

	cache := make(map[string]FileCacheEntry, len(refs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	seen := map[string]bool{}
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		ref := ref
		g.Go(func() error {
			var entry FileCacheEntry
			var err error
			if path, ok := providedPaths[ref]; ok {
				entry, err = hashLocal(path)
			} else {
				entry, err = download(gctx, transport, dir, ref)
			}
			if err != nil {
				return stageErr(StageFetch, ref, err)
			}
			mu.Lock()
			cache[ref] = entry
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug("file cache built", "references", len(cache))
	return cache, nil
}

func hashLocal(path string) (FileCacheEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileCacheEntry{}, err
	}
	defer f.Close()

	h := xxhash.New()
	// io.Copy streams in chunks; lecture recordings never sit in
	// memory whole.
	if _, err := io.Copy(h, f); err != nil {
		return FileCacheEntry{}, err
	}
	return FileCacheEntry{Hash: digest(h), Path: path}, nil
}

func download(ctx context.Context, transport Transport, dir, url string) (FileCacheEntry, error) {
	body, err := transport.Get(ctx, url)
	if err != nil {
		return FileCacheEntry{}, err
	}
	defer body.Close()

	f, err := os.Create(filepath.Join(dir, uuid.NewString()))
	if err != nil {
		return FileCacheEntry{}, err
	}
	defer f.Close()

	h := xxhash.New()
	// single pass: persist and hash the stream together
	if _, err := io.Copy(io.MultiWriter(f, h), body); err != nil {
		return FileCacheEntry{}, err
	}
	return FileCacheEntry{Hash: digest(h), Path: f.Name()}, nil
}

func digest(h *xxhash.Digest) string {
	return fmt.Sprintf("%016x", h.Sum64())
}

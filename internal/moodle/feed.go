package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edusync/moodle-sync/internal/platform/logger"
)

// FeedClient pulls the public course/file metadata document from moodle.
type FeedClient interface {
	Fetch(ctx context.Context) (*Batch, error)
}

type feedClient struct {
	log        *logger.Logger
	url        string
	httpClient *http.Client
}

func NewFeedClient(log *logger.Logger, url string, timeout time.Duration) (FeedClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("missing MOODLE_FETCH_URL")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &feedClient{
		log:        log.With("client", "MoodleFeedClient"),
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *feedClient) Fetch(ctx context.Context) (*Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch moodle feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch moodle feed: unexpected status %d", resp.StatusCode)
	}

	var batch Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode moodle feed: %w", err)
	}

	c.log.Debug("fetched moodle feed", "courses", len(batch.MoodleCourses), "files", len(batch.Files()))
	return &batch, nil
}

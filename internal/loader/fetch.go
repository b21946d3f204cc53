package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// fetch downloads location into memory.
func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if l.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", l.cfg.UserAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %s", ErrFetch, resp.Status)
	}
	if l.cfg.MaxBytes > 0 && resp.ContentLength > l.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrFetch, ErrTooLarge, resp.ContentLength)
	}

	body := io.Reader(resp.Body)
	if l.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, l.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	if l.cfg.MaxBytes > 0 && int64(len(data)) > l.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %w", ErrFetch, ErrTooLarge)
	}
	return data, nil
}

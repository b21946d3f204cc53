package loader

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// remoteResources resolves external buffers of a URL source against the
// document's own address and downloads them through the loader.
type remoteResources struct {
	ctx   context.Context
	l     *Loader
	base  *url.URL
	total int64 // bytes fetched so far, document included
	err   error // first fetch failure
}

func newRemoteResources(ctx context.Context, l *Loader, location string, docSize int64) (*remoteResources, error) {
	base, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return &remoteResources{ctx: ctx, l: l, base: base, total: docSize}, nil
}

// ReadFullResource implements gltf.ReadHandler.
func (r *remoteResources) ReadFullResource(uri string, data []byte) error {
	if strings.HasPrefix(uri, "data:") {
		return readDataURI(uri, data)
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return r.fail(fmt.Errorf("%w: buffer uri %q: %v", ErrFetch, uri, err))
	}
	u := r.base.ResolveReference(ref)

	body, err := r.l.fetch(r.ctx, u.String())
	if err != nil {
		return r.fail(err)
	}
	r.total += int64(len(body))
	if limit := r.l.cfg.MaxBytes; limit > 0 && r.total > limit {
		return r.fail(fmt.Errorf("%w: %w: %d bytes with buffers", ErrFetch, ErrTooLarge, r.total))
	}
	if len(body) < len(data) {
		return fmt.Errorf("buffer %s: got %d bytes, want %d", u, len(body), len(data))
	}
	copy(data, body)
	return nil
}

func (r *remoteResources) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return err
}

// blobResources serves only data URIs. A dropped file carries no location to
// resolve sibling files against.
type blobResources struct{}

// ReadFullResource implements gltf.ReadHandler.
func (blobResources) ReadFullResource(uri string, data []byte) error {
	if strings.HasPrefix(uri, "data:") {
		return readDataURI(uri, data)
	}
	return fmt.Errorf("external resource %q cannot be resolved for an in-memory source", uri)
}

// readDataURI decodes a base64 data URI into data.
func readDataURI(uri string, data []byte) error {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return fmt.Errorf("unsupported data uri %.40q", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("data uri: %v", err)
	}
	if len(raw) < len(data) {
		return fmt.Errorf("data uri: got %d bytes, want %d", len(raw), len(data))
	}
	copy(data, raw)
	return nil
}

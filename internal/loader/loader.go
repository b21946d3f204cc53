package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/asset-viewer/internal/scene"
)

// Config holds loader settings.
type Config struct {
	Timeout   time.Duration // per-request HTTP timeout
	MaxBytes  int64         // size limit for URL and blob sources, 0 for none
	UserAgent string
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		MaxBytes:  256 << 20,
		UserAgent: "asset-viewer",
	}
}

// Info describes a loaded model for display.
type Info struct {
	ID       string
	Name     string
	Format   Format
	Size     int64
	Animated bool
	Location string
	Stats    scene.Stats
}

// Model is the result of a successful load. The caller owns the graph.
type Model struct {
	Source Source
	Graph  *scene.Graph
	Clips  []Clip
	Info   Info
}

// ClipNames returns the model's clip names in order.
func (m *Model) ClipNames() []string {
	return ClipNames(m.Clips)
}

// Loader decodes glTF sources. It holds no per-load state and is safe for
// concurrent use.
type Loader struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// New creates a loader. A nil logger disables logging.
func New(cfg Config, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Load reads, decodes and converts src. Every failure is returned as *Error
// wrapping one of ErrUnsupportedFormat, ErrFetch or ErrDecode.
func (l *Loader) Load(ctx context.Context, src Source) (*Model, error) {
	format, err := CheckFormat(src)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, size, err := l.document(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Op: "decode", Source: src, Err: err}
	}

	graph, clips, err := convert(doc)
	if err != nil {
		return nil, &Error{Op: "build", Source: src, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	m := &Model{
		Source: src,
		Graph:  graph,
		Clips:  clips,
		Info: Info{
			ID:       uuid.New().String(),
			Name:     src.Name,
			Format:   format,
			Size:     size,
			Animated: len(clips) > 0,
			Location: src.Location,
			Stats:    graph.Stats(),
		},
	}
	l.log.Debug("model loaded",
		zap.String("source", src.String()),
		zap.Int("clips", len(clips)),
		zap.Int("vertices", m.Info.Stats.Vertices),
		zap.Duration("took", time.Since(start)))
	return m, nil
}

// document produces the decoded glTF document and the source size in bytes.
func (l *Loader) document(ctx context.Context, src Source) (*gltf.Document, int64, error) {
	switch src.Kind {
	case KindFile:
		st, err := os.Stat(src.Location)
		if err != nil {
			return nil, 0, &Error{Op: "read", Source: src, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
		}
		// Open resolves external buffers relative to the file.
		doc, err := safeDecode(func() (*gltf.Document, error) { return gltf.Open(src.Location) })
		if err != nil {
			return nil, 0, &Error{Op: "decode", Source: src, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
		}
		return doc, st.Size(), nil

	case KindURL:
		data, err := l.fetch(ctx, src.Location)
		if err != nil {
			return nil, 0, &Error{Op: "fetch", Source: src, Err: err}
		}
		res, err := newRemoteResources(ctx, l, src.Location, int64(len(data)))
		if err != nil {
			return nil, 0, &Error{Op: "fetch", Source: src, Err: err}
		}
		doc, err := decodeBytes(data, res)
		if res.err != nil {
			return nil, 0, &Error{Op: "fetch", Source: src, Err: res.err}
		}
		if err != nil {
			return nil, 0, &Error{Op: "decode", Source: src, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
		}
		return doc, res.total, nil

	case KindBlob:
		if l.cfg.MaxBytes > 0 && int64(len(src.Data)) > l.cfg.MaxBytes {
			return nil, 0, &Error{Op: "read", Source: src, Err: fmt.Errorf("%w: %w", ErrDecode, ErrTooLarge)}
		}
		doc, err := decodeBytes(src.Data, blobResources{})
		if err != nil {
			return nil, 0, &Error{Op: "decode", Source: src, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
		}
		return doc, int64(len(src.Data)), nil
	}
	return nil, 0, &Error{Op: "read", Source: src, Err: fmt.Errorf("%w: unknown source kind %v", ErrUnsupportedFormat, src.Kind)}
}

// decodeBytes decodes an in-memory document. External buffers go through res.
func decodeBytes(data []byte, res gltf.ReadHandler) (*gltf.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	return safeDecode(func() (*gltf.Document, error) {
		doc := new(gltf.Document)
		if err := gltf.NewDecoder(bytes.NewReader(data)).WithReadHandler(res).Decode(doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// safeDecode keeps a decoder panic on malformed input inside the boundary.
func safeDecode(fn func() (*gltf.Document, error)) (doc *gltf.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return fn()
}

// Package loader turns a model source into a scene graph and its animation
// clips. Only glTF assets are accepted.
package loader

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Kind identifies where a source's bytes come from.
type Kind int

const (
	KindURL  Kind = iota // remote asset fetched over HTTP
	KindFile             // local file path
	KindBlob             // in-memory file contents
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindFile:
		return "file"
	case KindBlob:
		return "blob"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Format is an accepted asset encoding.
type Format string

const (
	FormatGLB  Format = ".glb"  // binary glTF
	FormatGLTF Format = ".gltf" // JSON glTF
)

// Source is an opaque reference to a model origin.
type Source struct {
	Kind     Kind
	Location string // URL or file path; empty for blobs
	Name     string // file name used for the format check
	Data     []byte // blob contents
}

// URL returns a source fetched from a remote address.
func URL(u string) Source {
	name := u
	if parsed, err := url.Parse(u); err == nil {
		name = path.Base(parsed.Path)
	}
	return Source{Kind: KindURL, Location: u, Name: name}
}

// File returns a source read from a local path.
func File(p string) Source {
	return Source{Kind: KindFile, Location: p, Name: filepath.Base(p)}
}

// Blob returns a source backed by bytes already in memory, such as a file
// dropped by the user. name carries the original file name.
func Blob(name string, data []byte) Source {
	return Source{Kind: KindBlob, Name: name, Data: data}
}

// String returns the location, or the name for blobs.
func (s Source) String() string {
	if s.Location != "" {
		return s.Location
	}
	return s.Name
}

// Equal reports whether two sources point at the same origin. Blobs compare
// by name and length only.
func (s Source) Equal(o Source) bool {
	return s.Kind == o.Kind && s.Location == o.Location && s.Name == o.Name && len(s.Data) == len(o.Data)
}

// CheckFormat returns the source's format. The suffix match is
// case-sensitive: "model.GLB" is rejected.
func CheckFormat(s Source) (Format, error) {
	switch {
	case strings.HasSuffix(s.Name, string(FormatGLB)):
		return FormatGLB, nil
	case strings.HasSuffix(s.Name, string(FormatGLTF)):
		return FormatGLTF, nil
	}
	return "", &Error{Op: "check", Source: s, Err: ErrUnsupportedFormat}
}

package loader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap/zaptest"
)

// writeGLB saves a one-triangle model spanning (-3,0,-1)..(5,4,1) with the
// given animation names and returns its path.
func writeGLB(t *testing.T, name string, anims ...string) string {
	t.Helper()

	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{-3, 0, -1}, {5, 4, 1}, {0, 2, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Materials = []*gltf.Material{{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 1},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{gltf.POSITION: uint32(pos)},
			Indices:    gltf.Index(uint32(idx)),
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{{
		Name:     "tri",
		Mesh:     gltf.Index(0),
		Matrix:   [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	for _, a := range anims {
		doc.Animations = append(doc.Animations, &gltf.Animation{Name: a})
	}

	path := filepath.Join(t.TempDir(), name)
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func newTestLoader(t *testing.T) *Loader {
	return New(DefaultConfig(), zaptest.NewLogger(t))
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name    string
		src     Source
		want    Format
		wantErr bool
	}{
		{"glb file", File("/models/fox.glb"), FormatGLB, false},
		{"gltf file", File("scene.gltf"), FormatGLTF, false},
		{"blob", Blob("drop.glb", nil), FormatGLB, false},
		{"url with query", URL("https://cdn.example.com/a/model.gltf?v=3#top"), FormatGLTF, false},
		{"obj", File("model.obj"), "", true},
		{"upper case suffix", File("MODEL.GLB"), "", true},
		{"no extension", Blob("model", nil), "", true},
		{"extension only in query", URL("https://example.com/get?file=model.glb"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckFormat(tt.src)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueNames(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"Walk", "Walk", "Idle"}, []string{"Walk", "Walk_2", "Idle"}},
		{[]string{"Walk", "Walk", "Walk"}, []string{"Walk", "Walk_2", "Walk_3"}},
		{[]string{"Walk", "Walk_2", "Walk"}, []string{"Walk", "Walk_2", "Walk_3"}},
		{[]string{"", "Run", ""}, []string{"animation_0", "Run", "animation_2"}},
		{[]string{}, []string{}},
	}
	for _, tt := range tests {
		got := UniqueNames(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("UniqueNames(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := writeGLB(t, "model.glb", "Walk", "Walk", "Idle")

	m, err := newTestLoader(t).Load(context.Background(), File(path))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got, want := m.ClipNames(), []string{"Walk", "Walk_2", "Idle"}; !reflect.DeepEqual(got, want) {
		t.Errorf("clip names = %q, want %q", got, want)
	}
	for i, c := range m.Clips {
		if c.Index != i {
			t.Errorf("clip %d index = %d", i, c.Index)
		}
	}

	b := m.Graph.ContentBounds()
	if !b.Min.ApproxEqual(mgl32.Vec3{-3, 0, -1}) || !b.Max.ApproxEqual(mgl32.Vec3{5, 4, 1}) {
		t.Errorf("bounds = %v", b)
	}

	if !m.Info.Animated {
		t.Error("expected Animated")
	}
	if m.Info.Format != FormatGLB {
		t.Errorf("format = %q", m.Info.Format)
	}
	if m.Info.ID == "" {
		t.Error("expected an ID")
	}
	if m.Info.Stats.Vertices != 3 || m.Info.Stats.Triangles != 1 {
		t.Errorf("stats = %+v", m.Info.Stats)
	}
	mats := m.Graph.Materials()
	if len(mats) != 1 || mats[0].Name != "red" || mats[0].BaseColor != [4]float32{1, 0, 0, 1} {
		t.Errorf("materials = %+v", mats)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	path := writeGLB(t, "model.glb", "A", "B")
	l := newTestLoader(t)

	first, err := l.Load(context.Background(), File(path))
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(context.Background(), File(path))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.ClipNames(), second.ClipNames()) {
		t.Errorf("clip names differ: %q vs %q", first.ClipNames(), second.ClipNames())
	}
	if first.Graph == second.Graph {
		t.Error("each load must produce its own graph")
	}
}

func TestLoadEmptyModel(t *testing.T) {
	doc := gltf.NewDocument()
	path := filepath.Join(t.TempDir(), "empty.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}

	m, err := newTestLoader(t).Load(context.Background(), File(path))
	if err != nil {
		t.Fatalf("empty model should load, got %v", err)
	}
	if len(m.Clips) != 0 {
		t.Errorf("expected no clips, got %d", len(m.Clips))
	}
	if !m.Graph.ContentBounds().IsEmpty() {
		t.Error("expected empty bounds")
	}
}

func TestLoadBlob(t *testing.T) {
	data, err := os.ReadFile(writeGLB(t, "model.glb", "Idle"))
	if err != nil {
		t.Fatal(err)
	}

	m, err := newTestLoader(t).Load(context.Background(), Blob("dropped.glb", data))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if m.Info.Size != int64(len(data)) {
		t.Errorf("size = %d, want %d", m.Info.Size, len(data))
	}
	if got := m.ClipNames(); len(got) != 1 || got[0] != "Idle" {
		t.Errorf("clip names = %q", got)
	}
}

func TestLoadURL(t *testing.T) {
	data, err := os.ReadFile(writeGLB(t, "model.glb", "Spin"))
	if err != nil {
		t.Fatal(err)
	}
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/model.glb" {
			http.NotFound(w, r)
			return
		}
		agent = r.UserAgent()
		w.Write(data)
	}))
	defer srv.Close()

	l := newTestLoader(t)

	m, err := l.Load(context.Background(), URL(srv.URL+"/assets/model.glb?rev=2"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := m.ClipNames(); len(got) != 1 || got[0] != "Spin" {
		t.Errorf("clip names = %q", got)
	}
	if agent != DefaultConfig().UserAgent {
		t.Errorf("user agent = %q", agent)
	}

	_, err = l.Load(context.Background(), URL(srv.URL+"/missing.glb"))
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch for 404, got %v", err)
	}
}

// writeGLTF saves the writeGLB triangle as model.gltf with its buffer in a
// sibling model.bin and returns the directory.
func writeGLTF(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{-3, 0, -1}, {5, 4, 1}, {0, 2, 0}})
	doc.Buffers[0].URI = "model.bin"
	doc.Meshes = []*gltf.Mesh{{
		Name:       "tri",
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{gltf.POSITION: uint32(pos)}}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "tri", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	dir := t.TempDir()
	if err := gltf.Save(doc, filepath.Join(dir, "model.gltf")); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return dir
}

func TestLoadURLExternalBuffer(t *testing.T) {
	dir := writeGLTF(t)
	var binRequests int
	files := http.StripPrefix("/assets/", http.FileServer(http.Dir(dir)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/assets/model.bin" {
			binRequests++
		}
		files.ServeHTTP(w, r)
	}))
	defer srv.Close()

	m, err := newTestLoader(t).Load(context.Background(), URL(srv.URL+"/assets/model.gltf?rev=1"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if binRequests != 1 {
		t.Errorf("buffer fetched %d times, want 1", binRequests)
	}
	b := m.Graph.ContentBounds()
	if !b.Min.ApproxEqual(mgl32.Vec3{-3, 0, -1}) || !b.Max.ApproxEqual(mgl32.Vec3{5, 4, 1}) {
		t.Errorf("bounds = %v, want the remote buffer's triangle", b)
	}
	gltfInfo, _ := os.Stat(filepath.Join(dir, "model.gltf"))
	binInfo, _ := os.Stat(filepath.Join(dir, "model.bin"))
	if want := gltfInfo.Size() + binInfo.Size(); m.Info.Size != want {
		t.Errorf("size = %d, want %d", m.Info.Size, want)
	}
}

func TestLoadURLExternalBufferFailures(t *testing.T) {
	dir := writeGLTF(t)
	doc, err := os.ReadFile(filepath.Join(dir, "model.gltf"))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/model.gltf":
			w.Write(doc)
		case "/big/model.gltf":
			w.Write(doc)
		case "/big/model.bin":
			w.Write(make([]byte, 4096))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := newTestLoader(t)
	_, err = l.Load(context.Background(), URL(srv.URL+"/model.gltf"))
	if !errors.Is(err, ErrFetch) {
		t.Errorf("missing buffer: expected ErrFetch, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxBytes = int64(len(doc)) + 1024
	_, err = New(cfg, nil).Load(context.Background(), URL(srv.URL+"/big/model.gltf"))
	if !errors.Is(err, ErrFetch) || !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized buffer: expected ErrFetch/ErrTooLarge, got %v", err)
	}
}

func TestLoadBlobExternalBuffer(t *testing.T) {
	dir := writeGLTF(t)
	data, err := os.ReadFile(filepath.Join(dir, "model.gltf"))
	if err != nil {
		t.Fatal(err)
	}
	// A model.bin in the working directory must not be picked up.
	t.Chdir(dir)

	_, err = newTestLoader(t).Load(context.Background(), Blob("model.gltf", data))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestLoadBlobDataURI(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Buffers[0].URI = "data:application/gltf-buffer;base64," + base64.StdEncoding.EncodeToString(doc.Buffers[0].Data)
	doc.Meshes = []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{gltf.POSITION: uint32(pos)}}},
	}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	m, err := newTestLoader(t).Load(context.Background(), Blob("inline.gltf", data))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if b := m.Graph.ContentBounds(); !b.Max.ApproxEqual(mgl32.Vec3{1, 1, 0}) {
		t.Errorf("bounds = %v", b)
	}
}

func TestLoadClipDuration(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{gltf.POSITION: uint32(pos)}}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "tri", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	short := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 0.5})
	long := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 0.75, 1.25})
	out := modeler.WriteAccessor(doc, gltf.TargetNone, [][3]float32{{0, 0, 0}, {0, 1, 0}, {0, 2, 0}})
	doc.Animations = []*gltf.Animation{
		{
			Name: "Bounce",
			Samplers: []*gltf.AnimationSampler{
				{Input: gltf.Index(short), Output: gltf.Index(out)},
				{Input: gltf.Index(long), Output: gltf.Index(out)},
			},
			Channels: []*gltf.Channel{{
				Sampler: gltf.Index(1),
				Target:  gltf.ChannelTarget{Node: gltf.Index(0), Path: gltf.TRSTranslation},
			}},
		},
		{Name: "Still"},
	}
	path := filepath.Join(t.TempDir(), "bounce.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatal(err)
	}

	m, err := newTestLoader(t).Load(context.Background(), File(path))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(m.Clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(m.Clips))
	}
	if got := m.Clips[0]; got.Duration != 1.25 || got.Channels != 1 {
		t.Errorf("Bounce = %+v, want duration 1.25 with 1 channel", got)
	}
	if got := m.Clips[1].Duration; got != 0 {
		t.Errorf("Still duration = %v, want 0", got)
	}
}

func TestLoadURLTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxBytes = 1024
	_, err := New(cfg, nil).Load(context.Background(), URL(srv.URL+"/big.glb"))
	if !errors.Is(err, ErrTooLarge) || !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch/ErrTooLarge, got %v", err)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"unsupported extension", File("model.fbx"), ErrUnsupportedFormat},
		{"garbage glb", Blob("bad.glb", []byte("definitely not a model")), ErrDecode},
		{"garbage gltf", Blob("bad.gltf", []byte("{not json")), ErrDecode},
		{"empty blob", Blob("empty.glb", nil), ErrDecode},
		{"missing file", File(filepath.Join(t.TempDir(), "missing.glb")), ErrDecode},
	}
	l := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := l.Load(context.Background(), tt.src)
			if m != nil {
				t.Error("expected no model")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var le *Error
			if !errors.As(err, &le) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if !le.Source.Equal(tt.src) {
				t.Errorf("error source = %v, want %v", le.Source, tt.src)
			}
		})
	}
}

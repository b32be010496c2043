package styx

import (
	"path/filepath"
	"testing"
)

// fakeWriter is a Writer whose Full behavior the test controls directly,
// so retry-once-on-Full semantics can be checked without racing real file
// sizes.
type fakeWriter struct {
	path     string
	full     bool // next Write call reports Full
	writes   [][]byte
	closed   bool
	newCount int
}

func (w *fakeWriter) Write(p []byte) (int, Status) {
	if w.full {
		return 0, Full("fake writer full")
	}
	w.writes = append(w.writes, append([]byte(nil), p...))
	return len(p), OK
}
func (w *fakeWriter) Flush() Status { return OK }
func (w *fakeWriter) Close() Status { w.closed = true; return OK }
func (w *fakeWriter) Size() int64   { return 0 }

func newFakeWriterFactory(writers *[]*fakeWriter) WriterFactory {
	return func(path string, truncate bool, limit int64) (Writer, Status) {
		w := &fakeWriter{path: path}
		*writers = append(*writers, w)
		return w, OK
	}
}

func TestRotatingSinkRetriesOnceAfterFull(t *testing.T) {
	dir := t.TempDir()
	var writers []*fakeWriter

	s, st := NewRotatingSink(RotatingSinkConfig{
		Filename:  filepath.Join(dir, "app.log"),
		MaxFiles:  3,
		NewWriter: newFakeWriterFactory(&writers),
	})
	if !st.Ok() {
		t.Fatalf("NewRotatingSink: %v", st)
	}
	if len(writers) != 1 {
		t.Fatalf("expected 1 writer opened at construction, got %d", len(writers))
	}

	writers[0].full = true
	if st := s.SinkIt([]byte("payload")); !st.Ok() {
		t.Fatalf("SinkIt after rotation should succeed, got %v", st)
	}
	if len(writers) != 2 {
		t.Fatalf("expected rotation to open a second writer, got %d writers", len(writers))
	}
	if !writers[0].closed {
		t.Fatal("first writer should have been closed on rotation")
	}
	if len(writers[1].writes) != 1 || string(writers[1].writes[0]) != "payload" {
		t.Fatalf("retry write landed on wrong writer: %+v", writers[1].writes)
	}
}

func TestRotatingSinkSurfacesFullWhenRetryAlsoFails(t *testing.T) {
	dir := t.TempDir()
	var writers []*fakeWriter

	s, st := NewRotatingSink(RotatingSinkConfig{
		Filename:  filepath.Join(dir, "app.log"),
		MaxFiles:  3,
		NewWriter: newFakeWriterFactory(&writers),
	})
	if !st.Ok() {
		t.Fatal(st)
	}

	writers[0].full = true
	origFactory := s.cfg.NewWriter
	s.cfg.NewWriter = func(path string, truncate bool, limit int64) (Writer, Status) {
		w, st := origFactory(path, truncate, limit)
		if fw, ok := w.(*fakeWriter); ok {
			fw.full = true
		}
		return w, st
	}

	st = s.SinkIt([]byte("payload"))
	if !st.IsFull() {
		t.Fatalf("SinkIt = %v, want Full after both writer and retry report Full", st)
	}
}

func TestRotatingSinkHeaderReemittedAfterRotation(t *testing.T) {
	dir := t.TempDir()
	var writers []*fakeWriter
	calls := 0

	s, st := NewRotatingSink(RotatingSinkConfig{
		Filename:  filepath.Join(dir, "app.log"),
		MaxFiles:  3,
		NewWriter: newFakeWriterFactory(&writers),
		Header:    func() []byte { calls++; return []byte("HEADER\n") },
	})
	if !st.Ok() {
		t.Fatal(st)
	}
	if calls != 1 {
		t.Fatalf("header should be emitted once at construction, got %d", calls)
	}

	if st := s.Rotate(); !st.Ok() {
		t.Fatalf("Rotate: %v", st)
	}
	if calls != 2 {
		t.Fatalf("header should be re-emitted after rotation, got %d calls", calls)
	}
	if len(writers[1].writes) != 1 || string(writers[1].writes[0]) != "HEADER\n" {
		t.Fatalf("new writer should have received the header, got %+v", writers[1].writes)
	}
}

func TestRotatingSinkClosedRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	var writers []*fakeWriter

	s, st := NewRotatingSink(RotatingSinkConfig{
		Filename:  filepath.Join(dir, "app.log"),
		MaxFiles:  3,
		NewWriter: newFakeWriterFactory(&writers),
	})
	if !st.Ok() {
		t.Fatal(st)
	}
	if st := s.Close(); !st.Ok() {
		t.Fatalf("Close: %v", st)
	}
	if st := s.SinkIt([]byte("x")); st.Ok() {
		t.Fatal("SinkIt after Close should fail")
	}
	if st := s.Close(); !st.Ok() {
		t.Fatalf("second Close should be a no-op success, got %v", st)
	}
}

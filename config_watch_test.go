package styx

import "testing"

func TestParseWatchableParams(t *testing.T) {
	doc := []byte("# hot reload config\nmax_size=50MB\nmax_files=5\nflush_period=10ms\n")
	p, err := parseWatchableParams(doc)
	if err != nil {
		t.Fatalf("parseWatchableParams: %v", err)
	}
	if p.MaxSize != 50*1024*1024 {
		t.Errorf("MaxSize = %d, want 50MB", p.MaxSize)
	}
	if p.MaxFiles != 5 {
		t.Errorf("MaxFiles = %d, want 5", p.MaxFiles)
	}
	if p.FlushPeriod != "10ms" {
		t.Errorf("FlushPeriod = %q, want 10ms", p.FlushPeriod)
	}
}

func TestParseWatchableParamsIgnoresUnknownKeysAndBlankLines(t *testing.T) {
	doc := []byte("\nunknown_key=123\nmax_files=2\n\n")
	p, err := parseWatchableParams(doc)
	if err != nil {
		t.Fatalf("parseWatchableParams: %v", err)
	}
	if p.MaxFiles != 2 {
		t.Errorf("MaxFiles = %d, want 2", p.MaxFiles)
	}
}

func TestParseWatchableParamsRejectsBadSize(t *testing.T) {
	if _, err := parseWatchableParams([]byte("max_size=notasize\n")); err == nil {
		t.Fatal("expected an error for an invalid max_size value")
	}
}

func TestConfigWatcherAppliesMaxSizeAndMaxFiles(t *testing.T) {
	dir := t.TempDir()
	var writers []*fakeWriter
	sink, st := NewRotatingSink(RotatingSinkConfig{
		Filename:  dir + "/app.log",
		MaxFiles:  3,
		NewWriter: newFakeWriterFactory(&writers),
	})
	if !st.Ok() {
		t.Fatal(st)
	}
	defer sink.Close()

	cw := &ConfigWatcher{sink: sink}
	cw.apply(WatchableParams{MaxSize: 10 * 1024 * 1024, MaxFiles: 7})

	sink.mu.Lock()
	gotSize, gotFiles := sink.cfg.MaxFileSize, sink.cfg.MaxFiles
	sink.mu.Unlock()

	if gotSize != 10*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 10MB", gotSize)
	}
	if gotFiles != 7 {
		t.Errorf("MaxFiles = %d, want 7", gotFiles)
	}
}

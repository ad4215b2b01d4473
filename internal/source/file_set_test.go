package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("card.orbit", []byte("<Card/>"), 0)
	id2 := fs.Add("card.orbit", []byte("<Card title=\"x\"/>"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	latest, ok := fs.GetLatest("card.orbit")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d,%v; want %d", latest, ok, id2)
	}
	if string(fs.Get(id1).Content) != "<Card/>" {
		t.Errorf("old version content lost: %q", fs.Get(id1).Content)
	}
}

func TestAddVirtualNormalizes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.orbit", []byte("\xEF\xBB\xBFa\r\nb\r\n"))
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags&FileVirtual == 0 || f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("flags = %b", f.Flags)
	}
	want := []uint32{1, 3}
	if len(f.LineIdx) != len(want) || f.LineIdx[0] != want[0] || f.LineIdx[1] != want[1] {
		t.Errorf("LineIdx = %v, want %v", f.LineIdx, want)
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x.orbit", []byte("ab\ncd\n\nef"))
	f := fs.Get(id)

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}}, // the newline itself
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
		{9, LineCol{4, 3}}, // EOF
	}
	for _, c := range cases {
		if got := f.LineCol(c.off); got != c.want {
			t.Errorf("LineCol(%d) = %+v, want %+v", c.off, got, c.want)
		}
		if got := f.Offset(c.want); got != c.off {
			t.Errorf("Offset(%+v) = %d, want %d", c.want, got, c.off)
		}
	}

	start, end := fs.Resolve(Span{File: id, Start: 3, End: 5})
	if start != (LineCol{2, 1}) || end != (LineCol{2, 3}) {
		t.Errorf("Resolve = %+v..%+v", start, end)
	}
}

func TestGetLineAndText(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("x.orbit", []byte("<a>\n<b>\n")))
	if got := f.GetLine(2); got != "<b>" {
		t.Errorf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Errorf("GetLine(9) = %q", got)
	}
	if got := f.Text(Span{File: f.ID, Start: 4, End: 7}); got != "<b>" {
		t.Errorf("Text = %q", got)
	}
	if got := f.Text(Span{File: f.ID, Start: 4, End: 70}); got != "" {
		t.Errorf("out of range Text = %q", got)
	}
}

func TestLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.orbit")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFa\r\nb\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Errorf("content = %q", f.Content)
	}
	if f.Flags&FileVirtual != 0 {
		t.Error("loaded file must not be virtual")
	}
}

func TestLoadMissing(t *testing.T) {
	fs := NewFileSet()
	if _, err := fs.Load(filepath.Join(t.TempDir(), "nope.orbit")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

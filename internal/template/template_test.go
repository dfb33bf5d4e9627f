package template

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestPreCompileExpandsInclude(t *testing.T) {
	root := t.TempDir()
	build := t.TempDir()

	writeFile(t, filepath.Join(root, "partials", "header.html"), "<header>Hi</header>")
	writeFile(t, filepath.Join(root, "index.html"), "<body>\n{% include 'partials/header.html' %}\n</body>")

	e := New()
	if err := e.PreCompile(root, build); err != nil {
		t.Fatalf("PreCompile: %v", err)
	}

	meta, err := e.Serve("index.html")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if meta.Kind != KindCompiledStatic {
		t.Fatalf("Kind = %v, want KindCompiledStatic", meta.Kind)
	}

	out, err := os.ReadFile(meta.FullPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "<body>\n<header>Hi</header>\n</body>\n"
	if string(out) != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestPreCompileSkipsPartial(t *testing.T) {
	root := t.TempDir()
	build := t.TempDir()

	writeFile(t, filepath.Join(root, "snippet.html"), "{% partial %}\n<span>raw</span>")

	e := New()
	if err := e.PreCompile(root, build); err != nil {
		t.Fatalf("PreCompile: %v", err)
	}

	meta, err := e.Serve("snippet.html")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if meta.Kind != KindPureStatic {
		t.Fatalf("Kind = %v, want KindPureStatic", meta.Kind)
	}

	out, err := os.ReadFile(meta.FullPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(out) != "{% partial %}\n<span>raw</span>" {
		t.Fatalf("output = %q, want verbatim copy", out)
	}
}

func TestPreCompileExpandsNestedIncludes(t *testing.T) {
	root := t.TempDir()
	build := t.TempDir()

	writeFile(t, filepath.Join(root, "a.html"), "top\n{% include \"b.html\" %}\nbottom")
	writeFile(t, filepath.Join(root, "b.html"), "middle\n{% include 'c.html' %}")
	writeFile(t, filepath.Join(root, "c.html"), "deepest")

	e := New()
	if err := e.PreCompile(root, build); err != nil {
		t.Fatalf("PreCompile: %v", err)
	}

	meta, err := e.Serve("a.html")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	out, err := os.ReadFile(meta.FullPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "top\nmiddle\ndeepest\nbottom\n"
	if string(out) != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestPreCompileCollectsErrorsAndExcludesFailures(t *testing.T) {
	root := t.TempDir()
	build := t.TempDir()

	writeFile(t, filepath.Join(root, "good.html"), "fine")
	writeFile(t, filepath.Join(root, "bad.html"), "{% include 'missing.html' %}")

	e := New()
	err := e.PreCompile(root, build)
	if err == nil {
		t.Fatalf("expected an aggregated error for the missing include")
	}

	if _, err := e.Serve("good.html"); err != nil {
		t.Fatalf("good.html should have compiled: %v", err)
	}
	if _, err := e.Serve("bad.html"); err != ErrNotFound {
		t.Fatalf("bad.html should be excluded from the table, got %v", err)
	}
}

func TestServeUnknownPathReturnsNotFound(t *testing.T) {
	e := New()
	if _, err := e.Serve("nope.html"); err != ErrNotFound {
		t.Fatalf("Serve = %v, want ErrNotFound", err)
	}
}

func TestParseIncludeTagVariants(t *testing.T) {
	cases := []struct {
		line     string
		wantPath string
		wantOK   bool
	}{
		{"{% include 'a/b.html' %}", "a/b.html", true},
		{"  {% include \"a/b.html\" %}  ", "a/b.html", true},
		{"no tag here", "", false},
	}
	for _, c := range cases {
		path, ok, err := parseIncludeTag(c.line)
		if err != nil {
			t.Fatalf("parseIncludeTag(%q): %v", c.line, err)
		}
		if ok != c.wantOK || path != c.wantPath {
			t.Fatalf("parseIncludeTag(%q) = (%q, %v), want (%q, %v)", c.line, path, ok, c.wantPath, c.wantOK)
		}
	}
}

func TestParseIncludeTagMalformed(t *testing.T) {
	if _, _, err := parseIncludeTag("{% include no-quotes %}"); err == nil {
		t.Fatalf("expected error for missing quotes")
	}
	if _, _, err := parseIncludeTag("{% include 'unterminated"); err == nil {
		t.Fatalf("expected error for missing %%}")
	}
}

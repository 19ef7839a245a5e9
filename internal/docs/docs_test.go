package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"makellamafile/internal/modelinfo"
)

func artifact(t *testing.T, size int) (string, string) {
	t.Helper()
	d := t.TempDir()
	p := filepath.Join(d, "model.llamafile")
	if err := os.WriteFile(p, make([]byte, size), 0o755); err != nil {
		t.Fatal(err)
	}
	return d, p
}

func TestRenderKnownFields(t *testing.T) {
	_, art := artifact(t, 2048)
	b, err := Render(Params{
		ModelName:    "TinyLLama",
		InputPath:    "/dl/TinyLLama-v0.1-5M-F16.gguf",
		ArtifactPath: art,
		Digest:       "deadbeef",
		Description:  "A tiny test model.",
		Info:         modelinfo.Extract("TinyLLama-v0.1-5M-F16.gguf"),
		Now:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		"# TinyLLama",
		"A tiny test model.",
		"**Original file:** TinyLLama-v0.1-5M-F16.gguf",
		"**Llamafile:** model.llamafile",
		"**SHA-256:** deadbeef",
		"**Size:** 2.048kB",
		"**Parameters:** 1.1B",
		"**Context size:** 2048",
		"**Model type:** LLaMA",
		"chmod +x model.llamafile",
		"Generated by makellamafile on 2024-05-01T12:00:00Z",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("README missing %q:\n%s", want, s)
		}
	}
}

func TestRenderOmitsUnknownFields(t *testing.T) {
	_, art := artifact(t, 10)
	b, err := Render(Params{ModelName: "m", InputPath: "foo-7b.gguf", ArtifactPath: art, Digest: "x", Info: modelinfo.Extract("foo-7b.gguf")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "**Parameters:** 7B") || !strings.Contains(s, "**Context size:** 4096") {
		t.Fatalf("known fields missing:\n%s", s)
	}
	if strings.Contains(s, "Model type") || strings.Contains(s, modelinfo.Unknown) {
		t.Fatalf("unknown field rendered:\n%s", s)
	}
}

func TestWrite(t *testing.T) {
	dir, art := artifact(t, 10)
	p, err := Write(dir, Params{ModelName: "m", InputPath: "m.gguf", ArtifactPath: art, Digest: "abc", Info: modelinfo.Extract("m.gguf")})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if p != filepath.Join(dir, FileName) {
		t.Fatalf("path %q", p)
	}
	b, err := os.ReadFile(p)
	if err != nil || !strings.Contains(string(b), "**SHA-256:** abc") {
		t.Fatalf("unexpected README %q err=%v", b, err)
	}
}

func TestRenderMissingArtifact(t *testing.T) {
	if _, err := Render(Params{ArtifactPath: filepath.Join(t.TempDir(), "gone")}); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
}

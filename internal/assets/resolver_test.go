package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
)

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewLocalResolver(dir, nil)
	got, err := r.Resolve(context.Background(), script.Visual{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("resolved %s, want %s", got, path)
	}
}

func TestResolveMissingFile(t *testing.T) {
	r := NewLocalResolver(t.TempDir(), nil)
	_, err := r.Resolve(context.Background(), script.Visual{Path: "/nonexistent/x.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	var te *teterr.Error
	if !errors.As(err, &te) || te.Kind != teterr.AssetNotFound {
		t.Errorf("kind = %v, want AssetNotFound", err)
	}
}

func TestResolveQRCode(t *testing.T) {
	r := NewLocalResolver(t.TempDir(), nil)
	first, err := r.Resolve(context.Background(), script.Visual{Path: "qr:https://example.com/subscribe"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(first) != ".png" {
		t.Errorf("qr output = %s", first)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("qr file missing: %v", err)
	}

	// Same content resolves to the same derived file.
	second, err := r.Resolve(context.Background(), script.Visual{Path: "qr:https://example.com/subscribe"})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("qr path not stable: %s vs %s", first, second)
	}

	other, _ := r.Resolve(context.Background(), script.Visual{Path: "qr:other"})
	if other == first {
		t.Error("different content must not share a derived path")
	}
}

type fixedGenerator struct{ path string }

func (g fixedGenerator) Generate(_ context.Context, prompt string, _ script.ImageGenConfig) (string, error) {
	return g.path, nil
}

func TestResolveGeneratedVisual(t *testing.T) {
	r := NewLocalResolver(t.TempDir(), fixedGenerator{path: "/tmp/generated.png"})
	got, err := r.Resolve(context.Background(), script.Visual{Description: "a calm lake at dawn"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/generated.png" {
		t.Errorf("resolved %s", got)
	}
}

func TestResolveGeneratedVisualWithoutGenerator(t *testing.T) {
	r := NewLocalResolver(t.TempDir(), nil)
	_, err := r.Resolve(context.Background(), script.Visual{Description: "anything"})
	if err == nil {
		t.Fatal("expected error without a generator")
	}
}

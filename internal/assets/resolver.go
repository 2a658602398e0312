// Package assets resolves a scene's Visual to a local media file: plain
// paths pass through, PDF pages and qr: specs are rendered into the work
// directory, and description-only visuals go to a pluggable generator.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/teterr"
)

// Resolver maps a Visual onto a local file path.
type Resolver interface {
	Resolve(ctx context.Context, visual script.Visual) (string, error)
}

// ImageGenerator produces an image file from a textual prompt. AI backends
// are external; teto only depends on this contract.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, cfg script.ImageGenConfig) (string, error)
}

// LocalResolver resolves against the filesystem, materializing derived
// assets (PDF pages, QR codes, generated images) under WorkDir.
type LocalResolver struct {
	WorkDir   string
	Generator ImageGenerator
}

// NewLocalResolver creates a resolver writing derived assets to workDir.
func NewLocalResolver(workDir string, gen ImageGenerator) *LocalResolver {
	return &LocalResolver{WorkDir: workDir, Generator: gen}
}

func (r *LocalResolver) Resolve(ctx context.Context, visual script.Visual) (string, error) {
	switch {
	case strings.HasPrefix(visual.Path, "qr:"):
		return r.renderQR(strings.TrimPrefix(visual.Path, "qr:"))
	case visual.Path != "":
		if strings.EqualFold(filepath.Ext(visual.Path), ".pdf") {
			return r.renderPDFPage(visual.Path)
		}
		if _, err := os.Stat(visual.Path); err != nil {
			return "", teterr.Wrap(teterr.AssetNotFound, err, "visual %s", visual.Path)
		}
		return visual.Path, nil
	case visual.Description != "":
		if r.Generator == nil {
			return "", teterr.New(teterr.AssetNotFound,
				"visual needs image generation but no generator is configured")
		}
		cfg := script.ImageGenConfig{}
		if visual.Generate != nil {
			cfg = *visual.Generate
		}
		path, err := r.Generator.Generate(ctx, visual.Description, cfg)
		if err != nil {
			return "", fmt.Errorf("image generation failed: %w", err)
		}
		return path, nil
	default:
		return "", teterr.New(teterr.AssetNotFound, "visual has neither path nor description")
	}
}

// renderPDFPage rasterizes the first page of a PDF to a PNG in the work
// directory, reusing a previous render when present.
func (r *LocalResolver) renderPDFPage(path string) (string, error) {
	out := r.derivedPath(path, ".png")
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", teterr.Wrap(teterr.AssetNotFound, err, "cannot open PDF %s", path)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return "", teterr.New(teterr.AssetNotFound, "PDF %s has no pages", path)
	}
	img, err := doc.ImageDPI(0, 300)
	if err != nil {
		return "", fmt.Errorf("cannot render PDF page: %w", err)
	}
	if err := r.writePNG(out, func(f *os.File) error { return png.Encode(f, img) }); err != nil {
		return "", err
	}
	return out, nil
}

// renderQR writes a QR code image for the given content.
func (r *LocalResolver) renderQR(content string) (string, error) {
	out := r.derivedPath("qr-"+content, ".png")
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("cannot create asset dir: %w", err)
	}
	if err := qrcode.WriteFile(content, qrcode.Medium, 512, out); err != nil {
		return "", fmt.Errorf("cannot render QR code: %w", err)
	}
	return out, nil
}

func (r *LocalResolver) writePNG(out string, encode func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("cannot create asset dir: %w", err)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", out, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(out)
		return fmt.Errorf("cannot encode %s: %w", out, err)
	}
	return f.Close()
}

// derivedPath names a derived asset by hashing its source identity, so
// repeated compiles reuse the same file.
func (r *LocalResolver) derivedPath(identity, ext string) string {
	sum := sha256.Sum256([]byte(identity))
	name := hex.EncodeToString(sum[:])[:16] + ext
	return filepath.Join(r.WorkDir, "assets", name)
}

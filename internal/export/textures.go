package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os"
	"path/filepath"

	"mini-track/internal/ctxlog"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// TextureSource lists texture pages in page order and locates their image
// files.
type TextureSource interface {
	TexturePages() []string
	TexturePath(name string) (string, error)
}

// TexturesDir is the directory, shared by all variants, pages go in.
const TexturesDir = "textures"

// PageFile names texture page i.
func PageFile(i int) string {
	return fmt.Sprintf("page%03d.bmp", i)
}

// placeholder is drawn for pages with no image file.
var placeholder = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// LoadPage decodes a PNG or BMP texture and scales it to size×size.
func LoadPage(path string, size int) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	if img.Bounds().Dx() == size && img.Bounds().Dy() == size {
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
		return rgba, nil
	}
	xdraw.CatmullRom.Scale(rgba, rgba.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return rgba, nil
}

// WritePages writes every texture page into dir as a BMP. A page whose
// image file cannot be found is written as a flat placeholder and logged.
func WritePages(ctx context.Context, src TextureSource, dir string, size int) error {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for i, name := range src.TexturePages() {
		var page *image.RGBA
		path, err := src.TexturePath(name)
		if err != nil {
			logger.Warn("Texture page has no image, using placeholder.", "texture", name, "error", err)
			page = image.NewRGBA(image.Rect(0, 0, size, size))
			draw.Draw(page, page.Bounds(), image.NewUniform(placeholder), image.Point{}, draw.Src)
		} else if page, err = LoadPage(path, size); err != nil {
			return err
		}

		out := filepath.Join(dir, PageFile(i))
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := bmp.Encode(f, page); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", out, err)
		}
		logger.Debug("Wrote texture page.", "texture", name, "file", out)
	}
	return nil
}

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mini-track/internal/config"
	"mini-track/internal/ctxlog"
)

// ReverseDir is the subdirectory of a variant holding the reverse lap.
const ReverseDir = "reverse"

// Directory lays out an export under Root: one subdirectory per variant,
// reverse/ inside it for the reverse lap, and the shared texture pages in
// Root/textures.
type Directory struct {
	Root string
}

// VariantDir is where the given variant and direction are written.
func (d Directory) VariantDir(variant string, reverse bool) string {
	if reverse {
		return filepath.Join(d.Root, variant, ReverseDir)
	}
	return filepath.Join(d.Root, variant)
}

// Write clears stale artifacts and writes forward, and reverse when it is
// not nil, for every variant. Only files this package writes are removed.
func (d Directory) Write(ctx context.Context, forward, reverse *Artifacts, variants []config.Variant, textures TextureSource, pageSize int) error {
	logger := ctxlog.FromContext(ctx)
	if forward == nil {
		return errors.New("no forward artifacts to write")
	}
	if err := d.clear(variants); err != nil {
		return err
	}

	for _, v := range variants {
		for _, a := range []*Artifacts{forward, reverse} {
			if a == nil {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			dir := d.VariantDir(v.Name, a.Reverse)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			if err := a.WriteFiles(dir, v.Scale); err != nil {
				return err
			}
			manifest := filepath.Join(dir, ManifestFile)
			if err := writeFile(manifest, func(w io.Writer) error {
				return WriteManifest(w, a, v, reverse != nil, textures.TexturePages())
			}); err != nil {
				return err
			}
			logger.Info("Wrote track variant.", "dir", dir, "variant", v.Name, "scale", v.Scale, "reverse", a.Reverse)
		}
	}
	return WritePages(ctx, textures, filepath.Join(d.Root, TexturesDir), pageSize)
}

// clear removes artifact files and texture pages left by an earlier export.
func (d Directory) clear(variants []config.Variant) error {
	for _, v := range variants {
		for _, rev := range []bool{false, true} {
			dir := d.VariantDir(v.Name, rev)
			for _, name := range ArtifactFiles {
				if err := removeIfExists(filepath.Join(dir, name)); err != nil {
					return err
				}
			}
		}
	}
	pages, err := filepath.Glob(filepath.Join(d.Root, TexturesDir, "page*.bmp"))
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := removeIfExists(p); err != nil {
			return err
		}
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", path, err)
	}
	return nil
}

// WriteManifest writes the human-readable info file for one artifact
// directory.
func WriteManifest(w io.Writer, a *Artifacts, v config.Variant, hasReverse bool, pages []string) error {
	direction := "forward"
	if a.Reverse {
		direction = "reverse"
	}
	directions := "forward"
	if hasReverse {
		directions = "forward, reverse"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", a.Name)
	fmt.Fprintf(&b, "variant: %s\n", v.Name)
	fmt.Fprintf(&b, "scale: %g\n", v.Scale)
	fmt.Fprintf(&b, "direction: %s\n", direction)
	fmt.Fprintf(&b, "directions exported: %s\n", directions)
	fmt.Fprintf(&b, "ai nodes: %d\n", len(a.AI.Nodes))
	fmt.Fprintf(&b, "small cubes: %d\n", len(a.World.Small))
	fmt.Fprintf(&b, "big cubes: %d\n", len(a.World.Big))
	fmt.Fprintf(&b, "world polygons: %d\n", a.World.PolygonCount())
	fmt.Fprintf(&b, "collision polygons: %d\n", len(a.Collision.Polygons))
	fmt.Fprintf(&b, "zones: %d\n", len(a.Zones))
	fmt.Fprintf(&b, "position nodes: %d\n", len(a.Positions.Nodes))
	fmt.Fprintf(&b, "objects: %d\n", len(a.Objects))
	fmt.Fprintf(&b, "lights: %d\n", len(a.Lights))
	fmt.Fprintf(&b, "lap length: %.2f\n", a.Positions.Length*v.Scale)
	for i, p := range pages {
		fmt.Fprintf(&b, "texture %s: %s\n", PageFile(i), p)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

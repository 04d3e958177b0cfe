package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"mini-track/pkg/moduledef"
)

var ErrUnknownModule = errors.New("unknown module")

// Library is the read-only set of module templates a compile runs against.
// It is built once and shared by every pipeline; nothing in it is global.
type Library struct {
	root    string
	modules map[moduledef.ID]*moduledef.Module
	pages   []string
	pageIdx map[string]int16
}

// New builds a library from already loaded modules.
func New(mods ...*moduledef.Module) (*Library, error) {
	l := &Library{
		modules: make(map[moduledef.ID]*moduledef.Module, len(mods)),
		pageIdx: make(map[string]int16),
	}
	for _, m := range mods {
		if prev, ok := l.modules[m.ID]; ok {
			return nil, fmt.Errorf("module id %d used by both %q and %q", m.ID, prev.Name, m.Name)
		}
		l.modules[m.ID] = m
	}
	l.registerTextures()
	return l, nil
}

// LoadLibrary loads every module under root/modules.
func LoadLibrary(root string) (*Library, error) {
	mods, err := moduledef.NewLoader(root).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load module library %s: %w", root, err)
	}
	l, err := New(mods...)
	if err != nil {
		return nil, fmt.Errorf("load module library %s: %w", root, err)
	}
	l.root = root
	return l, nil
}

// Texture pages are numbered in name order so page indices do not depend on
// module load order.
func (l *Library) registerTextures() {
	seen := map[string]struct{}{WallTexture: {}}
	for _, m := range l.modules {
		for _, f := range m.Mesh {
			if f.Texture != "" {
				seen[f.Texture] = struct{}{}
			}
		}
	}
	l.pages = l.pages[:0]
	for name := range seen {
		l.pages = append(l.pages, name)
	}
	sort.Strings(l.pages)
	for i, name := range l.pages {
		l.pageIdx[name] = int16(i)
	}
}

// Module returns the template for id.
func (l *Library) Module(id moduledef.ID) (*moduledef.Module, error) {
	m, ok := l.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModule, id)
	}
	return m, nil
}

// Has reports whether the library holds id.
func (l *Library) Has(id moduledef.ID) bool {
	_, ok := l.modules[id]
	return ok
}

func (l *Library) family(id moduledef.ID) moduledef.Family {
	if m, ok := l.modules[id]; ok {
		return m.Family
	}
	return ""
}

func (l *Library) IsStart(id moduledef.ID) bool  { return l.family(id) == moduledef.FamilyStart }
func (l *Library) IsPipe(id moduledef.ID) bool   { return l.family(id) == moduledef.FamilyPipe }
func (l *Library) IsBridge(id moduledef.ID) bool { return l.family(id) == moduledef.FamilyBridge }

// Forward returns the forward-direction variant of id, or id itself.
func (l *Library) Forward(id moduledef.ID) moduledef.ID {
	if m, ok := l.modules[id]; ok && m.Variants.Forward != 0 {
		return m.Variants.Forward
	}
	return id
}

// Reverse returns the reverse-direction variant of id and whether the
// placement must additionally be turned 180°.
func (l *Library) Reverse(id moduledef.ID) (moduledef.ID, bool) {
	m, ok := l.modules[id]
	if !ok {
		return id, false
	}
	out := id
	if m.Variants.Reverse != 0 {
		out = m.Variants.Reverse
	}
	return out, m.Variants.FlipOnReverse
}

// Bridge deck flags.
const (
	LowerDeckReversed uint8 = 1 << iota
	UpperDeckReversed
)

// bridgeSelect maps deck flags to an index into Variants.Bridge
// (plain, rotated, left-hand, left-hand-rotated) and a 180° turn.
var bridgeSelect = [4]struct {
	variant int
	rotate  bool
}{
	0:                                     {0, false},
	LowerDeckReversed:                     {2, false},
	UpperDeckReversed:                     {3, true},
	LowerDeckReversed | UpperDeckReversed: {1, true},
}

// BridgeVariant picks the bridge template for the given deck flags.
func (l *Library) BridgeVariant(id moduledef.ID, flags uint8) (moduledef.ID, bool) {
	sel := bridgeSelect[flags&3]
	m, ok := l.modules[id]
	if !ok {
		return id, sel.rotate
	}
	if v := m.Variants.Bridge[sel.variant]; v != 0 {
		return v, sel.rotate
	}
	return id, sel.rotate
}

// WeldVariant picks the pipe template whose end caps match its neighbours.
func (l *Library) WeldVariant(id moduledef.ID, prevPipe, nextPipe bool) moduledef.ID {
	m, ok := l.modules[id]
	if !ok || m.Variants.Weld.Empty() {
		return id
	}
	w := m.Variants.Weld
	var out moduledef.ID
	switch {
	case prevPipe && nextPipe:
		out = w.NoSides
	case !prevPipe && nextPipe:
		out = w.NoEntry
	case prevPipe && !nextPipe:
		out = w.NoExit
	}
	if out == 0 {
		return id
	}
	return out
}

// StartModules returns the IDs of every start-family module.
func (l *Library) StartModules() []moduledef.ID {
	var ids []moduledef.ID
	for id, m := range l.modules {
		if m.Family == moduledef.FamilyStart {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TexturePages lists texture names in page order.
func (l *Library) TexturePages() []string {
	return l.pages
}

// TextureIndex returns the page index of a texture name, or -1.
func (l *Library) TextureIndex(name string) int16 {
	if i, ok := l.pageIdx[name]; ok {
		return i
	}
	return -1
}

// TexturePath finds the image file backing a texture page. Pages may be
// stored as .bmp or .png under root/textures.
func (l *Library) TexturePath(name string) (string, error) {
	if l.root == "" {
		return "", fmt.Errorf("texture %q: library has no root directory", name)
	}
	for _, ext := range []string{".bmp", ".png"} {
		p := filepath.Join(l.root, "textures", name+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("texture %q: %w", name, os.ErrNotExist)
}

package moduledef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader reads module templates from <root>/modules/<name>.json. Loaded
// modules are cached per loader; callers must not mutate them.
type Loader struct {
	root  string
	cache map[string]*Module
	// raw keeps each module after inheritance but before texture
	// resolution, so children re-resolve "#key" against their own map.
	raw map[string]*Module
}

func NewLoader(root string) *Loader {
	return &Loader{
		root:  root,
		cache: make(map[string]*Module),
		raw:   make(map[string]*Module),
	}
}

// Root is the directory the loader reads from.
func (l *Loader) Root() string {
	return l.root
}

// LoadModule loads one module by file name, resolving its parent chain and
// texture references.
func (l *Loader) LoadModule(name string) (*Module, error) {
	return l.load(name, 0)
}

func (l *Loader) load(name string, depth int) (*Module, error) {
	name = strings.TrimSuffix(name, ".json")
	if m, ok := l.cache[name]; ok {
		return m, nil
	}
	if depth > 16 {
		return nil, fmt.Errorf("module %q: parent chain too deep", name)
	}

	path := filepath.Join(l.root, "modules", name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read module file: %w", err)
	}

	var m Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not unmarshal module %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = name
	}

	if m.Parent != "" {
		parentName := strings.TrimSuffix(m.Parent, ".json")
		if _, err := l.load(parentName, depth+1); err != nil {
			return nil, fmt.Errorf("could not load parent module '%s': %w", m.Parent, err)
		}
		inherit(&m, l.raw[parentName])
	}

	raw := m
	raw.Mesh = copyFaces(m.Mesh)
	l.raw[name] = &raw

	l.resolveTextures(&m)
	l.cache[name] = &m
	return &m, nil
}

// inherit fills fields the child left empty. Slices are copied so resolving
// the child's textures never writes into the cached parent.
func inherit(m, parent *Module) {
	if m.Family == "" {
		m.Family = parent.Family
	}
	if len(m.Cells) == 0 {
		m.Cells = append([]Cell(nil), parent.Cells...)
	}
	if len(m.Mesh) == 0 {
		m.Mesh = copyFaces(parent.Mesh)
	}
	if len(m.Hull) == 0 {
		m.Hull = copyFaces(parent.Hull)
	}
	if len(m.Zones) == 0 {
		m.Zones = append([]Zone(nil), parent.Zones...)
	}
	if len(m.Routes) == 0 {
		m.Routes = append([]Route(nil), parent.Routes...)
	}
	if len(m.Lights) == 0 {
		m.Lights = append([]Light(nil), parent.Lights...)
	}
	if len(m.Objects) == 0 {
		m.Objects = append([]Object(nil), parent.Objects...)
	}
	if m.Textures == nil {
		m.Textures = make(map[string]string)
	}
	for key, val := range parent.Textures {
		if _, ok := m.Textures[key]; !ok {
			m.Textures[key] = val
		}
	}
}

func copyFaces(in []Face) []Face {
	if in == nil {
		return nil
	}
	return append([]Face(nil), in...)
}

func (l *Loader) resolveTextures(m *Module) {
	for i := range m.Mesh {
		m.Mesh[i].Texture = ResolveTexture(m.Mesh[i].Texture, m)
	}
}

// ResolveTexture follows "#key" references through the module's texture map.
func ResolveTexture(name string, m *Module) string {
	for i := 0; i < 10 && strings.HasPrefix(name, "#"); i++ {
		key := strings.TrimPrefix(name, "#")
		resolved, ok := m.Textures[key]
		if !ok {
			break
		}
		name = resolved
	}
	return name
}

// LoadAll loads every module file under <root>/modules in name order.
func (l *Loader) LoadAll() ([]*Module, error) {
	matches, err := filepath.Glob(filepath.Join(l.root, "modules", "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]*Module, 0, len(matches))
	for _, path := range matches {
		m, err := l.LoadModule(filepath.Base(path))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

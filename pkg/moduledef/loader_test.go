package moduledef

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModule(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, "modules")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const straightJSON = `{
	"id": 2,
	"family": "track",
	"textures": { "road": "asphalt", "side": "#road" },
	"cells": [ { "offset": [0,0], "walls": [false,true,false,true] } ],
	"mesh": [ { "verts": [[-512,0,-512],[-512,0,512],[512,0,512],[512,0,-512]], "texture": "#side" } ],
	"hull": [ { "verts": [[-512,0,-512],[-512,0,512],[512,0,512],[512,0,-512]], "material": 1 } ],
	"zones": [ { "center": [0,0,0], "size": [1024,256,1024], "links": [[0,0,-512],[0,0,512]] } ],
	"variants": { "forward": 102, "reverse": 103, "flip_on_reverse": true }
}`

func TestLoadSimpleModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "straight", straightJSON)

	m, err := NewLoader(root).LoadModule("straight")
	if err != nil {
		t.Fatalf("Failed to load module: %v", err)
	}
	if m.ID != 2 || m.Name != "straight" {
		t.Errorf("Expected id 2 named straight, got %d %q", m.ID, m.Name)
	}
	if m.Mesh[0].Part != PartTrack {
		t.Errorf("Expected default part %q, got %q", PartTrack, m.Mesh[0].Part)
	}
	if m.Mesh[0].Texture != "asphalt" {
		t.Errorf("Expected texture chain to resolve to asphalt, got %q", m.Mesh[0].Texture)
	}
	if !m.Variants.FlipOnReverse || m.Variants.Reverse != 103 {
		t.Errorf("Variants not decoded: %+v", m.Variants)
	}
}

func TestChildInheritsWithoutMutatingParent(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "straight", straightJSON)
	writeModule(t, root, "straight_rev", `{
		"id": 103,
		"parent": "straight",
		"textures": { "road": "gravel" }
	}`)

	loader := NewLoader(root)
	child, err := loader.LoadModule("straight_rev")
	if err != nil {
		t.Fatalf("Failed to load child: %v", err)
	}
	if len(child.Zones) != 1 || len(child.Hull) != 1 {
		t.Fatalf("Expected inherited zones and hull, got %d zones %d hull faces", len(child.Zones), len(child.Hull))
	}
	if child.Family != FamilyTrack {
		t.Errorf("Expected inherited family, got %q", child.Family)
	}

	if child.Mesh[0].Texture != "gravel" {
		t.Errorf("Expected child to resolve through its own textures, got %q", child.Mesh[0].Texture)
	}

	parent, _ := loader.LoadModule("straight")
	if parent.Mesh[0].Texture != "asphalt" {
		t.Errorf("Parent mesh was mutated by child resolution: %q", parent.Mesh[0].Texture)
	}
}

func TestCache(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "straight", straightJSON)
	loader := NewLoader(root)

	m1, err := loader.LoadModule("straight")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := loader.LoadModule("straight.json")
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Errorf("Expected the same module instance from cache")
	}
}

func TestLoadRejectsBadFace(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "broken", `{ "id": 9, "mesh": [ { "verts": [[0,0,0],[1,0,0]] } ] }`)

	if _, err := NewLoader(root).LoadModule("broken"); err == nil {
		t.Fatal("Expected error for a two-vertex face")
	}
}

func TestLoadAllSorted(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "b", `{ "id": 2 }`)
	writeModule(t, root, "a", `{ "id": 1 }`)

	mods, err := NewLoader(root).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(mods) != 2 || mods[0].Name != "a" || mods[1].Name != "b" {
		t.Fatalf("Unexpected LoadAll order: %+v", mods)
	}
}

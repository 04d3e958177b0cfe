package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// profileFile is the HCL shape of an export profile:
//
//	output_dir = "out/oval"
//	reverse    = true
//	workers    = 2
//
//	tolerances {
//	  link_distance = 20
//	}
//
//	geometry {
//	  cell_size = 1024
//	}
//
//	variant "half" {
//	  scale = 0.5
//	}
type profileFile struct {
	OutputDir  *string         `hcl:"output_dir,optional"`
	Reverse    *bool           `hcl:"reverse,optional"`
	Workers    *int            `hcl:"workers,optional"`
	Tolerances *toleranceBlock `hcl:"tolerances,block"`
	Geometry   *geometryBlock  `hcl:"geometry,block"`
	Variants   []*variantBlock `hcl:"variant,block"`
}

type toleranceBlock struct {
	LinkDistance    *float64 `hcl:"link_distance,optional"`
	PipeVertical    *float64 `hcl:"pipe_vertical,optional"`
	HeightSlack     *float64 `hcl:"height_slack,optional"`
	JumpHeight      *float64 `hcl:"jump_height,optional"`
	AIMatchDistance *float64 `hcl:"ai_match_distance,optional"`
	VertexWeld      *float64 `hcl:"vertex_weld,optional"`
	NormalEpsilon   *float64 `hcl:"normal_epsilon,optional"`
	PlaneDistance   *float64 `hcl:"plane_distance,optional"`
}

type geometryBlock struct {
	CellSize       *float64 `hcl:"cell_size,optional"`
	ElevationStep  *float64 `hcl:"elevation_step,optional"`
	WallHeight     *float64 `hcl:"wall_height,optional"`
	WallSplitSize  *float64 `hcl:"wall_split_size,optional"`
	BigCubeSize    *float64 `hcl:"big_cube_size,optional"`
	LookupCellSize *float64 `hcl:"lookup_cell_size,optional"`
	LookupFudge    *float64 `hcl:"lookup_fudge,optional"`
	PageSize       *int     `hcl:"page_size,optional"`
}

type variantBlock struct {
	Name  string  `hcl:"name,label"`
	Scale float64 `hcl:"scale"`
}

// LoadProfile reads an HCL export profile on top of Default().
func LoadProfile(path string) (Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Profile{}, fmt.Errorf("failed to parse profile %s: %w", path, diags)
	}
	return decodeProfile(path, file.Body)
}

// ParseProfile reads an HCL export profile from memory; name is used in
// diagnostics only.
func ParseProfile(name string, src []byte) (Profile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, name)
	if diags.HasErrors() {
		return Profile{}, fmt.Errorf("failed to parse profile %s: %w", name, diags)
	}
	return decodeProfile(name, file.Body)
}

func decodeProfile(name string, body hcl.Body) (Profile, error) {
	var raw profileFile
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return Profile{}, fmt.Errorf("failed to decode profile %s: %w", name, diags)
	}

	p := Default()
	if raw.OutputDir != nil {
		p.OutputDir = *raw.OutputDir
	}
	if raw.Reverse != nil {
		p.Reverse = *raw.Reverse
	}
	if raw.Workers != nil {
		p.Workers = *raw.Workers
	}
	if t := raw.Tolerances; t != nil {
		setF(&p.Tolerances.LinkDistance, t.LinkDistance)
		setF(&p.Tolerances.PipeVertical, t.PipeVertical)
		setF(&p.Tolerances.HeightSlack, t.HeightSlack)
		setF(&p.Tolerances.JumpHeight, t.JumpHeight)
		setF(&p.Tolerances.AIMatchDistance, t.AIMatchDistance)
		setF(&p.Tolerances.VertexWeld, t.VertexWeld)
		setF(&p.Tolerances.NormalEpsilon, t.NormalEpsilon)
		setF(&p.Tolerances.PlaneDistance, t.PlaneDistance)
	}
	if g := raw.Geometry; g != nil {
		setF(&p.Geometry.CellSize, g.CellSize)
		setF(&p.Geometry.ElevationStep, g.ElevationStep)
		setF(&p.Geometry.WallHeight, g.WallHeight)
		setF(&p.Geometry.WallSplitSize, g.WallSplitSize)
		setF(&p.Geometry.BigCubeSize, g.BigCubeSize)
		setF(&p.Geometry.LookupCellSize, g.LookupCellSize)
		setF(&p.Geometry.LookupFudge, g.LookupFudge)
		if g.PageSize != nil {
			p.Geometry.PageSize = *g.PageSize
		}
	}
	if len(raw.Variants) > 0 {
		p.Variants = p.Variants[:0]
		for _, v := range raw.Variants {
			p.Variants = append(p.Variants, Variant{Name: v.Name, Scale: float32(v.Scale)})
		}
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	return p, nil
}

func setF(dst *float32, v *float64) {
	if v != nil {
		*dst = float32(*v)
	}
}

// Validate rejects profiles the compiler cannot run with.
func (p Profile) Validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	if len(p.Variants) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	seen := make(map[string]bool)
	for _, v := range p.Variants {
		if v.Scale <= 0 {
			return fmt.Errorf("variant %q: scale must be positive", v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("variant %q declared twice", v.Name)
		}
		seen[v.Name] = true
	}
	g := p.Geometry
	if g.CellSize <= 0 || g.WallSplitSize <= 0 || g.BigCubeSize <= 0 || g.LookupCellSize <= 0 {
		return fmt.Errorf("geometry sizes must be positive")
	}
	if g.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}
	return nil
}

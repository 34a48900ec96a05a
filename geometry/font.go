package geometry

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font draws glyph outlines into a ShapePath at a given size in scene units.
type Font interface {
	Name() string
	// Glyph draws r with its origin at (x, y) and returns the advance.
	Glyph(sp *ShapePath, r rune, size, x, y float32) (advance float32, ok bool)
	LineHeight(size float32) float32
}

type typefaceGlyph struct {
	Ha float32 `json:"ha"`
	O  string  `json:"o"`
}

// TypefaceFont is a JSON typeface descriptor, the format produced by facetype.js.
type TypefaceFont struct {
	FamilyName  string                   `json:"familyName"`
	Resolution  float32                  `json:"resolution"`
	Glyphs      map[string]typefaceGlyph `json:"glyphs"`
	BoundingBox struct {
		XMin float32 `json:"xMin"`
		XMax float32 `json:"xMax"`
		YMin float32 `json:"yMin"`
		YMax float32 `json:"yMax"`
	} `json:"boundingBox"`
	UnderlineThickness float32 `json:"underlineThickness"`
}

func ParseTypeface(data []byte) (*TypefaceFont, error) {
	var f TypefaceFont
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal typeface")
	}
	if len(f.Glyphs) == 0 {
		return nil, errors.Errorf("typeface %q has no glyphs", f.FamilyName)
	}
	if f.Resolution == 0 {
		f.Resolution = 1000
	}
	return &f, nil
}

func (f *TypefaceFont) Name() string { return f.FamilyName }

func (f *TypefaceFont) LineHeight(size float32) float32 {
	return (f.BoundingBox.YMax - f.BoundingBox.YMin + f.UnderlineThickness) * size / f.Resolution
}

func (f *TypefaceFont) Glyph(sp *ShapePath, r rune, size, x, y float32) (float32, bool) {
	g, ok := f.Glyphs[string(r)]
	if !ok {
		if g, ok = f.Glyphs["?"]; !ok {
			return 0, false
		}
	}
	scale := size / f.Resolution

	ops := strings.Fields(g.O)
	num := func(i *int) float32 {
		if *i >= len(ops) {
			return 0
		}
		v, _ := strconv.ParseFloat(ops[*i], 32)
		*i++
		return float32(v)
	}

	for i := 0; i < len(ops); {
		op := ops[i]
		i++
		switch op {
		case "m":
			px, py := num(&i), num(&i)
			sp.MoveTo(px*scale+x, py*scale+y)
		case "l":
			px, py := num(&i), num(&i)
			sp.LineTo(px*scale+x, py*scale+y)
		case "q":
			px, py := num(&i), num(&i)
			cx, cy := num(&i), num(&i)
			sp.QuadTo(cx*scale+x, cy*scale+y, px*scale+x, py*scale+y)
		case "b":
			px, py := num(&i), num(&i)
			c1x, c1y := num(&i), num(&i)
			c2x, c2y := num(&i), num(&i)
			sp.CubicTo(c1x*scale+x, c1y*scale+y, c2x*scale+x, c2y*scale+y, px*scale+x, py*scale+y)
		case "z":
			sp.Close()
		}
	}
	sp.Close()
	return g.Ha * scale, true
}

// SFNTFont reads TrueType and OpenType outlines. Not safe for concurrent use.
type SFNTFont struct {
	font   *sfnt.Font
	buffer sfnt.Buffer
	name   string
}

func ParseSFNT(data []byte) (*SFNTFont, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse font")
	}
	sf := &SFNTFont{font: f}
	if name, err := f.Name(&sf.buffer, sfnt.NameIDFamily); err == nil {
		sf.name = name
	}
	return sf, nil
}

func (f *SFNTFont) Name() string { return f.name }

func toPpem(size float32) fixed.Int26_6 {
	return fixed.Int26_6(size * 64)
}

func (f *SFNTFont) LineHeight(size float32) float32 {
	m, err := f.font.Metrics(&f.buffer, toPpem(size), font.HintingNone)
	if err != nil {
		return size
	}
	return float32(m.Height) / 64
}

func (f *SFNTFont) Glyph(sp *ShapePath, r rune, size, x, y float32) (float32, bool) {
	gi, err := f.font.GlyphIndex(&f.buffer, r)
	if err != nil || gi == 0 {
		if gi, err = f.font.GlyphIndex(&f.buffer, '?'); err != nil || gi == 0 {
			return 0, false
		}
	}
	ppem := toPpem(size)
	segments, err := f.font.LoadGlyph(&f.buffer, gi, ppem, nil)
	if err != nil {
		return 0, false
	}

	// sfnt y grows downwards
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 + x, -float32(p.Y)/64 + y
	}
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			sp.MoveTo(pt(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			sp.LineTo(pt(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(seg.Args[0])
			px, py := pt(seg.Args[1])
			sp.QuadTo(cx, cy, px, py)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := pt(seg.Args[0])
			c2x, c2y := pt(seg.Args[1])
			px, py := pt(seg.Args[2])
			sp.CubicTo(c1x, c1y, c2x, c2y, px, py)
		}
	}
	sp.Close()

	advance, err := f.font.GlyphAdvance(&f.buffer, gi, ppem, font.HintingNone)
	if err != nil {
		return 0, true
	}
	return float32(advance) / 64, true
}

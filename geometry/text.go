package geometry

import (
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/mogaika/gamestop/r3d"
)

type TextOptions struct {
	Size          float32
	Height        float32
	CurveSegments int

	BevelEnabled   bool
	BevelThickness float32
	BevelSize      float32
	BevelOffset    float32
	BevelSegments  int
}

// GenerateShapes lays out text left to right starting at the origin.
// Newlines start a new line below the previous one.
func GenerateShapes(f Font, text string, size float32, curveSegments int) []Shape {
	sp := NewShapePath(curveSegments)
	lineHeight := f.LineHeight(size)

	var x, y float32
	for _, r := range norm.NFC.String(text) {
		if r == '\n' {
			x = 0
			y -= lineHeight
			continue
		}
		if advance, ok := f.Glyph(sp, r, size, x, y); ok {
			x += advance
		}
	}
	return sp.ToShapes()
}

func TextGeometry(f Font, text string, opts TextOptions) (*r3d.Geometry, error) {
	if f == nil {
		return nil, errors.New("no font")
	}
	shapes := GenerateShapes(f, text, opts.Size, opts.CurveSegments)
	if len(shapes) == 0 {
		return nil, errors.Errorf("font %q produced no outlines for %q", f.Name(), text)
	}
	return Extrude(shapes, ExtrudeOptions{
		Depth:          opts.Height,
		BevelEnabled:   opts.BevelEnabled,
		BevelThickness: opts.BevelThickness,
		BevelSize:      opts.BevelSize,
		BevelOffset:    opts.BevelOffset,
		BevelSegments:  opts.BevelSegments,
	}), nil
}

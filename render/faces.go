package render

import (
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"certledger.dev/certledger/model"
)

// FaceResolver maps a template's (fontFamily, fontSize) to a drawable face.
type FaceResolver interface {
	Resolve(family string, size float64) (font.Face, error)
}

// BuiltinFaces resolves every family to the built-in fixed face. Sizes
// are ignored (the face is fixed-metric), which keeps rendering fully
// self-contained for tests and environments without font files.
type BuiltinFaces struct{}

func (BuiltinFaces) Resolve(string, float64) (font.Face, error) {
	return basicfont.Face7x13, nil
}

// DirFaces loads TrueType faces from <dir>/<family>.ttf, caching parsed
// fonts per family. Unknown families resolve with an error so callers can
// choose their fallback.
type DirFaces struct {
	Dir string

	fonts map[string]*truetype.Font
}

func NewDirFaces(dir string) *DirFaces {
	return &DirFaces{Dir: dir, fonts: make(map[string]*truetype.Font)}
}

func (d *DirFaces) Resolve(family string, size float64) (font.Face, error) {
	if d.fonts == nil {
		d.fonts = make(map[string]*truetype.Font)
	}
	f, ok := d.fonts[family]
	if !ok {
		b, err := os.ReadFile(filepath.Join(d.Dir, family+".ttf"))
		if err != nil {
			return nil, model.WrapError(model.KindRender, "CERT-REN-003", "unknown font family "+family, err)
		}
		f, err = truetype.Parse(b)
		if err != nil {
			return nil, model.WrapError(model.KindRender, "CERT-REN-003", "cannot parse font "+family, err)
		}
		d.fonts[family] = f
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// Package render produces certificate artifacts by overlaying recipient
// data onto a template background image.
//
// Rendering is deterministic: the same (template, record, background) input
// always yields byte-identical PNG output. There is no external dependency
// beyond decoding the provided background, so the renderer defines no retry
// behavior.
package render

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	_ "image/jpeg" // background decode

	"github.com/fogleman/gg"

	"certledger.dev/certledger/model"
)

// Renderer draws recipient values over a template background.
type Renderer struct {
	faces FaceResolver
}

// New returns a Renderer resolving font faces through faces. A nil resolver
// falls back to the built-in fixed face for every family.
func New(faces FaceResolver) *Renderer {
	if faces == nil {
		faces = BuiltinFaces{}
	}
	return &Renderer{faces: faces}
}

// Render rasterizes one certificate.
//
// The canvas is (cfg.Width, cfg.Height), defaulting to 800x600; the
// background is drawn stretched to fill the canvas; each configured field
// draws the record value as text at (Left, Top+FontSize), where the
// one-font-size baseline offset emulates top-anchored text. Missing record values draw
// nothing but the field still holds its position.
func (r *Renderer) Render(background []byte, cfg model.TemplateConfig, rec model.RecipientRecord) ([]byte, error) {
	bg, _, err := image.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, model.WrapError(model.KindRender, "CERT-REN-001", "cannot decode template background", err)
	}

	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = model.DefaultTemplateWidth
	}
	if height <= 0 {
		height = model.DefaultTemplateHeight
	}

	dc := gg.NewContext(width, height)

	bounds := bg.Bounds()
	dc.Scale(
		float64(width)/float64(bounds.Dx()),
		float64(height)/float64(bounds.Dy()),
	)
	dc.DrawImage(bg, 0, 0)
	dc.Identity()

	// Canonical field order keeps output stable regardless of map order.
	for _, key := range model.FieldKeys {
		style, ok := cfg.Fields[key]
		if !ok {
			continue
		}
		value := key.Value(rec)
		if value == "" {
			continue
		}
		face, ferr := r.faces.Resolve(style.FontFamily, style.FontSize)
		if ferr != nil {
			// Unknown families fall back so a cosmetic font gap never
			// blocks issuance.
			face, _ = BuiltinFaces{}.Resolve(style.FontFamily, style.FontSize)
		}
		dc.SetFontFace(face)
		dc.SetHexColor(style.FillColor)
		dc.DrawString(value, style.Left, style.Top+style.FontSize)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, model.WrapError(model.KindRender, "CERT-REN-002", "cannot encode artifact", err)
	}
	return buf.Bytes(), nil
}

// ArtifactName is the display/file name for one recipient's artifact,
// matching the pinning metadata convention.
func ArtifactName(studentName string) string {
	return "certificate_" + strings.ReplaceAll(studentName, " ", "_") + ".png"
}

package printer

import (
	"context"

	"github.com/luno/sepadoc"
)

const (
	fallbackWidth  = 594.72
	fallbackHeight = 280.8
	pointsPerCM    = 72 / 2.54
)

// PageConfig is the configured page size in centimetres. Zero values select the fallback size.
type PageConfig struct {
	WidthCM  float64
	HeightCM float64
}

// Size returns the page size in points.
func (pc PageConfig) Size() (float64, float64) {
	if pc.WidthCM > 0 && pc.HeightCM > 0 {
		return pc.WidthCM * pointsPerCM, pc.HeightCM * pointsPerCM
	}

	return fallbackWidth, fallbackHeight
}

// pageConfig reads pdf.width and pdf.height. Malformed values are logged and ignored.
func pageConfig(ctx context.Context, s *sepadoc.Settings, log sepadoc.Logger) PageConfig {
	var pc PageConfig
	for key, dst := range map[string]*float64{
		sepadoc.KeyPDFWidth:  &pc.WidthCM,
		sepadoc.KeyPDFHeight: &pc.HeightCM,
	} {
		if _, ok := s.Lookup(key); !ok {
			continue
		}

		f, err := s.Float(key)
		if err != nil {
			log.Warn(ctx, err.Error(), sepadoc.MKV{"key": key})
			continue
		}

		*dst = f
	}

	return pc
}

// centre returns the offset placing content of size cw x ch in the middle of a pw x ph page.
func centre(pw, ph, cw, ch float64) (float64, float64) {
	return (pw - cw) / 2, (ph - ch) / 2
}

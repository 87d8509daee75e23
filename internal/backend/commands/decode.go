package commands

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxDecodePixels bounds the decoded canvas. Larger images are rejected
// before any pixel buffer is allocated.
const MaxDecodePixels = 64 * 1000 * 1000

// decodeImage decodes raster formats registered with the image package and
// rasterizes SVG documents. The returned string names the detected format.
func decodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}

	if isSVGData(data) {
		img, err := rasterizeSVG(data, svgFallbackWidth, svgFallbackHeight)
		if err != nil {
			return nil, "svg", err
		}
		return img, "svg", nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodePixels {
		return nil, format, fmt.Errorf("image of %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxDecodePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, err
	}
	return img, format, nil
}

// DecodeDimensions reports the pixel size of an encoded image without decoding its pixels
func DecodeDimensions(data []byte) (int, int, error) {
	if isSVGData(data) {
		if w, h, ok := parseSvgExplicitSize(data); ok {
			return w, h, nil
		}
		return svgFallbackWidth, svgFallbackHeight, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

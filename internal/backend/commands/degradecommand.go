package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/jo-hoe/imageroulette/internal/backend/commandstructure"
)

// MimeJPEG is the content type of everything a DegradeCommand produces
const MimeJPEG = "image/jpeg"

// DegradeParams represents typed parameters for a single degradation pass.
// A zero MaxWidth or MaxHeight disables resizing, a zero BlurSigma disables blur.
type DegradeParams struct {
	MaxWidth  int
	MaxHeight int
	BlurSigma float64
	Quality   int
}

// DegradeCommand decodes an image, fits it into a bounding box, blurs it and
// re-encodes it as a lossy JPEG
type DegradeCommand struct {
	name   string
	params DegradeParams
}

// NewDegradeCommand creates a new degrade command from concrete typed parameters
func NewDegradeCommand(name string, params DegradeParams) (*DegradeCommand, error) {
	if params.Quality < 1 || params.Quality > 100 {
		return nil, fmt.Errorf("quality must be within [1,100], got %d", params.Quality)
	}
	if params.MaxWidth < 0 || params.MaxHeight < 0 {
		return nil, fmt.Errorf("bounding box must not be negative, got %dx%d", params.MaxWidth, params.MaxHeight)
	}
	if params.BlurSigma < 0 {
		return nil, fmt.Errorf("blur sigma must not be negative, got %f", params.BlurSigma)
	}
	if name == "" {
		name = "DegradeCommand"
	}

	return &DegradeCommand{
		name:   name,
		params: params,
	}, nil
}

// MustDegradeCommand is NewDegradeCommand for parameters known at compile time
func MustDegradeCommand(name string, params DegradeParams) *DegradeCommand {
	c, err := NewDegradeCommand(name, params)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the command name
func (c *DegradeCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *DegradeCommand) GetParams() DegradeParams {
	return c.params
}

// Execute runs one degradation pass
func (c *DegradeCommand) Execute(imageData []byte) ([]byte, error) {
	img, format, err := decodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("DegradeCommand: decoded image",
		"command", c.name,
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy())

	var out image.Image = img
	if c.params.MaxWidth > 0 && c.params.MaxHeight > 0 {
		// Fit never upscales: images already inside the box are left as they are
		out = imaging.Fit(out, c.params.MaxWidth, c.params.MaxHeight, imaging.CatmullRom)
	}
	if c.params.BlurSigma > 0 {
		out = imaging.Blur(out, c.params.BlurSigma)
	}

	encoded, err := encodeJPEG(flatten(out), c.params.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	slog.Debug("DegradeCommand: pass complete",
		"command", c.name,
		"out_width", out.Bounds().Dx(),
		"out_height", out.Bounds().Dy(),
		"quality", c.params.Quality,
		"input_size_bytes", len(imageData),
		"output_size_bytes", len(encoded))

	return encoded, nil
}

// flatten composites the image onto an opaque white canvas; JPEG has no alpha
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: a quarter byte per pixel at the qualities used here
	buf.Grow(bb.Dx() * bb.Dy() / 4)
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ commandstructure.Command = (*DegradeCommand)(nil)

package degradation

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/jo-hoe/imageroulette/internal/backend/commands"
	"github.com/jo-hoe/imageroulette/internal/backend/commandstructure"
)

func newTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7 % 256), G: uint8(y * 3 % 256), B: uint8((x ^ y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func jpegBounds(t *testing.T, data []byte) image.Rectangle {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid JPEG: %v", err)
	}
	return img.Bounds()
}

func TestHeavyPassParams(t *testing.T) {
	tests := []struct {
		pass     int
		expected commands.DegradeParams
	}{
		{pass: 0, expected: commands.DegradeParams{MaxWidth: 600, MaxHeight: 450, BlurSigma: 0.3, Quality: 50}},
		{pass: 1, expected: commands.DegradeParams{MaxWidth: 500, MaxHeight: 375, BlurSigma: 0.5, Quality: 40}},
		{pass: 2, expected: commands.DegradeParams{MaxWidth: 400, MaxHeight: 300, BlurSigma: 0.7, Quality: 30}},
		{pass: 5, expected: commands.DegradeParams{MaxWidth: 200, MaxHeight: 150, BlurSigma: 1.3, Quality: 30}},
	}

	for _, tt := range tests {
		got := HeavyPassParams(tt.pass)
		if got.MaxWidth != tt.expected.MaxWidth || got.MaxHeight != tt.expected.MaxHeight || got.Quality != tt.expected.Quality {
			t.Errorf("pass %d: got %+v, want %+v", tt.pass, got, tt.expected)
		}
		if diff := got.BlurSigma - tt.expected.BlurSigma; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("pass %d: blur = %v, want %v", tt.pass, got.BlurSigma, tt.expected.BlurSigma)
		}
	}
}

func TestEngine_LuckySurvivorIsIdentity(t *testing.T) {
	data := []byte("not even an image")
	result := NewEngine().Degrade(data, "image/png", LuckySurvivor)

	if !bytes.Equal(result.Data, data) || result.ContentType != "image/png" {
		t.Errorf("Expected identity, got %q (%s)", result.Data, result.ContentType)
	}
	if result.Path != PathIdentity {
		t.Errorf("Expected path %s, got %s", PathIdentity, result.Path)
	}
}

func TestEngine_UnknownTierIsIdentity(t *testing.T) {
	data := newTestPNG(t, 10, 10)
	result := NewEngine().Degrade(data, "image/png", Unknown)
	if !bytes.Equal(result.Data, data) {
		t.Error("Expected unknown tier to leave the image untouched")
	}
}

func TestEngine_MediumFitsBox(t *testing.T) {
	data := newTestPNG(t, 1600, 800)
	result := NewEngine().Degrade(data, "image/png", NormalShit)

	if result.ContentType != commands.MimeJPEG {
		t.Fatalf("Expected %s, got %s", commands.MimeJPEG, result.ContentType)
	}
	if result.Path != PathMedium {
		t.Errorf("Expected path %s, got %s", PathMedium, result.Path)
	}
	b := jpegBounds(t, result.Data)
	if b.Dx() != 800 || b.Dy() != 400 {
		t.Errorf("Expected 800x400, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEngine_HeavyFitsFinalBox(t *testing.T) {
	data := newTestPNG(t, 1200, 900)
	result := NewEngine().Degrade(data, "image/png", ExtremeNuclear)

	if result.Path != PathHeavy {
		t.Fatalf("Expected path %s, got %s", PathHeavy, result.Path)
	}
	b := jpegBounds(t, result.Data)
	if b.Dx() > 400 || b.Dy() > 300 {
		t.Errorf("Expected at most 400x300, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEngine_HeavyLargeImage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 5000x5000 degradation in short mode")
	}

	data := newTestPNG(t, 5000, 5000)
	result := NewEngine().Degrade(data, "image/png", ExtremeNuclear)

	if result.ContentType != commands.MimeJPEG {
		t.Fatalf("Expected %s, got %s", commands.MimeJPEG, result.ContentType)
	}
	b := jpegBounds(t, result.Data)
	if b.Dx() > 400 || b.Dy() > 300 {
		t.Errorf("Expected at most 400x300, got %dx%d", b.Dx(), b.Dy())
	}
	if len(result.Data) >= len(data) {
		t.Errorf("Expected output smaller than input, got %d >= %d", len(result.Data), len(data))
	}
}

func TestEngine_HeavyIsSmallerThanMedium(t *testing.T) {
	data := newTestPNG(t, 1000, 750)
	engine := NewEngine()

	heavy := engine.Degrade(data, "image/png", ExtremeNuclear)
	medium := engine.Degrade(data, "image/png", NormalShit)

	if len(heavy.Data) >= len(medium.Data) {
		t.Errorf("Expected heavy output (%d bytes) smaller than medium output (%d bytes)", len(heavy.Data), len(medium.Data))
	}
}

func TestHeavyPasses_SizeNonIncreasing(t *testing.T) {
	data := newTestPNG(t, 2000, 1500)

	var previous int
	for p := 0; p < HeavyPasses; p++ {
		out, err := commands.MustDegradeCommand("heavy-pass", HeavyPassParams(p)).Execute(data)
		if err != nil {
			t.Fatalf("pass %d failed: %v", p, err)
		}
		// the first pass may grow a small, well compressed input
		if p > 0 && len(out) > previous {
			t.Errorf("pass %d grew the output from %d to %d bytes", p, previous, len(out))
		}
		previous = len(out)
		data = out
	}
}

func TestEngine_HeavyFailureEqualsMedium(t *testing.T) {
	mediumOut := []byte("medium-output")
	heavy := commandstructure.NewMockCommandWithError("heavy", errors.New("decoder exploded"))
	medium := &commandstructure.MockCommand{
		CommandName: "medium",
		ExecuteFunc: func([]byte) ([]byte, error) { return mediumOut, nil },
	}
	minimal := commandstructure.NewMockCommand("minimal")
	engine := NewEngineWithCommands(heavy, medium, minimal)

	input := []byte("input")
	fromHeavy := engine.Degrade(input, "image/webp", ExtremeNuclear)
	fromMedium := engine.Degrade(input, "image/webp", NormalShit)

	if !bytes.Equal(fromHeavy.Data, fromMedium.Data) || fromHeavy.ContentType != fromMedium.ContentType {
		t.Errorf("Expected heavy fallback to equal medium result, got %q vs %q", fromHeavy.Data, fromMedium.Data)
	}
	if fromHeavy.Path != PathMedium {
		t.Errorf("Expected path %s, got %s", PathMedium, fromHeavy.Path)
	}
	if minimal.Calls != 0 {
		t.Errorf("Expected minimal routine not to run, ran %d times", minimal.Calls)
	}
}

func TestEngine_MediumFailureFallsBackToMinimal(t *testing.T) {
	engine := NewEngineWithCommands(
		commandstructure.NewMockCommand("heavy"),
		commandstructure.NewMockCommandWithError("medium", errors.New("boom")),
		&commandstructure.MockCommand{
			CommandName: "minimal",
			ExecuteFunc: func([]byte) ([]byte, error) { return []byte("reencoded"), nil },
		},
	)

	result := engine.Degrade([]byte("input"), "image/png", NormalShit)
	if string(result.Data) != "reencoded" || result.ContentType != commands.MimeJPEG {
		t.Errorf("Expected minimal re-encode, got %q (%s)", result.Data, result.ContentType)
	}
	if result.Path != PathMinimal {
		t.Errorf("Expected path %s, got %s", PathMinimal, result.Path)
	}
}

func TestEngine_EverythingFailsKeepsInput(t *testing.T) {
	engine := NewEngineWithCommands(
		commandstructure.NewPanickingMockCommand("heavy", "nil map"),
		commandstructure.NewMockCommandWithError("medium", errors.New("boom")),
		commandstructure.NewMockCommandWithError("minimal", errors.New("boom")),
	)

	input := []byte("input")
	result := engine.Degrade(input, "image/gif", ExtremeNuclear)
	if !bytes.Equal(result.Data, input) || result.ContentType != "image/gif" {
		t.Errorf("Expected original bytes and type, got %q (%s)", result.Data, result.ContentType)
	}
	if result.Path != PathFallbackIdentity {
		t.Errorf("Expected path %s, got %s", PathFallbackIdentity, result.Path)
	}
}

func TestEngine_UndecodableInputKeepsOriginal(t *testing.T) {
	input := []byte("definitely not an image")
	result := NewEngine().Degrade(input, "image/png", ExtremeNuclear)

	if !bytes.Equal(result.Data, input) || result.ContentType != "image/png" {
		t.Errorf("Expected original bytes, got %d bytes of %s", len(result.Data), result.ContentType)
	}
}

type recordingObserver struct {
	tier  Tier
	path  Path
	calls int
}

func (r *recordingObserver) ObserveDegradation(tier Tier, path Path, _ time.Duration, _, _ int) {
	r.tier = tier
	r.path = path
	r.calls++
}

func TestPipeline_ProcessUpload(t *testing.T) {
	tests := []struct {
		name     string
		roll     float64
		wantTier Tier
		wantPath Path
		wantType string
	}{
		{name: "nuclear", roll: 10.456, wantTier: ExtremeNuclear, wantPath: PathHeavy, wantType: commands.MimeJPEG},
		{name: "normal", roll: 30, wantTier: NormalShit, wantPath: PathMedium, wantType: commands.MimeJPEG},
		{name: "survivor", roll: 75.5, wantTier: LuckySurvivor, wantPath: PathIdentity, wantType: "image/png"},
	}

	data := newTestPNG(t, 640, 480)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &recordingObserver{}
			pipeline := NewPipeline(NewSelector(FixedRoll(tt.roll)), NewEngine(), observer)

			outcome := pipeline.ProcessUpload(data, "image/png")
			if outcome.Tier != tt.wantTier {
				t.Errorf("tier = %s, want %s", outcome.Tier, tt.wantTier)
			}
			if TierForRoll(outcome.Roll) != outcome.Tier {
				t.Errorf("roll %v does not select tier %s", outcome.Roll, outcome.Tier)
			}
			if outcome.ContentType != tt.wantType {
				t.Errorf("content type = %s, want %s", outcome.ContentType, tt.wantType)
			}
			if outcome.Path != tt.wantPath {
				t.Errorf("path = %s, want %s", outcome.Path, tt.wantPath)
			}
			if observer.calls != 1 || observer.tier != tt.wantTier || observer.path != tt.wantPath {
				t.Errorf("observer saw %d calls (%s, %s)", observer.calls, observer.tier, observer.path)
			}
		})
	}
}

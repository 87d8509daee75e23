package degradation

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/imageroulette/internal/backend/commands"
	"github.com/jo-hoe/imageroulette/internal/backend/commandstructure"
)

// HeavyPasses is the number of compounding passes on the EXTREME_NUCLEAR path
const HeavyPasses = 3

// Path names which routine produced a degradation result
type Path string

const (
	PathIdentity Path = "identity"
	PathHeavy    Path = "heavy"
	PathMedium   Path = "medium"
	PathMinimal  Path = "minimal"
	// PathFallbackIdentity means every routine failed and the input was kept
	PathFallbackIdentity Path = "fallback_identity"
)

// Result is the output of a degradation run
type Result struct {
	Data        []byte
	ContentType string
	Path        Path
}

// Engine transforms image bytes according to a tier. It never fails: the
// heavy chain falls back to the medium routine, which falls back to a minimal
// re-encode and finally to the untouched input.
type Engine struct {
	heavy   commandstructure.Command
	medium  commandstructure.Command
	minimal commandstructure.Command
}

// HeavyPassParams returns the parameters of the 0-indexed heavy pass
func HeavyPassParams(pass int) commands.DegradeParams {
	return commands.DegradeParams{
		MaxWidth:  max(200, 600-100*pass),
		MaxHeight: max(150, 450-75*pass),
		BlurSigma: 0.3 + 0.2*float64(pass),
		Quality:   max(30, 50-10*pass),
	}
}

// MediumParams resize to fit 800x600 and re-encode at quality 70
var MediumParams = commands.DegradeParams{MaxWidth: 800, MaxHeight: 600, Quality: 70}

// MinimalParams re-encode at quality 80 without resizing
var MinimalParams = commands.DegradeParams{Quality: 80}

// NewEngine creates an engine with the fixed degradation parameters
func NewEngine() *Engine {
	passes := make([]commandstructure.Command, 0, HeavyPasses)
	for p := range HeavyPasses {
		passes = append(passes, commands.MustDegradeCommand(fmt.Sprintf("HeavyPass%d", p+1), HeavyPassParams(p)))
	}

	return NewEngineWithCommands(
		commandstructure.NewCommandInvoker("heavy", passes),
		commands.MustDegradeCommand("MediumCompression", MediumParams),
		commands.MustDegradeCommand("MinimalReencode", MinimalParams),
	)
}

// NewEngineWithCommands creates an engine from explicit routines
func NewEngineWithCommands(heavy, medium, minimal commandstructure.Command) *Engine {
	return &Engine{
		heavy:   heavy,
		medium:  medium,
		minimal: minimal,
	}
}

// Degrade applies the routine of the given tier. An Unknown tier is treated
// like LUCKY_SURVIVOR.
func (e *Engine) Degrade(data []byte, contentType string, tier Tier) Result {
	switch tier {
	case ExtremeNuclear:
		return e.degradeHeavy(data, contentType)
	case NormalShit:
		return e.degradeMedium(data, contentType)
	default:
		return Result{Data: data, ContentType: contentType, Path: PathIdentity}
	}
}

func (e *Engine) degradeHeavy(data []byte, contentType string) Result {
	out, err := commandstructure.Run(e.heavy, data)
	if err == nil {
		slog.Info("heavy compression complete",
			"input_size_bytes", len(data),
			"output_size_bytes", len(out))
		return Result{Data: out, ContentType: commands.MimeJPEG, Path: PathHeavy}
	}

	slog.Warn("heavy compression failed, falling back to medium compression",
		"error", err,
		"content_type", contentType,
		"input_size_bytes", len(data))
	return e.degradeMedium(data, contentType)
}

func (e *Engine) degradeMedium(data []byte, contentType string) Result {
	out, err := commandstructure.Run(e.medium, data)
	if err == nil {
		slog.Info("medium compression complete",
			"input_size_bytes", len(data),
			"output_size_bytes", len(out))
		return Result{Data: out, ContentType: commands.MimeJPEG, Path: PathMedium}
	}

	slog.Warn("medium compression failed, trying minimal re-encode",
		"error", err,
		"content_type", contentType,
		"input_size_bytes", len(data))

	out, err = commandstructure.Run(e.minimal, data)
	if err == nil {
		return Result{Data: out, ContentType: commands.MimeJPEG, Path: PathMinimal}
	}

	slog.Warn("minimal re-encode failed, keeping original image",
		"error", err,
		"content_type", contentType,
		"input_size_bytes", len(data))
	return Result{Data: data, ContentType: contentType, Path: PathFallbackIdentity}
}

package degradation

import (
	"log/slog"
	"time"
)

// Outcome is the result of processing one upload
type Outcome struct {
	Tier        Tier
	Roll        float64
	Data        []byte
	ContentType string
	Path        Path
	// Message annotates shamed uploads; the pipeline itself leaves it empty
	Message string
}

// Observer is notified about every processed upload
type Observer interface {
	ObserveDegradation(tier Tier, path Path, duration time.Duration, inputBytes, outputBytes int)
}

// Pipeline draws a tier for an upload and degrades it accordingly
type Pipeline struct {
	selector *Selector
	engine   *Engine
	observer Observer
}

// NewPipeline creates a pipeline; observer may be nil
func NewPipeline(selector *Selector, engine *Engine, observer Observer) *Pipeline {
	if selector == nil {
		selector = NewSelector(nil)
	}
	if engine == nil {
		engine = NewEngine()
	}
	return &Pipeline{
		selector: selector,
		engine:   engine,
		observer: observer,
	}
}

// ProcessUpload selects a tier and applies it. It never fails; the worst case
// is the original bytes with the original content type.
func (p *Pipeline) ProcessUpload(data []byte, contentType string) Outcome {
	start := time.Now()
	tier, roll := p.selector.Select()

	slog.Info("processing upload",
		"tier", tier,
		"roll", roll,
		"content_type", contentType,
		"input_size_bytes", len(data))

	result := p.engine.Degrade(data, contentType, tier)
	duration := time.Since(start)

	if p.observer != nil {
		p.observer.ObserveDegradation(tier, result.Path, duration, len(data), len(result.Data))
	}

	slog.Info("upload processed",
		"tier", tier,
		"path", result.Path,
		"duration_ms", duration.Milliseconds(),
		"content_type", result.ContentType,
		"output_size_bytes", len(result.Data))

	return Outcome{
		Tier:        tier,
		Roll:        roll,
		Data:        result.Data,
		ContentType: result.ContentType,
		Path:        result.Path,
	}
}

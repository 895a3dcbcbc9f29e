// Package segment provides background removal engines. Each engine takes an
// image and returns a same-sized NRGBA copy whose background pixels are
// transparent.
package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNoSubject is returned when an engine classifies every pixel as
// background.
var ErrNoSubject = errors.New("segment: no foreground subject found")

// Remover is the capability the optimizer depends on.
type Remover interface {
	RemoveBackground(ctx context.Context, img image.Image) (image.Image, error)
}

const (
	EngineFlood   = "flood"
	EngineCommand = "command"
)

// Config selects and tunes an engine.
type Config struct {
	Engine    string
	Tolerance float64
	Feather   float32
	Command   []string
}

// New builds the engine named by cfg.Engine.
func New(cfg Config) (Remover, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineFlood:
		return NewFlood(FloodOptions{Tolerance: cfg.Tolerance, Feather: cfg.Feather}), nil
	case EngineCommand:
		return NewCommand(cfg.Command)
	default:
		return nil, fmt.Errorf("segment: unknown engine %q", cfg.Engine)
	}
}

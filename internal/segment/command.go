package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	inputPlaceholder  = "{input}"
	outputPlaceholder = "{output}"
)

// Command delegates background removal to an external program such as
// `rembg i {input} {output}`. The program reads a PNG at {input} and must
// write a PNG with transparency at {output}.
type Command struct {
	args []string
}

func NewCommand(args []string) (*Command, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, errors.New("segment: command engine requires a command")
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, inputPlaceholder) || !strings.Contains(joined, outputPlaceholder) {
		return nil, fmt.Errorf("segment: command must reference %s and %s", inputPlaceholder, outputPlaceholder)
	}
	return &Command{args: append([]string(nil), args...)}, nil
}

func (c *Command) RemoveBackground(ctx context.Context, img image.Image) (image.Image, error) {
	dir, err := os.MkdirTemp("", "emojify-segment-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input.png")
	outPath := filepath.Join(dir, "output.png")
	if err := imaging.Save(img, inPath); err != nil {
		return nil, fmt.Errorf("segment: write input: %w", err)
	}

	args := make([]string, len(c.args))
	for i, arg := range c.args {
		arg = strings.ReplaceAll(arg, inputPlaceholder, inPath)
		args[i] = strings.ReplaceAll(arg, outputPlaceholder, outPath)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("segment: %s failed: %w, output: %s", args[0], err, strings.TrimSpace(string(output)))
	}

	result, err := imaging.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("segment: read output: %w", err)
	}

	want := img.Bounds()
	if got := result.Bounds(); got.Dx() != want.Dx() || got.Dy() != want.Dy() {
		result = imaging.Resize(result, want.Dx(), want.Dy(), imaging.Lanczos)
	}
	return result, nil
}

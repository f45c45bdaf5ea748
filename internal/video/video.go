package video

import (
	"context"
	"fmt"
	"os/exec"
)

// Renderer turns a generated scene script into a video file.
type Renderer interface {
	Render(ctx context.Context, scriptPath string) error
}

// BlenderRenderer runs Blender headless on the script and renders the
// whole animation with the settings the script wrote into the scene.
type BlenderRenderer struct {
	Path string
}

func (r *BlenderRenderer) Render(ctx context.Context, scriptPath string) error {
	cmd := exec.CommandContext(ctx, r.Path, BuildRenderArgs(scriptPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("blender render error: %v, output: %s", err, string(out))
	}
	return nil
}

// BuildRenderArgs: background mode, run the script, render the animation.
func BuildRenderArgs(scriptPath string) []string {
	return []string{"-b", "-P", scriptPath, "-a"}
}

// ManualCommand is the command line printed when no Blender was found.
func ManualCommand(scriptPath string) string {
	return fmt.Sprintf("blender -b -P %s -a", scriptPath)
}

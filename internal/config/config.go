package config

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	ModeWalker = "walker"
	ModeWave   = "wave"
)

type Config struct {
	Mode string `yaml:"mode"` // walker, wave

	// Фиксированные параметры анимации
	TotalFrames   int     `yaml:"total_frames"`
	FrameRate     int     `yaml:"frame_rate"`
	ForwardSpeed  float64 `yaml:"forward_speed"`  // единиц за кадр вдоль оси движения
	GaitFrequency float64 `yaml:"gait_frequency"` // радиан за кадр

	BPM    float64 `yaml:"bpm"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`

	Workers      int    `yaml:"workers"`
	ScriptPath   string `yaml:"script_path"`
	RenderOutput string `yaml:"render_output"` // путь в формате Blender ("//" = рядом со скриптом)
	AudioPath    string `yaml:"audio_path"`
	SkipAudio    bool   `yaml:"skip_audio"`
	BlenderPath  string `yaml:"blender_path"`
	SkipRender   bool   `yaml:"skip_render"`
	DumpPath     string `yaml:"dump_path"`   // "auto" = output/scene_<время>.yaml
	SceneInput   string `yaml:"scene_input"` // готовая сцена вместо расчета
	SlatePath    string `yaml:"slate_path"`

	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
	RunID        string `yaml:"-"`
}

// Default returns the walker configuration: 30 seconds at 60 fps with a
// 60-frame gait cycle.
func Default() *Config {
	return &Config{
		Mode:          ModeWalker,
		TotalFrames:   1800,
		FrameRate:     60,
		ForwardSpeed:  0.1,
		GaitFrequency: 2 * math.Pi / 60,
		BPM:           120,
		Width:         1280,
		Height:        720,
		Workers:       runtime.NumCPU(),
		ScriptPath:    "generated_script.py",
		RenderOutput:  "//render_output",
		AudioPath:     "beat.wav",
	}
}

// Load overlays the YAML file at path on top of cfg.
// Fields absent from the file keep their current values.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeWalker, ModeWave:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	if c.TotalFrames < 0 {
		return fmt.Errorf("config: total_frames must be >= 0, got %d", c.TotalFrames)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("config: frame_rate must be > 0, got %d", c.FrameRate)
	}
	if !finite(c.ForwardSpeed) {
		return fmt.Errorf("config: forward_speed must be finite, got %f", c.ForwardSpeed)
	}
	if !finite(c.GaitFrequency) || c.GaitFrequency <= 0 {
		return fmt.Errorf("config: gait_frequency must be > 0, got %f", c.GaitFrequency)
	}
	if !finite(c.BPM) || c.BPM < 0 {
		return fmt.Errorf("config: bpm must be >= 0, got %f", c.BPM)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// Duration is the timeline length in seconds.
func (c *Config) Duration() float64 {
	return float64(c.TotalFrames) / float64(c.FrameRate)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

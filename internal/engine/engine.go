package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/rig2video/internal/audio"
	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/director"
	"github.com/ivlev/rig2video/internal/renderer"
	"github.com/ivlev/rig2video/internal/slate"
	"github.com/ivlev/rig2video/internal/system"
	"github.com/ivlev/rig2video/internal/video"
)

const autoDump = "auto"

type Project struct {
	Config *config.Config
	// Renderer по умолчанию ищется через system.FindBlender
	Renderer     video.Renderer
	Audio        *audio.Generator
	BenchmarkLog string
	DumpDir      string
}

func NewProject(cfg *config.Config) *Project {
	return &Project{
		Config:       cfg,
		Audio:        &audio.Generator{},
		BenchmarkLog: "benchmark.log",
		DumpDir:      "output",
	}
}

// Timings по этапам для отчета о производительности.
type Timings struct {
	Sequence time.Duration
	Emit     time.Duration
	Audio    time.Duration
	Render   time.Duration
	Total    time.Duration
}

func (p *Project) Run(ctx context.Context) error {
	startTime := time.Now()
	var t Timings

	if err := p.Config.Validate(); err != nil {
		return err
	}

	fmt.Println("--- [PROJECT: RIG2VIDEO] ---")
	fmt.Printf("[*] Режим: %s | Кадров: %d @ %d FPS | Запуск: %s\n", p.Config.Mode, p.Config.TotalFrames, p.Config.FrameRate, p.Config.RunID)
	fmt.Println("-----------------------------")

	// 1. Сцена
	stageStart := time.Now()
	scene, err := p.buildScene(ctx)
	if err != nil {
		return fmt.Errorf("ошибка построения сцены: %w", err)
	}
	t.Sequence = time.Since(stageStart)
	fmt.Printf("[>] Сцена готова: %d объектов, %d ключей, %.2fs\n", len(scene.Declarations), len(scene.Keyframes)+len(scene.BeatKeyframes), t.Sequence.Seconds())

	if p.Config.DumpPath != "" {
		if err := p.dumpScene(scene); err != nil {
			return fmt.Errorf("ошибка сохранения сцены: %w", err)
		}
	}

	// 2. Скрипт для Blender
	stageStart = time.Now()
	opts := renderer.DefaultOptions()
	opts.RenderOutput = p.Config.RenderOutput
	opts.Width, opts.Height = p.Config.Width, p.Config.Height
	script := renderer.GenerateScript(scene, opts)
	if err := writeFile(p.Config.ScriptPath, []byte(script)); err != nil {
		return fmt.Errorf("ошибка записи скрипта: %w", err)
	}
	t.Emit = time.Since(stageStart)
	fmt.Printf("[+] Скрипт сохранен: %s (%d байт)\n", p.Config.ScriptPath, len(script))

	// 3. Звук
	stageStart = time.Now()
	if scene.Audio != nil && !p.Config.SkipAudio {
		if err := p.prepareAudio(ctx, scene); err != nil {
			return err
		}
	}
	t.Audio = time.Since(stageStart)

	// 4. Карточка запуска
	if p.Config.SlatePath != "" {
		if err := slate.Generate(p.Config.SlatePath, p.manifest(scene)); err != nil {
			log.Printf("[!] Не удалось создать карточку запуска: %v", err)
		} else {
			fmt.Printf("[*] Карточка запуска: %s\n", p.Config.SlatePath)
		}
	}

	// 5. Рендер
	stageStart = time.Now()
	if err := p.render(ctx); err != nil {
		return err
	}
	t.Render = time.Since(stageStart)

	t.Total = time.Since(startTime)
	if p.Config.ShowStats {
		p.report(ctx, scene, t)
	}
	return nil
}

func (p *Project) buildScene(ctx context.Context) (*director.Scene, error) {
	if p.Config.SceneInput != "" {
		scene, err := director.ReadScene(p.Config.SceneInput)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Используется сцена: %s\n", p.Config.SceneInput)
		return scene, nil
	}

	if p.Config.Mode == config.ModeWave {
		return director.EmitWave(p.Config)
	}

	cfg := *p.Config
	if cfg.AudioPath != "" {
		// Blender разрешает относительные пути от .blend, а не от рабочей папки
		abs, err := filepath.Abs(cfg.AudioPath)
		if err != nil {
			return nil, err
		}
		cfg.AudioPath = abs
	}
	return director.NewDirector(&cfg).Sequence(ctx)
}

func (p *Project) dumpScene(scene *director.Scene) error {
	path := p.Config.DumpPath
	if path == autoDump {
		path = dumpFileName(p.DumpDir, time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := director.WriteScene(scene, path); err != nil {
		return err
	}
	fmt.Printf("[*] Сцена сохранена: %s\n", path)
	return nil
}

func (p *Project) prepareAudio(ctx context.Context, scene *director.Scene) error {
	seconds := float64(scene.FrameEnd) / float64(scene.FrameRate)
	if seconds <= 0 {
		log.Printf("[!] Пустая шкала времени, звук не создается")
		return nil
	}

	path := scene.Audio.Path
	if err := p.Audio.Generate(ctx, path, seconds, p.Config.BPM); err != nil {
		return fmt.Errorf("ошибка генерации звука: %w", err)
	}
	fmt.Printf("[*] Звук: %s (%.2fs, %.0f BPM)\n", path, seconds, p.Config.BPM)

	actual, err := p.Audio.Probe(ctx, path)
	if err != nil {
		log.Printf("[!] Не удалось получить длительность аудио: %v", err)
		return nil
	}
	if err := audio.CheckConsistency(actual, scene.FrameRate, scene.FrameEnd); err != nil {
		log.Printf("[!] %v", err)
	}
	return nil
}

func (p *Project) render(ctx context.Context) error {
	if p.Config.SkipRender {
		fmt.Printf("[*] Рендер пропущен. Запуск вручную: %s\n", video.ManualCommand(p.Config.ScriptPath))
		return nil
	}

	r := p.Renderer
	if r == nil {
		path, err := system.FindBlender(ctx, p.Config.BlenderPath, system.DefaultBlenderCandidates)
		if errors.Is(err, system.ErrBlenderNotFound) {
			log.Printf("[!] %v", err)
			fmt.Printf("[!] Установите Blender или запустите вручную: %s\n", video.ManualCommand(p.Config.ScriptPath))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("[*] Найден Blender: %s\n", path)
		r = &video.BlenderRenderer{Path: path}
	}

	fmt.Println("[*] Рендер анимации в Blender...")
	if err := r.Render(ctx, p.Config.ScriptPath); err != nil {
		return fmt.Errorf("ошибка рендера: %w", err)
	}
	fmt.Printf("[+++] Успех! Видео: %s\n", p.Config.RenderOutput)
	return nil
}

func (p *Project) manifest(scene *director.Scene) slate.Manifest {
	return slate.Manifest{
		RunID:       p.Config.RunID,
		Mode:        scene.Mode,
		TotalFrames: scene.FrameEnd,
		FrameRate:   scene.FrameRate,
		Duration:    float64(scene.FrameEnd) / float64(scene.FrameRate),
		Script:      p.Config.ScriptPath,
		Output:      p.Config.RenderOutput,
		Build:       p.Config.BuildVersion,
		Created:     time.Now().Format("2006-01-02 15:04:05"),
	}
}

func (p *Project) report(ctx context.Context, scene *director.Scene, t Timings) {
	host := system.CollectHostStats(ctx)
	frames := scene.FrameEnd + 1
	fps := float64(frames) / t.Total.Seconds()

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Run: %s\n"+
			"Total Time: %.2fs\n"+
			"Sequencing: %.2fs\n"+
			"Script Emit: %.2fs\n"+
			"Audio: %.2fs\n"+
			"Rendering: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Host: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, p.Config.RunID, t.Total.Seconds(), t.Sequence.Seconds(), t.Emit.Seconds(),
		t.Audio.Seconds(), t.Render.Seconds(), fps, host,
	)
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Run: %s | Mode: %s | Frames: %d | Total: %.2fs | Sequence: %.2fs | Render: %.2fs | FPS: %.2f | %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Config.RunID,
		scene.Mode,
		frames,
		t.Total.Seconds(),
		t.Sequence.Seconds(),
		t.Render.Seconds(),
		fps,
		host,
	)

	f, err := os.OpenFile(p.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать %s: %v\n", p.BenchmarkLog, err)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

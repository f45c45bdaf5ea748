package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/director"
	"github.com/ivlev/rig2video/internal/engine"
)

// Задается при сборке: -ldflags "-X main.BuildVersion=..."
var BuildVersion = "dev"

func main() {
	def := config.Default()

	configPtr := flag.String("config", "", "YAML-файл с настройками (флаги имеют приоритет)")
	modePtr := flag.String("mode", def.Mode, "Режим: walker (персонаж) или wave (линия кубов)")
	framesPtr := flag.Int("frames", def.TotalFrames, "Последний кадр анимации (в режиме wave по умолчанию 60)")
	fpsPtr := flag.Int("fps", def.FrameRate, "FPS")
	speedPtr := flag.Float64("speed", def.ForwardSpeed, "Скорость движения вперед, единиц за кадр")
	bpmPtr := flag.Float64("bpm", def.BPM, "Темп метронома (0 - без бит-полосы)")
	widthPtr := flag.Int("width", def.Width, "Ширина")
	heightPtr := flag.Int("height", def.Height, "Высота")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки")
	scriptPtr := flag.String("script", def.ScriptPath, "Куда сохранить скрипт для Blender")
	outputPtr := flag.String("output", def.RenderOutput, "Путь вывода рендера (в формате Blender)")
	audioPtr := flag.String("audio", def.AudioPath, "Путь к звуковой дорожке (пусто - без звука)")
	skipAudioPtr := flag.Bool("skip-audio", false, "Не генерировать звук (использовать готовый файл)")
	blenderPtr := flag.String("blender", "", "Путь к Blender (по умолчанию: поиск в PATH и стандартных папках)")
	skipRenderPtr := flag.Bool("skip-render", false, "Только сгенерировать скрипт")
	dumpPtr := flag.String("dump", "", "Сохранить сцену в YAML (auto - output/scene_<время>.yaml)")
	scenePtr := flag.String("scene", "", "Готовая сцена YAML вместо расчета (latest - самая свежая в output/)")
	slatePtr := flag.String("slate", "", "PNG-карточка запуска с QR-кодом")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		if err := config.Load(*configPtr, cfg); err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		fmt.Printf("[*] Настройки из файла: %s\n", *configPtr)
	}

	// Явно заданные флаги перекрывают файл
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	apply := map[string]func(){
		"mode":        func() { cfg.Mode = *modePtr },
		"frames":      func() { cfg.TotalFrames = *framesPtr },
		"fps":         func() { cfg.FrameRate = *fpsPtr },
		"speed":       func() { cfg.ForwardSpeed = *speedPtr },
		"bpm":         func() { cfg.BPM = *bpmPtr },
		"width":       func() { cfg.Width = *widthPtr },
		"height":      func() { cfg.Height = *heightPtr },
		"workers":     func() { cfg.Workers = *workersPtr },
		"script":      func() { cfg.ScriptPath = *scriptPtr },
		"output":      func() { cfg.RenderOutput = *outputPtr },
		"audio":       func() { cfg.AudioPath = *audioPtr },
		"skip-audio":  func() { cfg.SkipAudio = *skipAudioPtr },
		"blender":     func() { cfg.BlenderPath = *blenderPtr },
		"skip-render": func() { cfg.SkipRender = *skipRenderPtr },
		"dump":        func() { cfg.DumpPath = *dumpPtr },
		"scene":       func() { cfg.SceneInput = *scenePtr },
		"slate":       func() { cfg.SlatePath = *slatePtr },
		"stats":       func() { cfg.ShowStats = *statsPtr },
	}
	for name, fn := range apply {
		if set[name] {
			fn()
		}
	}

	if cfg.Mode == config.ModeWave && !set["frames"] && cfg.TotalFrames == def.TotalFrames {
		cfg.TotalFrames = director.WaveFrames
	}

	if cfg.SceneInput == "latest" {
		latest, err := engine.LatestDump("output")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Сохраните сцену с -dump auto", err)
		}
		cfg.SceneInput = latest
	}

	cfg.BuildVersion = BuildVersion
	cfg.RunID = uuid.New().String()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewProject(cfg)
	if err := project.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Готово. Скрипт: %s\n", cfg.ScriptPath)
}

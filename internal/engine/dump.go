package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const dumpPattern = "scene_*.yaml"

// dumpFileName: output/scene_2026-02-13_10-00-00.yaml
func dumpFileName(dir string, at time.Time) string {
	return filepath.Join(dir, "scene_"+at.Format("2006-01-02_15-04-05")+".yaml")
}

// LatestDump возвращает самый свежий дамп сцены в dir.
func LatestDump(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, dumpPattern))
	if err != nil {
		return "", err
	}

	var latest string
	var latestTime time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if latest == "" || info.ModTime().After(latestTime) {
			latest, latestTime = m, info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("в папке %s нет сохраненных сцен", dir)
	}
	return latest, nil
}

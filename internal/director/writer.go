package director

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteScene dumps the full event stream as YAML.
func WriteScene(scene *Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(scene); err != nil {
		f.Close()
		return fmt.Errorf("encode scene %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadScene loads a dump written by WriteScene. Unknown keys are rejected
// and the ordering contract is checked before the scene is handed out.
func ReadScene(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var scene Scene
	if err := dec.Decode(&scene); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}
	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return &scene, nil
}

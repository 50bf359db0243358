// Package config loads the scene manifest a demo binary points at the
// assets it should load and the window it should open.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// SceneConfig is the on-disk shape of scene.toml: where to find assets, what
// to load, and how to open the window.
type SceneConfig struct {
	Window Window   `toml:"window"`
	Assets Assets   `toml:"assets"`
}

type Window struct {
	Title  string `toml:"title"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// Assets resolves every path relative to BasePath. Models is every glTF
// document to load into the scene; CubemapFaces names the skybox's six
// faces in +X,-X,+Y,-Y,+Z,-Z order.
type Assets struct {
	BasePath     string   `toml:"base_path"`
	Models       []string `toml:"models"`
	CubemapFaces [6]string `toml:"cubemap_faces"`
}

// Load reads path with os.ReadFile and parses it with toml.Unmarshal.
func Load(path string) (*SceneConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene config %s: %w", path, err)
	}

	var cfg SceneConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse scene config %s: %w", path, err)
	}
	return &cfg, nil
}

// ModelPath joins BasePath with a model-relative path from Models.
func (a Assets) ModelPath(relative string) string {
	if a.BasePath == "" {
		return relative
	}
	return a.BasePath + "/" + relative
}

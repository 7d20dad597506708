package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "app.toml"), []byte("[channel]\nwidth = 90\n"), 0o644)
	assert.Equal(t, err, nil)

	var out bytes.Buffer
	assert.Equal(t, dumpConfig(&out, dir), nil)

	var got struct {
		Channel struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"channel"`
		Updates struct {
			StartupGrace string `json:"startup_grace"`
		} `json:"updates"`
	}
	assert.Equal(t, json.Unmarshal(out.Bytes(), &got), nil)
	assert.Equal(t, got.Channel.Width, 90)
	assert.Equal(t, got.Channel.Height, 130)
	assert.Equal(t, got.Updates.StartupGrace, "12s")
	// pretty output is indented
	assert.Equal(t, bytes.Contains(out.Bytes(), []byte("\n  \"channel\"")), true)
}

func TestDumpConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "app.toml"), []byte("[submixes]\ndefault = 9\n"), 0o644)
	assert.Equal(t, err, nil)

	var out bytes.Buffer
	assert.NotEqual(t, dumpConfig(&out, dir), nil)
	assert.Equal(t, out.Len(), 0)
}

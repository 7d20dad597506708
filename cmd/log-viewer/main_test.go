package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "vmcompact.1.log")
	recent := filepath.Join(dir, "vmcompact.2.log")
	for _, f := range []string{old, recent} {
		assert.Equal(t, os.WriteFile(f, []byte("x\n"), 0o644), nil)
	}
	now := time.Now()
	assert.Equal(t, os.Chtimes(old, now, now.Add(-time.Hour)), nil)
	assert.Equal(t, os.Chtimes(recent, now, now), nil)

	assert.Equal(t, newest([]string{old, recent}), recent)
	assert.Equal(t, newest([]string{recent, old}), recent)
	assert.Equal(t, newest([]string{filepath.Join(dir, "gone.log"), old}), old)
}

//go:build !windows

package remote

import (
	"fmt"

	"github.com/hrko/vmcompact/internal/kind"
)

// OpenLocal needs the Voicemeeter remote DLL, which only exists on Windows.
func OpenLocal(k kind.Kind) (Target, error) {
	return nil, fmt.Errorf("local %v engine: %w", k, ErrUnsupported)
}

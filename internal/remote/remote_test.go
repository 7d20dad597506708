package remote

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/hrko/vmcompact/internal/kind"
)

func TestCommandScript(t *testing.T) {
	tests := []struct {
		cmd    Command
		script string
	}{
		{Show, "Command.Show=1;"},
		{Hide, "Command.Show=0;"},
		{Restart, "Command.Restart=1;"},
		{Shutdown, "Command.Shutdown=1;"},
		{Lock, "Command.Lock=1;"},
		{Unlock, "Command.Lock=0;"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			s, err := tt.cmd.Script()
			assert.Equal(t, err, nil)
			assert.Equal(t, s, tt.script)
		})
	}

	_, err := Command(99).Script()
	assert.Equal(t, errors.Is(err, ErrUnsupported), true)
	assert.Equal(t, Command(99).String(), "Command(99)")
}

func TestCheckIndices(t *testing.T) {
	assert.Equal(t, CheckStrip(kind.Basic, 2), nil)
	assert.Equal(t, errors.Is(CheckStrip(kind.Basic, 3), ErrOutOfRange), true)
	assert.Equal(t, errors.Is(CheckStrip(kind.Basic, -1), ErrOutOfRange), true)
	assert.Equal(t, CheckBus(kind.Potato, 7), nil)
	assert.Equal(t, errors.Is(CheckBus(kind.Banana, 5), ErrOutOfRange), true)
}

func TestTransportString(t *testing.T) {
	assert.Equal(t, Local.String(), "local")
	assert.Equal(t, Network.String(), "network")
	assert.Equal(t, Transport(7).String(), "Transport(7)")
}

func TestIsEngineProcess(t *testing.T) {
	assert.Equal(t, isEngineProcess("VoicemeeterPro.exe"), true)
	assert.Equal(t, isEngineProcess("voicemeeter8x64.exe"), true)
	assert.Equal(t, isEngineProcess("voicemeeter-compact.exe"), false)
	assert.Equal(t, isEngineProcess(""), false)
}

package remote

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "remote")

var engineProcessNames = []string{
	"voicemeeter.exe",
	"voicemeeterpro.exe",
	"voicemeeter8.exe",
	"voicemeeter8x64.exe",
	"voicemeeterx64.exe",
	"voicemeeterprox64.exe",
}

// EngineRunning reports whether a Voicemeeter engine process is alive.
// Failures to enumerate processes count as "not running".
func EngineRunning(ctx context.Context) bool {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		log.Warnf("error listing processes: %v", err)
		return false
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if isEngineProcess(name) {
			return true
		}
	}
	return false
}

func isEngineProcess(name string) bool {
	name = strings.ToLower(name)
	for _, n := range engineProcessNames {
		if name == n {
			return true
		}
	}
	return false
}

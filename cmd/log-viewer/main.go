// Command log-viewer follows the newest log written by vmcompact --log-temp.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/docopt/docopt-go"
)

const (
	logName = "vmcompact.*.log"
	tick    = time.Second / 10
)

const usage = `Follow vmcompact logs.

Usage:
    log-viewer [--no-wait]
    log-viewer clear
    log-viewer -h | --help

Options:
    -h --help    Show this screen.
    --no-wait    Exit when there is no log yet.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if clearLogs, _ := opts.Bool("clear"); clearLogs {
		for _, file := range logFiles() {
			if err := os.Remove(file); err != nil {
				fmt.Println("Error removing file:", err)
			}
		}
		return
	}

	noWait, _ := opts.Bool("--no-wait")
	files := logFiles()
	if len(files) == 0 && noWait {
		fmt.Println("No log files found.")
		return
	}
	if len(files) == 0 {
		files = waitForLogs()
	}
	if err := follow(newest(files), os.Stdout); err != nil {
		fmt.Println("Error reading log:", err)
		os.Exit(1)
	}
}

func logFiles() []string {
	files, err := filepath.Glob(filepath.Join(os.TempDir(), logName))
	if err != nil {
		fmt.Println("Error finding log files:", err)
		return nil
	}
	return files
}

func waitForLogs() []string {
	fmt.Print("Waiting for log files")
	for {
		if files := logFiles(); len(files) > 0 {
			fmt.Println()
			return files
		}
		fmt.Print(".")
		time.Sleep(tick)
	}
}

// newest returns the most recently modified file. Files that cannot be
// stat'ed sort last.
func newest(files []string) string {
	mod := make(map[string]time.Time, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			mod[f] = info.ModTime()
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return mod[files[i]].After(mod[files[j]])
	})
	return files[0]
}

func follow(path string, w io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var partial string
	for {
		line, err := reader.ReadString('\n')
		partial += line
		if errors.Is(err, io.EOF) {
			time.Sleep(tick)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprint(w, partial)
		partial = ""
	}
}

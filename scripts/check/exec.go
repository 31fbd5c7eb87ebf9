package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// runInRoot runs a command in the module root and returns its combined output.
func runInRoot(ctx *checkContext, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = ctx.RootDir
	cmd.Env = append(os.Environ(), "GOTOOLCHAIN=auto")

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}

// ensureToolInstalled installs a Go tool with go install unless it is already
// on PATH or in GOPATH/bin.
func ensureToolInstalled(tool, pkg string) error {
	addGoPathToPath()
	if commandExists(tool) {
		return nil
	}

	fmt.Printf("%sInstalling %s...%s ", colorYellow, tool, colorReset)
	cmd := exec.Command("go", "install", pkg)
	cmd.Env = append(os.Environ(), "GOTOOLCHAIN=auto")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// addGoPathToPath puts GOPATH/bin on PATH so installed tools are found.
func addGoPathToPath() {
	out, err := exec.Command("go", "env", "GOPATH").Output()
	if err != nil {
		return
	}
	bin := filepath.Join(strings.TrimSpace(string(out)), "bin")
	path := os.Getenv("PATH")
	if strings.Contains(path, bin) {
		return
	}
	if err := os.Setenv("PATH", bin+string(os.PathListSeparator)+path); err != nil {
		fmt.Printf("Warning: failed to add %s to PATH: %v\n", bin, err)
	}
}

// findRootDir walks up to the directory whose go.mod sits next to cmd/server.
func findRootDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		_, modErr := os.Stat(filepath.Join(dir, "go.mod"))
		_, serverErr := os.Stat(filepath.Join(dir, "cmd", "server"))
		if modErr == nil && serverErr == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (looking for go.mod and cmd/server)")
		}
		dir = parent
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// indentOutput indents each non-empty line of output.
func indentOutput(output, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			result.WriteString(indent)
			result.WriteString(line)
			result.WriteString("\n")
		}
	}
	return result.String()
}

// printError prints an error message in red.
func printError(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

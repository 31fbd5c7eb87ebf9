package main

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// checkContext holds the options every check runs with.
type checkContext struct {
	CI      bool
	Verbose bool
	RootDir string
}

type check struct {
	name string
	run  func(ctx *checkContext) error
}

// sourceDirs are the directories holding our Go code. The module root also
// holds reference material that is not ours to format or lint.
var sourceDirs = []string{"cmd", "internal", "scripts"}

// allChecks returns every check in run order.
func allChecks() []check {
	return []check{
		{name: "gofmt", run: gofmtCheck},
		{name: "go-mod-tidy", run: goModTidyCheck},
		{name: "go-vet", run: moduleCommand("go", "vet", "./...")},
		{name: "staticcheck", run: toolCheck("staticcheck", "honnef.co/go/tools/cmd/staticcheck@latest", "./...")},
		{name: "ineffassign", run: toolCheck("ineffassign", "github.com/gordonklaus/ineffassign@latest", "./...")},
		{name: "misspell", run: toolCheck("misspell", "github.com/client9/misspell/cmd/misspell@latest", append([]string{"-error"}, sourceDirs...)...)},
		{name: "govulncheck", run: govulncheckCheck},
		{name: "nilaway", run: optionalTool("nilaway", "./...")},
		{name: "tests", run: moduleCommand("go", "test", "-race", "./...")},
		{name: "replay", run: replayCheck},
	}
}

func checkByName(name string) (check, bool) {
	for _, c := range allChecks() {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
	}
	return check{}, false
}

// moduleCommand runs a command from the module root and fails with its output.
func moduleCommand(name string, args ...string) func(ctx *checkContext) error {
	return func(ctx *checkContext) error {
		output, err := runInRoot(ctx, name, args...)
		if err != nil {
			fmt.Println()
			fmt.Print(indentOutput(output, "      "))
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return nil
	}
}

// toolCheck installs a Go tool if needed and runs it from the module root.
func toolCheck(tool, pkg string, args ...string) func(ctx *checkContext) error {
	return func(ctx *checkContext) error {
		if err := ensureToolInstalled(tool, pkg); err != nil {
			return fmt.Errorf("failed to install %s: %w", tool, err)
		}
		return moduleCommand(tool, args...)(ctx)
	}
}

// optionalTool runs a tool only when it is already installed.
func optionalTool(tool string, args ...string) func(ctx *checkContext) error {
	return func(ctx *checkContext) error {
		addGoPathToPath()
		if !commandExists(tool) {
			fmt.Printf("%sSKIP%s (%s not found) ", colorYellow, colorReset, tool)
			return nil
		}
		return moduleCommand(tool, args...)(ctx)
	}
}

func gofmtCheck(ctx *checkContext) error {
	unformatted, err := gofmtList(ctx)
	if err != nil {
		return err
	}
	if len(unformatted) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("    Files not formatted:")
	fmt.Print(indentOutput(strings.Join(unformatted, "\n"), "      "))
	if ctx.CI {
		return errors.New("files need formatting")
	}

	args := append([]string{"-s", "-w"}, sourceDirs...)
	if output, err := runInRoot(ctx, "gofmt", args...); err != nil {
		fmt.Print(indentOutput(output, "      "))
		return fmt.Errorf("failed to run gofmt -w: %w", err)
	}
	if remaining, err := gofmtList(ctx); err != nil || len(remaining) > 0 {
		return errors.New("files still need formatting after gofmt -w")
	}
	return nil
}

func gofmtList(ctx *checkContext) ([]string, error) {
	args := append([]string{"-s", "-l"}, sourceDirs...)
	output, err := runInRoot(ctx, "gofmt", args...)
	if err != nil {
		fmt.Print(indentOutput(output, "      "))
		return nil, fmt.Errorf("gofmt failed: %w", err)
	}
	return strings.Fields(output), nil
}

// goModTidyCheck uses -diff so that go.mod and go.sum are never touched in CI.
func goModTidyCheck(ctx *checkContext) error {
	args := []string{"mod", "tidy"}
	if ctx.CI {
		args = append(args, "-diff")
	}
	output, err := runInRoot(ctx, "go", args...)
	if err != nil {
		fmt.Println()
		fmt.Print(indentOutput(output, "      "))
		return errors.New("go.mod or go.sum needs tidying")
	}
	return nil
}

// govulncheckCheck fails only when our code actually reaches a vulnerability.
func govulncheckCheck(ctx *checkContext) error {
	if err := ensureToolInstalled("govulncheck", "golang.org/x/vuln/cmd/govulncheck@latest"); err != nil {
		return fmt.Errorf("failed to install govulncheck: %w", err)
	}

	output, err := runInRoot(ctx, "govulncheck", "./...")
	if strings.Contains(output, "Your code is affected by 0 vulnerabilities") {
		return nil
	}
	if strings.Contains(output, "Your code is affected by") {
		fmt.Println()
		fmt.Println("    Vulnerabilities found in your code:")
		fmt.Print(indentOutput(output, "      "))
		return errors.New("vulnerabilities found in code")
	}
	if err != nil {
		fmt.Println()
		fmt.Print(indentOutput(output, "      "))
		return fmt.Errorf("govulncheck failed: %w", err)
	}
	return nil
}

// replayCheck replays the recorded event streams and fails if any of them no
// longer decodes or dispatches.
func replayCheck(ctx *checkContext) error {
	streams, err := filepath.Glob(filepath.Join(ctx.RootDir, "testdata", "replay", "*.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to list replay streams: %w", err)
	}
	if len(streams) == 0 {
		fmt.Printf("%sSKIP%s (no replay streams) ", colorYellow, colorReset)
		return nil
	}

	for _, stream := range streams {
		output, err := runInRoot(ctx, "go", "run", "./cmd/replay", stream)
		if err != nil {
			fmt.Println()
			fmt.Print(indentOutput(output, "      "))
			return fmt.Errorf("replay of %s failed", filepath.Base(stream))
		}
		if ctx.Verbose {
			fmt.Printf("\n      %s: %s", filepath.Base(stream), summarize(output))
		}
	}
	return nil
}

// summarize returns the first line of a replay result, trimmed for display.
func summarize(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if len(line) > 120 {
		line = line[:120] + "..."
	}
	return line
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

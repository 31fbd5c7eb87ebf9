// Command check runs the repository's code quality checks: formatting, module
// tidiness, static analysis, tests with the race detector, and a replay of the
// recorded event streams under testdata/replay.
//
// Usage:
//
//	go run ./scripts/check [-check NAME] [-ci] [-verbose] [-list]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func main() {
	var (
		checkName = flag.String("check", "", "Run a single check by name")
		ciMode    = flag.Bool("ci", false, "Disable auto-fixing (for CI)")
		verbose   = flag.Bool("verbose", false, "Show detailed output")
		list      = flag.Bool("list", false, "List the available checks")
	)
	flag.Parse()

	if *list {
		for _, c := range allChecks() {
			fmt.Println(c.name)
		}
		return
	}

	rootDir, err := findRootDir()
	if err != nil {
		printError("Error: %v", err)
		os.Exit(1)
	}
	ctx := &checkContext{CI: *ciMode, Verbose: *verbose, RootDir: rootDir}

	checks := allChecks()
	if *checkName != "" {
		c, ok := checkByName(*checkName)
		if !ok {
			printError("Error: unknown check %q (run with -list to see them)", *checkName)
			os.Exit(1)
		}
		checks = []check{c}
	}

	fmt.Println("🔍 Running checks...")
	start := time.Now()
	failed := runChecks(ctx, checks)
	total := formatDuration(time.Since(start))
	fmt.Println()

	if len(failed) == 0 {
		fmt.Printf("%s✅ All checks passed!%s\n", colorGreen, colorReset)
		fmt.Printf("%s⏱️  Total runtime: %s%s\n", colorYellow, total, colorReset)
		return
	}

	fmt.Printf("%s❌ Some checks failed. Please fix the issues above.%s\n", colorRed, colorReset)
	fmt.Printf("%s⏱️  Total runtime: %s%s\n", colorYellow, total, colorReset)
	fmt.Println()
	fmt.Println("To rerun a specific check:")
	for _, name := range failed {
		fmt.Printf("  go run ./scripts/check -check %s\n", name)
	}
	os.Exit(1)
}

// runChecks runs every check in order and returns the names of the failed ones.
func runChecks(ctx *checkContext, checks []check) []string {
	var failed []string
	for _, c := range checks {
		fmt.Printf("  • %s... ", c.name)
		start := time.Now()
		err := c.run(ctx)
		duration := formatDuration(time.Since(start))

		if err != nil {
			fmt.Printf("%sFAILED%s (%s)\n", colorRed, colorReset, duration)
			if ctx.Verbose {
				fmt.Printf("      Error: %v\n", err)
			}
			failed = append(failed, c.name)
			continue
		}
		fmt.Printf("%sOK%s (%s)\n", colorGreen, colorReset, duration)
	}
	return failed
}

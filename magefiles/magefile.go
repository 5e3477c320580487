//go:build mage

// Package main contains Mage build targets for bibtools developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "bibtools"
	cmdPkg  = "./cmd/bibtools"
)

// projectDirs lists the working directories a run expects.
var projectDirs = []string{
	".secrets",
	".bibtools",
}

// secretFiles are created empty under .secrets/ so the expected names are
// visible; empty files are ignored when loading.
var secretFiles = []string{
	"crossref-email",
	"openalex-email",
	"semantic-scholar-api-key",
	"hal-api-url",
}

// Init creates the secrets and cache directories.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	for _, name := range secretFiles {
		path := filepath.Join(".secrets", name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		fmt.Println("  ", path)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Stats builds the CLI and prints identifier cache statistics.
func Stats() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "cache", "stats")
}

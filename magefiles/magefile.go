//go:build mage

// Package main contains Mage build targets for feed2pdf developer tooling.
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
	binName = "feed2pdf"
	cmdPkg  = "./cmd/feed2pdf"
)

var binPath = filepath.Join(binDir, binName)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", binPath, version)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Init writes a starter feed2pdf.yaml and feeds.txt into the working directory.
func Init() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "init")
}

// Run converts the feeds in feeds.txt using the local configuration.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "run")
}

// DryRun prints the converter invocations for feeds.txt without running them.
func DryRun() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "run", "--dry-run")
}

// Merge combines the PDFs in the output directory into page-limited parts.
func Merge() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "merge")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

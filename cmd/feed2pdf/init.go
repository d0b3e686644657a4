// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

const configFileName = "feed2pdf.yaml"

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter config file and an empty feeds list",
	Long: `Init writes feed2pdf.yaml with the default settings and an empty
feeds.txt into dir (default: the current directory). Existing files are left
alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return initProject(dir, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initProject creates dir if needed and writes the starter files into it.
func initProject(dir string, w io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	cfg := defaultDriverConfig()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{configFileName, data},
		{cfg.FeedsFilePath, nil},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		created, err := writeNew(path, f.data)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(w, "created: %s\n", path)
		} else {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", path)
		}
	}
	return nil
}

// writeNew writes data to path only if path does not exist yet.
func writeNew(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		return false, fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return false, fmt.Errorf("closing %s: %w", path, closeErr)
	}
	return true, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/feed2pdf/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [dir]",
	Short: "Merge the PDFs in a directory into page-limited parts",
	Long: `Merge combines the PDFs in dir (default: the output directory) in natural
name order, so feed2.pdf comes before feed10.pdf. The result is split into
parts of at most --max-pages pages, written next to --output as
"<stem> - Part N.pdf". Parts from earlier merges are never merged again.

An encrypted PDF stops the merge unless --skip-encrypted is set. Unreadable
PDFs are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.StringP("output", "o", merge.DefaultOutput, "output base file name, relative to dir")
	f.String("pattern", merge.DefaultPattern, "glob selecting the PDFs to merge")
	f.Int("max-pages", merge.DefaultMaxPages, "maximum pages per output part")
	f.Bool("skip-encrypted", false, "skip encrypted PDFs instead of stopping")

	bindFlags(viper.GetViper(), f, map[string]string{
		keyMergeOutput:    "output",
		keyMergePattern:   "pattern",
		keyMergeMaxPages:  "max-pages",
		keyMergeEncrypted: "skip-encrypted",
	})

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) == 1 {
		dir = args[0]
	}
	opts, err := loadMergeOptions(viper.GetViper(), dir)
	if err != nil {
		return err
	}
	logger, err := newLogger(viper.GetViper(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := merge.New(merge.NewPDFCPU(), merge.WithOutput(cmd.OutOrStdout()), merge.WithLogger(logger))
	_, err = m.Merge(cmd.Context(), opts)
	return err
}

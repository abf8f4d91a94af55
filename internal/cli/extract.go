// internal/cli/extract.go
package cli

import (
	"context"
	"fmt"

	"github.com/manylinux-go/rcpr"
	"github.com/spf13/cobra"
)

var (
	extractPrefix      string
	extractTag         string
	extractOutput      string
	extractArch        string
	extractPatchelf    string
	extractExcludelist string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a relocatable Python runtime",
	Long: `Extract a tagged CPython build from an exported Manylinux image root
into a self-contained, relocatable output directory.

Examples:
  rcpr extract --prefix ./manylinux2014_x86_64 --tag cp311-cp311 -o ./rcpr-cp311
  rcpr extract --prefix ./rootfs --tag 'cp312-*' -o ./out --arch aarch64`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPrefix, "prefix", "", "path to the exported container image root")
	extractCmd.Flags().StringVar(&extractTag, "tag", "", "Python binary tag (ex: cp311-cp311; select from entries in $PREFIX/opt/python)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "path to store the resulting runtime")
	extractCmd.Flags().StringVar(&extractArch, "arch", "", "target architecture (x86_64, i686, aarch64)")
	extractCmd.Flags().StringVar(&extractPatchelf, "patchelf", "", "path to the patchelf executable")
	extractCmd.Flags().StringVar(&extractExcludelist, "excludelist", "", "path to a shared-library excludelist")

	for _, flag := range []string{"prefix", "tag", "output"} {
		_ = extractCmd.MarkFlagRequired(flag)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractArch != "" {
		config.Arch = extractArch
	}
	if extractPatchelf != "" {
		config.Patchelf = extractPatchelf
	}
	if extractExcludelist != "" {
		config.Excludelist = extractExcludelist
	}

	extractor, err := rcpr.NewExtractor(config, extractPrefix, extractTag)
	if err != nil {
		return err
	}

	result, err := extractor.Extract(context.Background(), extractOutput)
	if err != nil {
		return err
	}

	fmt.Printf("Extracted %s %s to %s\n", result.Installation.Impl, result.Installation.Version, result.Destination)
	fmt.Printf("  files: %d  symlinks: %d  binaries patched: %d\n",
		result.FilesCopied, result.SymlinksCreated, result.BinariesPatched)
	for _, skipped := range result.Report.Skipped {
		fmt.Printf("  skipped %s: %s\n", skipped.Path, skipped.Reason)
	}
	return nil
}

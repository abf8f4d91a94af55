// internal/cli/download.go
package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/manylinux-go/rcpr"
	"github.com/spf13/cobra"
)

var (
	downloadTag    string
	downloadOutput string
	downloadQuiet  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download [image]",
	Short: "Download a Manylinux image as a root filesystem",
	Long: `Pull a Manylinux image from the registry and lay its layers out as an
extracted root filesystem, ready for 'rcpr extract'.

Examples:
  rcpr download manylinux2014_x86_64
  rcpr download manylinux_2_28_aarch64 --tag 2024.01.01-1 -o ./rootfs`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVar(&downloadTag, "tag", "latest", "image tag to pull")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "destination directory (default is <cache>/<image>)")
	downloadCmd.Flags().BoolVarP(&downloadQuiet, "quiet", "q", false, "suppress progress output")
}

func runDownload(cmd *cobra.Command, args []string) error {
	img := args[0]

	destination := downloadOutput
	if destination == "" {
		destination = filepath.Join(config.CachePath, img)
	}

	downloader := rcpr.NewDownloader(config, downloadQuiet)
	if err := downloader.Pull(context.Background(), img, downloadTag, destination); err != nil {
		return err
	}

	fmt.Printf("Image %s:%s extracted to %s\n", img, downloadTag, destination)
	return nil
}

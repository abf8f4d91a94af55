// internal/cli/tags.go
package cli

import (
	"fmt"

	"github.com/manylinux-go/rcpr"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/spf13/cobra"
)

var tagsPrefix string

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List Python build tags in an image",
	Long:  `List the Python build tags discoverable under opt/python in an exported image root.`,
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().StringVar(&tagsPrefix, "prefix", "", "path to the exported container image root")
	_ = tagsCmd.MarkFlagRequired("prefix")
}

func runTags(cmd *cobra.Command, args []string) error {
	arch, err := image.DetectArchitecture()
	if err != nil {
		// Tag listing is architecture independent; any supported value works.
		arch = image.ArchX86_64
	}

	img := rcpr.NewImage(tagsPrefix, arch)
	tags, err := img.Tags()
	if err != nil {
		return err
	}

	for _, tag := range tags {
		install, err := img.Resolve(tag)
		if err != nil {
			fmt.Printf("%s\t(unresolvable: %v)\n", tag, err)
			continue
		}
		fmt.Printf("%s\t%s %s\n", tag, install.Impl, install.Version)
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/ajroetker/usmgemm/device"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List memory backends and detected CPU features",
		Args:  cobra.NoArgs,
		RunE:  runDevices,
	}
}

func runDevices(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	title := cases.Title(language.English)
	preferred := device.Detect()

	for _, k := range device.Kinds {
		dev, err := device.Lookup(k)
		if err != nil {
			fmt.Fprintf(out, "  %-8s unavailable (%v)\n", k, err)
			continue
		}
		mark := " "
		if dev.Kind == preferred.Kind {
			mark = "*"
		}
		name := title.String(strings.ReplaceAll(dev.Name, "-", " "))
		fmt.Fprintf(out, "%s %-8s %s, %s, %d cores\n", mark, k, name, dev.Arch, dev.Cores)
	}

	features := preferred.Features
	if len(features) == 0 {
		features = []string{"none detected"}
	}
	fmt.Fprintf(out, "features: %s\n", strings.Join(features, " "))
	return nil
}

// Command sopx forwards stateless OpenPGP subcommands to an external
// backend executable.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal/cli"
	"github.com/ProtonMail/sop-external/sop"
)

func writeAbout(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Version:\t%v\n", constants.Version)
	fmt.Fprintf(tw, "Runtime:\t%v (%v/%v)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return tw.Flush()
}

func getAbout() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Display sopx version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeAbout(cmd.OutOrStdout())
		},
		DisableFlagsInUseLine: true,
	}
}

func main() {
	root := cobra.Command{
		Use:   constants.Name,
		Short: "sopx runs stateless OpenPGP operations through an external backend",
		Long: `sopx accepts the stateless OpenPGP command line and forwards each
operation to the backend executable named by --backend-binary or $` + cli.EnvBackend + `.
Its exit code is the exit code the backend reported.`,
	}
	root.AddCommand(getAbout())

	if err := cli.AddCommands(&root); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(constants.ExitGeneric)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", constants.Name, err)
		os.Exit(sop.ExitCode(err))
	}
}

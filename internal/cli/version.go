package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProtonMail/sop-external/sop"
)

// getVersion returns a command that prints the backend version.
func (c *command) getVersion() *cobra.Command {
	var backend, extended, sopSpec bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display backend version information",
		Long: `Display the name and version of the backend. --backend and --extended
print the free form details the backend reports, --sop-spec the revision of
the stateless OpenPGP draft it implements.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := 0
			for _, set := range []bool{backend, extended, sopSpec} {
				if set {
					selected++
				}
			}
			if selected > 1 {
				return sop.NewError(sop.KindIncompatibleOptions, "--backend, --extended and --sop-spec are exclusive")
			}
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			v := s.Version()
			ctx := cmd.Context()

			var out string
			switch {
			case backend:
				out, err = v.BackendVersion(ctx)
			case extended:
				out, err = v.ExtendedVersion(ctx)
			case sopSpec:
				out, err = v.SOPSpecVersion(ctx)
			default:
				var name, version string
				if name, err = v.Name(ctx); err != nil {
					return err
				}
				version, err = v.Version(ctx)
				out = name + " " + version + "\n"
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
		DisableFlagsInUseLine: true,
	}
	cmd.Flags().BoolVar(&backend, "backend", false, "print backend details")
	cmd.Flags().BoolVar(&extended, "extended", false, "print extended version details")
	cmd.Flags().BoolVar(&sopSpec, "sop-spec", false, "print the implemented draft revision")
	return cmd
}

// getListProfiles returns a command that lists the profiles of a
// subcommand.
func (c *command) getListProfiles() *cobra.Command {
	return &cobra.Command{
		Use:   "list-profiles <subcommand>",
		Short: "List the profiles a subcommand supports",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return sop.NewError(sop.KindMissingArg, "list-profiles needs exactly one subcommand")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			profiles, err := s.ListProfiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range profiles {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), p.String()); err != nil {
					return err
				}
			}
			return nil
		},
		DisableFlagsInUseLine: true,
	}
}

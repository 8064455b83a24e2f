package cli

import (
	"github.com/spf13/cobra"

	"github.com/ProtonMail/sop-external/armor"
	"github.com/ProtonMail/sop-external/constants"
)

// getArmor returns a command that armors standard input.
func (c *command) getArmor() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "armor [--label=LABEL]",
		Short: "Add ASCII armor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := armor.LabelBlockType(label, nil); err != nil {
				return err
			}
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			a := s.Armor()
			if label != constants.ArmorLabelAuto {
				a.Label(label)
			}
			ready, err := a.Data(cmd.Context(), cmd.InOrStdin())
			return copyReady(cmd.OutOrStdout(), ready, err)
		},
		DisableFlagsInUseLine: true,
	}
	cmd.Flags().StringVar(&label, "label", constants.ArmorLabelAuto, "armor label: auto, sig, key, cert or message")
	return cmd
}

// getDearmor returns a command that removes ASCII armor from standard
// input.
func (c *command) getDearmor() *cobra.Command {
	return &cobra.Command{
		Use:   "dearmor",
		Short: "Remove ASCII armor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			ready, err := s.Dearmor().Data(cmd.Context(), cmd.InOrStdin())
			return copyReady(cmd.OutOrStdout(), ready, err)
		},
		DisableFlagsInUseLine: true,
	}
}

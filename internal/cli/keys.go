package cli

import (
	"github.com/spf13/cobra"
)

// getGenerateKey returns a command that generates a secret key.
func (c *command) getGenerateKey() *cobra.Command {
	var (
		noArmor     bool
		signingOnly bool
		profileName string
		passwords   []string
	)
	cmd := &cobra.Command{
		Use:   "generate-key [flags] [userid...]",
		Short: "Generate a secret key",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			secrets, err := readAll(c.resolver(cmd), passwords)
			if err != nil {
				return err
			}
			g := s.GenerateKey()
			if noArmor {
				g.NoArmor()
			}
			if signingOnly {
				g.SigningOnly()
			}
			if profileName != "" {
				g.Profile(profileName)
			}
			for _, password := range secrets {
				g.WithKeyPassword(password)
			}
			for _, uid := range args {
				g.UserID(uid)
			}
			ready, err := g.Generate(cmd.Context())
			return copyReady(cmd.OutOrStdout(), ready, err)
		},
	}
	cmd.Flags().BoolVar(&noArmor, "no-armor", false, "write binary output")
	cmd.Flags().BoolVar(&signingOnly, "signing-only", false, "generate a key that cannot decrypt")
	cmd.Flags().StringVar(&profileName, "profile", "", "key generation `PROFILE`")
	cmd.Flags().StringArrayVar(&passwords, "with-key-password", nil, "lock the key with the password in `PASSWORD`")
	return cmd
}

// getExtractCert returns a command that extracts the certificate of a key
// read from standard input.
func (c *command) getExtractCert() *cobra.Command {
	var noArmor bool
	cmd := &cobra.Command{
		Use:   "extract-cert [--no-armor]",
		Short: "Extract a certificate from a secret key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			e := s.ExtractCert()
			if noArmor {
				e.NoArmor()
			}
			ready, err := e.Key(cmd.Context(), cmd.InOrStdin())
			return copyReady(cmd.OutOrStdout(), ready, err)
		},
		DisableFlagsInUseLine: true,
	}
	cmd.Flags().BoolVar(&noArmor, "no-armor", false, "write binary output")
	return cmd
}

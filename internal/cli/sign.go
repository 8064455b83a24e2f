package cli

import (
	"bytes"
	"time"

	"github.com/spf13/cobra"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

// getSign returns a command that creates detached signatures over
// standard input.
func (c *command) getSign() *cobra.Command {
	var (
		noArmor      bool
		as           string
		micAlgOut    string
		keyPasswords []string
	)
	cmd := &cobra.Command{
		Use:   "sign [flags] <key>...",
		Short: "Create detached signatures",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return sop.NewError(sop.KindMissingArg, "sign needs at least one key")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			r := c.resolver(cmd)
			keys, err := readAll(r, args)
			if err != nil {
				return err
			}
			passwords, err := readAll(r, keyPasswords)
			if err != nil {
				return err
			}

			sign := s.Sign().Mode(as)
			if noArmor {
				sign.NoArmor()
			}
			for _, key := range keys {
				sign.Key(key)
			}
			for _, password := range passwords {
				sign.WithKeyPassword(password)
			}
			ready, err := sign.Data(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := ready.WriteTo(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return writeTo(r, micAlgOut, []byte(res.MicAlg))
		},
	}
	cmd.Flags().BoolVar(&noArmor, "no-armor", false, "write binary output")
	cmd.Flags().StringVar(&as, "as", constants.SignAsBinary, "signature type, binary or text")
	cmd.Flags().StringVar(&micAlgOut, "micalg-out", "", "write the PGP/MIME micalg to `OUT`")
	cmd.Flags().StringArrayVar(&keyPasswords, "with-key-password", nil, "unlock keys with the password in `PASSWORD`")
	return cmd
}

// getVerify returns a command that checks detached signatures over
// standard input.
func (c *command) getVerify() *cobra.Command {
	var window timeRange
	cmd := &cobra.Command{
		Use:   "verify [flags] <signatures> <cert>...",
		Short: "Verify detached signatures",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 2 {
				return sop.NewError(sop.KindMissingArg, "verify needs signatures and at least one certificate")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			r := c.resolver(cmd)
			signatures, err := r.ReadAll(args[0])
			if err != nil {
				return err
			}
			certs, err := readAll(r, args[1:])
			if err != nil {
				return err
			}

			verify := s.Verify().Signatures(signatures)
			for _, cert := range certs {
				verify.Cert(cert)
			}
			err = window.apply(c.opts.now(),
				func(t time.Time) { verify.NotBefore(t) },
				func(t time.Time) { verify.NotAfter(t) },
			)
			if err != nil {
				return err
			}
			verifications, err := verify.Data(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			var out bytes.Buffer
			for _, v := range verifications {
				out.WriteString(v.String() + "\n")
			}
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
	window.register(cmd.Flags(), "")
	return cmd
}

package cli

import (
	"bytes"
	"time"

	"github.com/spf13/cobra"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

// getEncrypt returns a command that encrypts standard input.
func (c *command) getEncrypt() *cobra.Command {
	var (
		noArmor       bool
		as            string
		purpose       string
		profileName   string
		sessionKeyOut string
		withPasswords []string
		signWith      []string
		keyPasswords  []string
	)
	cmd := &cobra.Command{
		Use:   "encrypt [flags] [cert...]",
		Short: "Encrypt a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			r := c.resolver(cmd)
			certs, err := readAll(r, args)
			if err != nil {
				return err
			}
			signers, err := readAll(r, signWith)
			if err != nil {
				return err
			}
			passwords, err := readAll(r, withPasswords)
			if err != nil {
				return err
			}
			unlock, err := readAll(r, keyPasswords)
			if err != nil {
				return err
			}

			enc := s.Encrypt().Mode(as)
			if noArmor {
				enc.NoArmor()
			}
			if purpose != "" {
				enc.EncryptFor(purpose)
			}
			if profileName != "" {
				enc.Profile(profileName)
			}
			for _, password := range passwords {
				enc.WithPassword(bytes.TrimRight(password, " \t\r\n"))
			}
			for _, key := range signers {
				enc.SignWith(key)
			}
			for _, password := range unlock {
				enc.WithKeyPassword(password)
			}
			for _, cert := range certs {
				enc.WithCert(cert)
			}
			ready, err := enc.Plaintext(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := ready.WriteTo(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if res.SessionKey == nil {
				return nil
			}
			return writeTo(r, sessionKeyOut, []byte(res.SessionKey.String()+"\n"))
		},
	}
	cmd.Flags().BoolVar(&noArmor, "no-armor", false, "write binary output")
	cmd.Flags().StringVar(&as, "as", constants.EncryptAsBinary, "literal data format, binary or text")
	cmd.Flags().StringVar(&purpose, "for", "", "encryption subkey purpose: storage, communications or any")
	cmd.Flags().StringVar(&profileName, "profile", "", "encryption `PROFILE`")
	cmd.Flags().StringVar(&sessionKeyOut, "session-key-out", "", "write the session key to `OUT`")
	cmd.Flags().StringArrayVar(&withPasswords, "with-password", nil, "encrypt for the password in `PASSWORD`")
	cmd.Flags().StringArrayVar(&signWith, "sign-with", nil, "sign with the key in `KEY`")
	cmd.Flags().StringArrayVar(&keyPasswords, "with-key-password", nil, "unlock signing keys with the password in `PASSWORD`")
	return cmd
}

// getDecrypt returns a command that decrypts standard input.
func (c *command) getDecrypt() *cobra.Command {
	var (
		window          timeRange
		sessionKeyOut   string
		verifyOut       string
		withSessionKeys []string
		withPasswords   []string
		verifyWith      []string
		keyPasswords    []string
	)
	cmd := &cobra.Command{
		Use:   "decrypt [flags] [key...]",
		Short: "Decrypt a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(verifyWith) > 0 && verifyOut == "" {
				return sop.NewError(sop.KindIncompleteVerification, "--verify-with requires --verify-out")
			}
			s, err := c.bind(cmd)
			if err != nil {
				return err
			}
			r := c.resolver(cmd)
			keys, err := readAll(r, args)
			if err != nil {
				return err
			}
			sessionKeys, err := readAll(r, withSessionKeys)
			if err != nil {
				return err
			}
			passwords, err := readAll(r, withPasswords)
			if err != nil {
				return err
			}
			certs, err := readAll(r, verifyWith)
			if err != nil {
				return err
			}
			unlock, err := readAll(r, keyPasswords)
			if err != nil {
				return err
			}

			dec := s.Decrypt()
			for _, raw := range sessionKeys {
				sk, err := sop.ParseSessionKey(string(raw))
				if err != nil {
					return err
				}
				dec.WithSessionKey(*sk)
			}
			for _, password := range passwords {
				dec.WithPassword(bytes.TrimRight(password, " \t\r\n"))
			}
			for _, cert := range certs {
				dec.VerifyWithCert(cert)
			}
			err = window.apply(c.opts.now(),
				func(t time.Time) { dec.VerifyNotBefore(t) },
				func(t time.Time) { dec.VerifyNotAfter(t) },
			)
			if err != nil {
				return err
			}
			for _, password := range unlock {
				dec.WithKeyPassword(password)
			}
			for _, key := range keys {
				dec.WithKey(key)
			}
			ready, err := dec.Ciphertext(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := ready.WriteTo(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if res.SessionKey != nil {
				if err := writeTo(r, sessionKeyOut, []byte(res.SessionKey.String()+"\n")); err != nil {
					return err
				}
			}
			var lines bytes.Buffer
			for _, v := range res.Verifications {
				lines.WriteString(v.String() + "\n")
			}
			return writeTo(r, verifyOut, lines.Bytes())
		},
	}
	window.register(cmd.Flags(), "verify-")
	cmd.Flags().StringVar(&sessionKeyOut, "session-key-out", "", "write the session key to `OUT`")
	cmd.Flags().StringVar(&verifyOut, "verify-out", "", "write verifications to `OUT`")
	cmd.Flags().StringArrayVar(&withSessionKeys, "with-session-key", nil, "decrypt with the session key in `SESSIONKEY`")
	cmd.Flags().StringArrayVar(&withPasswords, "with-password", nil, "decrypt with the password in `PASSWORD`")
	cmd.Flags().StringArrayVar(&verifyWith, "verify-with", nil, "verify signatures against the certificate in `CERT`")
	cmd.Flags().StringArrayVar(&keyPasswords, "with-key-password", nil, "unlock keys with the password in `PASSWORD`")
	return cmd
}

package soptest

import (
	"fmt"
	"runtime"

	"github.com/ProtonMail/sop-external/profile"
	"github.com/ProtonMail/sop-external/sop"
)

// SpecVersion is the first line of `version --sop-spec`.
const SpecVersion = "~draft-dkg-openpgp-stateless-cli-10"

const backendVersion = "ProtonMail go-crypto v1"

func (b *backend) version(args []string) error {
	fs := newFlagSet("version")
	backendFlag := fs.Bool("backend", false, "")
	extended := fs.Bool("extended", false, "")
	sopSpec := fs.Bool("sop-spec", false, "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	selected := 0
	for _, set := range []bool{*backendFlag, *extended, *sopSpec} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return sop.NewError(sop.KindIncompatibleOptions, "--backend, --extended and --sop-spec are exclusive")
	}

	switch {
	case *backendFlag:
		fmt.Fprintln(b.stdout, backendVersion)
		fmt.Fprintln(b.stdout, "https://github.com/ProtonMail/go-crypto")
	case *extended:
		fmt.Fprintf(b.stdout, "%s %s\n", Name, Version)
		fmt.Fprintln(b.stdout, backendVersion)
		fmt.Fprintf(b.stdout, "Built with %s\n", runtime.Version())
	case *sopSpec:
		fmt.Fprintln(b.stdout, SpecVersion)
		fmt.Fprintln(b.stdout)
		fmt.Fprintln(b.stdout, "Only the subcommands needed by tests are implemented.")
	default:
		fmt.Fprintf(b.stdout, "%s %s\n", Name, Version)
	}
	return nil
}

func (b *backend) listProfiles(args []string) error {
	fs := newFlagSet("list-profiles")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	presets := profile.Presets(fs.Arg(0))
	if len(presets) == 0 {
		return sop.NewError(sop.KindUnsupportedProfile, "subcommand "+fs.Arg(0)+" has no profiles")
	}
	for _, p := range presets {
		fmt.Fprintln(b.stdout, p.String())
	}
	return nil
}

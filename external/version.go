package external

import (
	"context"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal"
	"github.com/ProtonMail/sop-external/sop"
)

// Version queries the backend's `version` subcommand. Every method
// spawns the backend.
type Version struct {
	sop *SOP
}

// Version returns the version query of the backend.
func (s *SOP) Version() *Version {
	return &Version{sop: s}
}

func (v *Version) run(ctx context.Context, flag string) (string, error) {
	c := v.sop.command(constants.SubcommandVersion)
	if flag != "" {
		c.flag(flag)
	}
	out, err := c.output(ctx, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SplitVersionLine splits "<name> <version>" at the last space. A line
// without a space is both name and version.
func SplitVersionLine(line string) (name, version string) {
	line = strings.TrimSpace(line)
	i := strings.LastIndexAny(line, " \t")
	if i < 0 {
		return line, line
	}
	return strings.TrimSpace(line[:i]), line[i+1:]
}

func (v *Version) split(ctx context.Context) (name, version string, err error) {
	out, err := v.run(ctx, "")
	if err != nil {
		return "", "", err
	}
	name, version = SplitVersionLine(internal.FirstLine(out))
	return name, version, nil
}

// Name returns the backend name.
func (v *Version) Name(ctx context.Context) (string, error) {
	name, _, err := v.split(ctx)
	return name, err
}

// Version returns the backend version.
func (v *Version) Version(ctx context.Context) (string, error) {
	_, version, err := v.split(ctx)
	return version, err
}

// SemVer parses the backend version as a semantic version. Missing minor
// and patch components and a leading "v" are tolerated.
func (v *Version) SemVer(ctx context.Context) (semver.Version, error) {
	version, err := v.Version(ctx)
	if err != nil {
		return semver.Version{}, err
	}
	parsed, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, sop.WrapError(sop.KindBadData, err, "backend version "+strconv.Quote(version))
	}
	return parsed, nil
}

// BackendVersion returns the `--backend` output verbatim.
func (v *Version) BackendVersion(ctx context.Context) (string, error) {
	return v.run(ctx, "backend")
}

// ExtendedVersion returns the `--extended` output verbatim.
func (v *Version) ExtendedVersion(ctx context.Context) (string, error) {
	return v.run(ctx, "extended")
}

// SOPSpecVersion returns the `--sop-spec` output verbatim.
func (v *Version) SOPSpecVersion(ctx context.Context) (string, error) {
	return v.run(ctx, "sop-spec")
}

func (v *Version) specLine(ctx context.Context) (string, error) {
	out, err := v.SOPSpecVersion(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(internal.FirstLine(out)), nil
}

// SOPSpecRevision returns the draft revision the backend implements, the
// number after the last "-" of the --sop-spec line, or -1 if there is none.
func (v *Version) SOPSpecRevision(ctx context.Context) (int, error) {
	line, err := v.specLine(ctx)
	if err != nil {
		return 0, err
	}
	return specRevision(line)
}

func specRevision(line string) (int, error) {
	i := strings.LastIndex(line, "-")
	if i < 0 {
		return -1, nil
	}
	rev, err := strconv.Atoi(line[i+1:])
	if err != nil {
		return 0, sop.WrapError(sop.KindBadData, err, "spec revision in "+strconv.Quote(line))
	}
	return rev, nil
}

// SOPSpecImplementationIncomplete reports whether the backend marks its
// implementation of the draft as incomplete with a leading "~".
func (v *Version) SOPSpecImplementationIncomplete(ctx context.Context) (bool, error) {
	line, err := v.specLine(ctx)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(line, "~"), nil
}

// SOPSpecImplementationRemarks returns the text following the --sop-spec line,
// empty if there is none.
func (v *Version) SOPSpecImplementationRemarks(ctx context.Context) (string, error) {
	out, err := v.SOPSpecVersion(ctx)
	if err != nil {
		return "", err
	}
	return specRemarks(out), nil
}

func specRemarks(out string) string {
	_, rest, _ := strings.Cut(out, "\n")
	return strings.TrimSpace(rest)
}

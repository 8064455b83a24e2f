package external

import (
	"context"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/profile"
)

// ListProfiles returns the profiles the backend offers for subcommand.
func (s *SOP) ListProfiles(ctx context.Context, subcommand string) ([]profile.Profile, error) {
	c := s.command(constants.SubcommandListProfiles)
	c.operand(subcommand)
	out, err := c.output(ctx, nil)
	if err != nil {
		return nil, err
	}
	return profile.ParseList(string(out))
}

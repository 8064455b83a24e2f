package external

import (
	"context"
	"io"

	"github.com/ProtonMail/sop-external/constants"
)

// Armor configures `armor`.
type Armor struct{ cmd *command }

// Armor starts adding ASCII armor.
func (s *SOP) Armor() *Armor {
	return &Armor{cmd: s.command(constants.SubcommandArmor)}
}

// Label forces the armor block type, one of the constants.ArmorLabel
// values.
func (a *Armor) Label(label string) *Armor {
	a.cmd.flagValue("label", label)
	return a
}

// Data returns data armored.
func (a *Armor) Data(ctx context.Context, data io.Reader) (*Ready, error) {
	return a.cmd.ready(ctx, data)
}

// Dearmor configures `dearmor`.
type Dearmor struct{ cmd *command }

// Dearmor starts removing ASCII armor.
func (s *SOP) Dearmor() *Dearmor {
	return &Dearmor{cmd: s.command(constants.SubcommandDearmor)}
}

// Data returns data without armor.
func (d *Dearmor) Data(ctx context.Context, data io.Reader) (*Ready, error) {
	return d.cmd.ready(ctx, data)
}

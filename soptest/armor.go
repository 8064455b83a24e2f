package soptest

import (
	"github.com/ProtonMail/sop-external/armor"
)

func (b *backend) armor(args []string) error {
	fs := newFlagSet("armor")
	label := fs.String("label", "auto", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	data, err := b.readStdin()
	if err != nil {
		return err
	}
	if armor.IsArmored(data) {
		_, err = b.stdout.Write(data)
		return err
	}
	blockType, err := armor.LabelBlockType(*label, data)
	if err != nil {
		return err
	}
	return b.emit(data, blockType, false)
}

func (b *backend) dearmor(args []string) error {
	if err := parseFlags(newFlagSet("dearmor"), args); err != nil {
		return err
	}
	data, err := b.readStdin()
	if err != nil {
		return err
	}
	if armor.IsArmored(data) {
		if data, err = armor.Unarmor(data); err != nil {
			return err
		}
	}
	_, err = b.stdout.Write(data)
	return err
}

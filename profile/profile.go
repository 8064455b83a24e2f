// Package profile provides SOP profiles: the named parameter sets a backend
// advertises through `list-profiles` and accepts through `--profile=`.
package profile

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/sop"
)

const maxLineLength = 1000

const aliasesPrefix = "(aliases: "

// Profile is one line of `list-profiles` output.
type Profile struct {
	Name        string
	Description string
	Aliases     []string
}

// New creates a profile and validates it.
func New(name, description string, aliases ...string) (*Profile, error) {
	p := &Profile{
		Name:        name,
		Description: strings.TrimSpace(description),
		Aliases:     aliases,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the name is usable on a command line and that the
// line form fits in 1000 bytes.
func (p *Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("sop: profile name cannot be empty")
	case strings.Contains(p.Name, ":"):
		return errors.New("sop: profile name cannot contain ':'")
	case strings.ContainsAny(p.Name, " \n\t\r"):
		return errors.New("sop: profile name cannot contain whitespace")
	case len(p.String()) > maxLineLength:
		return errors.New("sop: profile line exceeds 1000 bytes")
	}
	return nil
}

// String returns the line form "name: description (aliases: a, b)".
func (p *Profile) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Description != "" || len(p.Aliases) > 0 {
		b.WriteByte(':')
	}
	if p.Description != "" {
		b.WriteString(" " + p.Description)
	}
	if len(p.Aliases) > 0 {
		b.WriteString(" " + aliasesPrefix + strings.Join(p.Aliases, ", ") + ")")
	}
	return b.String()
}

// Matches reports whether name is the profile name or one of its aliases.
func (p *Profile) Matches(name string) bool {
	if p.Name == name {
		return true
	}
	for _, alias := range p.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

// Parse parses one line of `list-profiles` output.
func Parse(line string) (*Profile, error) {
	line = strings.TrimRight(line, "\r\n")
	var p *Profile
	var err error
	if i := strings.Index(line, ": "); i >= 0 {
		name, description := line[:i], strings.TrimSpace(line[i+2:])
		var aliases []string
		if j := strings.Index(description, aliasesPrefix); j >= 0 {
			list := description[j+len(aliasesPrefix):]
			if k := strings.Index(list, ")"); k >= 0 {
				list = list[:k]
			}
			aliases = strings.Split(list, ", ")
			description = description[:j]
		}
		p, err = New(name, description, aliases...)
	} else {
		p, err = New(strings.TrimSuffix(strings.TrimSpace(line), ":"), "")
	}
	if err != nil {
		return nil, sop.WrapError(sop.KindBadData, err, "malformed profile line")
	}
	return p, nil
}

// ParseList parses every non-blank line of `list-profiles` output.
func ParseList(out string) ([]Profile, error) {
	var profiles []Profile
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, err := Parse(line)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

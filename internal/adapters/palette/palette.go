// Package palette resolves command tokens against the list of common cargo commands.
package palette

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultCommands are offered by the palette in this order.
var DefaultCommands = []string{
	"test",
	"check",
	"build",
	"build --release",
	"clean",
	"clippy",
	"clippy -- -D warnings",
	"fmt",
	"fmt -- --check",
	"doc",
	"doc --open",
	"update",
	"bench",
	"run",
	"run --release",
}

// Match is a command matching a query, with the matched character positions.
type Match struct {
	Command string
	Indexes []int
}

// Palette matches queries against a fixed command list.
type Palette struct {
	commands []string
	known    map[string]struct{}
}

// New creates a palette over commands, or DefaultCommands when none are given.
func New(commands ...string) *Palette {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	known := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		if f := strings.Fields(c); len(f) > 0 {
			known[f[0]] = struct{}{}
		}
	}
	return &Palette{commands: slices.Clone(commands), known: known}
}

// Commands returns the full list.
func (p *Palette) Commands() []string {
	return slices.Clone(p.commands)
}

// Filter returns the commands matching query, best first. An empty query matches everything.
func (p *Palette) Filter(query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Match, len(p.commands))
		for i, c := range p.commands {
			out[i] = Match{Command: c}
		}
		return out
	}

	found := fuzzy.Find(query, p.commands)
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{Command: m.Str, Indexes: m.MatchedIndexes}
	}
	return out
}

// Resolve turns a token into a command. A token naming a known subcommand is
// used verbatim, extra arguments included. Anything else resolves to the best
// fuzzy match.
func (p *Palette) Resolve(token string) (domain.Command, error) {
	cmd, err := domain.ParseCommand(token)
	if err != nil {
		return domain.Command{}, err
	}
	if _, ok := p.known[cmd.Name]; ok {
		return cmd, nil
	}

	matches := p.Filter(token)
	if len(matches) == 0 {
		return domain.Command{}, zerr.With(zerr.Wrap(domain.ErrUnknownCommand, "no command matches"), "token", token)
	}
	return domain.ParseCommand(matches[0].Command)
}

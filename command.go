package parkour

import (
	"context"
	"errors"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

// RegisterCommands registers /play, /leave and /levels with dragonfly.
func RegisterCommands() {
	cmd.Register(cmd.New("play", "Play a parkour level.", []string{"p"}, PlayCommand{}))
	cmd.Register(cmd.New("leave", "Leave the current parkour level.", nil, LeaveCommand{}))
	cmd.Register(cmd.New("levels", "List the parkour levels.", nil, LevelsCommand{}))
}

// PlayCommand starts a level by name or id.
type PlayCommand struct {
	Level cmd.Varargs `cmd:"level"`
}

// Run implements cmd.Runnable.
func (c PlayCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, m, _ := Command(src)
	if m == nil {
		o.Error("This command can only be used by players.")
		return
	}
	name := strings.TrimSpace(string(c.Level))
	if name == "" {
		o.Error("Usage: /play <level>")
		return
	}

	s, err := m.PlayNamed(context.Background(), NewPlayerRef(p), NewBody(p), name)
	switch {
	case errors.Is(err, ErrLevelNotFound):
		o.Errorf("Unknown level %q.", name)
	case err != nil:
		m.log.Warn("parkour: play failed", "player", p.Name(), "level", name, "err", err)
		o.Errorf("Could not start %q.", name)
	default:
		o.Printf("Playing %s.", s.Level().Name)
	}
}

// LeaveCommand closes the player's session.
type LeaveCommand struct{}

// Run implements cmd.Runnable.
func (LeaveCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, m, s := Command(src)
	if m == nil {
		o.Error("This command can only be used by players.")
		return
	}
	if s == nil {
		o.Error("You are not playing a level.")
		return
	}
	m.Close(p.UUID(), NewBody(p))
	o.Printf("You left %s.", s.Level().Name)
}

// LevelsCommand lists the levels.
type LevelsCommand struct{}

// Run implements cmd.Runnable.
func (LevelsCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	_, m, _ := Command(src)
	if m == nil {
		o.Error("This command can only be used by players.")
		return
	}
	levels := m.Levels()
	if len(levels) == 0 {
		o.Print("There are no levels.")
		return
	}
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.Name
	}
	o.Printf("Levels (%d): %s", len(levels), strings.Join(names, ", "))
}

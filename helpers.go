package parkour

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
)

// managerFromPlayer extracts the manager from a player's handler.
// Returns nil if the player doesn't have a PlayerHandler.
func managerFromPlayer(p *player.Player) *Manager {
	h, ok := p.Handler().(*PlayerHandler)
	if !ok {
		return nil
	}
	return h.manager
}

// Command extracts the player, the manager and the player's session from a command source.
// The player and manager are nil if the source is not a player handled by a PlayerHandler;
// the session is nil if the player is not playing a level.
//
// Usage:
//
//	func (c MyCommand) Run(src cmd.Source, out *cmd.Output, tx *world.Tx) {
//	    p, m, sess := parkour.Command(src)
//	    if m == nil {
//	        out.Error("Player-only command")
//	        return
//	    }
//	    // Use p, m and sess...
//	}
//
// Commands are executed synchronously with the player, just like handlers.
func Command(src cmd.Source) (*player.Player, *Manager, *Session) {
	p, ok := src.(*player.Player)
	if !ok {
		return nil, nil, nil
	}
	m := managerFromPlayer(p)
	if m == nil {
		return nil, nil, nil
	}
	return p, m, m.Session(p.UUID())
}

package parkour

import (
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// PlayerHandler forwards dragonfly player events to the player's session.
// Attach it to every player that may play levels:
//
//	for p := range srv.Accept() {
//	    p.Handle(parkour.NewPlayerHandler(mngr))
//	}
//
// Events of players without a session are ignored.
type PlayerHandler struct {
	player.NopHandler
	manager *Manager
}

// NewPlayerHandler creates a handler bound to the manager.
func NewPlayerHandler(m *Manager) *PlayerHandler {
	return &PlayerHandler{manager: m}
}

// Manager returns the manager the handler forwards to.
func (h *PlayerHandler) Manager() *Manager {
	return h.manager
}

// session returns the session of p, or nil.
func (h *PlayerHandler) session(p *player.Player) *Session {
	s := h.manager.Session(p.UUID())
	if s == nil || s.Closed() {
		return nil
	}
	return s
}

// HandleMove handles the player moving.
func (h *PlayerHandler) HandleMove(ctx *player.Context, newPos mgl64.Vec3, newRot cube.Rotation) {
	p := ctx.Val()
	s := h.session(p)
	if s == nil {
		return
	}
	if handleMove(s, NewBody(p), p.Position(), newPos, newRot) {
		ctx.Cancel()
	}
}

// HandleToggleSprint handles the player toggling sprinting.
func (h *PlayerHandler) HandleToggleSprint(ctx *player.Context, after bool) {
	p := ctx.Val()
	if s := h.session(p); s != nil {
		s.OnSprintToggle(NewBody(p), after)
	}
}

// HandleHurt handles the player being hurt. Only stall damage is dealt to a player with
// a session; void damage ends the run first.
func (h *PlayerHandler) HandleHurt(ctx *player.Context, damage *float64, immune bool, attackImmunity *time.Duration, src world.DamageSource) {
	p := ctx.Val()
	s := h.session(p)
	if s == nil {
		return
	}
	cancel, ignoreImmunity := handleHurt(s, NewBody(p), src)
	if ignoreImmunity {
		*attackImmunity = 0
	}
	if cancel {
		ctx.Cancel()
	}
}

// HandleHeal handles the player being healed. Only the engine heals a player with a session.
func (h *PlayerHandler) HandleHeal(ctx *player.Context, health *float64, src world.HealingSource) {
	if h.session(ctx.Val()) != nil && !healAllowed(src) {
		ctx.Cancel()
	}
}

// HandleDeath handles the player dying.
func (h *PlayerHandler) HandleDeath(p *player.Player, src world.DamageSource, keepInv *bool) {
	if s := h.session(p); s != nil {
		s.OnExternalFail(NewBody(p), ReasonDeath)
	}
}

// HandleQuit handles the player leaving the server.
func (h *PlayerHandler) HandleQuit(p *player.Player) {
	s := h.session(p)
	if s == nil {
		return
	}
	s.OnExternalFail(nil, ReasonDisconnect)
	h.manager.Close(p.UUID(), nil)
}

// handleMove applies a movement from → to to the session, ending the run if the player
// fell below the level. It reports whether the movement must be cancelled.
func handleMove(s *Session, b Body, from, to mgl64.Vec3, rot cube.Rotation) bool {
	if to.Y() < s.level.FallHeight {
		return s.OnExternalFail(b, ReasonFall)
	}
	return s.OnMove(b, from, to, rot)
}

// handleHurt decides what happens to damage from src. Stall damage is dealt and skips
// attack immunity; everything else is cancelled.
func handleHurt(s *Session, b Body, src world.DamageSource) (cancel, ignoreImmunity bool) {
	switch src.(type) {
	case StallDamageSource:
		return false, true
	case entity.VoidDamageSource:
		s.OnExternalFail(b, ReasonVoid)
	}
	return true, false
}

// healAllowed reports whether healing from src may restore health during a session.
func healAllowed(src world.HealingSource) bool {
	_, ok := src.(RestoreHealingSource)
	return ok
}

// Compile time check to make sure PlayerHandler implements player.Handler.
var _ player.Handler = (*PlayerHandler)(nil)

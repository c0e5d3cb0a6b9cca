package parkour

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Body is the player as seen during one call into the engine. A Body must only be used
// for the duration of the call that received it.
type Body interface {
	// UUID returns the player's UUID.
	UUID() uuid.UUID
	// Name returns the player's name.
	Name() string
	// Position returns the current position.
	Position() mgl64.Vec3
	// Rotation returns the current yaw and pitch.
	Rotation() cube.Rotation
	// Sprinting reports whether the player is sprinting.
	Sprinting() bool
	// Sneaking reports whether the player is sneaking.
	Sneaking() bool
	// OnGround reports whether the player stands on a block.
	OnGround() bool
	// Health returns the current health.
	Health() float64
	// Damage removes health as a stall penalty.
	Damage(amount float64)
	// Restore sets health back to the maximum.
	Restore()
	// Teleport moves the player to pos.
	Teleport(pos mgl64.Vec3)
	// SetAdventure puts the player in adventure mode, so that blocks cannot be changed
	// and stall damage is taken.
	SetAdventure()
	// HideOthers hides every other player in the world from the player.
	HideOthers()
	// ShowOthers reverts HideOthers.
	ShowOthers()
}

// PlayerRef is a persistent reference to a player that outlives a single call.
type PlayerRef interface {
	// Exec runs fn with the player's Body inside the player's transaction. It returns
	// false if the player could not be reached.
	Exec(fn func(b Body)) bool
}

// StallDamageSource is the damage source of the stall penalty.
type StallDamageSource struct{}

func (StallDamageSource) ReducedByArmour() bool     { return false }
func (StallDamageSource) ReducedByResistance() bool { return false }
func (StallDamageSource) Fire() bool                { return false }
func (StallDamageSource) IgnoreTotem() bool         { return true }

// RestoreHealingSource is the healing source used when a run ends.
type RestoreHealingSource struct{}

func (RestoreHealingSource) HealingSource() {}

// playerBody adapts a *player.Player to Body.
type playerBody struct {
	*player.Player
}

// NewBody wraps p. The result is only valid inside the transaction p belongs to.
func NewBody(p *player.Player) Body {
	return playerBody{Player: p}
}

// Damage implements Body.
func (b playerBody) Damage(amount float64) {
	b.Hurt(amount, StallDamageSource{})
}

// Restore implements Body.
func (b playerBody) Restore() {
	if missing := b.MaxHealth() - b.Health(); missing > 0 {
		b.Heal(missing, RestoreHealingSource{})
	}
}

// SetAdventure implements Body.
func (b playerBody) SetAdventure() {
	b.SetGameMode(world.GameModeAdventure)
}

// HideOthers implements Body.
func (b playerBody) HideOthers() {
	for e := range b.Tx().Players() {
		if e != b.Player {
			b.HideEntity(e)
		}
	}
}

// ShowOthers implements Body.
func (b playerBody) ShowOthers() {
	for e := range b.Tx().Players() {
		if e != b.Player {
			b.ShowEntity(e)
		}
	}
}

// PlayerOf returns the dragonfly player behind b, if there is one.
func PlayerOf(b Body) (*player.Player, bool) {
	pb, ok := b.(playerBody)
	if !ok {
		return nil, false
	}
	return pb.Player, true
}

// handleRef adapts an entity handle to PlayerRef.
type handleRef struct {
	handle *world.EntityHandle
}

// NewPlayerRef returns a PlayerRef backed by the entity handle of p.
func NewPlayerRef(p *player.Player) PlayerRef {
	return handleRef{handle: p.H()}
}

// Exec implements PlayerRef. It must not be called from inside a transaction of the
// player's world.
func (r handleRef) Exec(fn func(b Body)) bool {
	var found bool
	ok := r.handle.ExecWorld(func(tx *world.Tx, e world.Entity) {
		p, isPlayer := e.(*player.Player)
		if !isPlayer {
			return
		}
		found = true
		fn(playerBody{Player: p})
	})
	return ok && found
}

// Compile time check to make sure playerBody implements Body.
var _ Body = playerBody{}

package parkour

import (
	"time"

	"github.com/df-mc/dragonfly/server/player/title"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/sound"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Sound is a cue played to a player.
type Sound uint8

const (
	// SoundStart is played when a run starts.
	SoundStart Sound = iota
	// SoundComplete is played when a run is completed.
	SoundComplete
	// SoundFail is played when a run fails.
	SoundFail
	// SoundWarning is played when the stall timer is armed.
	SoundWarning
)

// String returns the string representation of the sound.
func (s Sound) String() string {
	switch s {
	case SoundStart:
		return "Start"
	case SoundComplete:
		return "Complete"
	case SoundFail:
		return "Fail"
	case SoundWarning:
		return "Warning"
	default:
		return "Unknown"
	}
}

// Presenter shows feedback to a player.
type Presenter interface {
	ShowTitle(b Body, line, subtitle string)
	ShowActionBar(b Body, text string)
	PlaySound(b Body, s Sound)
	Message(b Body, text string)
}

// NopPresenter shows nothing.
type NopPresenter struct{}

func (NopPresenter) ShowTitle(Body, string, string) {}
func (NopPresenter) ShowActionBar(Body, string)     {}
func (NopPresenter) PlaySound(Body, Sound)          {}
func (NopPresenter) Message(Body, string)           {}

// PlayerPresenter presents feedback through dragonfly. Bodies that are not backed by a
// dragonfly player are ignored.
type PlayerPresenter struct {
	// TitleDuration is how long titles stay on screen.
	TitleDuration time.Duration
}

// ShowTitle implements Presenter.
func (pr PlayerPresenter) ShowTitle(b Body, line, subtitle string) {
	p, ok := PlayerOf(b)
	if !ok {
		return
	}
	t := title.New(text.Colourf("<red>%s</red>", line))
	if subtitle != "" {
		t = t.WithSubtitle(text.Colourf("<grey>%s</grey>", subtitle))
	}
	if pr.TitleDuration > 0 {
		t = t.WithDuration(pr.TitleDuration)
	}
	p.SendTitle(t)
}

// ShowActionBar implements Presenter.
func (PlayerPresenter) ShowActionBar(b Body, s string) {
	if p, ok := PlayerOf(b); ok {
		p.SendTip(text.Colourf("<aqua>%s</aqua>", s))
	}
}

// PlaySound implements Presenter.
func (PlayerPresenter) PlaySound(b Body, s Sound) {
	p, ok := PlayerOf(b)
	if !ok {
		return
	}
	var snd world.Sound
	switch s {
	case SoundStart:
		snd = sound.Note{Instrument: sound.Pling(), Pitch: 12}
	case SoundComplete:
		snd = sound.LevelUp{}
	case SoundFail:
		snd = sound.Note{Instrument: sound.Bass(), Pitch: 0}
	case SoundWarning:
		snd = sound.Note{Instrument: sound.Bass(), Pitch: 6}
	default:
		return
	}
	p.PlaySound(snd)
}

// Message implements Presenter.
func (PlayerPresenter) Message(b Body, s string) {
	if p, ok := PlayerOf(b); ok {
		p.Message(text.Colourf("<yellow>%s</yellow>", s))
	}
}

// Package parkour is the run engine of a rhythm-parkour minigame for Dragonfly servers.
//
// A level is a course: an ordered list of waypoints between a start and a finish border.
// While a player plays a level, the engine decides on every movement whether the player
// is still running forward along the course, scores how closely the waypoints are
// followed, and ends the run on success or failure:
//   - Sessions move through the phases Preparing, Ready and Running
//   - Runs start when the start border is crossed while sprinting on the ground
//   - Looking away from the course, moving back, dying or falling fails a run
//   - Stopping to sprint arms a timer that damages the player until the run fails
//   - Levels with an audio track wait for the track to be delivered before opening
//
// # Quick Start
//
// Initialize the engine in your server setup:
//
//	levels, err := parkour.LoadLevels("levels.toml", conf.Direction.Epsilon)
//	if err != nil {
//	    panic(err)
//	}
//	mngr := parkour.NewBuilder().
//	    Config(conf).
//	    Levels(levels).
//	    Init()
//	defer mngr.Shutdown()
//
//	parkour.RegisterCommands()
//	for p := range srv.Accept() {
//	    p.Handle(parkour.NewPlayerHandler(mngr))
//	}
//
// Players then join a level with /play <level> and leave it with /leave.
//
// # Levels
//
// Levels are read from TOML:
//
//	[[level]]
//	name = "Intro"
//	track = "intro"
//	fall_height = 60.0
//	spawn = { x = 0.5, y = 64.0, z = -3.0 }
//	start = { position = { x = 0.0, y = 64.0, z = 0.0 } }
//	finish = { position = { x = 0.0, y = 64.0, z = 120.0 } }
//
//	[[level.waypoint]]
//	x = 0.5
//	y = 64.0
//	z = 0.0
//
// Any LevelProvider can be used instead of a LevelSet.
//
// # Concurrency
//
// Player events and scheduled tasks both run inside the player's world transaction, so a
// session is only ever mutated by one goroutine at a time. Manager methods are safe for
// concurrent use; sessions closed from outside a player's event, by RemoveLevel and
// Shutdown, are closed inside the player's transaction too. Shutdown must therefore not
// be called from a player's transaction.
package parkour

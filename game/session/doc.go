// Package session provides in-memory session management for the CO2 logistics game.
//
// Manager stores sessions by case-insensitive id. Each session owns its own
// engine, built by an EngineFactory that resolves the board's square
// references to dataset locations. Sessions live only in memory and expire
// after a period without access (see RunCleanup).
//
// Usage:
//
//	factory := session.NewEngineFactory(locations, logger,
//		engine.WithRoadProvider(roads),
//		engine.WithRouteValidator(lanes))
//	manager := session.NewManager(factory, logger)
//	go manager.RunCleanup(ctx, time.Minute, 2*time.Hour)
//
//	sess, err := manager.Create("", "classic", board)
//	if err != nil {
//		log.Fatal(err)
//	}
package session

// Package engine provides the core rules of the CO2 logistics board game.
//
// The engine package implements:
//   - Great-circle distances and the per-method fuel and CO2 model
//   - The delivery route stack players build stop by stop
//   - Quest generation with a minimum-emission baseline
//   - The dice / delivery / game-over turn state machine
//   - Board configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the contract for one game session, implemented by
// GameEngine. A GameEngine owns a DeliveryStack, which prices routes through a
// RoadDistanceProvider for truck legs and HaversineKm for ship legs. Port-to-port
// additions are checked against a RouteValidator holding historical shipping lanes.
//
// Usage:
//
//	config, err := engine.LoadBoardConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	squares, err := atlas.Resolve(config.Squares)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.NewEngine(config, squares,
//		engine.WithRoadProvider(provider),
//		engine.WithRouteValidator(validator))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	_ = game.StartGame([]string{"Aiko", "Ben"})
//	roll, _ := game.RollDice(ctx)
//	_, _ = game.ToggleStop(ctx, roll.Quest.To)
//	outcome, err := game.CompleteQuest(ctx)
//
// Game Rules:
//
// Each turn the current player rolls a die, advances along the board and receives a
// delivery quest from the landed square to another square. They build a route by
// toggling stops; legs into ports travel by ship, all others by truck. Completing the
// quest scores ten points per kilogram of CO2 saved against the quest's optimal
// single-method baseline. The game ends when the player on the last square completes
// a quest.
package engine

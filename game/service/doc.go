// Package service provides the business logic layer for the CO2 logistics game.
//
// The service package implements:
//   - Multi-session game management
//   - Turn actions (start, roll, complete, reset, year selection)
//   - Route building by location kind and id
//   - Paginated quest history
//   - Reference data: locations, shipping-lane years and destinations, emission estimates
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages board loading and validation.
// LocationCatalog and PortLanes expose the location datasets and historical lanes.
//
// Results:
//
// Game actions return an ActionResult. When a game rule rejects the action
// (rolling twice, completing away from the destination, toggling without a
// quest) Success is false and Message explains why; the error return is
// reserved for unknown sessions and infrastructure failures.
//
// Usage:
//
//	svc := service.NewGameService(service.Dependencies{
//		Sessions: sessionMgr,
//		Configs:  configMgr,
//		Catalog:  locations,
//		Lanes:    lanes,
//		Logger:   logger,
//	})
//
//	info, err := svc.CreateSession(ctx, "classic", []string{"Aiko", "Ben"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := svc.RollDice(ctx, info.ID)
package service

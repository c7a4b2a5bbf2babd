// Package roads provides road-distance lookups for truck legs.
//
// Implementations of engine.RoadDistanceProvider:
//   - ORSProvider calls the OpenRouteService directions API and reports routes
//     that need a ferry as engine.ErrRouteBlocked
//   - CachedProvider stores results of another provider in a gorm table, on
//     SQLite or Postgres
//   - StraightLineProvider estimates distance offline from the great circle
//
// Usage:
//
//	ors, err := roads.NewORSProvider(apiKey, logger, roads.WithRateLimit(2, 2))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	db, err := roads.OpenCache(roads.CacheOptions{Driver: "sqlite", DSN: "roads.db"}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	provider := roads.NewCachedProvider(db, ors, ors.Profile(), logger)
package roads

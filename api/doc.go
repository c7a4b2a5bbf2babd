// Package api provides the HTTP REST API for the CO2 logistics game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id", "players"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Session details with board
//   - DELETE /api/sessions/{id} - Drop a session
//
// Turn flow:
//   - GET /api/sessions/{id}/state
//   - POST /api/sessions/{id}/start - {"players": ["Aiko", "Ben"]}
//   - POST /api/sessions/{id}/roll
//   - POST /api/sessions/{id}/complete
//   - POST /api/sessions/{id}/reset
//   - PUT /api/sessions/{id}/year - {"year": 2017}
//   - GET /api/sessions/{id}/history?page&limit&order
//
// Route building:
//   - POST /api/sessions/{id}/route/toggle - {"kind": "port", "id": 3}
//   - DELETE /api/sessions/{id}/route/stops/{kind}/{locationID}
//   - POST /api/sessions/{id}/route/clear
//   - POST /api/sessions/{id}/route/recompute
//
// Reference data:
//   - GET /api/locations?kind=port|storage
//   - GET /api/port-routes/years
//   - GET /api/port-routes/destinations?from=横浜&year=2017
//   - GET /api/emissions/estimate?method=truck&distance_km=75
//   - GET /api/configs, POST /api/configs, GET /api/configs/{name}
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - live state updates
//
// A game rule rejection answers 200 with "success": false and a player-facing
// message. Unknown sessions and boards answer 404, malformed input 400.
// Every action pushes the resulting state to the session's WebSocket viewers.
package api

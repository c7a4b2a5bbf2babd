// Package websocket pushes game state to views watching a session.
//
// A central Hub owns the client registry; only its Run goroutine touches it.
// Clients connect with ?session=<id> and receive JSON messages:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "quest_completed", "data": {...}}
//
// Incoming client messages are ignored. Broadcasts never block the caller:
// when the queue is full the message is dropped, and a client that cannot
// keep up is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.BroadcastToSession(sessionID, state)
package websocket

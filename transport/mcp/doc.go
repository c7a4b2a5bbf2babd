// Package mcp exposes the CO2 logistics game to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package, and the JSON response is rendered as plain text for the
// agent. The MCP server itself holds no game state.
//
// Tools:
//   - create_session, get_session, list_sessions
//   - start_game, roll_dice, complete_quest, reset_game, set_year
//   - toggle_stop, remove_stop, clear_route, recompute_route
//   - game_state, quest_history
//   - list_locations, port_years, port_destinations, estimate_emissions, list_configs
//   - game_instructions
//
// Rule rejections (not at destination, blocked lanes) come back as normal
// text starting with ✗. Transport failures and unknown sessions are returned
// as tool errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp

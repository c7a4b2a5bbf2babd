// Command co2game runs the CO2 logistics board game server.
//
// It supports two commands:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is reachable
//
// Settings come from settings.yaml, CO2GAME_* environment variables and .env;
// flags override both.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/co2-logistics-game/api"
	"github.com/wricardo/co2-logistics-game/internal/logging"
	"github.com/wricardo/co2-logistics-game/internal/settings"
	"github.com/wricardo/co2-logistics-game/transport/mcp"
	"github.com/wricardo/co2-logistics-game/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "CO2 Logistics Game Server"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "co2game",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "settings", Usage: "Path to a settings file (default: ./settings.yaml if present)"},
			&cli.StringFlag{Name: "config-dir", Usage: "Directory containing board configurations"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "console or json"},
			&cli.BoolFlag{Name: "debug", Usage: "Shorthand for --log-level debug"},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run the HTTP server with REST API, WebSocket and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
					&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
					&cli.BoolFlag{Name: "ngrok", Usage: "Expose the server through an ngrok tunnel"},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain"},
				},
				Action: runServer,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "REST API to proxy; started internally when unreachable"},
				},
				Action: runStdioMCP,
			},
		},
	}
}

// loadSettings reads settings and applies flag overrides
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	s, err := settings.Load(cmd.String("settings"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("config-dir") {
		s.Game.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("log-level") {
		s.Logging.Level = cmd.String("log-level")
	}
	if cmd.Bool("debug") {
		s.Logging.Level = "debug"
	}
	if cmd.IsSet("log-format") {
		s.Logging.Format = cmd.String("log-format")
	}
	if cmd.IsSet("host") {
		s.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Server.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("ngrok") {
		s.Ngrok.Enabled = true
	}
	if cmd.IsSet("ngrok-auth") {
		s.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := settings.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// runServer starts the HTTP server with REST API, WebSocket hub and an /mcp
// endpoint, plus an ngrok tunnel when enabled.
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("version", Version).Msg("Starting " + AppName)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer app.Close()

	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	go hub.Run(ctx)

	addr := cfg.Server.Addr()
	handler := newRouter(api.NewServer(app.service, hub, logger), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("api", "http://"+addr+"/api").
			Str("websocket", "ws://"+addr+"/ws?session=<session_id>").
			Str("mcp", "http://"+addr+"/mcp").
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			serveNgrok(gctx, cfg.Ngrok, handler, logger)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("Server stopped")
	return err
}

// newRouter mounts the API at the root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	router := http.NewServeMux()
	router.Handle("/", apiServer)
	router.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return router
}

// mcpHandler answers one JSON-RPC message per POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// serveNgrok exposes handler through a tunnel until ctx is done
func serveNgrok(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler, logger zerolog.Logger) {
	log := logger.With().Str("component", "ngrok").Logger()

	tunnel := ngrokConfig.HTTPEndpoint()
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info().Str("domain", cfg.Domain).Msg("Using custom ngrok domain")
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.Info().
		Str("url", url).
		Str("api", url+"/api").
		Str("mcp", url+"/mcp").
		Msg("Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// runStdioMCP serves MCP over stdio. It reuses the API at --api-url when it
// answers /health; otherwise it starts an internal API on a loopback port.
// Logs go to stderr because stdout carries the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := cmd.String("api-url")
	if !apiReachable(ctx, baseURL) {
		logger.Info().Str("api", baseURL).Msg("No external API server found, starting internal HTTP server")

		app, err := buildApplication(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer app.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(app.service, nil, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	logger.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

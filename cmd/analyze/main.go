// Command analyze prints quick, human-readable checks of the game datasets.
// It validates board files against the location atlas, counts shipping lanes
// per year and compares transport methods between two locations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/wricardo/co2-logistics-game/game/atlas"
	"github.com/wricardo/co2-logistics-game/game/config"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/portroute"
	"github.com/wricardo/co2-logistics-game/roads"
)

var (
	dataDir   string
	configDir string
	verbose   bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Inspect boards, shipping lanes and transport estimates",
		Long: `analyze reads the same datasets as the game server and reports on them.

Examples:
  analyze boards
  analyze lanes
  analyze estimate port:1 storage:3 --year 2016`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "data", "Directory holding ports.geojson, storages.geojson and port_to_port_data.csv")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "configs", "Directory holding board configurations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log dataset loading")

	rootCmd.AddCommand(newBoardsCommand())
	rootCmd.AddCommand(newLanesCommand())
	rootCmd.AddCommand(newEstimateCommand())

	return rootCmd
}

func logger(cmd *cobra.Command) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
}

func loadAtlas() (*atlas.Atlas, error) {
	return atlas.Load(filepath.Join(dataDir, "ports.geojson"), filepath.Join(dataDir, "storages.geojson"))
}

func loadLanes(ctx context.Context, log zerolog.Logger) (*portroute.Validator, error) {
	lanes := portroute.New(portroute.FileSource(filepath.Join(dataDir, "port_to_port_data.csv")), log)
	if err := lanes.Initialize(ctx); err != nil {
		return nil, err
	}
	return lanes, nil
}

func newBoardsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "Validate every board file against the location atlas",
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := loadAtlas()
			if err != nil {
				return err
			}
			lanes, err := loadLanes(cmd.Context(), logger(cmd))
			if err != nil {
				return err
			}
			manager, err := config.NewManager(configDir)
			if err != nil {
				return err
			}
			boards, err := manager.ListConfigs()
			if err != nil {
				return err
			}

			failed := 0
			for _, info := range boards {
				if !analyzeBoard(cmd.OutOrStdout(), manager, places, lanes, info.Filename) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d boards failed", failed, len(boards))
			}
			return nil
		},
	}
}

// analyzeBoard prints a summary of one board and reports whether it is playable
func analyzeBoard(out io.Writer, manager *config.Manager, places *atlas.Atlas, lanes engine.RouteValidator, filename string) bool {
	fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filename)

	board, err := manager.LoadConfig(filename)
	if err != nil {
		fmt.Fprintf(out, "⚠️  %v\n", err)
		return false
	}

	fmt.Fprintf(out, "Name: %s\n", board.Name)
	fmt.Fprintf(out, "Default Year: %s\n", board.DefaultYear)
	fmt.Fprintf(out, "Max Players: %d\n", board.MaxPlayers)

	squares, err := places.Resolve(board.Squares)
	if err != nil {
		fmt.Fprintf(out, "⚠️  CRITICAL: %v\n", err)
		return false
	}

	ports := 0
	seen := map[engine.LocationKey]int{}
	for _, sq := range squares {
		if sq.IsPort() {
			ports++
		}
		seen[sq.Key()]++
	}
	fmt.Fprintf(out, "Squares: %d (%d ports, %d storages)\n", len(squares), ports, len(squares)-ports)

	for key, n := range seen {
		if n > 1 {
			fmt.Fprintf(out, "⚠️  WARNING: %s appears on %d squares\n", key, n)
		}
	}

	// neighbouring port squares are where a ship quest is likely
	year := board.DefaultYear
	if year == "" {
		year = engine.DefaultYear
	}
	pairs, sailable := 0, 0
	for i := range squares {
		from, to := squares[i], squares[(i+1)%len(squares)]
		if !from.IsPort() || !to.IsPort() {
			continue
		}
		pairs++
		if lanes.IsValidRoute(from.Name, to.Name, year) {
			sailable++
		}
	}
	if pairs > 0 && sailable == 0 {
		fmt.Fprintf(out, "⚠️  WARNING: none of %d neighbouring port pairs has a lane in %s\n", pairs, year)
	} else {
		fmt.Fprintf(out, "✅ %d of %d neighbouring port pairs have a lane in %s\n", sailable, pairs, year)
	}
	return true
}

func newLanesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lanes",
		Short: "Count shipping lanes per year",
		RunE: func(cmd *cobra.Command, args []string) error {
			lanes, err := loadLanes(cmd.Context(), logger(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			years := lanes.AvailableYears()
			if len(years) == 0 {
				fmt.Fprintln(out, "No lanes loaded")
				return nil
			}
			for _, year := range years {
				fmt.Fprintf(out, "%s: %d lanes\n", year, lanes.RouteCount(year))
			}
			return nil
		},
	}
}

func newEstimateCommand() *cobra.Command {
	var (
		year   string
		detour float64
	)

	cmd := &cobra.Command{
		Use:   "estimate <from> <to>",
		Short: "Compare truck, ship and air between two locations",
		Long: `Locations are written kind:id or kind:name, for example port:1 or storage:東京物流センター.
Road distances use the straight-line estimate so no routing service is needed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			places, err := loadAtlas()
			if err != nil {
				return err
			}
			from, err := parseLocation(places, args[0])
			if err != nil {
				return err
			}
			to, err := parseLocation(places, args[1])
			if err != nil {
				return err
			}
			lanes, err := loadLanes(cmd.Context(), logger(cmd))
			if err != nil {
				return err
			}

			est := engine.Estimator{
				Roads:     roads.StraightLineProvider{DetourFactor: detour},
				Validator: lanes,
				Logger:    logger(cmd),
			}
			best, options := est.Estimate(cmd.Context(), from, to, year)
			printEstimate(cmd.OutOrStdout(), from, to, year, best, options)
			return nil
		},
	}

	cmd.Flags().StringVar(&year, "year", engine.DefaultYear, "Lane year for ship eligibility")
	cmd.Flags().Float64Var(&detour, "detour", roads.DefaultDetourFactor, "Road detour factor over straight-line distance")

	return cmd
}

// parseLocation resolves kind:id or kind:name against the atlas
func parseLocation(places *atlas.Atlas, arg string) (engine.Location, error) {
	kindStr, ref, ok := strings.Cut(arg, ":")
	if !ok || ref == "" {
		return engine.Location{}, fmt.Errorf("location %q must be kind:id or kind:name", arg)
	}

	kind := engine.LocationKind(kindStr)
	if kind != engine.Port && kind != engine.Storage {
		return engine.Location{}, fmt.Errorf("unknown location kind %q", kindStr)
	}

	if id, err := strconv.Atoi(ref); err == nil {
		return places.Lookup(kind, id)
	}
	if loc, ok := places.FindByName(kind, ref); ok {
		return loc, nil
	}
	return engine.Location{}, fmt.Errorf("%s %q: %w", kind, ref, atlas.ErrLocationNotFound)
}

func printEstimate(out io.Writer, from, to engine.Location, year string, best engine.MethodEstimate, options []engine.MethodEstimate) {
	fmt.Fprintf(out, "%s → %s (%s)\n", from.Name, to.Name, year)
	for _, opt := range options {
		if !opt.Eligible {
			fmt.Fprintf(out, "  %-5s not available (%s)\n", opt.Method, opt.Reason)
			continue
		}
		marker := " "
		if opt.Method == best.Method {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-5s %8.1f km %8.2f L %8.2f kg CO2\n", marker, opt.Method, opt.DistanceKm, opt.FuelLiters, opt.CO2Kg)
	}
}

// Package cli implements the interactive command-line interface for
// Lobbyscope: tabular session listings, cache inspection, and manual
// refresh control.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/lobbyscope-project/lobbyscope/internal/assemble"
	"github.com/lobbyscope-project/lobbyscope/internal/config"
	"github.com/lobbyscope-project/lobbyscope/internal/events"
	"github.com/lobbyscope-project/lobbyscope/internal/fetch"
	"github.com/lobbyscope-project/lobbyscope/internal/lobby"
)

// SnapshotSource provides the latest snapshot and manual refresh.
type SnapshotSource interface {
	Latest() *assemble.Snapshot
	Refresh(ctx context.Context) (*assemble.Snapshot, error)
}

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg      *config.Config
	eventBus *events.EventBus
	source   SnapshotSource
	routes   []fetch.Route
	memory   *fetch.RouteMemory
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, eventBus *events.EventBus, source SnapshotSource) *CLI {
	return &CLI{
		cfg:      cfg,
		eventBus: eventBus,
		source:   source,
	}
}

// SetRouteInfo injects the route chain and its memory for the routes
// command.
func (c *CLI) SetRouteInfo(routes []fetch.Route, memory *fetch.RouteMemory) {
	c.routes = routes
	c.memory = memory
}

// Start begins the interactive CLI loop.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nLobbyscope CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("lobbyscope> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if err := c.execute(ctx, cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "list", "sessions", "ls":
		c.printSessions()
	case "show":
		return c.cmdShow(args)
	case "players":
		c.printPlayers()
	case "mods":
		c.printMods()
	case "routes":
		c.printRoutes()
	case "status":
		c.printStatus()
	case "refresh", "r":
		return c.cmdRefresh(ctx)
	case "setconfig":
		return c.cmdSetConfig(ctx, args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down Lobbyscope...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                   Lobbyscope CLI Commands                    ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  list               Show all lobby sessions                  ║")
	fmt.Println("║  show <key>         Show one session in detail               ║")
	fmt.Println("║  players            Show the de-duplicated player cache      ║")
	fmt.Println("║  mods               Show the de-duplicated mod cache         ║")
	fmt.Println("║  routes             Show fetch routes and preference         ║")
	fmt.Println("║  status             Show last snapshot summary               ║")
	fmt.Println("║  refresh            Fetch the directory immediately          ║")
	fmt.Println("║  setconfig <s> <k> <v>  Update a configuration value         ║")
	fmt.Println("║  quit               Shutdown Lobbyscope                      ║")
	fmt.Println("║  help               Show this help message                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printSessions displays the session list in a formatted table.
func (c *CLI) printSessions() {
	snap := c.source.Latest()
	if snap == nil {
		fmt.Println("No snapshot yet. Run 'refresh' first.")
		return
	}

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Key", "Name", "Mode", "Phase", "Map", "Players", "Locked"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, sess := range snap.Sessions {
		locked := ""
		if sess.Locked || sess.Password {
			locked = "yes"
		}
		tw.Append([]string{
			sess.Key,
			sess.Name,
			sess.GameMode.String(),
			sess.Phase.String(),
			sess.MapFile,
			fmt.Sprintf("%d/%d", len(sess.Players), sess.MaxPlayers),
			locked,
		})
	}

	tw.Render()
	fmt.Printf("\n%d sessions as of %s via %s\n\n",
		len(snap.Sessions), snap.Timestamp.Format("15:04:05"), snap.RouteUsed)
}

func (c *CLI) cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: show <key>")
	}
	snap := c.source.Latest()
	if snap == nil {
		fmt.Println("No snapshot yet. Run 'refresh' first.")
		return nil
	}

	for _, sess := range snap.Sessions {
		if sess.Key == args[0] {
			c.printSessionDetail(sess)
			return nil
		}
	}
	return fmt.Errorf("session not found: %s", args[0])
}

// printSessionDetail prints detailed info for a single session.
func (c *CLI) printSessionDetail(sess lobby.Session) {
	fmt.Printf("\n  Key:          %s\n", sess.Key)
	fmt.Printf("  Name:         %s\n", sess.Name)
	fmt.Printf("  Game Type:    %s\n", sess.GameType)
	fmt.Printf("  Game Mode:    %s\n", sess.GameMode)
	fmt.Printf("  Phase:        %s\n", sess.Phase)
	fmt.Printf("  NAT:          %s\n", sess.NAT.Name)
	fmt.Printf("  Map File:     %s\n", sess.MapFile)
	if sess.MapInfo != nil && sess.MapInfo.Name != "" {
		fmt.Printf("  Map Name:     %s\n", sess.MapInfo.Name)
	}
	fmt.Printf("  Players:      %d/%d\n", len(sess.Players), sess.MaxPlayers)
	fmt.Printf("  Locked:       %v\n", sess.Locked)
	fmt.Printf("  Password:     %v\n", sess.Password)
	if sess.JoinURL != "" {
		fmt.Printf("  Join URL:     %s\n", sess.JoinURL)
	}

	if len(sess.Mods) > 0 {
		fmt.Println("  Mods:")
		for _, m := range sess.Mods {
			name := m.Name
			if name == "" {
				name = m.ID
			}
			fmt.Printf("    - %s\n", name)
		}
	}

	if len(sess.Players) > 0 {
		fmt.Println("  Roster:")
		for _, p := range sess.Players {
			marks := ""
			if p.Host {
				marks += " [host]"
			}
			if p.Commander {
				marks += " [commander]"
			}
			team := "-"
			if p.Team != nil {
				team = strconv.Itoa(*p.Team)
			}
			fmt.Printf("    - %s (team %s)%s\n", p.Name, team, marks)
		}
	}
	fmt.Println()
}

func (c *CLI) printPlayers() {
	snap := c.source.Latest()
	if snap == nil {
		fmt.Println("No snapshot yet. Run 'refresh' first.")
		return
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Name", "Platform"})
	tw.SetBorder(true)

	for id, p := range snap.Players {
		tw.Append([]string{id, p.Name, p.Platform.String()})
	}
	tw.Render()
	fmt.Printf("%d distinct players\n\n", len(snap.Players))
}

func (c *CLI) printMods() {
	snap := c.source.Latest()
	if snap == nil {
		fmt.Println("No snapshot yet. Run 'refresh' first.")
		return
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Name", "Workshop URL"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, m := range snap.Mods {
		tw.Append([]string{m.ID, m.Name, m.URL})
	}
	tw.Render()
	fmt.Printf("%d distinct mods\n\n", len(snap.Mods))
}

func (c *CLI) printRoutes() {
	if len(c.routes) == 0 {
		fmt.Println("No fallback routes configured.")
		return
	}

	preferred := ""
	if c.memory != nil {
		preferred = c.memory.Last()
	}

	for _, r := range c.routes {
		mark := " "
		if r.Name == preferred {
			mark = "*"
		}
		fmt.Printf("  %s %s\n", mark, r.Name)
	}
	if preferred != "" {
		fmt.Println("  (* = preferred after last success)")
	}
}

func (c *CLI) printStatus() {
	snap := c.source.Latest()
	if snap == nil {
		fmt.Println("No snapshot yet. Run 'refresh' first.")
		return
	}
	fmt.Printf("  Timestamp:  %s\n", snap.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Route:      %s\n", snap.RouteUsed)
	fmt.Printf("  Sessions:   %d\n", len(snap.Sessions))
	fmt.Printf("  Players:    %d\n", len(snap.Players))
	fmt.Printf("  Mods:       %d\n", len(snap.Mods))
	fmt.Printf("  Enrichment: maps=%v physical=%v\n", snap.MapsEnriched, snap.PhysicalEnriched)
}

func (c *CLI) cmdRefresh(ctx context.Context) error {
	c.eventBus.Emit(ctx, events.Event{
		Type:   events.EventRefreshRequested,
		Source: "cli",
	})

	snap, err := c.source.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Refreshed: %d sessions via %s\n", len(snap.Sessions), snap.RouteUsed)
	return nil
}

func (c *CLI) cmdSetConfig(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: setconfig <section> <key> <value>")
	}

	section, key := args[0], args[1]
	raw := strings.Join(args[2:], " ")

	// Coerce obvious bools and numbers so JSON overlay keeps field types.
	var value interface{} = raw
	if raw == "true" || raw == "false" {
		value = raw == "true"
	} else if n, err := strconv.Atoi(raw); err == nil {
		value = n
	}

	if err := c.cfg.UpdateField(section, key, value); err != nil {
		return err
	}

	if result := config.Validate(c.cfg); !result.IsValid() {
		return fmt.Errorf("invalid configuration: %s", result.Errors[0].Message)
	}

	if err := c.cfg.Save(); err != nil {
		return err
	}

	c.eventBus.Emit(ctx, events.Event{
		Type:    events.EventConfigChanged,
		Source:  "cli",
		Payload: section + "." + key,
	})

	log.Info().Str("field", section+"."+key).Msg("config updated via cli")
	fmt.Printf("Config updated: %s.%s = %s\n", section, key, raw)
	return nil
}

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/peterkuimelis/grandline/internal/ai"
	"github.com/peterkuimelis/grandline/internal/app"
	"github.com/peterkuimelis/grandline/internal/game"
	"github.com/peterkuimelis/grandline/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "selfplay":
		err = runSelfplay(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  grandline selfplay [--config FILE] [--p1 DECK] [--p2 DECK] [--p1-ai search|random] [--p2-ai search|random] [--games N] [--verbose]")
	fmt.Println("  grandline import   [--config FILE] --file CATALOG.yaml")
	fmt.Println("  grandline replay   [--config FILE] --game ID")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  selfplay  Play AI against AI and archive the results")
	fmt.Println("  import    Load a YAML card catalog into the database")
	fmt.Println("  replay    Re-run an archived game and print its events")
}

func newController(kind string, player int, a *app.App, seed int64) (game.Controller, error) {
	switch kind {
	case "search":
		s := app.NewSearcher(a.Config.Search, a.Log)
		return ai.NewSearchController(player, s, a.Log.Named("controller")), nil
	case "random":
		return ai.NewRandomController(seed + int64(player)), nil
	}
	return nil, fmt.Errorf("unknown AI %q (want search or random)", kind)
}

func runSelfplay(args []string) error {
	fs := flag.NewFlagSet("selfplay", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config file")
	p1Deck := fs.String("p1", "", "catalog deck id for player 1")
	p2Deck := fs.String("p2", "", "catalog deck id for player 2 (defaults to p1)")
	p1AI := fs.String("p1-ai", "search", "player 1 AI: search or random")
	p2AI := fs.String("p2-ai", "random", "player 2 AI: search or random")
	games := fs.Int("games", 1, "number of games to play")
	verbose := fs.Bool("verbose", false, "print every game event")
	fs.Parse(args)

	a, err := app.Load(*configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *p1Deck == "" {
		return fmt.Errorf("--p1 is required")
	}
	if *p2Deck == "" {
		*p2Deck = *p1Deck
	}
	decks := [2]*game.Deck{}
	for i, id := range []string{*p1Deck, *p2Deck} {
		if decks[i], err = a.Store.GetDeck(id); err != nil {
			return err
		}
	}

	wins := [3]int{} // P1, P2, draws
	for g := 0; g < *games; g++ {
		seed := a.Config.Game.Seed
		if seed != 0 {
			seed += int64(g)
		}
		var p [2]game.Controller
		for i, kind := range []string{*p1AI, *p2AI} {
			if p[i], err = newController(kind, i, a, seed); err != nil {
				return err
			}
		}

		var events log.EventLogger = log.NewZapLogger(a.Log.Named("game"))
		if *verbose {
			events = log.NewTextLogger(os.Stdout)
		}
		m, err := game.NewMatch(game.MatchConfig{
			Game: game.GameConfig{
				Decks:             decks,
				Seed:              seed,
				StartingPlayer:    (a.Config.Game.StartingPlayer + g) % 2,
				StartingResources: a.Config.Game.StartingResources,
			},
			Logger:   events,
			Zap:      a.Log,
			MaxTurns: a.Config.Game.MaxTurns,
		}, p[0], p[1])
		if err != nil {
			return err
		}
		winner, err := m.Run(ctx)
		if err != nil {
			return fmt.Errorf("game %d: %w", g+1, err)
		}
		if winner < 0 {
			wins[2]++
		} else {
			wins[winner]++
		}
		fmt.Print(m.State.Summary())

		final, err := game.MarshalSnapshot(m.State)
		if err != nil {
			return err
		}
		if _, err := a.Service.Archive(final, [2]string{*p1Deck, *p2Deck}, m.Replay); err != nil {
			return err
		}
		if dir := a.Config.Game.ReplayDir; dir != "" {
			path, err := m.Replay.SaveToFile(dir)
			if err != nil {
				return err
			}
			a.Log.Info("replay saved", zap.String("path", path))
		}
	}
	fmt.Printf("\n%d game(s): P1 %d, P2 %d, draws %d\n", *games, wins[0], wins[1], wins[2])
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config file")
	file := fs.String("file", "", "catalog YAML file to import")
	fs.Parse(args)

	a, err := app.Load(*configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	cat, err := game.LoadCatalogYAML(*file)
	if err != nil {
		return err
	}
	if err := a.Store.Import(cat); err != nil {
		return err
	}
	fmt.Printf("Imported %d cards and %d decks into %s\n", len(cat.Cards()), len(cat.Decks()), a.Config.Catalog.DSN)
	return nil
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configFile := fs.String("config", "", "path to config file")
	id := fs.String("game", "", "archived game id")
	fs.Parse(args)

	a, err := app.Load(*configFile)
	if err != nil {
		return err
	}
	defer a.Close()
	if *id == "" {
		games, err := a.Store.ListGames(20)
		if err != nil {
			return err
		}
		for _, g := range games {
			fmt.Printf("%s  %s vs %s  winner=%d turns=%d  %s\n", g.ID, g.P1DeckID, g.P2DeckID, g.Winner, g.Turns, g.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	rec, err := a.Store.GetGame(*id)
	if err != nil {
		return err
	}
	rp, err := game.DecodeReplay(bytes.NewReader(rec.Replay))
	if err != nil {
		return err
	}
	gs, err := rp.Run(game.NewRules(log.NewTextLogger(os.Stdout), a.Log), -1)
	if err != nil {
		return err
	}
	fmt.Print(gs.Summary())
	sum, err := game.Checksum(gs)
	if err != nil {
		return err
	}
	if gs.Over && sum != rec.Checksum {
		return fmt.Errorf("replay of %s ends in checksum %s, archived %s", rec.ID, sum, rec.Checksum)
	}
	return nil
}

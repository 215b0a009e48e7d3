package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/annel0/spellduel/internal/combat"
	"github.com/annel0/spellduel/internal/config"
	"github.com/annel0/spellduel/internal/entity"
	"github.com/annel0/spellduel/internal/eventbus"
	"github.com/annel0/spellduel/internal/logging"
	"github.com/annel0/spellduel/internal/replay"
	"github.com/annel0/spellduel/internal/spellcard"
)

func main() {
	var (
		command    = flag.String("cmd", "check", "Command: check, tail, stats, types, matches")
		archetypes = flag.String("archetypes", "assets/archetypes.yaml", "Archetype catalog file")
		spellcards = flag.String("spellcards", "assets/spellcards.yaml", "Spellcard library file")
		journalDir = flag.String("journal", "data/replay", "BadgerDB replay journal directory")
		matchID    = flag.String("match", "", "Match ID (default: first match in journal)")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		fromTick   = flag.Uint64("from", 0, "First tick")
		toTick     = flag.Uint64("to", 0, "Last tick (0 = until end)")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		verbose    = flag.Bool("v", false, "Print event payloads")
	)
	flag.Parse()

	// Утилита пишет в stdout, логгер оставляем только для ошибок
	logging.SetDefaultLevels(logging.ERROR, logging.ERROR)

	switch *command {
	case "check":
		if !checkLibrary(*archetypes, *spellcards) {
			os.Exit(1)
		}

	case "types":
		fmt.Println("📋 Combat event types")
		for _, t := range combat.EventTypes {
			fmt.Printf("  %-22s subject %s\n", t, eventbus.Subject(t))
		}

	case "tail", "stats", "matches":
		journal, err := replay.Open(config.ReplayConfig{Enabled: true, Dir: *journalDir})
		if err != nil {
			log.Fatalf("❌ Failed to open journal: %v", err)
		}
		defer journal.Close()

		if *command == "matches" {
			if err := showMatches(journal); err != nil {
				log.Fatalf("❌ Matches failed: %v", err)
			}
			return
		}

		q := replay.Query{
			MatchID:  *matchID,
			FromTick: *fromTick,
			ToTick:   *toTick,
			Types:    parseStringList(*eventTypes),
		}
		if q.MatchID == "" {
			matches, err := journal.Matches()
			if err != nil || len(matches) == 0 {
				log.Fatalf("❌ Journal has no matches")
			}
			q.MatchID = matches[0]
		}

		if *command == "tail" {
			q.Limit = *limit
			err = tailEvents(journal, q, *verbose)
		} else {
			err = showStats(journal, q)
		}
		if err != nil {
			log.Fatalf("❌ %s failed: %v", *command, err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: check, tail, stats, types, matches")
		os.Exit(1)
	}
}

// checkLibrary загружает ассеты и выводит отчёт валидации
func checkLibrary(archetypesFile, spellcardsFile string) bool {
	catalog, err := entity.LoadCatalog(archetypesFile)
	if err != nil {
		fmt.Printf("❌ Archetypes: %v\n", err)
		return false
	}
	fmt.Printf("📦 Archetypes: %s\n", strings.Join(catalog.IDs(), ", "))

	library, report, err := spellcard.LoadLibrary(spellcardsFile, catalog)
	if err != nil {
		fmt.Printf("❌ Spellcards: %v\n", err)
		return false
	}

	fmt.Printf("📚 Spellcards: %d, patterns: %d\n", report.Spellcards, report.Patterns)
	for _, name := range library.Names() {
		def, _ := library.Spellcard(name)
		fmt.Printf("  %-24s threshold %d, actions %d, composites %d, spawns %d\n",
			name, def.Threshold, len(def.Actions), len(def.Composites), def.TotalSpawns())
	}

	if report.OK() {
		fmt.Println("✅ Library is valid")
		return true
	}
	fmt.Printf("\n⚠️ Problems: %d\n", len(report.Problems))
	for _, p := range report.Problems {
		where := p.Spellcard
		if where == "" {
			where = "pattern " + p.Pattern
		}
		if p.Action >= 0 {
			where = fmt.Sprintf("%s action #%d", where, p.Action)
		}
		fmt.Printf("  %s: %v\n", where, p.Err)
	}
	return false
}

// tailEvents выводит события дуэли в порядке тиков
func tailEvents(journal *replay.Journal, q replay.Query, verbose bool) error {
	fmt.Printf("🎬 Match %s (ticks %d..%d, limit: %d)\n", q.MatchID, q.FromTick, q.ToTick, q.Limit)

	events, err := journal.Events(q)
	if err != nil {
		return err
	}
	for _, ev := range events {
		printEvent(ev, verbose)
	}

	fmt.Printf("\n📊 Total events: %d\n", len(events))
	return nil
}

// showStats выводит количество событий по типам
func showStats(journal *replay.Journal, q replay.Query) error {
	fmt.Printf("📊 Event statistics for %s\n", q.MatchID)

	events, err := journal.Events(q)
	if err != nil {
		return err
	}

	byType := make(map[string]int)
	var lastTick uint64
	for _, ev := range events {
		byType[ev.EventType]++
		if ev.Tick > lastTick {
			lastTick = ev.Tick
		}
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Printf("Total events: %d, last tick: %d\n", len(events), lastTick)
	fmt.Println("\nBy event type:")
	for _, t := range types {
		fmt.Printf("  %s: %d events\n", t, byType[t])
	}
	return nil
}

func showMatches(journal *replay.Journal) error {
	matches, err := journal.Matches()
	if err != nil {
		return err
	}
	for _, m := range matches {
		n, err := journal.Count(m)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d events\n", m, n)
	}
	return nil
}

// printEvent выводит событие в читаемом формате
func printEvent(env *eventbus.Envelope, verbose bool) {
	var ev combat.Event
	if err := env.Decode(&ev); err != nil {
		fmt.Printf("[tick %6d] %s %s (undecodable: %v)\n", env.Tick, env.EventType, env.ID, err)
		return
	}

	fmt.Printf("[tick %6d] %-20s side %s", env.Tick, env.EventType, ev.Side)
	switch env.EventType {
	case combat.EventEntityDied:
		fmt.Printf(" %s handle %d", ev.Archetype, ev.Handle)
		if ev.Cause != nil {
			fmt.Printf(" cause %s", ev.Cause)
		}
	case combat.EventChainEffect:
		fmt.Printf(" line %d index %d radius %.1f", ev.Line, ev.Index, ev.Radius)
	case combat.EventSpellcardActivated:
		fmt.Printf(" %s", ev.Spellcard)
	case combat.EventWaveSpawned:
		fmt.Printf(" line %d size %d", ev.Line, ev.Count)
	}
	fmt.Printf(" at (%.2f, %.2f)\n", ev.Position.X, ev.Position.Y)

	if verbose {
		data, _ := json.MarshalIndent(ev, "  ", "  ")
		fmt.Printf("  %s\n", data)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/annel0/worldedit/internal/eventbus"
)

const (
	defaultNatsURL = "nats://127.0.0.1:4222"
	timeFormat     = "15:04:05"
)

func main() {
	var (
		natsURL    = flag.String("nats", envOr("NATS_URL", defaultNatsURL), "NATS server URL")
		stream     = flag.String("stream", envOr("WORLDEDIT_STREAM", "WORLDEDIT"), "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		sources    = flag.String("sources", "", "Source nodes filter (comma-separated)")
		actor      = flag.String("actor", "", "Actor UUID filter")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
		window     = flag.Duration("window", 5*time.Second, "Collection window for stats")
		changes    = flag.Bool("changes", false, "Print cell changes of completed edits")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, bus, filter, &TailOptions{
			Actor:   *actor,
			Limit:   *limit,
			Follow:  *follow,
			Changes: *changes,
		}); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}

	case "stats":
		if err := showStats(ctx, bus, filter, *actor, *window); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}

	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

type TailOptions struct {
	Actor   string
	Limit   int
	Follow  bool
	Changes bool
}

// tailEvents выводит события правок по мере поступления
func tailEvents(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, opts *TailOptions) error {
	fmt.Printf("🎬 Tailing edit events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		count int
	)
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, env *eventbus.Envelope) {
		ev, err := eventbus.DecodeEdit(env.Payload)
		if err != nil {
			fmt.Printf("⚠️  %s: %v\n", env.ID, err)
			return
		}
		if opts.Actor != "" && ev.Actor != opts.Actor {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if !opts.Follow && count >= opts.Limit {
			return
		}
		printEvent(os.Stdout, env, ev, opts.Changes)
		count++
		if !opts.Follow && count >= opts.Limit {
			cancel()
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()

	mu.Lock()
	fmt.Printf("\n📊 Total events: %d\n", count)
	mu.Unlock()
	return nil
}

// EditStats агрегаты по событиям за окно наблюдения
type EditStats struct {
	Total   int
	ByType  map[string]int
	ByKind  map[string]int
	Changed int
}

func newEditStats() *EditStats {
	return &EditStats{ByType: make(map[string]int), ByKind: make(map[string]int)}
}

func (s *EditStats) add(env *eventbus.Envelope, ev *eventbus.EditEvent) {
	s.Total++
	s.ByType[env.EventType]++
	if env.EventType == eventbus.TypeEditCompleted {
		s.ByKind[ev.Kind]++
		s.Changed += ev.Changed
	}
}

// showStats собирает события в течение окна и выводит сводку
func showStats(ctx context.Context, bus eventbus.EventBus, f eventbus.Filter, actor string, window time.Duration) error {
	fmt.Printf("📊 Collecting edit events for %s\n", window)

	var mu sync.Mutex
	stats := newEditStats()
	sub, err := bus.Subscribe(ctx, f, func(_ context.Context, env *eventbus.Envelope) {
		ev, err := eventbus.DecodeEdit(env.Payload)
		if err != nil || (actor != "" && ev.Actor != actor) {
			return
		}
		mu.Lock()
		stats.add(env, ev)
		mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(window):
	}
	sub.Unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	printStats(os.Stdout, stats)
	return nil
}

func printStats(w io.Writer, s *EditStats) {
	fmt.Fprintf(w, "Total events: %d\n", s.Total)
	fmt.Fprintln(w, "\nBy event type:")
	for _, k := range sortedKeys(s.ByType) {
		fmt.Fprintf(w, "  %s: %d events\n", k, s.ByType[k])
	}
	fmt.Fprintln(w, "\nCompleted by kind:")
	for _, k := range sortedKeys(s.ByKind) {
		fmt.Fprintf(w, "  %s: %d edits\n", k, s.ByKind[k])
	}
	fmt.Fprintf(w, "\nCells changed: %d\n", s.Changed)
}

// printEvent выводит событие в читаемом формате
func printEvent(w io.Writer, env *eventbus.Envelope, ev *eventbus.EditEvent, withChanges bool) {
	fmt.Fprintf(w, "[%s] %s [%s] %s %s\n",
		env.Timestamp.Local().Format(timeFormat),
		env.Source,
		env.EventType,
		ev.Kind,
		ev.TaskID)

	fmt.Fprintf(w, "  Actor: %s", ev.Actor)
	if ev.World != "" {
		fmt.Fprintf(w, " World: %s", ev.World)
	}
	if ev.Bounds != "" {
		fmt.Fprintf(w, " Bounds: %s", ev.Bounds)
	}
	fmt.Fprintln(w)

	switch env.EventType {
	case eventbus.TypeEditCompleted:
		fmt.Fprintf(w, "  Changed: %d/%d cells in %dms\n", ev.Changed, ev.Estimated, ev.DurationMs)
		if withChanges {
			for _, c := range ev.Changes {
				fmt.Fprintf(w, "    (%d,%d,%d) %s -> %s\n", c.X, c.Y, c.Z, c.Old, c.New)
			}
			if ev.Truncated {
				fmt.Fprintln(w, "    ...")
			}
		}
	case eventbus.TypeEditFailed:
		fmt.Fprintf(w, "  Error: %s\n", ev.Error)
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

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Command cdecao solves one course-assignment track: reads an instance in
// either the self-contained Simple JSON format or a named track of an
// upstream event export, solves it, and writes the assignment back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cde-ev/cdecao/internal/bnb"
	"github.com/cde-ev/cdecao/internal/config"
	"github.com/cde-ev/cdecao/internal/course"
	"github.com/cde-ev/cdecao/internal/ioformat"
)

const (
	exitOptimal    = 0
	exitInfeasible = 1
	exitUsage      = 2
	exitInternal   = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("cdecao", flag.ContinueOnError)
	fs.SetOutput(stderr)

	printFlag := fs.Bool("print", false, "print the resulting assignment to stdout in addition to writing the output file")
	cde := fs.Bool("cde", false, "treat the input as an upstream event-export document rather than the Simple format")
	track := fs.String("track", "", "track id to flatten (required with --cde)")
	rooms := fs.String("rooms", "", "comma-separated room capacities, enabling the room-fitting extension")
	ignoreCancelled := fs.Bool("ignore-cancelled", false, "un-fix every course read as fixed from the input, allowing it to be cancelled again")
	ignoreAssigned := fs.Bool("ignore-assigned", false, "accepted for CLI-surface completeness with the upstream tool; has no effect, since neither input model carries prior assignments")
	roomFactorField := fs.String("room-factor-field", "", "accepted for CLI-surface completeness with the upstream tool; has no effect in either input mode")
	roomOffsetField := fs.String("room-offset-field", "", "accepted for CLI-surface completeness with the upstream tool; has no effect in either input mode")
	reportNoSolution := fs.Bool("report-no-solution", false, "on Infeasible, print a no-solution notice; the enforced sets of every infeasible search node are logged at debug level")
	workers := fs.Int("workers", 0, "worker pool size; 0 uses the config file's value, or hardware parallelism if unset")
	timeout := fs.Duration("timeout", 0, "wall-clock timeout; 0 uses the config file's value, or no timeout if unset")
	configPath := fs.String("config", "", "optional JSON tuning config (see internal/config); CLI flags override it")
	dotTreePath := fs.String("dot-tree", "", "write a Graphviz DOT rendering of the explored search tree to this path")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	_ = roomFactorField
	_ = roomOffsetField

	positional := fs.Args()
	if len(positional) < 1 {
		fmt.Fprintln(stderr, "usage: cdecao [flags] <input> [output]")
		return exitUsage
	}
	inPath := positional[0]
	outPath := ""
	if len(positional) > 1 {
		outPath = positional[1]
	}
	if *cde && *track == "" {
		fmt.Fprintln(stderr, "cdecao: --track is required with --cde")
		return exitUsage
	}

	logger := newLogger()

	tuning := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			return exitUsage
		}
		tuning = loaded
	}

	effectiveWorkers := *workers
	if effectiveWorkers == 0 {
		effectiveWorkers = tuning.GetWorkers()
	}
	effectiveTimeout := *timeout
	if effectiveTimeout == 0 {
		effectiveTimeout = tuning.GetTimeout()
	}
	var nodeLimit int64
	if tuning.NodeLimit != nil {
		nodeLimit = *tuning.NodeLimit
	}

	roomList, err := parseRooms(*rooms)
	if err != nil {
		fmt.Fprintf(stderr, "cdecao: %v\n", err)
		return exitUsage
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(stderr, "cdecao: reading input: %v\n", err)
		return exitUsage
	}

	var (
		problem *course.Problem
		simple  *ioformat.SimpleInstance
		export  *ioformat.EventExport
	)

	if *cde {
		export, err = ioformat.DecodeEventExport(data)
		if err != nil {
			fmt.Fprintf(stderr, "cdecao: %v\n", err)
			return exitUsage
		}
		if *ignoreCancelled {
			unfixTrack(export, *track)
		}
		problem, simple, err = export.FlattenTrack(*track)
		if err != nil {
			fmt.Fprintf(stderr, "cdecao: %v\n", err)
			return exitUsage
		}
	} else {
		simple, err = ioformat.DecodeSimple(data)
		if err != nil {
			fmt.Fprintf(stderr, "cdecao: %v\n", err)
			return exitUsage
		}
		if *ignoreCancelled {
			for i := range simple.Courses {
				simple.Courses[i].FixedCourse = false
			}
		}
		problem, err = simple.ToProblem()
		if err != nil {
			fmt.Fprintf(stderr, "cdecao: %v\n", err)
			return exitUsage
		}
	}

	if len(roomList) > 0 {
		problem.Rooms = roomList
	}

	_ = ignoreAssigned // no effect: neither the Simple nor the event-export model carries prior assignments to pin

	ctx := context.Background()
	var cancel *atomic.Bool
	if effectiveTimeout > 0 {
		cancel = &atomic.Bool{}
		ctx, stop := context.WithTimeout(ctx, effectiveTimeout)
		defer stop()
		go func() {
			<-ctx.Done()
			cancel.Store(true)
		}()
	}

	var treeLog *bnb.TreeLogger
	if *dotTreePath != "" {
		treeLog = bnb.NewTreeLogger()
	}

	res, err := course.Solve(ctx, problem, course.Options{
		Workers:               effectiveWorkers,
		NodeLimit:             nodeLimit,
		Cancel:                cancel,
		ReportInfeasibleNodes: *reportNoSolution,
		Logger:                logger,
		TreeLog:               treeLog,
	})
	if err != nil {
		fmt.Fprintf(stderr, "cdecao: %v\n", err)
		return exitUsage
	}

	if treeLog != nil {
		if err := writeDOTTree(*dotTreePath, treeLog); err != nil {
			logger.Warn("failed to write dot tree", "error", err)
		}
	}

	logger.Info("solve finished",
		"run_id", res.RunID,
		"reason", res.Reason.String(),
		"nodes_explored", res.NodesExplored,
		"wallclock", res.Wallclock.String(),
	)

	switch res.Reason {
	case course.InternalError:
		fmt.Fprintf(stderr, "cdecao: internal error: %v\n", res.Err)
		return exitInternal
	case course.Infeasible:
		if *reportNoSolution {
			fmt.Fprintln(stdout, "no solution: problem is infeasible")
		}
		return exitInfeasible
	case course.Cancelled:
		fmt.Fprintln(stderr, "cdecao: solve stopped before the search finished")
		return exitInfeasible
	}

	var outData []byte
	if *cde {
		outData, err = ioformat.EncodeTrackPatch(*track, res.Solution)
	} else {
		outData, err = ioformat.EncodeSimpleResult(res.Solution)
	}
	if err != nil {
		fmt.Fprintf(stderr, "cdecao: %v\n", err)
		return exitInternal
	}

	if *printFlag {
		printAssignment(stdout, simple, res.Solution)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, outData, 0o644); err != nil {
			fmt.Fprintf(stderr, "cdecao: writing output: %v\n", err)
			return exitInternal
		}
	} else {
		stdout.Write(outData)
		fmt.Fprintln(stdout)
	}

	return exitOptimal
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("CDECAO_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseRooms(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid room capacity %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// unfixTrack implements --ignore-cancelled in event-export mode: a course
// read as fixed from the upstream export is allowed to be cancelled again.
func unfixTrack(export *ioformat.EventExport, trackID string) {
	for ti := range export.Tracks {
		if export.Tracks[ti].ID != trackID {
			continue
		}
		for ci := range export.Tracks[ti].Courses {
			export.Tracks[ti].Courses[ci].FixedCourse = false
		}
		return
	}
}

func writeDOTTree(path string, tl *bnb.TreeLogger) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	tl.ToDOT(f)
	return nil
}

func printAssignment(stdout *os.File, simple *ioformat.SimpleInstance, sol course.Solution) {
	names := []string(nil)
	if simple != nil {
		names = simple.ParticipantNames()
	}
	for pi, ci := range sol.Assignment {
		name := fmt.Sprintf("participant %d", pi)
		if pi < len(names) && names[pi] != "" {
			name = names[pi]
		}
		fmt.Fprintf(stdout, "%s -> course %d\n", name, ci)
	}
	fmt.Fprintf(stdout, "objective: %d\n", sol.Objective)
}

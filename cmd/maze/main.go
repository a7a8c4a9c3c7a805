// Command maze animates generation and solving of a maze in the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/maze-server/internal/maze"
)

const clearScreen = "\033[H\033[2J"

var (
	log = logrus.New()

	width, height int
	startX        int
	startY        int
	delay         time.Duration
	seed          uint64
)

func init() {
	flag.IntVar(&width, "width", 20, "maze width in cells")
	flag.IntVar(&height, "height", 10, "maze height in cells")
	flag.IntVar(&startX, "x", 0, "generation start column")
	flag.IntVar(&startY, "y", 0, "generation start row")
	flag.DurationVar(&delay, "delay", 20*time.Millisecond, "pause between animation steps")
	flag.Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
}

func render(w *bufio.Writer, snap *maze.Snapshot) error {
	fmt.Fprint(w, clearScreen)
	fmt.Fprint(w, snap.Grid.String())
	fmt.Fprintf(w, "%-13s step %d, walls removed %d, explored %d, backtracks %d",
		snap.Phase, snap.Stats.Steps, snap.Stats.WallsRemoved,
		snap.Stats.CellsExplored, snap.Stats.Backtracks)
	if snap.Phase == maze.PhaseSolved {
		fmt.Fprintf(w, ", path %d", snap.Stats.PathLength)
	}
	fmt.Fprintln(w)
	return w.Flush()
}

func main() {
	flag.Parse()
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seed == 0 {
		seed = rand.Uint64()
	}
	m, err := maze.New(width, height, maze.Options{
		Rand:   rand.New(rand.NewPCG(seed, seed>>32|1)),
		Delay:  delay,
		Logger: log.WithField("seed", seed),
	})
	if err != nil {
		log.Fatal(err)
	}

	sub := m.State().Subscribe()
	out := bufio.NewWriter(os.Stdout)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer m.State().Close()
		return m.Run(gCtx, maze.Coord(startX, startY))
	})
	g.Go(func() error {
		defer sub.Close()
		for snap := range sub.Updates() {
			if err := render(out, snap); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("cancelled")
	case err != nil:
		log.Fatal(err)
	default:
		log.WithField("seed", seed).Info("solved")
	}
}

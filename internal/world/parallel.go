package world

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rigidsim/internal/solver"
)

// solverPool recycles island solvers and their scratch buffers.
type solverPool struct {
	pool sync.Pool
}

func newSolverPool(settings solver.Settings, logger *log.Logger) *solverPool {
	return &solverPool{
		pool: sync.Pool{
			New: func() interface{} {
				return solver.New(settings, logger)
			},
		},
	}
}

func (p *solverPool) Get(settings solver.Settings) *solver.Solver {
	s := p.pool.Get().(*solver.Solver)
	s.SetSettings(settings)
	return s
}

func (p *solverPool) Put(s *solver.Solver) {
	p.pool.Put(s)
}

type islandResult struct {
	stats solver.Stats
	slept int
}

func (w *World) solveIsland(s *solver.Solver, isl *solver.Island, dt float64) islandResult {
	r := islandResult{stats: s.Solve(isl, dt)}
	if w.sleep.Update(isl.Bodies, dt) {
		r.slept = len(isl.Bodies)
	}
	return r
}

// solveIslands solves every island, inline or across at most Workers
// goroutines. Islands share no writable state, so the outcome does not
// depend on the worker count.
func (w *World) solveIslands(islands []*solver.Island, dt float64) (solver.Stats, int) {
	if cap(w.results) < len(islands) {
		w.results = make([]islandResult, len(islands))
	}
	results := w.results[:len(islands)]
	clear(results)
	settings := w.cfg.solverSettings()

	if w.cfg.Workers <= 1 || len(islands) < 2 {
		s := w.pool.Get(settings)
		for i, isl := range islands {
			results[i] = w.solveIsland(s, isl, dt)
		}
		w.pool.Put(s)
	} else {
		var g errgroup.Group
		g.SetLimit(w.cfg.Workers)
		for i, isl := range islands {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("world: island %d: %v", i, r)
					}
				}()
				s := w.pool.Get(settings)
				defer w.pool.Put(s)
				results[i] = w.solveIsland(s, isl, dt)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			w.logger.Error("world: island solve failed", "err", err, "step", w.step)
		}
	}

	var total solver.Stats
	slept := 0
	for _, r := range results {
		total.Add(r.stats)
		slept += r.slept
	}
	return total, slept
}

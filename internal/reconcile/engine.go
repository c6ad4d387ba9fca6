package reconcile

import (
	"context"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stats summarises one engine run.
type Stats struct {
	Groups     int // entity groups seen
	MultiRow   int // groups with more than one row
	Reconciled int // groups whose decision was true
	Filled     int // cells copied from primary rows
}

func (s *Stats) add(o Stats) {
	s.Groups += o.Groups
	s.MultiRow += o.MultiRow
	s.Reconciled += o.Reconciled
	s.Filled += o.Filled
}

// Engine runs Reconcile over many groups.
//
// Groups are independent: every row belongs to exactly one group, so with
// Workers > 1 the groups are sharded by a hash of their identifier and
// reconciled concurrently without sharing a row. Reconciliation happens in
// place, so the table keeps its input order whatever order the workers
// finish in.
type Engine struct {
	// Workers is the number of goroutines; values below 2 run inline.
	Workers int
	// Logger receives one debug line per reconciled group. Nil disables it.
	Logger *zap.Logger
}

// Run reconciles every group. It only fails when ctx is canceled.
func (e Engine) Run(ctx context.Context, groups []EntityGroup, geometryColumns, allColumns []string) (Stats, error) {
	log := e.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if e.Workers < 2 || len(groups) < 2 {
		return reconcileAll(ctx, log, groups, nil, geometryColumns, allColumns)
	}

	shards := make([][]int, e.Workers)
	for i, g := range groups {
		s := xxh3.HashString(g.ID) % uint64(e.Workers)
		shards[s] = append(shards[s], i)
	}

	perWorker := make([]Stats, e.Workers)
	eg, ctx := errgroup.WithContext(ctx)
	for w := range shards {
		if len(shards[w]) == 0 {
			continue
		}
		eg.Go(func() error {
			st, err := reconcileAll(ctx, log, groups, shards[w], geometryColumns, allColumns)
			perWorker[w] = st
			return err
		})
	}
	err := eg.Wait()

	var total Stats
	for _, st := range perWorker {
		total.add(st)
	}
	return total, err
}

// reconcileAll processes groups[i] for each i in subset, or every group when
// subset is nil.
func reconcileAll(ctx context.Context, log *zap.Logger, groups []EntityGroup, subset []int, geometryColumns, allColumns []string) (Stats, error) {
	var st Stats
	n := len(groups)
	if subset != nil {
		n = len(subset)
	}
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		i := k
		if subset != nil {
			i = subset[k]
		}
		g := groups[i]
		st.Groups++
		if g.Len() > 1 {
			st.MultiRow++
		}
		o := Reconcile(g, geometryColumns, allColumns)
		if !o.Triggered {
			continue
		}
		st.Reconciled++
		st.Filled += o.Filled
		log.Debug("reconciled entity",
			zap.String("entity", g.ID),
			zap.Int("rows", g.Len()),
			zap.String("geometry_column", o.Column),
			zap.Int("filled", o.Filled))
	}
	return st, nil
}

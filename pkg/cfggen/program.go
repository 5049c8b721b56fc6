package cfggen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raymyers/ralph-bril/pkg/bril"
	"github.com/raymyers/ralph-bril/pkg/cfg"
)

// ErrUnknownFunction is returned when Options.Funcs names a function the program lacks
var ErrUnknownFunction = errors.New("unknown function")

// Options controls TranslateProgram
type Options struct {
	// Jobs bounds the number of functions translated at once; <= 0 means runtime.NumCPU()
	Jobs int
	// Timeout bounds the whole translation; 0 means no limit
	Timeout time.Duration
	// Funcs restricts translation to the named functions, in program order
	Funcs  []string
	Logger *zap.Logger
}

// TranslateProgram translates every function of prog concurrently.
// The graphs of the functions that translated successfully are returned in
// program order. Failures do not stop sibling functions; they are returned
// together as one combined error of *FunctionError values.
func TranslateProgram(ctx context.Context, prog *bril.Program, opts Options) ([]*cfg.Cfg, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	fns, err := selectFunctions(prog, opts.Funcs)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make([]*cfg.Cfg, len(fns))
	errs := make([]error, len(fns))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				errs[i] = &FunctionError{Func: fn.Name, Err: fmt.Errorf("@%s: %w", fn.Name, err)}
				return nil
			}

			c, err := TranslateFunction(fn)
			if err != nil {
				logger.Error("Failed to build CFG", zap.String("func", fn.Name), zap.Error(err))
				errs[i] = &FunctionError{Func: fn.Name, Err: err}
				return nil
			}
			logger.Debug("Built CFG",
				zap.String("func", fn.Name),
				zap.Int("blocks", c.NumBlocks()),
				zap.Int("edges", c.NumEdges()))
			results[i] = c
			return nil
		})
	}
	// Tasks record their own failures so every function gets a chance to run
	_ = g.Wait()

	graphs := make([]*cfg.Cfg, 0, len(fns))
	for _, c := range results {
		if c != nil {
			graphs = append(graphs, c)
		}
	}
	return graphs, multierr.Combine(errs...)
}

func selectFunctions(prog *bril.Program, names []string) ([]*bril.Function, error) {
	if len(names) == 0 {
		fns := make([]*bril.Function, len(prog.Functions))
		for i := range prog.Functions {
			fns[i] = &prog.Functions[i]
		}
		return fns, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := prog.Function(name); !ok {
			return nil, fmt.Errorf("%w: @%s", ErrUnknownFunction, name)
		}
		wanted[name] = true
	}
	var fns []*bril.Function
	for i := range prog.Functions {
		if wanted[prog.Functions[i].Name] {
			fns = append(fns, &prog.Functions[i])
		}
	}
	return fns, nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/passforge/pkg/cache"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/fx/rewrite"
	"github.com/matzehuels/passforge/pkg/observability"
	"github.com/matzehuels/passforge/pkg/passes"
	"github.com/matzehuels/passforge/pkg/trace"
)

// Runner executes pipeline configs with caching.
//
// The Runner keeps no per-run state: every Execute builds a fresh manager,
// so one Runner can serve concurrent requests.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Hooks     observability.PassHooks // Extra hooks for every run, may be nil
	Callbacks *trace.Callbacks        // Lifecycle callbacks for interpreter runs, may be nil
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	RunID    string    `json:"run_id"`
	Graph    *fx.Graph `json:"graph"`
	Modified bool      `json:"modified"`
	Order    []string  `json:"order"`
	Stats    Stats     `json:"stats"`
	CacheHit bool      `json:"cache_hit"`
}

// Stats contains run statistics.
type Stats struct {
	NodesBefore  int           `json:"nodes_before"`
	NodesAfter   int           `json:"nodes_after"`
	CallsBefore  int           `json:"calls_before"`
	CallsAfter   int           `json:"calls_after"`
	Observations int           `json:"observations"` // count_calls observer invocations
	Observed     int           `json:"observed"`     // call_function nodes summed over those invocations
	Duration     time.Duration `json:"duration"`
}

// Execute runs cfg over g. g itself is not modified; the result carries the
// transformed copy. Results are cached under the hash of the config and the
// graph, so a repeated run returns the cached graph without running passes.
func (r *Runner) Execute(ctx context.Context, cfg *Config, g *fx.Graph) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := r.Logger.With("run", runID)

	key, err := r.runKey(cfg, g)
	if err != nil {
		return nil, err
	}

	if data, hit, err := r.Cache.Get(ctx, key); err != nil {
		logger.Warn("cache lookup failed", "err", err)
	} else if hit {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil && cached.Graph != nil {
			cached.RunID = runID
			cached.CacheHit = true
			logger.Info("pipeline result from cache", "order", cached.Order)
			return &cached, nil
		}
		logger.Debug("discarding unreadable cache entry", "key", key)
	}

	work := g.Clone()
	counter := &rewrite.CallCounter{}
	pm, err := Build(cfg, g, Deps{
		Logger:      logger,
		Hooks:       observability.Multi(observability.NewLogHooks(logger), r.Hooks),
		Interpreter: fx.NewInterpreter(r.Callbacks),
		Counter:     counter,
	})
	if err != nil {
		return nil, err
	}
	order, err := pm.Order()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := pm.Run(work)
	if err != nil {
		logger.Error("pipeline failed", "err", err)
		return nil, err
	}

	result := &Result{
		RunID:    runID,
		Graph:    res.Graph,
		Modified: res.Modified,
		Order:    passNames(order),
		Stats: Stats{
			NodesBefore:  g.Len(),
			NodesAfter:   res.Graph.Len(),
			CallsBefore:  g.Count(fx.OpCallFunction),
			CallsAfter:   res.Graph.Count(fx.OpCallFunction),
			Observations: counter.Observations,
			Observed:     counter.Total,
			Duration:     time.Since(start),
		},
	}
	logger.Info("pipeline finished",
		"modified", result.Modified,
		"nodes", result.Stats.NodesAfter,
		"duration", result.Stats.Duration)

	if data, err := json.Marshal(result); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLRun); err != nil {
			logger.Warn("cache store failed", "err", err)
		}
	}
	return result, nil
}

// Order resolves the pass order of cfg without running anything.
func (r *Runner) Order(ctx context.Context, cfg *Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfgData, err := cfg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	key := r.Keyer.OrderKey(cache.Hash(cfgData))

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var order []string
		if err := json.Unmarshal(data, &order); err == nil {
			return order, nil
		}
	}

	pm, err := build(cfg, Deps{Logger: r.Logger})
	if err != nil {
		return nil, err
	}
	ps, err := pm.Order()
	if err != nil {
		return nil, err
	}
	order := passNames(ps)

	if data, err := json.Marshal(order); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLOrder); err != nil {
			r.Logger.Warn("cache store failed", "err", err)
		}
	}
	return order, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) runKey(cfg *Config, g *fx.Graph) (string, error) {
	cfgData, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	graphData, err := fx.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	return r.Keyer.RunKey(cache.Hash(cfgData), cache.Hash(graphData)), nil
}

func passNames(ps []passes.Pass[*fx.Graph]) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

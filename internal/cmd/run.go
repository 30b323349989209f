package cmd

import (
	"errors"
	"fmt"

	"github.com/ajroetker/usmgemm/config"
	"github.com/ajroetker/usmgemm/device"
	"github.com/ajroetker/usmgemm/gemm"
	"github.com/spf13/cobra"
)

type runFlags struct {
	config        string
	size          int
	m, n, k       int
	seed          uint64
	backend       string
	workers       int
	schedule      string
	arenaCapacity int64
	verify        string
	tolerance     float64
}

func newRunCmd() *cobra.Command {
	var rf runFlags
	c := &cobra.Command{
		Use:   "run",
		Short: "Run one matrix product and verify it",
		Long: `Run loads usmgemm.toml (searched upward from the working directory unless
--config is given), applies flag overrides, and performs one complete
allocate, initialize, dispatch, wait, verify and release cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, &rf)
		},
	}

	def := config.Default()
	f := c.Flags()
	f.StringVarP(&rf.config, "config", "c", "", "config file path")
	f.IntVarP(&rf.size, "size", "s", 0, "set m, n and k at once")
	f.IntVar(&rf.m, "m", def.Matrix.M, "rows of A and C")
	f.IntVar(&rf.n, "n", def.Matrix.N, "columns of B and C")
	f.IntVar(&rf.k, "k", def.Matrix.K, "columns of A, rows of B")
	f.Uint64Var(&rf.seed, "seed", def.Matrix.Seed, "seed for A and B")
	f.StringVarP(&rf.backend, "backend", "b", def.Device.Backend, "memory backend: auto, unified or arena")
	f.IntVarP(&rf.workers, "workers", "w", 0, "worker count (0 = GOMAXPROCS)")
	f.StringVar(&rf.schedule, "schedule", def.Device.Schedule, "work partitioning: static or dynamic")
	f.Int64Var(&rf.arenaCapacity, "arena-capacity", 0, "arena capacity in bytes (0 = unbounded)")
	f.StringVar(&rf.verify, "verify", def.Verify.Mode, "verification: none, exact or blas")
	f.Float64Var(&rf.tolerance, "tolerance", def.Verify.Tolerance, "relative tolerance for blas verification")
	return c
}

func runRun(cmd *cobra.Command, rf *runFlags) (err error) {
	log := newLogger(cmd.ErrOrStderr())

	cfg, err := config.Load(rf.config)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && rf.config == "":
		log.Debug().Msg("no config file, using defaults")
	case err != nil:
		return fmt.Errorf("config: %w", err)
	}
	rf.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	opts := append(cfg.QueueOptions(), device.WithLogger(log))
	q, err := device.NewQueue(opts...)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer func() {
		if cerr := q.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("release: %w", cerr))
		}
	}()
	log.Debug().Stringer("device", q.Device()).Strs("features", q.Device().Features).Msg("queue ready")

	res, err := gemm.New(q, gemm.WithLogger(log)).Run(cfg.Dims(), cfg.Initializer(), cfg.Verifier())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%v on %s: %d items, %d workers (%s), %v, %.2f GFLOPS, verify=%s\n",
		res.Dims, res.Backend, res.Items, res.Workers, res.Schedule,
		res.Elapsed, res.GFLOPS(), cfg.Verify.Mode)
	return nil
}

// apply overrides cfg with every flag set on the command line.
func (rf *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Matrix.M, cfg.Matrix.N, cfg.Matrix.K = rf.size, rf.size, rf.size
	}
	if f.Changed("m") {
		cfg.Matrix.M = rf.m
	}
	if f.Changed("n") {
		cfg.Matrix.N = rf.n
	}
	if f.Changed("k") {
		cfg.Matrix.K = rf.k
	}
	if f.Changed("seed") {
		cfg.Matrix.Seed = rf.seed
	}
	if f.Changed("backend") {
		cfg.Device.Backend = rf.backend
	}
	if f.Changed("workers") {
		cfg.Device.Workers = rf.workers
	}
	if f.Changed("schedule") {
		cfg.Device.Schedule = rf.schedule
	}
	if f.Changed("arena-capacity") {
		cfg.Device.ArenaCapacity = rf.arenaCapacity
	}
	if f.Changed("verify") {
		cfg.Verify.Mode = rf.verify
	}
	if f.Changed("tolerance") {
		cfg.Verify.Tolerance = rf.tolerance
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/evolatent"
	"github.com/hupe1980/evolatent/blobstore"
	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/metric"
	"github.com/hupe1980/evolatent/mutation"
	"github.com/hupe1980/evolatent/store"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string
	seed        int64

	cfg     Config
	logger  *evolatent.Logger
	metrics evolatent.MetricsCollector
	blobs   blobstore.BlobStore
	server  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "evolatent",
		Short: "Interactive evolution of diffusion latents",
		Long: `evolatent samples a population of diffusion latents, renders them and
lets you steer the next population by selecting favorites or marking crop
regions. Every step is persisted so a session can be resumed at any time.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.evolatent/evolatent.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Int64Var(&a.seed, "seed", 0, "random seed (0 seeds from the clock)")

	rootCmd.AddCommand(
		a.newCmd(),
		a.evolveCmd(),
		a.regionalCmd(),
		a.sessionsCmd(),
		a.inspectCmd(),
		a.configCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}

	cfg, created, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.ErrOrStderr(), "First run detected, created the config at %s\n", path)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.MetricsAddr = a.metricsAddr
	}
	if a.seed != 0 {
		cfg.Session.Seed = a.seed
	}
	a.cfg = cfg

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = evolatent.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	a.metrics = evolatent.NoopMetricsCollector{}
	if cfg.MetricsAddr != "" {
		if err := a.serveMetrics(cfg.MetricsAddr); err != nil {
			return err
		}
	}

	if cmd.Name() == "config" {
		return nil
	}
	a.blobs, err = openBlobs(cmd.Context(), cfg.Blob)
	return err
}

func (a *app) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	collector, err := metric.NewPrometheusCollector(reg, "")
	if err != nil {
		return err
	}
	a.metrics = collector

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

func (a *app) openStore(ctx context.Context, id string) (*store.Store, error) {
	opts, err := storeOptions(a.cfg.Blob)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return store.New(a.blobs, opts...), nil
	}
	return store.Open(ctx, a.blobs, id, opts...)
}

func (a *app) resume(ctx context.Context, id string) (*evolatent.Session, error) {
	st, err := a.openStore(ctx, id)
	if err != nil {
		return nil, err
	}
	opts, err := sessionOptions(a.cfg, a.logger, a.metrics)
	if err != nil {
		return nil, err
	}
	return evolatent.Resume(ctx, st, newRenderer(a.cfg), opts...)
}

func (a *app) newCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a session and render the initial population",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx, "")
			if err != nil {
				return err
			}
			opts, err := sessionOptions(a.cfg, a.logger, a.metrics)
			if err != nil {
				return err
			}
			s, err := evolatent.New(newRenderer(a.cfg), st, opts...)
			if err != nil {
				return err
			}
			if err := s.SetPrompt(prompt); err != nil {
				return err
			}
			if err := s.Generate(ctx); err != nil {
				return err
			}
			return printStep(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "text prompt")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (a *app) evolveCmd() *cobra.Command {
	var (
		selected []int
		prompt   string
	)

	cmd := &cobra.Command{
		Use:   "evolve <session-id>",
		Short: "Derive the next population from selected candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.resume(ctx, args[0])
			if err != nil {
				return err
			}
			if prompt != "" {
				if err := s.SetPrompt(prompt); err != nil {
					return err
				}
			}
			if err := s.SetSelection(selected...); err != nil {
				return err
			}
			if err := s.Generate(ctx); err != nil {
				return err
			}
			return printStep(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().IntSliceVarP(&selected, "select", "s", nil, "candidate indices to breed from")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "replace the prompt for this and later steps")
	return cmd
}

func (a *app) regionalCmd() *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:   "regional <session-id>",
		Short: "Resample crop regions of candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.resume(ctx, args[0])
			if err != nil {
				return err
			}
			for _, spec := range specs {
				i, r, err := parseRegion(spec)
				if err != nil {
					return err
				}
				if err := s.SetRegion(i, r); err != nil {
					return err
				}
			}
			if err := s.ApplyRegionalMutation(ctx); err != nil {
				return err
			}
			return printStep(cmd.OutOrStdout(), s)
		},
	}
	cmd.Flags().StringArrayVarP(&specs, "region", "r", nil, "crop region as index=x0,y0,x1,y1 in image pixels")
	return cmd
}

func (a *app) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := store.Sessions(cmd.Context(), a.blobs)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Show the steps, selections and latent drift of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx, args[0])
			if err != nil {
				return err
			}
			return inspect(ctx, cmd.OutOrStdout(), st)
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(a.cfg)
		},
	}
}

func printStep(w io.Writer, s *evolatent.Session) error {
	state := s.State()
	fmt.Fprintf(w, "session %s %s mutation_rate=%.4f\n", s.ID(), state, s.MutationRate())
	for i, img := range s.Images() {
		fmt.Fprintf(w, "  [%d] %s\n", i, s.Store().ImageName(state.Step, i, img.Ext))
	}
	return nil
}

func inspect(ctx context.Context, w io.Writer, st *store.Store) error {
	steps, err := st.Steps(ctx)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("%w: session %s has no complete step", store.ErrNotFound, st.ID())
	}

	bySource := make(map[int][]store.SelectionRecord)
	for _, rec := range st.Selections() {
		bySource[rec.Step] = append(bySource[rec.Step], rec)
	}

	var prev latent.Population
	for _, step := range steps {
		rec, err := st.LoadStep(ctx, step)
		if err != nil {
			return err
		}
		pop, err := st.LoadPopulation(ctx, step)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "step %d prompt=%q mutation_rate=%.4f\n", rec.Step, rec.Prompt, rec.MutationRate)
		drift, err := metric.PopulationDrift(prev, pop)
		if err != nil {
			return err
		}
		for i, d := range drift {
			if d.Nearest < 0 {
				fmt.Fprintf(w, "  [%d] norm=%.3f\n", i, d.Norm)
				continue
			}
			fmt.Fprintf(w, "  [%d] norm=%.3f nearest=%d cosine=%.4f\n", i, d.Norm, d.Nearest, d.Cosine)
		}
		for _, sel := range bySource[step] {
			fmt.Fprintf(w, "  selected %v (%s)\n", sel.SelectedIDs, sel.MutationType)
		}
		prev = pop
	}
	return nil
}

// parseRegion parses "index=x0,y0,x1,y1".
func parseRegion(spec string) (int, mutation.Rect, error) {
	idx, coords, ok := strings.Cut(spec, "=")
	if !ok {
		return 0, mutation.Rect{}, fmt.Errorf("invalid region %q: want index=x0,y0,x1,y1", spec)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, mutation.Rect{}, fmt.Errorf("invalid region index %q: %w", idx, err)
	}

	parts := strings.Split(coords, ",")
	if len(parts) != 4 {
		return 0, mutation.Rect{}, fmt.Errorf("invalid region %q: want four coordinates", spec)
	}
	var v [4]int
	for j, p := range parts {
		if v[j], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return 0, mutation.Rect{}, fmt.Errorf("invalid region coordinate %q: %w", p, err)
		}
	}
	return i, mutation.Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, nil
}

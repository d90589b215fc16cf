package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
	"github.com/Sumatoshi-tech/benchfang/pkg/report"
)

// CompareCommand holds configuration for the compare command.
type CompareCommand struct {
	configPath string
	name       string
	seed       uint64
}

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	cc := &CompareCommand{}

	cmd := &cobra.Command{
		Use:   "compare <before.bfd> <after.bfd>",
		Short: "Judge whether two saved runs differ significantly",
		Long: `Compare bootstraps the pairwise difference and ratio of two saved
datasets and reports whether the change clears the confidence interval.

The verdict reads the interval of the mean difference: entirely below
zero means faster, entirely above zero means slower, anything else is
no significant change at the configured confidence.`,
		Args: cobra.ExactArgs(2),
		RunE: cc.run,
	}

	cmd.Flags().StringVarP(&cc.configPath, "config", "c", "", "Config file path (default: search for benchfang.yaml)")
	cmd.Flags().StringVar(&cc.name, "name", "", "Comparison name override (default: the after benchmark)")
	cmd.Flags().Uint64Var(&cc.seed, "seed", 0, "Resampling seed override (0 = config or wall clock)")

	return cmd
}

func (cc *CompareCommand) run(cmd *cobra.Command, args []string) error {
	cfg, providers, cleanup, err := setup(cmd, cc.configPath, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed = cc.seed
	}

	beforeDS, before, _, err := restoreDataset(args[0], cfg, providers.Logger)
	if err != nil {
		return err
	}

	afterDS, after, _, err := restoreDataset(args[1], cfg, providers.Logger)
	if err != nil {
		return err
	}

	if beforeDS.Unit != afterDS.Unit {
		return fmt.Errorf("%w: %q vs %q", ErrUnitMismatch, beforeDS.Unit, afterDS.Unit)
	}

	analyzer := bootstrap.NewAnalyzer(cfg.BootstrapOptions(providers.Logger))
	rng := dist.NewRNG(resampleSeed(cfg))

	diff := dist.NewBuilder().Sub(rng, after, before)
	ratio := dist.NewBuilder().ScaledDiv(rng, after, before, report.PercentScale)

	comparison := report.Comparison{
		Name:   cc.name,
		Before: analyzer.Apply(rng, before),
		After:  analyzer.Apply(rng, after),
		Diff:   analyzer.Apply(rng, diff),
		Ratio:  analyzer.Apply(rng, ratio),
	}
	if comparison.Name == "" {
		comparison.Name = afterDS.Benchmark
	}

	providers.Logger.Debug("compared datasets",
		"before", beforeDS.Benchmark,
		"after", afterDS.Benchmark,
		"faster", comparison.Faster(),
		"slower", comparison.Slower(),
	)

	return report.Compare(cmd.OutOrStdout(), comparison, report.Options{
		Unit:  afterDS.Unit,
		Color: cfg.Output.Color,
	})
}

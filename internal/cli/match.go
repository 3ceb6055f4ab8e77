package cli

import (
	"context"
	"fmt"
	"io"

	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match --jd <file|dir> --resume <file|dir>",
	Short: "Score resumes against job descriptions",
	Long: `Score every resume against every job description.

Both --jd and --resume may be repeated and accept files or directories.
Directories are expanded to their .txt and .md files. Each document is
labelled with its file name without the extension.

Scores are lexical unless an embedding provider is configured, in which
case --weight sets the share taken by embedding similarity.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if matchConfig.OutputFormat == "" {
			matchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if err := common.ValidateOutputFormat(matchConfig.OutputFormat, cfg.App.SupportedFormats); err != nil {
			return err
		}
		matchConfig.WeightSet = cmd.Flags().Changed("weight")
		if matchConfig.WeightSet {
			if err := common.ValidateWeightFlag(matchConfig.Weight); err != nil {
				return err
			}
		}
		if matchConfig.TieBreak != "" {
			if _, err := matching.ParseTieBreak(matchConfig.TieBreak); err != nil {
				return err
			}
		}
		if matchConfig.Workers < 0 {
			return fmt.Errorf("--workers must not be negative, got %d", matchConfig.Workers)
		}
		return nil
	},
	RunE: runMatch,
}

// matchOptions holds the flags of the match command
type matchOptions struct {
	common.CommandConfig
	JDs          []string
	Resumes      []string
	Weight       float64
	WeightSet    bool
	NoEmbeddings bool
	Workers      int
	TieBreak     string
	BestOnly     bool
	Watch        bool
}

var matchConfig matchOptions

func init() {
	matchCmd.Flags().StringSliceVar(&matchConfig.JDs, "jd", nil, "Job description file or directory (repeatable)")
	matchCmd.Flags().StringSliceVar(&matchConfig.Resumes, "resume", nil, "Resume file or directory (repeatable)")
	matchCmd.Flags().Float64Var(&matchConfig.Weight, "weight", 0, "Embedding weight between 0 and 1 (default from config)")
	matchCmd.Flags().BoolVar(&matchConfig.NoEmbeddings, "no-embeddings", false, "Score with keyword overlap only")
	matchCmd.Flags().IntVar(&matchConfig.Workers, "workers", 0, "Concurrent pair scorers (default from config)")
	matchCmd.Flags().StringVar(&matchConfig.TieBreak, "tie-break", "", "Best match tie-break: first or jd-id (default from config)")
	matchCmd.Flags().StringVarP(&matchConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	matchCmd.Flags().StringVar(&matchConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	matchCmd.Flags().BoolVar(&matchConfig.BestOnly, "best-only", false, "Only print the best match per resume")
	matchCmd.Flags().BoolVar(&matchConfig.Watch, "watch", false, "Re-run whenever an input file changes")

	_ = matchCmd.MarkFlagRequired("jd")
	_ = matchCmd.MarkFlagRequired("resume")

	// Add completion for format flag
	_ = matchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = matchCmd.RegisterFlagCompletionFunc("tie-break", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(matching.TieBreakFirstSeen), string(matching.TieBreakJDID)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if err := executeMatch(cmd.Context(), cfg, logger, matchConfig, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to match resumes: %w", err)
	}
	return nil
}

// applyMatchOverrides returns a copy of cfg with the command line overrides applied
func applyMatchOverrides(cfg *config.Config, opts matchOptions) config.Config {
	local := *cfg
	if opts.WeightSet {
		local.Matching.EmbeddingWeight = opts.Weight
	}
	if opts.NoEmbeddings {
		local.Matching.UseEmbeddings = false
	}
	if opts.Workers > 0 {
		local.Matching.Workers = opts.Workers
	}
	if opts.TieBreak != "" {
		local.Matching.TieBreak = opts.TieBreak
	}
	return local
}

// executeMatch runs the match once, or once and then on every input change
// when opts.Watch is set
func executeMatch(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts matchOptions, stdout io.Writer) error {
	local := applyMatchOverrides(cfg, opts)

	svc, err := embedding.NewService(ctx, &local, logger)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.LogError(err, "Failed to close embedding cache")
		}
	}()

	runner := common.NewMatchRunner(svc, local.Matching, logger)
	fp := common.NewFileProcessor(logger, local.App.MaxFileSize)
	out := common.NewOutputHandler(logger, stdout)

	once := func(ctx context.Context) error {
		return matchOnce(ctx, runner, fp, out, opts, logger)
	}

	if err := once(ctx); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	inputs := append(append([]string{}, opts.JDs...), opts.Resumes...)
	watcher, err := common.NewInputWatcher(inputs, common.DefaultDebounce, logger.With("component", "watch"))
	if err != nil {
		return err
	}
	return watcher.Run(ctx, func(ctx context.Context) {
		logger.Info("Inputs changed, re-running match")
		if err := once(ctx); err != nil {
			logger.LogError(err, "Match re-run failed")
		}
	})
}

// matchOnce reads the inputs, scores them and writes the formatted result
func matchOnce(ctx context.Context, runner *common.MatchRunner, fp *common.FileProcessor, out *common.OutputHandler, opts matchOptions, logger *errors.Logger) error {
	jds, err := fp.ReadDocuments(opts.JDs, "jd")
	if err != nil {
		return err
	}
	resumes, err := fp.ReadDocuments(opts.Resumes, "resume")
	if err != nil {
		return err
	}

	logger.Info("Starting match",
		"jd_count", len(jds),
		"resume_count", len(resumes),
		"output_format", opts.OutputFormat)

	var weight *float64
	if opts.WeightSet {
		weight = &opts.Weight
	}
	resp, err := runner.Run(ctx, jds, resumes, common.RunOptions{EmbeddingWeight: weight})
	if err != nil {
		return err
	}
	if resp.Meta.Embedding.Status == embedding.StateFailed {
		logger.Warn("Embeddings unavailable, scores are lexical only",
			"error", resp.Meta.Embedding.Error)
	}

	if opts.BestOnly {
		resp = resp.BestOnly()
	}
	if err := out.HandleOutput(resp, opts.CommandConfig); err != nil {
		return err
	}

	logger.Info("Match completed successfully",
		"pairs", len(jds)*len(resumes),
		"duration_ms", resp.Meta.DurationMs)
	return nil
}

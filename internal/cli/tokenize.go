package cli

import (
	"fmt"
	"io"

	"resumatch/internal/common"
	"resumatch/internal/matching"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [file]",
	Short: "Print the tokens the matcher sees in a document",
	Long: `Print the tokens extracted from a document after normalisation and
stop word removal. Reads standard input when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if tokenizeConfig.OutputFormat == "" {
			tokenizeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(tokenizeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runTokenize,
}

var tokenizeConfig common.CommandConfig

func init() {
	tokenizeCmd.Flags().StringVarP(&tokenizeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	tokenizeCmd.Flags().StringVar(&tokenizeConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)

	var text string
	if len(args) == 1 {
		content, err := fp.ReadFile(args[0])
		if err != nil {
			return err
		}
		text = content
	} else {
		content, err := readLimited(cmd.InOrStdin(), cfg.App.MaxFileSize)
		if err != nil {
			return err
		}
		text = content
	}

	resp := tokenizeText(text)
	logger.Debug("Tokenized document", "token_count", resp.Count)

	return common.NewOutputHandler(logger, cmd.OutOrStdout()).HandleOutput(resp, tokenizeConfig)
}

// tokenizeText normalises text the way file inputs are and tokenizes it
func tokenizeText(text string) types.TokenizeResponse {
	tokens := matching.Tokenize(common.NormalizeText(text))
	return types.TokenizeResponse{Tokens: tokens, Count: len(tokens)}
}

// readLimited reads r, failing when it holds more than limit bytes. A limit
// of zero or less reads everything.
func readLimited(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds maximum size of %d bytes", limit)
	}
	return string(data), nil
}

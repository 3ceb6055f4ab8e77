package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{
			EmbeddingWeight: 0.7,
			UseEmbeddings:   false,
			TieBreak:        "first",
		},
		App: config.AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "yaml", "text", "markdown"},
			MaxFileSize:      1 << 20,
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func matchFixtures(t *testing.T) (jdDir, resume string) {
	t.Helper()
	dir := t.TempDir()
	jdDir = filepath.Join(dir, "jds")
	writeFile(t, filepath.Join(jdDir, "backend.txt"), "Backend engineer with Go and Kubernetes experience")
	writeFile(t, filepath.Join(jdDir, "frontend.md"), "Frontend engineer: React, TypeScript")
	writeFile(t, filepath.Join(jdDir, "logo.png"), "not a document")
	resume = filepath.Join(dir, "jane.txt")
	writeFile(t, resume, "Jane built Go services on Kubernetes.\nShe mentors new hires.")
	return jdDir, resume
}

func TestExecuteMatch(t *testing.T) {
	jdDir, resume := matchFixtures(t)

	var out bytes.Buffer
	opts := matchOptions{
		CommandConfig: common.CommandConfig{OutputFormat: "json"},
		JDs:           []string{jdDir},
		Resumes:       []string{resume},
	}
	require.NoError(t, executeMatch(context.Background(), testConfig(), errors.NewNopLogger(), opts, &out))

	var resp types.MatchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "jd-1", resp.Results[0].JDID)
	assert.Equal(t, "backend", resp.Results[0].JDLabel)
	assert.Equal(t, "frontend", resp.Results[1].JDLabel)
	assert.Equal(t, "jane", resp.Results[0].ResumeLabel)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)

	best, ok := resp.BestByResume["resume-1"]
	require.True(t, ok)
	assert.Equal(t, "jd-1", best.JDID)
	assert.Equal(t, []string{"Jane built Go services on Kubernetes"}, best.Evidence)

	assert.Equal(t, 2, resp.Meta.JDCount)
	assert.Equal(t, 1, resp.Meta.ResumeCount)
	assert.Equal(t, embedding.StateDisabled, resp.Meta.Embedding.Status)
	assert.InDelta(t, 0.7, resp.Meta.EmbeddingWeight, 1e-9)
}

func TestExecuteMatchBestOnlyToFile(t *testing.T) {
	jdDir, resume := matchFixtures(t)
	output := filepath.Join(t.TempDir(), "reports", "best.json")

	var stdout bytes.Buffer
	opts := matchOptions{
		CommandConfig: common.CommandConfig{OutputFormat: "json", OutputFile: output},
		JDs:           []string{jdDir},
		Resumes:       []string{resume},
		BestOnly:      true,
		Weight:        0.25,
		WeightSet:     true,
	}
	require.NoError(t, executeMatch(context.Background(), testConfig(), errors.NewNopLogger(), opts, &stdout))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var resp types.MatchResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Empty(t, resp.Results)
	assert.Len(t, resp.BestByResume, 1)
	assert.InDelta(t, 0.25, resp.Meta.EmbeddingWeight, 1e-9)
}

func TestExecuteMatchErrors(t *testing.T) {
	jdDir, resume := matchFixtures(t)
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.MkdirAll(empty, 0o750))

	tests := []struct {
		name    string
		jds     []string
		resumes []string
		code    string
	}{
		{"missing file", []string{filepath.Join(jdDir, "nope.txt")}, []string{resume}, errors.ErrCodeFileNotFound},
		{"no resumes found", []string{jdDir}, []string{empty}, errors.ErrCodeEmptyBatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := matchOptions{
				CommandConfig: common.CommandConfig{OutputFormat: "json"},
				JDs:           tt.jds,
				Resumes:       tt.resumes,
			}
			err := executeMatch(context.Background(), testConfig(), errors.NewNopLogger(), opts, &bytes.Buffer{})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "unexpected error: %v", err)
		})
	}
}

func TestExecuteMatchWatchStopsOnCancel(t *testing.T) {
	jdDir, resume := matchFixtures(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	opts := matchOptions{
		CommandConfig: common.CommandConfig{OutputFormat: "json"},
		JDs:           []string{jdDir},
		Resumes:       []string{resume},
		Watch:         true,
	}
	require.NoError(t, executeMatch(ctx, testConfig(), errors.NewNopLogger(), opts, &out))
	assert.Contains(t, out.String(), `"bestByResume"`)
}

func TestApplyMatchOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Matching.UseEmbeddings = true

	local := applyMatchOverrides(cfg, matchOptions{
		Weight:       0,
		WeightSet:    true,
		NoEmbeddings: true,
		Workers:      4,
		TieBreak:     "jd-id",
	})
	assert.Zero(t, local.Matching.EmbeddingWeight)
	assert.False(t, local.Matching.UseEmbeddings)
	assert.Equal(t, 4, local.Matching.Workers)
	assert.Equal(t, "jd-id", local.Matching.TieBreak)

	// the shared config is left alone
	assert.InDelta(t, 0.7, cfg.Matching.EmbeddingWeight, 1e-9)
	assert.True(t, cfg.Matching.UseEmbeddings)

	unchanged := applyMatchOverrides(cfg, matchOptions{})
	assert.InDelta(t, 0.7, unchanged.Matching.EmbeddingWeight, 1e-9)
	assert.Equal(t, "first", unchanged.Matching.TieBreak)
}

func TestTokenizeText(t *testing.T) {
	resp := tokenizeText("Senior Go developer,\r\n\r\n\r\nKubernetes\texpert")
	assert.Equal(t, []string{"senior", "developer", "kubernetes", "expert"}, resp.Tokens)
	assert.Equal(t, 4, resp.Count)
}

func TestReadLimited(t *testing.T) {
	text, err := readLimited(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = readLimited(strings.NewReader("hello!"), 5)
	assert.ErrorContains(t, err, "exceeds maximum size")

	text, err = readLimited(strings.NewReader("unbounded"), 0)
	require.NoError(t, err)
	assert.Equal(t, "unbounded", text)
}

func TestApplyServeOverrides(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("tls-mode", "", "")
	cmd.Flags().String("cert-file", "", "")
	cmd.Flags().String("key-file", "", "")
	cmd.Flags().String("ca-file", "", "")
	require.NoError(t, cmd.Flags().Set("port", "9090"))
	require.NoError(t, cmd.Flags().Set("tls-mode", "disabled"))

	cfg := testConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = "8080"
	cfg.Server.TLS.CertFile = "/etc/certs/server.crt"

	applyServeOverrides(cmd, cfg)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.Equal(t, "/etc/certs/server.crt", cfg.Server.TLS.CertFile)
}

func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(withDependencies(context.Background(), testConfig(), errors.NewNopLogger()))
	return out.String(), err
}

func TestTokenizeCommandReadsStdin(t *testing.T) {
	out, err := executeRoot(t, "Kubernetes and Terraform", "tokenize", "--format", "json")
	require.NoError(t, err)

	var resp types.TokenizeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"kubernetes", "terraform"}, resp.Tokens)
	assert.Equal(t, 2, resp.Count)
}

func TestMatchCommandRejectsWeight(t *testing.T) {
	_, err := executeRoot(t, "", "match", "--jd", "a.txt", "--resume", "b.txt", "--weight", "1.5")
	assert.ErrorContains(t, err, "--weight must be between 0 and 1")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeRoot(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "resumatch version "+Version)
}

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/credentials"
	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// keywordEmbedder maps text onto three axes: roadmap, hiring and anything else.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		switch {
		case strings.Contains(t, "roadmap"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(t, "hiring"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

type staticSummarizer string

func (s staticSummarizer) Summarize(context.Context, string) (string, error) {
	return string(s), nil
}

const testSummary = `{"summary":["Roadmap reviewed"],"decisions":["Hire two engineers"],"actions":[{"owner":"Ana","text":"Post the job ad","due":"Friday"}]}`

// fakeRuntime records how the command asked for its services.
type fakeRuntime struct {
	mu     sync.Mutex
	opts   RuntimeOptions
	store  *reports.MemoryStore
	closed bool
}

func newTestDeps(t *testing.T, cfg *config.CLIConfig) (*Deps, *fakeRuntime) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fr := &fakeRuntime{store: reports.NewMemoryStore()}

	deps := &Deps{
		LoadConfig:  func() (*config.CLIConfig, error) { return cfg, nil },
		Credentials: func() (*credentials.Credentials, error) { return &credentials.Credentials{}, nil },
		Logger:      logging.NewNopLogger,
		NewRuntime: func(_ context.Context, c *config.CLIConfig, _ *credentials.Credentials, logger logging.Logger, opts RuntimeOptions) (*Runtime, error) {
			fr.mu.Lock()
			fr.opts = opts
			fr.mu.Unlock()

			reg := prometheus.NewRegistry()
			metrics := observability.NewMetrics(reg)
			acfg := c.Analysis
			acfg.BatchSize = 1
			rt := &Runtime{
				Analyzer: analysis.NewAnalyzer(keywordEmbedder{}, staticSummarizer(testSummary),
					analysis.WithConfig(acfg),
					analysis.WithLogger(logger),
					analysis.WithMetrics(metrics),
					analysis.WithIDGenerator(func() string { return "rep-1" }),
					analysis.WithClock(func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) })),
				Metrics:  metrics,
				Registry: reg,
			}
			if opts.Store || opts.MemoryStore {
				rt.Store = fr.store
			}
			rt.closers = append(rt.closers, func() {
				fr.mu.Lock()
				fr.closed = true
				fr.mu.Unlock()
			})
			return rt, nil
		},
	}
	return deps, fr
}

// runCommand executes c with args and returns stdout.
func runCommand(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const testAgenda = "Roadmap (10m)\nHiring (5m)\n"

const testTranscript = `We reviewed the roadmap milestones
Hiring plan for two engineers
Did anyone watch the game last night
`

const testVTT = `WEBVTT

00:00:00.000 --> 00:00:20.000
We reviewed the roadmap milestones

00:00:20.000 --> 00:00:40.000
Hiring plan for two engineers

00:00:40.000 --> 00:01:00.000
Did anyone watch the game last night
`

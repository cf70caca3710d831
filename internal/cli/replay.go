package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/api"
	"github.com/systemshift/crmgraph/internal/server/projection"
)

// ReplaySummary counts replay outcomes
type ReplaySummary struct {
	Applied    int
	NodeMerges int
	EdgeMerges int
	Failed     map[string]int // by outcome
}

func (s ReplaySummary) failures() int {
	n := 0
	for _, c := range s.Failed {
		n += c
	}
	return n
}

func newReplayCommand() *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Project a file of change notifications",
		Long: `Project newline-delimited change notifications, one
{"operation","object","record"} envelope per line. Use "-" to read stdin.

Every merge is idempotent, so a file can be replayed any number of times.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, log, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			summary, err := Replay(ctx, a.Engine, in, keepGoing, log)
			printSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}

	cmd.Flags().BoolVar(&keepGoing, "continue", false, "keep going after a failed record")
	return cmd
}

// Replay projects every envelope read from r. It stops at the first failure
// unless keepGoing is set.
func Replay(ctx context.Context, engine api.Projector, r io.Reader, keepGoing bool, log *zap.Logger) (ReplaySummary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	summary := ReplaySummary{Failed: map[string]int{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		res, err := projectLine(ctx, engine, text)
		if err != nil {
			summary.Failed[projection.Outcome(err)]++
			log.Warn("record failed", zap.Int("line", line), zap.Error(err))
			if !keepGoing {
				return summary, fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}

		summary.Applied++
		summary.NodeMerges += res.NodeMerges
		summary.EdgeMerges += res.EdgeMerges
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading input: %w", err)
	}

	if n := summary.failures(); n > 0 {
		return summary, fmt.Errorf("%d of %d records failed", n, n+summary.Applied)
	}
	return summary, nil
}

func projectLine(ctx context.Context, engine api.Projector, text string) (projection.Result, error) {
	req, err := api.DecodeEnvelope(strings.NewReader(text))
	if err != nil {
		return projection.Result{}, err
	}
	return engine.Project(ctx, req.Object, req.Record)
}

func printSummary(w io.Writer, s ReplaySummary) {
	fmt.Fprintf(w, "applied: %d (node merges %d, edge merges %d)\n", s.Applied, s.NodeMerges, s.EdgeMerges)
	if len(s.Failed) == 0 {
		return
	}
	outcomes := make([]string, 0, len(s.Failed))
	for o := range s.Failed {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "failed %s: %d\n", o, s.Failed[o])
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/activity"
	"github.com/rcliao/house-agents/internal/config"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/reputation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one activity cycle",
		Long: `Run one activity cycle: each selected house profile may break up, swipes
while single and answers or starts conversations. Prints the run summary.`,
		Run: runCycle,
	}

	cmd.Flags().Int("max-agents", 0, "Override activity.max_agents_per_run")
	cmd.Flags().Int("workers", 0, "Override activity.workers")
	cmd.Flags().Bool("repair", false, "Close duplicate active relationships before the run")

	RootCmd.AddCommand(cmd)
}

func runCycle(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	applyRunFlags(cmd, cfg)

	log := newLogger(cfg)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	gen, err := oracle.NewGenerator(ctx, cfg.LLM)
	if err != nil {
		exitErr("llm", err)
	}
	if c, ok := gen.(io.Closer); ok {
		defer c.Close()
	}

	eng := activity.New(s,
		oracle.NewLLMOracle(gen, cfg.LLM.TimeoutDuration()),
		reputation.New(s, log),
		activity.ParamsFromConfig(cfg.Activity),
		activity.WithLogger(log),
	)
	log.Debug("starting run", zap.String("db", cfg.DB.Path), zap.String("provider", cfg.LLM.Provider))
	sum := eng.RunActivityCycle(ctx)

	writeSummary(os.Stdout, sum, textFormat())
}

// applyRunFlags lets command-line flags override the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if n, _ := cmd.Flags().GetInt("max-agents"); n > 0 {
		cfg.Activity.MaxAgentsPerRun = n
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Activity.Workers = n
	}
	if repair, _ := cmd.Flags().GetBool("repair"); repair {
		cfg.Activity.RepairAnomalies = true
	}
}

func writeSummary(w io.Writer, sum *activity.RunSummary, text bool) {
	if !text {
		b, _ := json.MarshalIndent(sum, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}

	fmt.Fprintf(w, "run %s: %d profiles, %d swipes, %d matches, %d messages (%d replies, %d openers, %d continuations), %d breakups\n",
		sum.RunID, len(sum.Results), sum.TotalSwipes, sum.RelationshipsCreated,
		sum.Messages.Total, sum.Messages.Replies, sum.Messages.Openers, sum.Messages.Continuations,
		sum.RelationshipsEnded)
	for _, name := range sum.Skipped {
		fmt.Fprintf(w, "skipped: %s\n", name)
	}
	for _, e := range sum.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}

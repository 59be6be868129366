package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Close duplicate active relationships",
		Long: `Find profiles with more than one active relationship and close all but the
most recent one. Closed relationships are marked as legacy cleanup and do not
count as breakups.`,
		Run: runRepair,
	}

	RootCmd.AddCommand(cmd)
}

func runRepair(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	closed, err := s.RepairMonogamy(cmd.Context(), time.Now())
	if err != nil {
		exitErr("repair", err)
	}
	for _, r := range closed {
		log.Info("closed relationship", zap.String("relationship", r.ID),
			zap.String("a", r.Pair.A), zap.String("b", r.Pair.B))
	}

	b, _ := json.MarshalIndent(map[string]interface{}{"ok": true, "closed": len(closed)}, "", "  ")
	fmt.Println(string(b))
}

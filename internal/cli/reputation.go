package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/house-agents/internal/reputation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reputation",
		Short: "Recalculate every profile's reputation",
		Run:   runReputation,
	}

	RootCmd.AddCommand(cmd)
}

func runReputation(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	report, err := reputation.New(s, log).Recalculate(cmd.Context())
	if err != nil {
		exitErr("reputation", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}

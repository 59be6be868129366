package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/house-agents/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show profile, swipe, relationship and message counts",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DB.Path)
	if err != nil {
		exitErr("stats", err)
	}
	writeStats(os.Stdout, stats, textFormat())
}

func writeStats(w io.Writer, st *store.Stats, text bool) {
	if !text {
		b, _ := json.MarshalIndent(st, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}

	fmt.Fprintf(w, "db: %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	fmt.Fprintf(w, "profiles: %d (%d house)\n", st.Profiles, st.HouseProfiles)
	fmt.Fprintf(w, "swipes: %d (%d likes)\n", st.Swipes, st.Likes)
	fmt.Fprintf(w, "relationships: %d (%d active)\n", st.Relationships, st.ActiveRelationships)
	fmt.Fprintf(w, "messages: %d\n", st.Messages)
	fmt.Fprintf(w, "retrospectives: %d\n", st.Retrospectives)
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:     "relationships",
		Aliases: []string{"rels"},
		Short:   "List relationships",
		Long:    "List relationships, most recent first. Only active ones unless --all.",
		Run:     runRelationships,
	}
	cmd.Flags().StringP("profile", "p", "", "Only relationships of this profile")
	cmd.Flags().BoolP("all", "a", false, "Include ended relationships")

	show := &cobra.Command{
		Use:   "show <relationship-id>",
		Short: "Show a relationship with its messages and retrospective",
		Args:  cobra.ExactArgs(1),
		Run:   runRelationshipShow,
	}
	show.Flags().IntP("limit", "l", 0, "Only the most recent messages (0 for all)")

	cmd.AddCommand(show)
	RootCmd.AddCommand(cmd)
}

func runRelationships(cmd *cobra.Command, args []string) {
	profileID, _ := cmd.Flags().GetString("profile")
	all, _ := cmd.Flags().GetBool("all")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rels, err := s.ListRelationships(cmd.Context(), store.ListRelationshipsParams{
		ProfileID:  profileID,
		ActiveOnly: !all,
	})
	if err != nil {
		exitErr("list relationships", err)
	}

	if textFormat() {
		for _, r := range rels {
			state := "active"
			if !r.Active {
				state = "ended: " + r.EndReason
			}
			fmt.Printf("%s\t%s <-> %s\t%s\t%s\n", r.ID, r.Pair.A, r.Pair.B,
				r.StartedAt.Format("2006-01-02 15:04"), state)
		}
		return
	}

	b, _ := json.MarshalIndent(rels, "", "  ")
	fmt.Println(string(b))
}

func runRelationshipShow(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	rel, err := s.GetRelationship(ctx, args[0])
	if err != nil {
		exitErr("get relationship", err)
	}
	msgs, err := s.History(ctx, rel.ID, limit)
	if err != nil {
		exitErr("history", err)
	}
	retro, err := s.GetRetrospective(ctx, rel.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		exitErr("retrospective", err)
	}

	if textFormat() {
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.SenderID, m.Content)
		}
		if retro != nil {
			fmt.Printf("--\nfatal message: %s\nverdict: %s\ndrama: %d/10\n",
				retro.FatalMessage, retro.DurationVerdict, retro.DramaRating)
		}
		return
	}

	out := struct {
		Relationship  *model.Relationship  `json:"relationship"`
		Messages      []model.Message      `json:"messages"`
		Retrospective *model.Retrospective `json:"retrospective,omitempty"`
	}{rel, msgs, retro}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

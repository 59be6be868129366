package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/house-agents/internal/activity"
	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Register a profile",
		Run:   runProfileAdd,
	}
	add.Flags().String("id", "", "Profile ID (default: generated)")
	add.Flags().StringP("name", "n", "", "Display name (required)")
	add.Flags().String("bio", "", "Bio")
	add.Flags().StringP("interests", "i", "", "Interests (comma-separated)")
	add.Flags().String("mood", "", "Current mood")
	add.Flags().StringArray("starter", nil, "Conversation starter (repeatable)")
	add.Flags().StringP("personality", "p", "", "Persona personality; creates a linked persona")
	add.Flags().Bool("house", false, "Mark as a house profile the activity cycle drives")
	add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Run:   runProfileList,
	}
	list.Flags().Bool("house", false, "Only house profiles")
	list.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a profile and its current partner",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileShow,
	}

	cmd.AddCommand(add, list, show)
	RootCmd.AddCommand(cmd)
}

func runProfileAdd(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	bio, _ := cmd.Flags().GetString("bio")
	interests, _ := cmd.Flags().GetString("interests")
	mood, _ := cmd.Flags().GetString("mood")
	starters, _ := cmd.Flags().GetStringArray("starter")
	personality, _ := cmd.Flags().GetString("personality")
	isHouse, _ := cmd.Flags().GetBool("house")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p, err := s.CreateProfile(cmd.Context(), store.CreateProfileParams{
		ID:                   id,
		Name:                 name,
		Bio:                  bio,
		Interests:            splitList(interests),
		Mood:                 mood,
		ConversationStarters: starters,
		IsHouse:              isHouse,
		Personality:          personality,
	})
	if err != nil {
		exitErr("add profile", err)
	}

	b, _ := json.MarshalIndent(p, "", "  ")
	fmt.Println(string(b))
}

func runProfileList(cmd *cobra.Command, args []string) {
	houseOnly, _ := cmd.Flags().GetBool("house")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	profiles, err := s.ListProfiles(cmd.Context(), store.ListProfilesParams{HouseOnly: houseOnly, Limit: limit})
	if err != nil {
		exitErr("list profiles", err)
	}

	if textFormat() {
		for _, p := range profiles {
			kind := "user"
			if p.IsHouse {
				kind = "house"
			}
			fmt.Printf("%s\t%s\t%s\treputation=%d\n", p.ID, p.Name, kind, p.Reputation)
		}
		return
	}

	b, _ := json.MarshalIndent(profiles, "", "  ")
	fmt.Println(string(b))
}

func runProfileShow(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p, err := s.GetProfile(cmd.Context(), args[0])
	if err != nil {
		exitErr("get profile", err)
	}
	// State reads need no oracle.
	partner, err := activity.New(s, nil, nil, activity.DefaultParams()).CurrentPartner(cmd.Context(), p.ID)
	if err != nil {
		exitErr("current partner", err)
	}

	out := struct {
		*model.Profile
		Partner *model.Partner `json:"partner,omitempty"`
	}{p, partner}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

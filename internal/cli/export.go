package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export profiles as JSON",
		Long:  "Export profiles, personas included, as a JSON array that import accepts.",
		Run:   runExport,
	}

	cmd.Flags().Bool("house", false, "Only house profiles")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	houseOnly, _ := cmd.Flags().GetBool("house")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	profiles, err := s.ExportProfiles(cmd.Context(), houseOnly)
	if err != nil {
		exitErr("export", err)
	}

	b, _ := json.MarshalIndent(profiles, "", "  ")
	fmt.Println(string(b))
}

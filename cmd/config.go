package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect client settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		if path, _ := config.DefaultPath(); path != "" {
			fmt.Printf("# default file: %s\n", path)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/core"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage build artifacts",
}

var artifactListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List artifacts stored for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := core.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		list := c.Artifacts.ListByJob(args[0])
		if len(list) == 0 {
			fmt.Println("No artifacts")
			return nil
		}
		fmt.Printf("%-38s %-20s %-10s %s\n", "ARTIFACT ID", "NAME", "SIZE", "EXPIRES")
		for _, a := range list {
			fmt.Printf("%-38s %-20s %-10d %s\n", a.ArtifactID, a.Name, a.SizeBytes, a.ExpiresAt.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}

var artifactGetCmd = &cobra.Command{
	Use:   "get <artifact-id> <output-path>",
	Short: "Write an artifact's content to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := core.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		art := c.Artifacts.Get(args[0])
		if art == nil {
			return fmt.Errorf("artifact %s not found", args[0])
		}
		if err := os.WriteFile(args[1], art.Content, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(art.Content), args[1])
		return nil
	},
}

var artifactDeleteCmd = &cobra.Command{
	Use:   "delete <artifact-id>",
	Short: "Delete an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := core.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		if !c.Artifacts.Delete(args[0]) {
			return fmt.Errorf("artifact %s not found", args[0])
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var artifactStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show artifact store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := core.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		stats := c.Artifacts.GetStats()
		fmt.Printf("Artifacts:  %d\n", stats.TotalArtifacts)
		fmt.Printf("Jobs:       %d\n", stats.TotalJobs)
		fmt.Printf("Total size: %d bytes (%d%% of max)\n", stats.TotalSizeBytes, stats.UsagePercent)
		return nil
	},
}

func init() {
	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactGetCmd)
	artifactCmd.AddCommand(artifactDeleteCmd)
	artifactCmd.AddCommand(artifactStatsCmd)
}

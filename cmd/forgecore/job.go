package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/core"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect tracked jobs",
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active jobs",
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

		jobs := c.Jobs.GetActiveJobs()
		if len(jobs) == 0 {
			fmt.Println("No active jobs")
			return nil
		}
		fmt.Printf("%-20s %-10s %-10s %s\n", "JOB ID", "STATUS", "PROGRESS", "NODE")
		for _, j := range jobs {
			fmt.Printf("%-20s %-10s %-10d %s\n", j.JobID, j.Status, j.Progress, j.NodeID)
		}
		return nil
	},
}

var jobStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job tracker statistics",
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

		stats := c.Jobs.GetStats()
		fmt.Printf("Active:    %d\n", stats.ActiveJobs)
		fmt.Printf("Completed: %d\n", stats.CompletedJobs)
		fmt.Printf("Failed:    %d\n", stats.FailedJobs)
		fmt.Printf("Avg time:  %dms\n", stats.AvgDurationMs)
		return nil
	},
}

func init() {
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobStatsCmd)
}

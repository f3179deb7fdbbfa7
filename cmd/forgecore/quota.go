package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/core"
	"github.com/cuemby/forgecore/pkg/types"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Manage per-entity resource quotas",
}

var (
	quotaEntityType       string
	quotaMaxCPUMinutes    float64
	quotaMaxRAMMb         int64
	quotaMaxStorageMb     int64
	quotaMaxConcurrent    int
	quotaMaxBuildsPerDay  int
	quotaWarningThreshold int
	quotaHardLimit        bool
)

var quotaSetCmd = &cobra.Command{
	Use:   "set <entity-id>",
	Short: "Create or replace a quota definition for an entity",
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

		def := types.QuotaDefinition{
			EntityID:                args[0],
			EntityType:              types.EntityType(quotaEntityType),
			MaxCPUMinutes:           quotaMaxCPUMinutes,
			MaxRAMMb:                quotaMaxRAMMb,
			MaxStorageMb:            quotaMaxStorageMb,
			MaxConcurrentJobs:       quotaMaxConcurrent,
			MaxBuildsPerDay:         quotaMaxBuildsPerDay,
			WarningThresholdPercent: quotaWarningThreshold,
			HardLimit:               quotaHardLimit,
		}
		if err := c.RegisterEntityQuota(def); err != nil {
			return fmt.Errorf("save quota: %w", err)
		}
		fmt.Printf("Quota set for %s\n", args[0])
		return nil
	},
}

var quotaGetCmd = &cobra.Command{
	Use:   "get <entity-id>",
	Short: "Show a quota definition",
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

		def, ok := c.Quotas.GetQuota(args[0])
		if !ok {
			return fmt.Errorf("no quota for %s", args[0])
		}
		fmt.Printf("Entity:            %s (%s)\n", def.EntityID, def.EntityType)
		fmt.Printf("Max CPU minutes:   %.1f\n", def.MaxCPUMinutes)
		fmt.Printf("Max RAM MB:        %d\n", def.MaxRAMMb)
		fmt.Printf("Max storage MB:    %d\n", def.MaxStorageMb)
		fmt.Printf("Max concurrent:    %d\n", def.MaxConcurrentJobs)
		fmt.Printf("Max builds/day:    %d\n", def.MaxBuildsPerDay)
		fmt.Printf("Warning threshold: %d%%\n", def.WarningThresholdPercent)
		fmt.Printf("Hard limit:        %v\n", def.HardLimit)
		return nil
	},
}

var quotaCheckCmd = &cobra.Command{
	Use:   "check <entity-id> <resource-type> <amount>",
	Short: "Check whether an additional amount of usage would be admitted",
	Args:  cobra.ExactArgs(3),
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

		var amount float64
		if _, err := fmt.Sscanf(args[2], "%f", &amount); err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[2], err)
		}

		result := c.Quotas.CheckQuota(args[0], types.ResourceType(args[1]), amount)
		fmt.Printf("Allowed:     %v\n", result.Allowed)
		fmt.Printf("Current:     %.1f\n", result.CurrentUsage)
		fmt.Printf("Limit:       %.1f\n", result.Limit)
		if result.Message != "" {
			fmt.Printf("Message:     %s\n", result.Message)
		}
		return nil
	},
}

func init() {
	quotaSetCmd.Flags().StringVar(&quotaEntityType, "entity-type", string(types.EntityUser), "Entity type (user, org, plan)")
	quotaSetCmd.Flags().Float64Var(&quotaMaxCPUMinutes, "max-cpu-minutes", 0, "Max CPU minutes")
	quotaSetCmd.Flags().Int64Var(&quotaMaxRAMMb, "max-ram-mb", 0, "Max RAM in MB")
	quotaSetCmd.Flags().Int64Var(&quotaMaxStorageMb, "max-storage-mb", 0, "Max storage in MB")
	quotaSetCmd.Flags().IntVar(&quotaMaxConcurrent, "max-concurrent-jobs", 0, "Max concurrent jobs")
	quotaSetCmd.Flags().IntVar(&quotaMaxBuildsPerDay, "max-builds-per-day", 0, "Max builds per UTC day")
	quotaSetCmd.Flags().IntVar(&quotaWarningThreshold, "warning-threshold", 80, "Warning threshold percent")
	quotaSetCmd.Flags().BoolVar(&quotaHardLimit, "hard-limit", false, "Reject usage past the limit instead of only warning")

	quotaCmd.AddCommand(quotaSetCmd)
	quotaCmd.AddCommand(quotaGetCmd)
	quotaCmd.AddCommand(quotaCheckCmd)
}

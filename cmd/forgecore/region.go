package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/core"
)

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Inspect and control region failover",
}

var regionStatusCmd = &cobra.Command{
	Use:   "status <region-id>",
	Short: "Show a region's failover state",
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

		state, ok := c.Failover.GetState(args[0])
		if !ok {
			return fmt.Errorf("unknown region %s", args[0])
		}
		fmt.Printf("Region:             %s\n", state.Config.RegionID)
		fmt.Printf("State:              %s\n", state.State)
		fmt.Printf("Active region:      %s\n", c.Failover.GetActiveRegion(args[0]))
		fmt.Printf("Consecutive fails:  %d\n", state.ConsecutiveFailures)
		fmt.Printf("Consecutive ok:     %d\n", state.ConsecutiveSuccesses)
		return nil
	},
}

var regionEventsCmd = &cobra.Command{
	Use:   "events <region-id> [limit]",
	Short: "List recent failover events for a region",
	Args:  cobra.RangeArgs(1, 2),
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

		limit := 20
		if len(args) == 2 {
			fmt.Sscanf(args[1], "%d", &limit)
		}
		events := c.Failover.GetEvents(args[0], limit)
		if len(events) == 0 {
			fmt.Println("No events")
			return nil
		}
		for _, ev := range events {
			fmt.Printf("%s  %s -> %s  [%s]  %s\n", ev.Timestamp.Format("2006-01-02T15:04:05Z"), ev.FromRegion, ev.ToRegion, ev.State, ev.Reason)
		}
		return nil
	},
}

var regionForceFailoverCmd = &cobra.Command{
	Use:   "force-failover <region-id> <reason>",
	Short: "Force a region into failed-over state",
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

		if !c.Failover.ForceFailover(args[0], args[1]) {
			return fmt.Errorf("unable to force failover for %s", args[0])
		}
		fmt.Printf("Region %s forced to failed-over\n", args[0])
		return nil
	},
}

var regionForceFailbackCmd = &cobra.Command{
	Use:   "force-failback <region-id>",
	Short: "Force a region back to its primary",
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

		if !c.Failover.ForceFailback(args[0]) {
			return fmt.Errorf("unable to force failback for %s", args[0])
		}
		fmt.Printf("Region %s forced back to primary\n", args[0])
		return nil
	},
}

func init() {
	regionCmd.AddCommand(regionStatusCmd)
	regionCmd.AddCommand(regionEventsCmd)
	regionCmd.AddCommand(regionForceFailoverCmd)
	regionCmd.AddCommand(regionForceFailbackCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/forgecore/pkg/core"
	"github.com/cuemby/forgecore/pkg/registry"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage worker nodes and their idle/sleep state",
}

var (
	nodeRegionID         string
	nodeAddress          string
	nodeCostPerHourCents int64
	nodeAutoSleep        bool
)

var nodeRegisterCmd = &cobra.Command{
	Use:   "register <node-id>",
	Short: "Register a node with the cluster",
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

		node := registry.NodeInfo{
			NodeID:           args[0],
			RegionID:         nodeRegionID,
			Address:          nodeAddress,
			CostPerHourCents: nodeCostPerHourCents,
			AutoSleepEnabled: nodeAutoSleep,
		}
		if err := c.RegisterNode(node); err != nil {
			return fmt.Errorf("register node: %w", err)
		}
		fmt.Printf("Registered node %s in region %s\n", args[0], nodeRegionID)
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "list <region-id>",
	Short: "List nodes registered in a region",
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

		nodes := c.Nodes.ListNodes(args[0], "")
		if len(nodes) == 0 {
			fmt.Println("No nodes")
			return nil
		}
		fmt.Printf("%-20s %-20s %-15s %s\n", "NODE ID", "ADDRESS", "LAST HEARTBEAT", "STATE")
		for _, n := range nodes {
			state := "unknown"
			if entry, ok := c.Idle.GetNode(n.NodeID); ok {
				state = string(entry.State)
			}
			fmt.Printf("%-20s %-20s %-15s %s\n", n.NodeID, n.Address, n.LastHeartbeat.Format("15:04:05"), state)
		}
		return nil
	},
}

var nodeSleepCmd = &cobra.Command{
	Use:   "sleep <node-id>",
	Short: "Transition an idle node to sleeping",
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

		if !c.Idle.Sleep(args[0]) {
			return fmt.Errorf("node %s is not idle", args[0])
		}
		fmt.Printf("Node %s sleeping\n", args[0])
		return nil
	},
}

var nodeWakeCmd = &cobra.Command{
	Use:   "wake <node-id>",
	Short: "Wake a sleeping node",
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

		if !c.Idle.Wake(args[0]) {
			return fmt.Errorf("node %s cannot be woken yet", args[0])
		}
		fmt.Printf("Node %s waking\n", args[0])
		return nil
	},
}

var nodeSavingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Show cumulative cost savings from sleeping nodes",
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

		fmt.Printf("Total savings: %d cents\n", c.Idle.GetTotalSavings())
		return nil
	},
}

func init() {
	nodeRegisterCmd.Flags().StringVar(&nodeRegionID, "region", "", "Region id the node belongs to")
	nodeRegisterCmd.Flags().StringVar(&nodeAddress, "address", "", "Node network address")
	nodeRegisterCmd.Flags().Int64Var(&nodeCostPerHourCents, "cost-per-hour-cents", 0, "Node hourly cost in cents")
	nodeRegisterCmd.Flags().BoolVar(&nodeAutoSleep, "auto-sleep", true, "Allow IdleManager to sleep this node automatically")
	nodeRegisterCmd.MarkFlagRequired("region")

	nodeCmd.AddCommand(nodeRegisterCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeSleepCmd)
	nodeCmd.AddCommand(nodeWakeCmd)
	nodeCmd.AddCommand(nodeSavingsCmd)
}

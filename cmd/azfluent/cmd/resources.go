package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yaroslav/azfluent/batchai"
	"github.com/yaroslav/azfluent/compute"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/network"
)

var resourceGroup string

var batchAICmd = &cobra.Command{
	Use:   "batchai",
	Short: "Inspect Batch AI workspaces and clusters",
}

var batchAIWorkspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List Batch AI workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		workspaces := azure.BatchAI().Workspaces()

		var list []*batchai.Workspace
		if resourceGroup != "" {
			list, err = workspaces.ListByResourceGroup(commandContext(cmd), resourceGroup)
		} else {
			list, err = workspaces.List(commandContext(cmd))
		}
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "RESOURCE GROUP", "LOCATION", "STATE"}}
		items := make([]models.Workspace, 0, len(list))
		for _, ws := range list {
			out.add(ws.Name(), ws.ResourceGroupName(), ws.Region(), ws.ProvisioningState())
			items = append(items, ws.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

var batchAIClustersCmd = &cobra.Command{
	Use:   "clusters WORKSPACE",
	Short: "List the clusters of a Batch AI workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resourceGroup == "" {
			return fmt.Errorf("--resource-group is required")
		}
		azure, err := connect()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		ws, err := azure.BatchAI().Workspaces().GetByResourceGroup(ctx, resourceGroup, args[0])
		if err != nil {
			return err
		}
		clusters, err := ws.Clusters().List(ctx)
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "VM SIZE", "PRIORITY", "ALLOCATION", "NODES", "SCALE"}}
		items := make([]models.BatchAICluster, 0, len(clusters))
		for _, cl := range clusters {
			out.add(cl.Name(), cl.VMSize(), cl.VMPriority(), cl.AllocationState(),
				itoa(int(cl.CurrentNodeCount())), describeScale(cl.ScaleSettings()))
			items = append(items, cl.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

func describeScale(s *models.ScaleSettings) string {
	switch {
	case s == nil:
		return ""
	case s.AutoScale != nil:
		return fmt.Sprintf("auto %d-%d", s.AutoScale.MinimumNodeCount, s.AutoScale.MaximumNodeCount)
	case s.Manual != nil:
		return fmt.Sprintf("manual %d", s.Manual.TargetNodeCount)
	}
	return ""
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Inspect compute resources",
}

var computeSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List managed disk snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		snapshots := azure.Compute().Snapshots()

		var list []*compute.Snapshot
		if resourceGroup != "" {
			list, err = snapshots.ListByResourceGroup(commandContext(cmd), resourceGroup)
		} else {
			list, err = snapshots.List(commandContext(cmd))
		}
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "RESOURCE GROUP", "LOCATION", "SKU", "SIZE GB", "OS"}}
		items := make([]models.Snapshot, 0, len(list))
		for _, s := range list {
			out.add(s.Name(), s.ResourceGroupName(), s.Region(), s.SkuName(), itoa(int(s.SizeInGB())), s.OSType())
			items = append(items, s.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Inspect network resources",
}

var networkNSGCmd = &cobra.Command{
	Use:   "nsg",
	Short: "List network security groups and their rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		groups := azure.Network().NetworkSecurityGroups()

		var list []*network.NetworkSecurityGroup
		if resourceGroup != "" {
			list, err = groups.ListByResourceGroup(commandContext(cmd), resourceGroup)
		} else {
			list, err = groups.List(commandContext(cmd))
		}
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"GROUP", "RULE", "PRIORITY", "DIRECTION", "ACCESS", "PROTOCOL", "PORTS"}}
		items := make([]models.NetworkSecurityGroup, 0, len(list))
		for _, g := range list {
			rules := g.SecurityRules()
			if len(rules) == 0 {
				out.add(g.Name(), "", "", "", "", "", "")
			}
			for _, name := range g.RuleNamesByPriority() {
				p := rules[name].Properties
				out.add(g.Name(), name, itoa(int(p.Priority)), p.Direction, p.Access, p.Protocol, p.DestinationPortRange)
			}
			items = append(items, g.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

func itoa(n int) string { return strconv.Itoa(n) }

func init() {
	rootCmd.AddCommand(batchAICmd, computeCmd, networkCmd)
	batchAICmd.AddCommand(batchAIWorkspacesCmd, batchAIClustersCmd)
	computeCmd.AddCommand(computeSnapshotsCmd)
	networkCmd.AddCommand(networkNSGCmd)

	for _, c := range []*cobra.Command{batchAIWorkspacesCmd, batchAIClustersCmd, computeSnapshotsCmd, networkNSGCmd} {
		c.Flags().StringVarP(&resourceGroup, "resource-group", "g", "", "Resource group")
	}
}

package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/keyvault"
	"github.com/yaroslav/azfluent/models"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage Key Vaults",
}

var vaultResourceGroup string

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vaults in the subscription or a resource group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		vaults := azure.KeyVaults().Vaults()

		var list []*keyvault.Vault
		if vaultResourceGroup != "" {
			list, err = vaults.ListByResourceGroup(commandContext(cmd), vaultResourceGroup)
		} else {
			list, err = vaults.List(commandContext(cmd))
		}
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "RESOURCE GROUP", "LOCATION", "SKU", "URI", "POLICIES"}}
		items := make([]models.Vault, 0, len(list))
		for _, v := range list {
			out.add(v.Name(), v.ResourceGroupName(), v.Region(), v.Sku(), v.VaultURI(), itoa(len(v.AccessPolicies())))
			items = append(items, v.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

var vaultListDeletedCmd = &cobra.Command{
	Use:   "list-deleted",
	Short: "List soft-deleted vaults awaiting purge",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		deleted, err := azure.KeyVaults().Vaults().ListDeleted(commandContext(cmd))
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "LOCATION", "DELETED", "SCHEDULED PURGE"}, items: deleted}
		for _, d := range deleted {
			out.add(d.Name, d.Properties.Location, formatTime(d.Properties.DeletionDate), formatTime(d.Properties.ScheduledPurgeDate))
		}
		return render(cmd, out)
	},
}

var vaultPurgeLocation string

var vaultPurgeCmd = &cobra.Command{
	Use:   "purge NAME",
	Short: "Permanently remove a soft-deleted vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if vaultPurgeLocation == "" {
			return errors.New("--location is required")
		}
		azure, err := connect()
		if err != nil {
			return err
		}
		if err := azure.KeyVaults().Vaults().Purge(commandContext(cmd), vaultPurgeLocation, args[0]); err != nil {
			return err
		}
		logger.Info("vault purged", zap.String("name", args[0]), zap.String("location", vaultPurgeLocation))
		return nil
	},
}

var vaultKeysCmd = &cobra.Command{
	Use:   "keys RESOURCE_GROUP NAME",
	Short: "List the keys stored in a vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		vault, err := azure.KeyVaults().Vaults().GetByResourceGroup(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		keys, err := vault.Keys().List(ctx)
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "VERSION", "ENABLED"}, items: keys}
		for _, k := range keys {
			name, version, enabled := "", "", "false"
			if k.KID != nil {
				name, version = k.KID.Name(), k.KID.Version()
			}
			if k.Attributes != nil && k.Attributes.Enabled != nil && *k.Attributes.Enabled {
				enabled = "true"
			}
			out.add(name, version, enabled)
		}
		return render(cmd, out)
	},
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultListCmd, vaultListDeletedCmd, vaultPurgeCmd, vaultKeysCmd)

	vaultListCmd.Flags().StringVarP(&vaultResourceGroup, "resource-group", "g", "", "Only list vaults in this resource group")
	vaultPurgeCmd.Flags().StringVarP(&vaultPurgeLocation, "location", "l", "", "Region the vault was deleted from")
}

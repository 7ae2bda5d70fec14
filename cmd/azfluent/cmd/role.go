package cmd

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/models"
)

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage role assignments",
}

var roleOpts struct {
	objectID         string
	user             string
	servicePrincipal string
	role             string
	scope            string
}

var roleAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a built-in role to a principal",
	Long: `Assign a built-in role to exactly one of --object-id, --user or
--service-principal at --scope (the subscription when unset).`,
	Args: cobra.NoArgs,
	RunE: runRoleAssign,
}

func runRoleAssign(cmd *cobra.Command, _ []string) error {
	set := 0
	for _, v := range []string{roleOpts.objectID, roleOpts.user, roleOpts.servicePrincipal} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of --object-id, --user or --service-principal is required")
	}

	azure, err := connect()
	if err != nil {
		return err
	}

	blank := azure.GraphRBAC().RoleAssignments().Define(uuid.NewString())
	var withRole graphrbac.RoleAssignmentWithRole
	switch {
	case roleOpts.objectID != "":
		withRole = blank.ForObjectID(roleOpts.objectID)
	case roleOpts.user != "":
		withRole = blank.ForUserName(roleOpts.user)
	default:
		withRole = blank.ForServicePrincipalName(roleOpts.servicePrincipal)
	}

	withScope := withRole.WithBuiltInRole(graphrbac.BuiltInRole(roleOpts.role))
	var final graphrbac.RoleAssignmentWithCreate
	if roleOpts.scope != "" {
		final = withScope.WithScope(roleOpts.scope)
	} else {
		final = withScope.WithSubscriptionScope(azure.SubscriptionID())
	}

	ra, err := final.Create(commandContext(cmd))
	if err != nil {
		return err
	}

	out := &listing{headers: []string{"NAME", "PRINCIPAL", "SCOPE"}, items: ra.Inner()}
	out.add(ra.Name(), ra.PrincipalID(), ra.Scope())
	return render(cmd, out)
}

var roleListScope string

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the role assignments at a scope",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		scope := roleListScope
		if scope == "" {
			scope = graphrbac.SubscriptionScope(azure.SubscriptionID())
		}

		assignments, err := azure.GraphRBAC().RoleAssignments().ListByScope(scope).All(commandContext(cmd))
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"NAME", "PRINCIPAL", "ROLE DEFINITION", "SCOPE"}}
		items := make([]models.RoleAssignment, 0, len(assignments))
		for _, ra := range assignments {
			out.add(ra.Name(), ra.PrincipalID(), ra.RoleDefinitionID(), ra.Scope())
			items = append(items, ra.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

func init() {
	rootCmd.AddCommand(roleCmd)
	roleCmd.AddCommand(roleAssignCmd, roleListCmd)

	flags := roleAssignCmd.Flags()
	flags.StringVar(&roleOpts.objectID, "object-id", "", "Object ID of the principal")
	flags.StringVar(&roleOpts.user, "user", "", "User principal name, e.g. alice@contoso.com")
	flags.StringVar(&roleOpts.servicePrincipal, "service-principal", "", "Service principal name or application ID")
	flags.StringVar(&roleOpts.role, "role", string(graphrbac.Reader), "Built-in role name")
	flags.StringVar(&roleOpts.scope, "scope", "", "Scope of the assignment (default the subscription)")

	roleListCmd.Flags().StringVar(&roleListScope, "scope", "", "Scope to list (default the subscription)")
}

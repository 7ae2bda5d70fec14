package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/models"
)

var spCmd = &cobra.Command{
	Use:     "sp",
	Aliases: []string{"service-principal"},
	Short:   "Manage Azure AD service principals",
}

var spListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the service principals in the tenant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		sps, err := azure.GraphRBAC().ServicePrincipals().List(commandContext(cmd))
		if err != nil {
			return err
		}

		out := &listing{headers: []string{"OBJECT ID", "APP ID", "NAME"}}
		items := make([]models.ServicePrincipal, 0, len(sps))
		for _, sp := range sps {
			out.add(sp.ID(), sp.ApplicationID(), sp.Name())
			items = append(items, sp.Inner())
		}
		out.items = items
		return render(cmd, out)
	},
}

var spCreateOpts struct {
	signOnURL        string
	roles            []string
	scope            string
	passwordDuration time.Duration
	authFile         string
}

var spCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an application and its service principal",
	Long: `Create an Azure AD application named NAME together with its service principal.

A password credential is generated and, with --auth-file, written as an SDK auth
file. Each --role is assigned at --scope (the subscription when unset).`,
	Args: cobra.ExactArgs(1),
	RunE: runSPCreate,
}

func runSPCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	azure, err := connect()
	if err != nil {
		return err
	}

	scope := spCreateOpts.scope
	if scope == "" {
		scope = graphrbac.SubscriptionScope(azure.SubscriptionID())
	}
	signOnURL := spCreateOpts.signOnURL
	if signOnURL == "" {
		signOnURL = "https://" + strings.ToLower(name)
	}

	def := azure.GraphRBAC().ServicePrincipals().Define(name).WithNewApplication(signOnURL)
	for _, role := range spCreateOpts.roles {
		def = def.WithNewRole(graphrbac.BuiltInRole(role), scope)
	}

	password := def.DefinePasswordCredential(name + "-password").WithDuration(spCreateOpts.passwordDuration)
	if spCreateOpts.authFile != "" {
		f, err := os.OpenFile(spCreateOpts.authFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open auth file: %w", err)
		}
		defer f.Close()
		password = password.WithAuthFileToExport(f)
	}

	sp, err := password.Attach().Create(commandContext(cmd))
	if err != nil {
		logger.Error("service principal creation failed", zap.String("name", name), zap.Error(err))
		return err
	}

	out := &listing{headers: []string{"OBJECT ID", "APP ID", "NAME", "ROLE ASSIGNMENTS"}, items: sp.Inner()}
	out.add(sp.ID(), sp.ApplicationID(), sp.Name(), fmt.Sprint(len(sp.RoleAssignments())))
	return render(cmd, out)
}

var spDeleteCmd = &cobra.Command{
	Use:   "delete OBJECT_ID",
	Short: "Delete a service principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		azure, err := connect()
		if err != nil {
			return err
		}
		return azure.GraphRBAC().ServicePrincipals().DeleteByID(commandContext(cmd), args[0])
	},
}

func init() {
	rootCmd.AddCommand(spCmd)
	spCmd.AddCommand(spListCmd, spCreateCmd, spDeleteCmd)

	flags := spCreateCmd.Flags()
	flags.StringVar(&spCreateOpts.signOnURL, "sign-on-url", "", "Sign-on URL of the application (default https://NAME)")
	flags.StringSliceVar(&spCreateOpts.roles, "role", nil, "Built-in role to assign, e.g. Contributor (repeatable)")
	flags.StringVar(&spCreateOpts.scope, "scope", "", "Scope of the role assignments (default the subscription)")
	flags.DurationVar(&spCreateOpts.passwordDuration, "password-duration", 365*24*time.Hour, "Validity of the generated password")
	flags.StringVar(&spCreateOpts.authFile, "auth-file", "", "Write an SDK auth file for the new credential to this path")
}

package keyvault

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yaroslav/azfluent/graphrbac"
	"github.com/yaroslav/azfluent/models"
)

// Key permissions.
const (
	KeyPermissionEncrypt   = "encrypt"
	KeyPermissionDecrypt   = "decrypt"
	KeyPermissionWrapKey   = "wrapKey"
	KeyPermissionUnwrapKey = "unwrapKey"
	KeyPermissionSign      = "sign"
	KeyPermissionVerify    = "verify"
	KeyPermissionGet       = "get"
	KeyPermissionList      = "list"
	KeyPermissionCreate    = "create"
	KeyPermissionUpdate    = "update"
	KeyPermissionImport    = "import"
	KeyPermissionDelete    = "delete"
	KeyPermissionBackup    = "backup"
	KeyPermissionRestore   = "restore"
	KeyPermissionRecover   = "recover"
	KeyPermissionPurge     = "purge"
)

// Secret permissions.
const (
	SecretPermissionGet     = "get"
	SecretPermissionList    = "list"
	SecretPermissionSet     = "set"
	SecretPermissionDelete  = "delete"
	SecretPermissionBackup  = "backup"
	SecretPermissionRestore = "restore"
	SecretPermissionRecover = "recover"
	SecretPermissionPurge   = "purge"
)

// Certificate permissions.
const (
	CertificatePermissionGet            = "get"
	CertificatePermissionList           = "list"
	CertificatePermissionDelete         = "delete"
	CertificatePermissionCreate         = "create"
	CertificatePermissionImport         = "import"
	CertificatePermissionUpdate         = "update"
	CertificatePermissionManageContacts = "managecontacts"
	CertificatePermissionGetIssuers     = "getissuers"
	CertificatePermissionListIssuers    = "listissuers"
	CertificatePermissionSetIssuers     = "setissuers"
	CertificatePermissionDeleteIssuers  = "deleteissuers"
	CertificatePermissionManageIssuers  = "manageissuers"
	CertificatePermissionRecover        = "recover"
	CertificatePermissionPurge          = "purge"
)

var (
	allKeyPermissions = []string{
		KeyPermissionEncrypt, KeyPermissionDecrypt, KeyPermissionWrapKey, KeyPermissionUnwrapKey,
		KeyPermissionSign, KeyPermissionVerify, KeyPermissionGet, KeyPermissionList,
		KeyPermissionCreate, KeyPermissionUpdate, KeyPermissionImport, KeyPermissionDelete,
		KeyPermissionBackup, KeyPermissionRestore, KeyPermissionRecover, KeyPermissionPurge,
	}
	allSecretPermissions = []string{
		SecretPermissionGet, SecretPermissionList, SecretPermissionSet, SecretPermissionDelete,
		SecretPermissionBackup, SecretPermissionRestore, SecretPermissionRecover, SecretPermissionPurge,
	}
	allCertificatePermissions = []string{
		CertificatePermissionGet, CertificatePermissionList, CertificatePermissionDelete,
		CertificatePermissionCreate, CertificatePermissionImport, CertificatePermissionUpdate,
		CertificatePermissionManageContacts, CertificatePermissionGetIssuers,
		CertificatePermissionListIssuers, CertificatePermissionSetIssuers,
		CertificatePermissionDeleteIssuers, CertificatePermissionManageIssuers,
		CertificatePermissionRecover, CertificatePermissionPurge,
	}
)

// AccessPolicy grants one principal permissions on the contents of a vault.
// A policy defined by user or service principal name carries no object ID until the
// vault is submitted and the name is resolved through Graph.
type AccessPolicy struct {
	entry models.AccessPolicyEntry

	userPrincipalName    string
	servicePrincipalName string
}

// ObjectID returns the principal's object ID, or "" while it is unresolved.
func (p *AccessPolicy) ObjectID() string { return p.entry.ObjectID }

// TenantID returns the tenant of the principal.
func (p *AccessPolicy) TenantID() string { return p.entry.TenantID }

// ApplicationID returns the application the policy is restricted to, if any.
func (p *AccessPolicy) ApplicationID() string { return p.entry.ApplicationID }

// Permissions returns the granted permissions.
func (p *AccessPolicy) Permissions() models.Permissions { return p.entry.Permissions }

// Inner returns the wire representation.
func (p *AccessPolicy) Inner() models.AccessPolicyEntry { return p.entry }

func (p *AccessPolicy) hasPrincipal() bool {
	return p.entry.ObjectID != "" || p.userPrincipalName != "" || p.servicePrincipalName != ""
}

// resolve fills in the object ID of a policy defined by principal name.
func (p *AccessPolicy) resolve(ctx context.Context, graph *graphrbac.Manager) error {
	if p.entry.ObjectID != "" {
		return nil
	}

	switch {
	case p.userPrincipalName != "":
		user, err := graph.Users().GetByName(ctx, p.userPrincipalName)
		if err != nil {
			return principalError(err, "user", p.userPrincipalName, graph.TenantID())
		}
		p.entry.ObjectID = user.ID()
	case p.servicePrincipalName != "":
		sp, err := graph.ServicePrincipals().GetByName(ctx, p.servicePrincipalName)
		if err != nil {
			return principalError(err, "service principal", p.servicePrincipalName, graph.TenantID())
		}
		p.entry.ObjectID = sp.ID()
	default:
		return models.Validationf("access policy has no principal")
	}
	return nil
}

func principalError(err error, kind, name, tenant string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s %q not found in tenant %s: %w", kind, name, tenant, models.ErrNotFound)
	}
	return fmt.Errorf("failed to look up %s %q: %w", kind, name, err)
}

func addPermissions(list []string, permissions []string) []string {
	for _, permission := range permissions {
		if !slices.Contains(list, permission) {
			list = append(list, permission)
		}
	}
	return list
}

func removePermissions(list []string, permissions []string) []string {
	return slices.DeleteFunc(list, func(permission string) bool {
		return slices.Contains(permissions, permission)
	})
}

// AccessPolicyBlank is the first stage of an access policy definition: the principal.
// P is the stage Attach returns to.
type AccessPolicyBlank[P any] struct {
	policy *AccessPolicy
	attach func(*AccessPolicy) P
}

// ForObjectID grants the policy to a directory object by ID.
func (d AccessPolicyBlank[P]) ForObjectID(objectID string) AccessPolicyAttach[P] {
	d.policy.entry.ObjectID = objectID
	return AccessPolicyAttach[P](d)
}

// ForUser grants the policy to the user with the given user principal name.
func (d AccessPolicyBlank[P]) ForUser(userPrincipalName string) AccessPolicyAttach[P] {
	d.policy.userPrincipalName = userPrincipalName
	return AccessPolicyAttach[P](d)
}

// ForUserObject grants the policy to a user already fetched from Graph.
func (d AccessPolicyBlank[P]) ForUserObject(user *graphrbac.User) AccessPolicyAttach[P] {
	return d.ForObjectID(user.ID())
}

// ForServicePrincipal grants the policy to the service principal with the given name.
func (d AccessPolicyBlank[P]) ForServicePrincipal(servicePrincipalName string) AccessPolicyAttach[P] {
	d.policy.servicePrincipalName = servicePrincipalName
	return AccessPolicyAttach[P](d)
}

// ForServicePrincipalObject grants the policy to a service principal already fetched.
func (d AccessPolicyBlank[P]) ForServicePrincipalObject(sp *graphrbac.ServicePrincipal) AccessPolicyAttach[P] {
	return d.ForObjectID(sp.ID())
}

// ForGroup grants the policy to every member of a group.
func (d AccessPolicyBlank[P]) ForGroup(group *graphrbac.Group) AccessPolicyAttach[P] {
	return d.ForObjectID(group.ID())
}

// AccessPolicyAttach collects permissions and attaches the policy to its vault.
type AccessPolicyAttach[P any] struct {
	policy *AccessPolicy
	attach func(*AccessPolicy) P
}

// ForApplication restricts the policy to a principal acting through an application.
func (d AccessPolicyAttach[P]) ForApplication(applicationID string) AccessPolicyAttach[P] {
	d.policy.entry.ApplicationID = applicationID
	return d
}

// AllowKeyPermissions grants key permissions.
func (d AccessPolicyAttach[P]) AllowKeyPermissions(permissions ...string) AccessPolicyAttach[P] {
	d.policy.entry.Permissions.Keys = addPermissions(d.policy.entry.Permissions.Keys, permissions)
	return d
}

// AllowKeyAllPermissions grants every key permission.
func (d AccessPolicyAttach[P]) AllowKeyAllPermissions() AccessPolicyAttach[P] {
	return d.AllowKeyPermissions(allKeyPermissions...)
}

// AllowSecretPermissions grants secret permissions.
func (d AccessPolicyAttach[P]) AllowSecretPermissions(permissions ...string) AccessPolicyAttach[P] {
	d.policy.entry.Permissions.Secrets = addPermissions(d.policy.entry.Permissions.Secrets, permissions)
	return d
}

// AllowSecretAllPermissions grants every secret permission.
func (d AccessPolicyAttach[P]) AllowSecretAllPermissions() AccessPolicyAttach[P] {
	return d.AllowSecretPermissions(allSecretPermissions...)
}

// AllowCertificatePermissions grants certificate permissions.
func (d AccessPolicyAttach[P]) AllowCertificatePermissions(permissions ...string) AccessPolicyAttach[P] {
	d.policy.entry.Permissions.Certificates = addPermissions(d.policy.entry.Permissions.Certificates, permissions)
	return d
}

// AllowCertificateAllPermissions grants every certificate permission.
func (d AccessPolicyAttach[P]) AllowCertificateAllPermissions() AccessPolicyAttach[P] {
	return d.AllowCertificatePermissions(allCertificatePermissions...)
}

// Attach adds the policy to the vault definition or update.
func (d AccessPolicyAttach[P]) Attach() P {
	return d.attach(d.policy)
}

// AccessPolicyUpdate edits an access policy already on a vault.
type AccessPolicyUpdate struct {
	policy *AccessPolicy
	parent VaultUpdate
}

// AllowKeyPermissions grants key permissions.
func (u *AccessPolicyUpdate) AllowKeyPermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Keys = addPermissions(u.policy.entry.Permissions.Keys, permissions)
	return u
}

// DisallowKeyPermissions revokes key permissions.
func (u *AccessPolicyUpdate) DisallowKeyPermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Keys = removePermissions(u.policy.entry.Permissions.Keys, permissions)
	return u
}

// AllowSecretPermissions grants secret permissions.
func (u *AccessPolicyUpdate) AllowSecretPermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Secrets = addPermissions(u.policy.entry.Permissions.Secrets, permissions)
	return u
}

// DisallowSecretPermissions revokes secret permissions.
func (u *AccessPolicyUpdate) DisallowSecretPermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Secrets = removePermissions(u.policy.entry.Permissions.Secrets, permissions)
	return u
}

// AllowCertificatePermissions grants certificate permissions.
func (u *AccessPolicyUpdate) AllowCertificatePermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Certificates = addPermissions(u.policy.entry.Permissions.Certificates, permissions)
	return u
}

// DisallowCertificatePermissions revokes certificate permissions.
func (u *AccessPolicyUpdate) DisallowCertificatePermissions(permissions ...string) *AccessPolicyUpdate {
	u.policy.entry.Permissions.Certificates = removePermissions(u.policy.entry.Permissions.Certificates, permissions)
	return u
}

// Parent returns to the vault update.
func (u *AccessPolicyUpdate) Parent() VaultUpdate { return u.parent }

package models

import "time"

// DirectoryObject holds the fields every Azure AD Graph object carries.
type DirectoryObject struct {
	// ObjectID is the directory object ID (UUID), assigned by Graph.
	ObjectID string `json:"objectId,omitempty"`

	// ObjectType is the Graph object type, e.g. "Application" or "ServicePrincipal".
	ObjectType string `json:"objectType,omitempty"`

	// DeletionTimestamp is set for soft-deleted objects.
	DeletionTimestamp *time.Time `json:"deletionTimestamp,omitempty"`
}

// Application is an Azure AD application registration.
type Application struct {
	DirectoryObject

	// AppID is the application (client) ID.
	AppID string `json:"appId,omitempty"`

	// DisplayName is the human-readable application name.
	DisplayName string `json:"displayName,omitempty"`

	// Homepage is the sign-on URL of the application.
	Homepage string `json:"homepage,omitempty"`

	// IdentifierURIs are the App ID URIs of the application.
	IdentifierURIs []string `json:"identifierUris,omitempty"`

	// ReplyURLs are the URLs tokens are sent to after sign-in.
	ReplyURLs []string `json:"replyUrls,omitempty"`

	// AvailableToOtherTenants marks the application as multi-tenant.
	AvailableToOtherTenants *bool `json:"availableToOtherTenants,omitempty"`

	PasswordCredentials []PasswordCredential `json:"passwordCredentials,omitempty"`
	KeyCredentials      []KeyCredential      `json:"keyCredentials,omitempty"`
}

// ApplicationCreateParameters is the POST body for /applications.
type ApplicationCreateParameters struct {
	DisplayName             string               `json:"displayName"`
	Homepage                string               `json:"homepage,omitempty"`
	IdentifierURIs          []string             `json:"identifierUris,omitempty"`
	ReplyURLs               []string             `json:"replyUrls,omitempty"`
	AvailableToOtherTenants *bool                `json:"availableToOtherTenants,omitempty"`
	PasswordCredentials     []PasswordCredential `json:"passwordCredentials,omitempty"`
	KeyCredentials          []KeyCredential      `json:"keyCredentials,omitempty"`
}

// ApplicationUpdateParameters is the PATCH body for /applications/{objectId}.
type ApplicationUpdateParameters struct {
	DisplayName             string   `json:"displayName,omitempty"`
	Homepage                string   `json:"homepage,omitempty"`
	IdentifierURIs          []string `json:"identifierUris,omitempty"`
	ReplyURLs               []string `json:"replyUrls,omitempty"`
	AvailableToOtherTenants *bool    `json:"availableToOtherTenants,omitempty"`
}

// ServicePrincipal is the tenant-local identity of an application.
type ServicePrincipal struct {
	DirectoryObject

	// AppID is the application ID this service principal represents.
	AppID string `json:"appId,omitempty"`

	// DisplayName is the human-readable name.
	DisplayName string `json:"displayName,omitempty"`

	// ServicePrincipalNames contains the app ID and the identifier URIs of the application.
	ServicePrincipalNames []string `json:"servicePrincipalNames,omitempty"`

	// AccountEnabled reports whether the service principal can sign in.
	AccountEnabled *bool `json:"accountEnabled,omitempty"`
}

// ServicePrincipalCreateParameters is the POST body for /servicePrincipals.
type ServicePrincipalCreateParameters struct {
	AppID          string `json:"appId"`
	AccountEnabled *bool  `json:"accountEnabled,omitempty"`
}

// User is an Azure AD user.
type User struct {
	DirectoryObject

	DisplayName       string `json:"displayName,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	Mail              string `json:"mail,omitempty"`
	MailNickname      string `json:"mailNickname,omitempty"`
	UsageLocation     string `json:"usageLocation,omitempty"`
	AccountEnabled    *bool  `json:"accountEnabled,omitempty"`
}

// Group is an Azure AD security or mail-enabled group.
type Group struct {
	DirectoryObject

	DisplayName     string `json:"displayName,omitempty"`
	Mail            string `json:"mail,omitempty"`
	MailEnabled     *bool  `json:"mailEnabled,omitempty"`
	SecurityEnabled *bool  `json:"securityEnabled,omitempty"`
}

// PasswordCredential is a client secret attached to an application or service principal.
type PasswordCredential struct {
	// KeyID uniquely identifies the credential (UUID).
	KeyID string `json:"keyId,omitempty"`

	// Value is the secret. Graph only returns it on creation, never on reads.
	Value string `json:"value,omitempty"`

	// CustomKeyIdentifier is the base64-encoded credential name.
	CustomKeyIdentifier string `json:"customKeyIdentifier,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// KeyCredential is a certificate or symmetric key attached to an application or service principal.
type KeyCredential struct {
	KeyID string `json:"keyId,omitempty"`

	// Value is the base64-encoded public key (X509) or secret key (symmetric).
	Value string `json:"value,omitempty"`

	// CustomKeyIdentifier is the base64-encoded credential name.
	CustomKeyIdentifier string `json:"customKeyIdentifier,omitempty"`

	// Usage is "Verify" for certificates and "Sign" for symmetric keys.
	Usage string `json:"usage,omitempty"`

	// Type is "AsymmetricX509Cert" or "Symmetric".
	Type string `json:"type,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// PasswordCredentialsUpdateParameters replaces the full password credential list.
type PasswordCredentialsUpdateParameters struct {
	Value []PasswordCredential `json:"value"`
}

// KeyCredentialsUpdateParameters replaces the full key credential list.
type KeyCredentialsUpdateParameters struct {
	Value []KeyCredential `json:"value"`
}

package graphrbac

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/secret"
	"github.com/yaroslav/azfluent/sdk"
)

const (
	// DefaultCredentialDuration is how long a new credential is valid when no duration is set.
	DefaultCredentialDuration = 365 * 24 * time.Hour

	keyTypeAsymmetricX509 = "AsymmetricX509Cert"
	keyTypeSymmetric      = "Symmetric"
	keyUsageVerify        = "Verify"
	keyUsageSign          = "Sign"
)

var errCredentialRefresh = fmt.Errorf("%w: credentials are refreshed through their application or service principal",
	sdk.ErrUnsupportedOperation)

func encodeName(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(name))
}

// decodeName returns the credential name stored in customKeyIdentifier, or fallback
// when there is none.
func decodeName(customKeyIdentifier, fallback string) string {
	if customKeyIdentifier == "" {
		return fallback
	}
	name, err := base64.StdEncoding.DecodeString(customKeyIdentifier)
	if err != nil {
		return customKeyIdentifier
	}
	return string(name)
}

func validity(start time.Time, duration time.Duration) (*time.Time, *time.Time) {
	start = start.UTC()
	end := start.Add(duration)
	return &start, &end
}

// PasswordCredential is a client secret of an application or service principal.
type PasswordCredential struct {
	name     string
	inner    models.PasswordCredential
	authFile io.Writer
}

func newPasswordCredential(name string) *PasswordCredential {
	start, end := validity(time.Now(), DefaultCredentialDuration)
	return &PasswordCredential{
		name: name,
		inner: models.PasswordCredential{
			KeyID:               uuid.NewString(),
			CustomKeyIdentifier: encodeName(name),
			StartDate:           start,
			EndDate:             end,
		},
	}
}

func passwordCredentialFromInner(inner models.PasswordCredential) *PasswordCredential {
	return &PasswordCredential{name: decodeName(inner.CustomKeyIdentifier, inner.KeyID), inner: inner}
}

// Name returns the credential name.
func (c *PasswordCredential) Name() string { return c.name }

// ID returns the key ID.
func (c *PasswordCredential) ID() string { return c.inner.KeyID }

// Value returns the secret. It is only known for credentials created by this client.
func (c *PasswordCredential) Value() string { return c.inner.Value }

// StartDate returns when the credential becomes valid.
func (c *PasswordCredential) StartDate() time.Time { return derefTime(c.inner.StartDate) }

// EndDate returns when the credential expires.
func (c *PasswordCredential) EndDate() time.Time { return derefTime(c.inner.EndDate) }

// Inner returns the wire representation.
func (c *PasswordCredential) Inner() models.PasswordCredential { return c.inner }

// Refresh always fails: a credential cannot be fetched on its own.
func (c *PasswordCredential) Refresh(ctx context.Context) error {
	return errCredentialRefresh
}

func (c *PasswordCredential) validate() error {
	if c.name == "" {
		return models.Validationf("password credential name is required")
	}
	if !c.EndDate().After(c.StartDate()) {
		return models.Validationf("password credential %q must end after it starts", c.name)
	}
	if c.inner.Value != "" {
		if err := secret.ValidateLength(c.inner.Value); err != nil {
			return models.Validationf("password credential %q: %v", c.name, err)
		}
	}
	return nil
}

func (c *PasswordCredential) ensureValue() error {
	if c.inner.Value != "" {
		return nil
	}
	value, err := secret.Generate()
	if err != nil {
		return err
	}
	c.inner.Value = value
	return nil
}

// PasswordCredentialDefinition stages a new password credential and returns to the
// owner's stage P on Attach.
type PasswordCredentialDefinition[P any] struct {
	credential *PasswordCredential
	attach     func(*PasswordCredential) P
}

func definePassword[P any](name string, attach func(*PasswordCredential) P) *PasswordCredentialDefinition[P] {
	return &PasswordCredentialDefinition[P]{credential: newPasswordCredential(name), attach: attach}
}

// WithPasswordValue sets the secret. A random secret is generated when none is set.
func (d *PasswordCredentialDefinition[P]) WithPasswordValue(value string) *PasswordCredentialDefinition[P] {
	d.credential.inner.Value = value
	return d
}

// WithStartDate moves the validity window to begin at start, keeping its length.
func (d *PasswordCredentialDefinition[P]) WithStartDate(start time.Time) *PasswordCredentialDefinition[P] {
	duration := d.credential.EndDate().Sub(d.credential.StartDate())
	d.credential.inner.StartDate, d.credential.inner.EndDate = validity(start, duration)
	return d
}

// WithDuration sets how long the credential is valid after its start date.
func (d *PasswordCredentialDefinition[P]) WithDuration(duration time.Duration) *PasswordCredentialDefinition[P] {
	d.credential.inner.StartDate, d.credential.inner.EndDate = validity(d.credential.StartDate(), duration)
	return d
}

// WithAuthFileToExport writes an SDK auth file for the credential to w once the owner is saved.
func (d *PasswordCredentialDefinition[P]) WithAuthFileToExport(w io.Writer) *PasswordCredentialDefinition[P] {
	d.credential.authFile = w
	return d
}

// Attach adds the credential to its owner.
func (d *PasswordCredentialDefinition[P]) Attach() P {
	return d.attach(d.credential)
}

// CertificateCredential is an X509 certificate or symmetric key of an application or
// service principal.
type CertificateCredential struct {
	name               string
	inner              models.KeyCredential
	authFile           io.Writer
	privateKeyPath     string
	privateKeyPassword string
}

func newCertificateCredential(name string) *CertificateCredential {
	start, end := validity(time.Now(), DefaultCredentialDuration)
	return &CertificateCredential{
		name: name,
		inner: models.KeyCredential{
			KeyID:               uuid.NewString(),
			CustomKeyIdentifier: encodeName(name),
			StartDate:           start,
			EndDate:             end,
		},
	}
}

func certificateCredentialFromInner(inner models.KeyCredential) *CertificateCredential {
	return &CertificateCredential{name: decodeName(inner.CustomKeyIdentifier, inner.KeyID), inner: inner}
}

// Name returns the credential name.
func (c *CertificateCredential) Name() string { return c.name }

// ID returns the key ID.
func (c *CertificateCredential) ID() string { return c.inner.KeyID }

// Type returns "AsymmetricX509Cert" or "Symmetric".
func (c *CertificateCredential) Type() string { return c.inner.Type }

// StartDate returns when the credential becomes valid.
func (c *CertificateCredential) StartDate() time.Time { return derefTime(c.inner.StartDate) }

// EndDate returns when the credential expires.
func (c *CertificateCredential) EndDate() time.Time { return derefTime(c.inner.EndDate) }

// Inner returns the wire representation.
func (c *CertificateCredential) Inner() models.KeyCredential { return c.inner }

// Refresh always fails: a credential cannot be fetched on its own.
func (c *CertificateCredential) Refresh(ctx context.Context) error {
	return errCredentialRefresh
}

func (c *CertificateCredential) validate() error {
	if c.name == "" {
		return models.Validationf("certificate credential name is required")
	}
	if c.inner.Value == "" {
		return models.Validationf("certificate credential %q has no key", c.name)
	}
	if !c.EndDate().After(c.StartDate()) {
		return models.Validationf("certificate credential %q must end after it starts", c.name)
	}
	return nil
}

// CertificateCredentialBlank is the first stage of a certificate credential: the key type.
type CertificateCredentialBlank[P any] struct {
	d *CertificateCredentialDefinition[P]
}

// CertificateCredentialWithPublicKey awaits the public key of an X509 certificate.
type CertificateCredentialWithPublicKey[P any] struct {
	d *CertificateCredentialDefinition[P]
}

// CertificateCredentialWithSecretKey awaits a symmetric secret key.
type CertificateCredentialWithSecretKey[P any] struct {
	d *CertificateCredentialDefinition[P]
}

// CertificateCredentialDefinition holds the optional settings of a certificate credential.
type CertificateCredentialDefinition[P any] struct {
	credential *CertificateCredential
	attach     func(*CertificateCredential) P
}

func defineCertificate[P any](name string, attach func(*CertificateCredential) P) CertificateCredentialBlank[P] {
	return CertificateCredentialBlank[P]{d: &CertificateCredentialDefinition[P]{
		credential: newCertificateCredential(name),
		attach:     attach,
	}}
}

// WithAsymmetricX509Certificate selects an X509 certificate credential.
func (b CertificateCredentialBlank[P]) WithAsymmetricX509Certificate() CertificateCredentialWithPublicKey[P] {
	b.d.credential.inner.Type = keyTypeAsymmetricX509
	b.d.credential.inner.Usage = keyUsageVerify
	return CertificateCredentialWithPublicKey[P](b)
}

// WithSymmetricEncryption selects a symmetric key credential.
func (b CertificateCredentialBlank[P]) WithSymmetricEncryption() CertificateCredentialWithSecretKey[P] {
	b.d.credential.inner.Type = keyTypeSymmetric
	b.d.credential.inner.Usage = keyUsageSign
	return CertificateCredentialWithSecretKey[P](b)
}

// WithPublicKey sets the certificate (DER or PEM bytes).
func (s CertificateCredentialWithPublicKey[P]) WithPublicKey(certificate []byte) *CertificateCredentialDefinition[P] {
	s.d.credential.inner.Value = base64.StdEncoding.EncodeToString(certificate)
	return s.d
}

// WithSecretKey sets the symmetric key.
func (s CertificateCredentialWithSecretKey[P]) WithSecretKey(key []byte) *CertificateCredentialDefinition[P] {
	s.d.credential.inner.Value = base64.StdEncoding.EncodeToString(key)
	return s.d
}

// WithStartDate moves the validity window to begin at start, keeping its length.
func (d *CertificateCredentialDefinition[P]) WithStartDate(start time.Time) *CertificateCredentialDefinition[P] {
	duration := d.credential.EndDate().Sub(d.credential.StartDate())
	d.credential.inner.StartDate, d.credential.inner.EndDate = validity(start, duration)
	return d
}

// WithDuration sets how long the credential is valid after its start date.
func (d *CertificateCredentialDefinition[P]) WithDuration(duration time.Duration) *CertificateCredentialDefinition[P] {
	d.credential.inner.StartDate, d.credential.inner.EndDate = validity(d.credential.StartDate(), duration)
	return d
}

// WithAuthFileToExport writes an SDK auth file for the credential to w once the owner is saved.
func (d *CertificateCredentialDefinition[P]) WithAuthFileToExport(w io.Writer) *CertificateCredentialDefinition[P] {
	d.credential.authFile = w
	return d
}

// WithPrivateKeyFile records the path of the private key for the auth file.
func (d *CertificateCredentialDefinition[P]) WithPrivateKeyFile(path string) *CertificateCredentialDefinition[P] {
	d.credential.privateKeyPath = path
	return d
}

// WithPrivateKeyPassword records the private key password for the auth file.
func (d *CertificateCredentialDefinition[P]) WithPrivateKeyPassword(password string) *CertificateCredentialDefinition[P] {
	d.credential.privateKeyPassword = password
	return d
}

// Attach adds the credential to its owner.
func (d *CertificateCredentialDefinition[P]) Attach() P {
	return d.attach(d.credential)
}

// AuthFile is the JSON auth file format read by Azure SDK file-based authentication.
type AuthFile struct {
	ClientID                       string `json:"clientId"`
	ClientSecret                   string `json:"clientSecret,omitempty"`
	ClientCertificate              string `json:"clientCertificate,omitempty"`
	ClientCertificatePassword      string `json:"clientCertificatePassword,omitempty"`
	TenantID                       string `json:"tenantId"`
	SubscriptionID                 string `json:"subscriptionId"`
	ActiveDirectoryEndpointURL     string `json:"activeDirectoryEndpointUrl"`
	ResourceManagerEndpointURL     string `json:"resourceManagerEndpointUrl"`
	ActiveDirectoryGraphResourceID string `json:"activeDirectoryGraphResourceId"`
	ManagementEndpointURL          string `json:"managementEndpointUrl"`
}

func newAuthFile(env sdk.Environment, clientID, tenantID, subscriptionID string) AuthFile {
	return AuthFile{
		ClientID:                       clientID,
		TenantID:                       tenantID,
		SubscriptionID:                 subscriptionID,
		ActiveDirectoryEndpointURL:     env.ActiveDirectoryEndpoint,
		ResourceManagerEndpointURL:     env.ResourceManagerEndpoint,
		ActiveDirectoryGraphResourceID: env.GraphEndpoint,
		ManagementEndpointURL:          env.ManagementEndpoint,
	}
}

func writeAuthFile(w io.Writer, file AuthFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth file: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return nil
}

// credentialSet tracks the credentials of one application or service principal: the
// last known server state and the changes staged since.
type credentialSet struct {
	passwords    map[string]*PasswordCredential
	certificates map[string]*CertificateCredential

	passwordsToCreate    []*PasswordCredential
	certificatesToCreate []*CertificateCredential
	toDelete             map[string]bool

	// created holds the credentials accepted by Graph whose auth files are not written yet.
	createdPasswords    []*PasswordCredential
	createdCertificates []*CertificateCredential
}

func newCredentialSet() credentialSet {
	return credentialSet{
		passwords:    make(map[string]*PasswordCredential),
		certificates: make(map[string]*CertificateCredential),
		toDelete:     make(map[string]bool),
	}
}

func (s *credentialSet) addPassword(c *PasswordCredential) {
	s.passwordsToCreate = append(s.passwordsToCreate, c)
}

func (s *credentialSet) addCertificate(c *CertificateCredential) {
	s.certificatesToCreate = append(s.certificatesToCreate, c)
}

func (s *credentialSet) remove(name string) {
	s.toDelete[name] = true
}

func (s *credentialSet) validate() error {
	for _, c := range s.passwordsToCreate {
		if err := c.validate(); err != nil {
			return err
		}
	}
	for _, c := range s.certificatesToCreate {
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *credentialSet) load(passwords []models.PasswordCredential, keys []models.KeyCredential) {
	known := make(map[string]string, len(s.passwords))
	for _, c := range s.passwords {
		known[c.ID()] = c.Value()
	}
	for _, c := range s.passwordsToCreate {
		known[c.ID()] = c.Value()
	}

	s.passwords = make(map[string]*PasswordCredential, len(passwords))
	for _, inner := range passwords {
		if inner.Value == "" {
			inner.Value = known[inner.KeyID]
		}
		c := passwordCredentialFromInner(inner)
		s.passwords[c.Name()] = c
	}

	s.certificates = make(map[string]*CertificateCredential, len(keys))
	for _, inner := range keys {
		c := certificateCredentialFromInner(inner)
		s.certificates[c.Name()] = c
	}
}

func (s *credentialSet) passwordsChanged() bool {
	if len(s.passwordsToCreate) > 0 {
		return true
	}
	for name := range s.toDelete {
		if _, ok := s.passwords[name]; ok {
			return true
		}
	}
	return false
}

func (s *credentialSet) certificatesChanged() bool {
	if len(s.certificatesToCreate) > 0 {
		return true
	}
	for name := range s.toDelete {
		if _, ok := s.certificates[name]; ok {
			return true
		}
	}
	return false
}

// submit replaces the owner's credential lists with the cached ones minus deletions
// plus additions. owner is the Graph path of the application or service principal.
// Each list accepted by Graph is folded into the cached state at once, so a later
// failure of the owner's submission never stages the same key twice.
func (s *credentialSet) submit(ctx context.Context, graph *sdk.Client, owner string) error {
	if s.certificatesChanged() {
		var list []models.KeyCredential
		for _, name := range sortedKeys(s.certificates) {
			if !s.toDelete[name] {
				list = append(list, s.certificates[name].inner)
			}
		}
		for _, c := range s.certificatesToCreate {
			list = append(list, c.inner)
		}
		body := models.KeyCredentialsUpdateParameters{Value: emptyIfNil(list)}
		if err := graph.DoJSON(ctx, http.MethodPatch, owner+"/keyCredentials", body, nil); err != nil {
			return fmt.Errorf("failed to update key credentials: %w", err)
		}
		for name := range s.toDelete {
			delete(s.certificates, name)
		}
		for _, c := range s.certificatesToCreate {
			s.certificates[c.Name()] = c
		}
		s.createdCertificates = append(s.createdCertificates, s.certificatesToCreate...)
		s.certificatesToCreate = nil
	}

	if s.passwordsChanged() {
		var list []models.PasswordCredential
		for _, name := range sortedKeys(s.passwords) {
			if !s.toDelete[name] {
				existing := s.passwords[name].inner
				existing.Value = ""
				list = append(list, existing)
			}
		}
		for _, c := range s.passwordsToCreate {
			if err := c.ensureValue(); err != nil {
				return err
			}
			list = append(list, c.inner)
		}
		body := models.PasswordCredentialsUpdateParameters{Value: emptyIfNil(list)}
		if err := graph.DoJSON(ctx, http.MethodPatch, owner+"/passwordCredentials", body, nil); err != nil {
			return fmt.Errorf("failed to update password credentials: %w", err)
		}
		for name := range s.toDelete {
			delete(s.passwords, name)
		}
		for _, c := range s.passwordsToCreate {
			s.passwords[c.Name()] = c
		}
		s.createdPasswords = append(s.createdPasswords, s.passwordsToCreate...)
		s.passwordsToCreate = nil
	}

	s.toDelete = make(map[string]bool)
	return nil
}

// refresh reloads both credential lists of owner.
func (s *credentialSet) refresh(ctx context.Context, graph *sdk.Client, owner string) error {
	passwords, err := sdk.NewPager(graph, owner+"/passwordCredentials",
		func(c models.PasswordCredential) models.PasswordCredential { return c }).All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list password credentials: %w", err)
	}

	keys, err := sdk.NewPager(graph, owner+"/keyCredentials",
		func(c models.KeyCredential) models.KeyCredential { return c }).All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list key credentials: %w", err)
	}

	s.load(passwords, keys)
	return nil
}

// export writes the auth files requested by the credentials created since the last
// export. Each file is written once.
func (s *credentialSet) export(file AuthFile) error {
	passwords, certificates := s.createdPasswords, s.createdCertificates
	s.createdPasswords, s.createdCertificates = nil, nil

	for _, c := range passwords {
		if c.authFile == nil {
			continue
		}
		f := file
		f.ClientSecret = c.Value()
		if err := writeAuthFile(c.authFile, f); err != nil {
			return err
		}
	}
	for _, c := range certificates {
		if c.authFile == nil {
			continue
		}
		f := file
		f.ClientCertificate = c.privateKeyPath
		f.ClientCertificatePassword = c.privateKeyPassword
		if err := writeAuthFile(c.authFile, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *credentialSet) passwordCredentials() map[string]*PasswordCredential {
	out := make(map[string]*PasswordCredential, len(s.passwords))
	for k, v := range s.passwords {
		out[k] = v
	}
	return out
}

func (s *credentialSet) certificateCredentials() map[string]*CertificateCredential {
	out := make(map[string]*CertificateCredential, len(s.certificates))
	for k, v := range s.certificates {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

package keyvault

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const keyType = "Microsoft.KeyVault/vaults/keys"

// KeyClient is the subset of the vault key data plane the key collection uses.
// *azkeys.Client implements it.
type KeyClient interface {
	CreateKey(ctx context.Context, name string, parameters azkeys.CreateKeyParameters, options *azkeys.CreateKeyOptions) (azkeys.CreateKeyResponse, error)
	ImportKey(ctx context.Context, name string, parameters azkeys.ImportKeyParameters, options *azkeys.ImportKeyOptions) (azkeys.ImportKeyResponse, error)
	GetKey(ctx context.Context, name string, version string, options *azkeys.GetKeyOptions) (azkeys.GetKeyResponse, error)
	UpdateKey(ctx context.Context, name string, version string, parameters azkeys.UpdateKeyParameters, options *azkeys.UpdateKeyOptions) (azkeys.UpdateKeyResponse, error)
	DeleteKey(ctx context.Context, name string, options *azkeys.DeleteKeyOptions) (azkeys.DeleteKeyResponse, error)
	NewListKeyPropertiesPager(options *azkeys.ListKeyPropertiesOptions) *runtime.Pager[azkeys.ListKeyPropertiesResponse]
	NewListKeyPropertiesVersionsPager(name string, options *azkeys.ListKeyPropertiesVersionsOptions) *runtime.Pager[azkeys.ListKeyPropertiesVersionsResponse]
}

var _ KeyClient = (*azkeys.Client)(nil)

// Keys is the collection of keys stored in a vault.
type Keys struct {
	vault  *Vault
	client KeyClient
}

func (c *Keys) keyClient() (KeyClient, error) {
	if c.client != nil {
		return c.client, nil
	}

	vaultURL := c.vault.VaultURI()
	if vaultURL == "" {
		if c.vault.Name() == "" {
			return nil, models.Validationf("vault has no name")
		}
		vaultURL = c.vault.manager.graph.Environment().VaultURL(c.vault.Name())
	}

	client, err := c.vault.manager.keyClients(vaultURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open key client for %s: %w", vaultURL, err)
	}
	c.client = client
	return client, nil
}

func (c *Keys) wrap(bundle azkeys.KeyBundle) *Key {
	name := ""
	if bundle.Key != nil && bundle.Key.KID != nil {
		name = bundle.Key.KID.Name()
	}
	return &Key{keys: c, name: name, state: fluent.Saved(keyID(bundle), bundle)}
}

func keyID(bundle azkeys.KeyBundle) string {
	if bundle.Key == nil || bundle.Key.KID == nil {
		return ""
	}
	return string(*bundle.Key.KID)
}

// Define starts the definition of a new key.
func (c *Keys) Define(name string) KeyBlank {
	return KeyBlank{key: &Key{keys: c, name: name, state: fluent.Unsaved(azkeys.KeyBundle{})}}
}

// GetByName fetches the current version of a key.
func (c *Keys) GetByName(ctx context.Context, name string) (*Key, error) {
	return c.GetVersion(ctx, name, "")
}

// GetVersion fetches a specific version of a key. An empty version means the current one.
func (c *Keys) GetVersion(ctx context.Context, name, version string) (*Key, error) {
	client, err := c.keyClient()
	if err != nil {
		return nil, err
	}
	resp, err := client.GetKey(ctx, name, version, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get key %q: %w", name, sdk.FromResponseError(err))
	}
	return c.wrap(resp.KeyBundle), nil
}

// List returns the properties of every key in the vault.
func (c *Keys) List(ctx context.Context) ([]*azkeys.KeyProperties, error) {
	client, err := c.keyClient()
	if err != nil {
		return nil, err
	}

	var all []*azkeys.KeyProperties
	pager := client.NewListKeyPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", sdk.FromResponseError(err))
		}
		all = append(all, page.Value...)
	}
	return all, nil
}

// ListVersions returns the properties of every version of a key.
func (c *Keys) ListVersions(ctx context.Context, name string) ([]*azkeys.KeyProperties, error) {
	client, err := c.keyClient()
	if err != nil {
		return nil, err
	}

	var all []*azkeys.KeyProperties
	pager := client.NewListKeyPropertiesVersionsPager(name, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of key %q: %w", name, sdk.FromResponseError(err))
		}
		all = append(all, page.Value...)
	}
	return all, nil
}

// DeleteByName deletes every version of a key.
func (c *Keys) DeleteByName(ctx context.Context, name string) error {
	client, err := c.keyClient()
	if err != nil {
		return err
	}
	if _, err := client.DeleteKey(ctx, name, nil); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", name, sdk.FromResponseError(err))
	}
	logging.FromContext(ctx, c.vault.manager.logger).Info("Key deleted",
		zap.String(logging.FieldResourceName, name),
		zap.String(logging.FieldResourceID, c.vault.ID()))
	return nil
}

// Key is a key stored in a vault.
type Key struct {
	keys  *Keys
	name  string
	state fluent.State[azkeys.KeyBundle]

	// pending changes, applied on Create or Apply
	createType *azkeys.KeyType
	importKey  *azkeys.JSONWebKey
	hsm        bool
	size       *int32
	curve      *azkeys.CurveName
	operations []*azkeys.KeyOperation
	attributes *azkeys.KeyAttributes
	tags       map[string]*string
}

// ID returns the key identifier, including its version, or "" before creation.
func (k *Key) ID() string { return k.state.ID() }

// Name returns the key name.
func (k *Key) Name() string { return k.name }

// Version returns the version of the key, or "" before creation.
func (k *Key) Version() string {
	if bundle := k.state.Inner(); bundle.Key != nil && bundle.Key.KID != nil {
		return bundle.Key.KID.Version()
	}
	return ""
}

// JSONWebKey returns the public part of the key.
func (k *Key) JSONWebKey() *azkeys.JSONWebKey { return k.state.Inner().Key }

// Attributes returns the key attributes.
func (k *Key) Attributes() *azkeys.KeyAttributes { return k.state.Inner().Attributes }

// Tags returns the key tags.
func (k *Key) Tags() map[string]*string { return k.state.Inner().Tags }

// Inner returns the last known key bundle.
func (k *Key) Inner() azkeys.KeyBundle { return k.state.Inner() }

// IsInCreateMode reports whether the key has not been created yet.
func (k *Key) IsInCreateMode() bool { return k.state.IsInCreateMode() }

// ListVersions returns the properties of every version of the key.
func (k *Key) ListVersions(ctx context.Context) ([]*azkeys.KeyProperties, error) {
	return k.keys.ListVersions(ctx, k.name)
}

// Refresh reloads the current version of the key.
func (k *Key) Refresh(ctx context.Context) error {
	fresh, err := k.keys.GetByName(ctx, k.name)
	if err != nil {
		return err
	}
	k.state = fresh.state
	return nil
}

// Update starts a batch of changes to the key.
func (k *Key) Update() KeyUpdate {
	k.tags = maps.Clone(k.state.Inner().Tags)
	return KeyUpdate{key: k}
}

func (k *Key) resetPending() {
	k.createType = nil
	k.importKey = nil
	k.hsm = false
	k.size = nil
	k.curve = nil
	k.operations = nil
	k.attributes = nil
	k.tags = nil
}

func (k *Key) createParameters() azkeys.CreateKeyParameters {
	return azkeys.CreateKeyParameters{
		Kty:           k.createType,
		KeySize:       k.size,
		Curve:         k.curve,
		KeyOps:        k.operations,
		KeyAttributes: k.attributes,
		Tags:          k.tags,
	}
}

func (k *Key) validate() error {
	if k.name == "" {
		return models.Validationf("key name is required")
	}
	if k.IsInCreateMode() && k.createType == nil && k.importKey == nil {
		return models.Validationf("key %q needs a key type to create or a key to import", k.name)
	}
	return nil
}

func (k *Key) submit(ctx context.Context) (*Key, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}
	client, err := k.keys.keyClient()
	if err != nil {
		return nil, err
	}

	reconciler := fluent.Reconciler[azkeys.KeyBundle]{
		Create: func(ctx context.Context, _ azkeys.KeyBundle) (azkeys.KeyBundle, error) {
			if k.importKey != nil {
				resp, err := client.ImportKey(ctx, k.name, azkeys.ImportKeyParameters{
					Key:           k.importKey,
					HSM:           to.Ptr(k.hsm),
					KeyAttributes: k.attributes,
					Tags:          k.tags,
				}, nil)
				return resp.KeyBundle, err
			}
			resp, err := client.CreateKey(ctx, k.name, k.createParameters(), nil)
			return resp.KeyBundle, err
		},
		Update: func(ctx context.Context, _ string, _ azkeys.KeyBundle) (azkeys.KeyBundle, error) {
			if k.createType != nil {
				resp, err := client.CreateKey(ctx, k.name, k.createParameters(), nil)
				return resp.KeyBundle, err
			}
			resp, err := client.UpdateKey(ctx, k.name, "", azkeys.UpdateKeyParameters{
				KeyOps:        k.operations,
				KeyAttributes: k.attributes,
				Tags:          k.tags,
			}, nil)
			return resp.KeyBundle, err
		},
		IDOf: keyID,
	}

	operation := "update"
	if k.IsInCreateMode() {
		operation = "create"
	}
	logger := logging.FromContext(ctx, k.keys.vault.manager.logger).With(
		zap.String(logging.FieldOperation, operation),
		zap.String(logging.FieldResourceName, k.name),
	)
	start := time.Now()

	bundle, err := reconciler.Submit(ctx, &k.state)
	if err != nil {
		metrics.ResourceOperations.WithLabelValues(keyType, operation, "error").Inc()
		logger.Error("Key submission failed", zap.Error(err))
		return nil, fmt.Errorf("failed to %s key %q: %w", operation, k.name, sdk.FromResponseError(err))
	}

	// each new version carries its own identifier
	k.state = fluent.Saved(keyID(bundle), bundle)

	metrics.ResourceOperations.WithLabelValues(keyType, operation, "success").Inc()
	logger.Info("Key submitted",
		zap.String(logging.FieldResourceID, k.ID()),
		zap.Duration(logging.FieldDuration, time.Since(start)))
	k.resetPending()
	return k, nil
}

// KeyBlank is the first definition stage: create a new key or import one.
type KeyBlank struct {
	key *Key
}

// WithKeyTypeToCreate has the vault generate a key of type kty.
func (d KeyBlank) WithKeyTypeToCreate(kty azkeys.KeyType) KeyWithCreate {
	d.key.createType = to.Ptr(kty)
	return KeyWithCreate(d)
}

// WithLocalKeyToImport imports an existing key.
func (d KeyBlank) WithLocalKeyToImport(key azkeys.JSONWebKey) KeyWithImport {
	d.key.importKey = &key
	return KeyWithImport(d)
}

// KeyWithCreate is the final stage of a generated key definition.
type KeyWithCreate struct {
	key *Key
}

// WithKeySize sets the RSA key size in bits.
func (d KeyWithCreate) WithKeySize(bits int32) KeyWithCreate {
	d.key.size = to.Ptr(bits)
	return d
}

// WithCurve sets the elliptic curve of an EC key.
func (d KeyWithCreate) WithCurve(curve azkeys.CurveName) KeyWithCreate {
	d.key.curve = to.Ptr(curve)
	return d
}

// WithKeyOperations restricts what the key may be used for.
func (d KeyWithCreate) WithKeyOperations(operations ...azkeys.KeyOperation) KeyWithCreate {
	d.key.operations = to.SliceOfPtrs(operations...)
	return d
}

// WithAttributes sets the key attributes such as expiry and activation time.
func (d KeyWithCreate) WithAttributes(attributes azkeys.KeyAttributes) KeyWithCreate {
	d.key.attributes = &attributes
	return d
}

// WithTags sets the key tags.
func (d KeyWithCreate) WithTags(tags map[string]string) KeyWithCreate {
	d.key.tags = stringPtrs(tags)
	return d
}

// Create generates the key in the vault.
func (d KeyWithCreate) Create(ctx context.Context) (*Key, error) {
	return d.key.submit(ctx)
}

// KeyWithImport is the final stage of an imported key definition.
type KeyWithImport struct {
	key *Key
}

// WithHSM stores the imported key in a hardware security module.
func (d KeyWithImport) WithHSM() KeyWithImport {
	d.key.hsm = true
	return d
}

// WithAttributes sets the key attributes such as expiry and activation time.
func (d KeyWithImport) WithAttributes(attributes azkeys.KeyAttributes) KeyWithImport {
	d.key.attributes = &attributes
	return d
}

// WithTags sets the key tags.
func (d KeyWithImport) WithTags(tags map[string]string) KeyWithImport {
	d.key.tags = stringPtrs(tags)
	return d
}

// Create imports the key into the vault.
func (d KeyWithImport) Create(ctx context.Context) (*Key, error) {
	return d.key.submit(ctx)
}

// KeyUpdate collects changes to an existing key.
type KeyUpdate struct {
	key *Key
}

// WithKeyTypeToCreate creates a new version of the key with type kty on Apply.
func (u KeyUpdate) WithKeyTypeToCreate(kty azkeys.KeyType) KeyUpdate {
	u.key.createType = to.Ptr(kty)
	return u
}

// WithKeySize sets the size of a new RSA key version.
func (u KeyUpdate) WithKeySize(bits int32) KeyUpdate {
	u.key.size = to.Ptr(bits)
	return u
}

// WithKeyOperations restricts what the key may be used for.
func (u KeyUpdate) WithKeyOperations(operations ...azkeys.KeyOperation) KeyUpdate {
	u.key.operations = to.SliceOfPtrs(operations...)
	return u
}

// WithAttributes sets the key attributes.
func (u KeyUpdate) WithAttributes(attributes azkeys.KeyAttributes) KeyUpdate {
	u.key.attributes = &attributes
	return u
}

// WithTag sets a tag.
func (u KeyUpdate) WithTag(key, value string) KeyUpdate {
	if u.key.tags == nil {
		u.key.tags = map[string]*string{}
	}
	u.key.tags[key] = to.Ptr(value)
	return u
}

// WithoutTag removes a tag.
func (u KeyUpdate) WithoutTag(key string) KeyUpdate {
	delete(u.key.tags, key)
	return u
}

// Apply updates the key, or creates a new version when a key type was set.
func (u KeyUpdate) Apply(ctx context.Context) (*Key, error) {
	return u.key.submit(ctx)
}

func stringPtrs(m map[string]string) map[string]*string {
	if m == nil {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		out[k] = to.Ptr(v)
	}
	return out
}

package graphrbac

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/internal/metrics"
	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/pkg/fluent"
	"github.com/yaroslav/azfluent/sdk"
)

const resourceTypeApplication = "application"

// Applications is the collection of Azure AD applications in the tenant.
type Applications struct {
	manager *Manager
}

// Define starts the definition of a new application with the given display name.
func (a *Applications) Define(name string) ApplicationBlank {
	return ApplicationBlank{app: newApplicationDraft(a.manager, name)}
}

// GetByID fetches an application by object ID and loads its credentials.
func (a *Applications) GetByID(ctx context.Context, objectID string) (*Application, error) {
	var inner models.Application
	if err := a.manager.graph.DoJSON(ctx, http.MethodGet, applicationPath(objectID), nil, &inner); err != nil {
		return nil, err
	}

	app := a.wrap(inner)
	if err := app.credentials.refresh(ctx, a.manager.graph, app.path()); err != nil {
		return nil, err
	}
	return app, nil
}

// GetByName fetches the application whose display name or application ID equals name.
// It returns an error matching models.ErrNotFound when there is none.
func (a *Applications) GetByName(ctx context.Context, name string) (*Application, error) {
	for _, filter := range []string{
		"displayName eq " + odataQuote(name),
		"appId eq " + odataQuote(name),
	} {
		apps, err := sdk.NewPager(a.manager.graph, withFilter("applications", filter), a.wrap).NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if len(apps) > 0 {
			return a.GetByID(ctx, apps[0].ID())
		}
	}
	return nil, fmt.Errorf("application %q: %w", name, models.ErrNotFound)
}

// List returns every application in the tenant.
func (a *Applications) List(ctx context.Context) ([]*Application, error) {
	return a.ListPager().All(ctx)
}

// ListPager returns a pager over every application in the tenant.
func (a *Applications) ListPager() *sdk.Pager[models.Application, *Application] {
	return sdk.NewPager(a.manager.graph, "applications", a.wrap)
}

// DeleteByID deletes an application.
func (a *Applications) DeleteByID(ctx context.Context, objectID string) error {
	return a.manager.graph.DoJSON(ctx, http.MethodDelete, applicationPath(objectID), nil, nil)
}

func (a *Applications) wrap(inner models.Application) *Application {
	app := &Application{
		manager:     a.manager,
		state:       fluent.Saved(inner.ObjectID, inner),
		credentials: newCredentialSet(),
	}
	app.credentials.load(inner.PasswordCredentials, inner.KeyCredentials)
	return app
}

func applicationPath(objectID string) string {
	return "applications/" + url.PathEscape(objectID)
}

// Application is an Azure AD application registration.
type Application struct {
	manager     *Manager
	state       fluent.State[models.Application]
	update      models.ApplicationUpdateParameters
	credentials credentialSet
}

func newApplicationDraft(m *Manager, name string) *Application {
	return &Application{
		manager:     m,
		state:       fluent.Unsaved(models.Application{DisplayName: name}),
		credentials: newCredentialSet(),
	}
}

// ID returns the object ID, or "" before creation.
func (app *Application) ID() string { return app.state.ID() }

// ApplicationID returns the application (client) ID.
func (app *Application) ApplicationID() string { return app.state.Inner().AppID }

// Name returns the display name.
func (app *Application) Name() string { return app.state.Inner().DisplayName }

// SignOnURL returns the homepage of the application.
func (app *Application) SignOnURL() string { return app.state.Inner().Homepage }

// IdentifierURIs returns the App ID URIs.
func (app *Application) IdentifierURIs() []string { return app.state.Inner().IdentifierURIs }

// ReplyURLs returns the reply URLs.
func (app *Application) ReplyURLs() []string { return app.state.Inner().ReplyURLs }

// AvailableToOtherTenants reports whether the application is multi-tenant.
func (app *Application) AvailableToOtherTenants() bool {
	v := app.state.Inner().AvailableToOtherTenants
	return v != nil && *v
}

// PasswordCredentials returns the password credentials by name.
func (app *Application) PasswordCredentials() map[string]*PasswordCredential {
	return app.credentials.passwordCredentials()
}

// CertificateCredentials returns the certificate credentials by name.
func (app *Application) CertificateCredentials() map[string]*CertificateCredential {
	return app.credentials.certificateCredentials()
}

// Inner returns the last known wire representation.
func (app *Application) Inner() models.Application { return app.state.Inner() }

// IsInCreateMode reports whether the application has not been created yet.
func (app *Application) IsInCreateMode() bool { return app.state.IsInCreateMode() }

// Refresh reloads the application and its credentials.
func (app *Application) Refresh(ctx context.Context) error {
	fresh, err := app.manager.applications.GetByID(ctx, app.ID())
	if err != nil {
		return err
	}
	app.state = fresh.state
	app.credentials = fresh.credentials
	return nil
}

// Update starts a batch of changes to the application.
func (app *Application) Update() *ApplicationUpdate {
	app.update = models.ApplicationUpdateParameters{}
	return &ApplicationUpdate{app: app}
}

func (app *Application) path() string {
	return applicationPath(app.ID())
}

func (app *Application) reconciler() fluent.Reconciler[models.Application] {
	return fluent.Reconciler[models.Application]{
		Create: func(ctx context.Context, draft models.Application) (models.Application, error) {
			params := models.ApplicationCreateParameters{
				DisplayName:             draft.DisplayName,
				Homepage:                draft.Homepage,
				IdentifierURIs:          draft.IdentifierURIs,
				ReplyURLs:               draft.ReplyURLs,
				AvailableToOtherTenants: draft.AvailableToOtherTenants,
			}
			var created models.Application
			err := app.manager.graph.DoJSON(ctx, http.MethodPost, "applications", params, &created)
			return created, err
		},
		Update: func(ctx context.Context, id string, current models.Application) (models.Application, error) {
			if err := app.manager.graph.DoJSON(ctx, http.MethodPatch, applicationPath(id), app.update, nil); err != nil {
				return models.Application{}, err
			}
			var updated models.Application
			err := app.manager.graph.DoJSON(ctx, http.MethodGet, applicationPath(id), nil, &updated)
			return updated, err
		},
		IDOf: func(a models.Application) string { return a.ObjectID },
	}
}

// submit creates or updates the application, then its credentials.
func (app *Application) submit(ctx context.Context) error {
	if err := app.credentials.validate(); err != nil {
		return err
	}

	operation := "update"
	if app.IsInCreateMode() {
		operation = "create"
	}

	logger := logging.FromContext(ctx, app.manager.logger)
	start := time.Now()

	if _, err := app.reconciler().Submit(ctx, &app.state); err != nil {
		metrics.ResourceOperations.WithLabelValues(resourceTypeApplication, operation, "error").Inc()
		logger.Error("Application submission failed",
			zap.String(logging.FieldOperation, operation),
			zap.String(logging.FieldResourceName, app.Name()),
			zap.Error(err))
		return err
	}

	if err := app.credentials.submit(ctx, app.manager.graph, app.path()); err != nil {
		return err
	}
	if err := app.credentials.refresh(ctx, app.manager.graph, app.path()); err != nil {
		return err
	}

	file := newAuthFile(app.manager.environment, app.ApplicationID(), app.manager.tenantID, app.manager.subscriptionID)
	if err := app.credentials.export(file); err != nil {
		return err
	}
	app.update = models.ApplicationUpdateParameters{}

	metrics.ResourceOperations.WithLabelValues(resourceTypeApplication, operation, "success").Inc()
	logger.Info("Application submitted",
		zap.String(logging.FieldOperation, operation),
		zap.String(logging.FieldResourceName, app.Name()),
		zap.String(logging.FieldResourceID, app.ID()),
		zap.Duration(logging.FieldDuration, time.Since(start)))
	return nil
}

// ApplicationBlank is the first definition stage: the sign-on URL.
type ApplicationBlank struct {
	app *Application
}

// WithSignOnURL sets the homepage of the application.
func (s ApplicationBlank) WithSignOnURL(signOnURL string) ApplicationWithCreate {
	s.app.state.Mutate(func(inner *models.Application) {
		inner.Homepage = signOnURL
	})
	return ApplicationWithCreate(s)
}

// ApplicationWithCreate is the final definition stage; optional settings and Create.
type ApplicationWithCreate struct {
	app *Application
}

// WithIdentifierURL adds an App ID URI.
func (s ApplicationWithCreate) WithIdentifierURL(identifierURL string) ApplicationWithCreate {
	s.app.state.Mutate(func(inner *models.Application) {
		inner.IdentifierURIs = append(inner.IdentifierURIs, identifierURL)
	})
	return s
}

// WithReplyURL adds a reply URL.
func (s ApplicationWithCreate) WithReplyURL(replyURL string) ApplicationWithCreate {
	s.app.state.Mutate(func(inner *models.Application) {
		inner.ReplyURLs = append(inner.ReplyURLs, replyURL)
	})
	return s
}

// WithAvailableToOtherTenants makes the application multi-tenant or not.
func (s ApplicationWithCreate) WithAvailableToOtherTenants(available bool) ApplicationWithCreate {
	s.app.state.Mutate(func(inner *models.Application) {
		inner.AvailableToOtherTenants = &available
	})
	return s
}

// DefinePasswordCredential starts a password credential for the new application.
func (s ApplicationWithCreate) DefinePasswordCredential(name string) *PasswordCredentialDefinition[ApplicationWithCreate] {
	return definePassword(name, func(c *PasswordCredential) ApplicationWithCreate {
		s.app.credentials.addPassword(c)
		return s
	})
}

// DefineCertificateCredential starts a certificate credential for the new application.
func (s ApplicationWithCreate) DefineCertificateCredential(name string) CertificateCredentialBlank[ApplicationWithCreate] {
	return defineCertificate(name, func(c *CertificateCredential) ApplicationWithCreate {
		s.app.credentials.addCertificate(c)
		return s
	})
}

// Create creates the application and its credentials.
func (s ApplicationWithCreate) Create(ctx context.Context) (*Application, error) {
	if s.app.Name() == "" {
		return nil, models.Validationf("application name is required")
	}
	if err := s.app.submit(ctx); err != nil {
		return nil, err
	}
	return s.app, nil
}

// ApplicationUpdate stages changes to an existing application.
type ApplicationUpdate struct {
	app *Application
}

// WithSignOnURL changes the homepage.
func (u *ApplicationUpdate) WithSignOnURL(signOnURL string) *ApplicationUpdate {
	u.app.update.Homepage = signOnURL
	return u
}

// WithIdentifierURL adds an App ID URI.
func (u *ApplicationUpdate) WithIdentifierURL(identifierURL string) *ApplicationUpdate {
	u.app.update.IdentifierURIs = appendOnce(u.currentIdentifierURIs(), identifierURL)
	return u
}

// WithoutIdentifierURL removes an App ID URI.
func (u *ApplicationUpdate) WithoutIdentifierURL(identifierURL string) *ApplicationUpdate {
	u.app.update.IdentifierURIs = without(u.currentIdentifierURIs(), identifierURL)
	return u
}

// WithReplyURL adds a reply URL.
func (u *ApplicationUpdate) WithReplyURL(replyURL string) *ApplicationUpdate {
	u.app.update.ReplyURLs = appendOnce(u.currentReplyURLs(), replyURL)
	return u
}

// WithoutReplyURL removes a reply URL.
func (u *ApplicationUpdate) WithoutReplyURL(replyURL string) *ApplicationUpdate {
	u.app.update.ReplyURLs = without(u.currentReplyURLs(), replyURL)
	return u
}

// WithAvailableToOtherTenants makes the application multi-tenant or not.
func (u *ApplicationUpdate) WithAvailableToOtherTenants(available bool) *ApplicationUpdate {
	u.app.update.AvailableToOtherTenants = &available
	return u
}

// DefinePasswordCredential starts a new password credential.
func (u *ApplicationUpdate) DefinePasswordCredential(name string) *PasswordCredentialDefinition[*ApplicationUpdate] {
	return definePassword(name, func(c *PasswordCredential) *ApplicationUpdate {
		u.app.credentials.addPassword(c)
		return u
	})
}

// DefineCertificateCredential starts a new certificate credential.
func (u *ApplicationUpdate) DefineCertificateCredential(name string) CertificateCredentialBlank[*ApplicationUpdate] {
	return defineCertificate(name, func(c *CertificateCredential) *ApplicationUpdate {
		u.app.credentials.addCertificate(c)
		return u
	})
}

// WithoutCredential removes the password or certificate credential with the given name.
func (u *ApplicationUpdate) WithoutCredential(name string) *ApplicationUpdate {
	u.app.credentials.remove(name)
	return u
}

// Apply sends the staged changes.
func (u *ApplicationUpdate) Apply(ctx context.Context) (*Application, error) {
	if err := u.app.submit(ctx); err != nil {
		return nil, err
	}
	return u.app, nil
}

func (u *ApplicationUpdate) currentIdentifierURIs() []string {
	if u.app.update.IdentifierURIs != nil {
		return u.app.update.IdentifierURIs
	}
	return append([]string(nil), u.app.IdentifierURIs()...)
}

func (u *ApplicationUpdate) currentReplyURLs() []string {
	if u.app.update.ReplyURLs != nil {
		return u.app.update.ReplyURLs
	}
	return append([]string(nil), u.app.ReplyURLs()...)
}

func appendOnce(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, existing := range list {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}

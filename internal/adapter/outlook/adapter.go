// Package outlook reads events from Microsoft 365 calendars through the
// Microsoft Graph SDK.
package outlook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/theakshaypant/meetbar/internal/auth"
	"github.com/theakshaypant/meetbar/internal/core"
)

// SettingsURL lists the apps that have access to the Microsoft account.
const SettingsURL = "https://myapplications.microsoft.com/"

// tokenCredential bridges our saved OAuth2 token into the Azure SDK's
// TokenCredential interface so the Graph SDK can authenticate requests.
type tokenCredential struct {
	src oauth2.TokenSource
}

func (c *tokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.src.Token()
	if err != nil {
		return azcore.AccessToken{}, fmt.Errorf("token expired and refresh failed (run 'meetbar auth'): %w", err)
	}
	return azcore.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.Expiry}, nil
}

// Adapter implements core.Provider and core.Authorizer for Outlook / Office 365.
type Adapter struct {
	id        string
	name      string
	clientID  string
	tenantID  string
	tokenFile string
	flow      auth.Flow
	opener    core.Opener
	log       zerolog.Logger

	mu        sync.Mutex
	client    *msgraphsdk.GraphServiceClient
	calendars map[string]string
}

type Option func(*Adapter)

// WithFlow sets the interactive grant used by RequestPermission.
func WithFlow(f auth.Flow) Option {
	return func(o *Adapter) { o.flow = f }
}

// WithOpener sets how OpenPermissionSettings opens the account page.
func WithOpener(op core.Opener) Option {
	return func(o *Adapter) { o.opener = op }
}

func New(id, name, clientID, tenantID, tokenFile string, log zerolog.Logger, opts ...Option) *Adapter {
	o := &Adapter{
		id:        id,
		name:      name,
		clientID:  clientID,
		tenantID:  tenantID,
		tokenFile: tokenFile,
		log:       log.With().Str("component", "outlook").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Adapter) ID() string   { return o.id }
func (o *Adapter) Name() string { return o.name }

// OAuthConfig returns the OAuth2 configuration for Microsoft identity platform.
func (o *Adapter) OAuthConfig() *oauth2.Config {
	return auth.OutlookConfig(o.clientID, o.tenantID)
}

func (o *Adapter) CheckPermission(ctx context.Context) (core.PermissionStatus, error) {
	if o.clientID == "" {
		return core.PermissionRestricted, nil
	}
	o.mu.Lock()
	ready := o.client != nil
	o.mu.Unlock()
	if ready {
		return core.PermissionGranted, nil
	}

	tok, err := auth.TokenFromFile(o.tokenFile)
	if err != nil {
		return core.PermissionNotDetermined, nil
	}
	if tok.AccessToken == "" || (!tok.Valid() && tok.RefreshToken == "") {
		return core.PermissionDenied, nil
	}
	return core.PermissionGranted, nil
}

func (o *Adapter) RequestPermission(ctx context.Context) (bool, error) {
	if o.clientID == "" {
		return false, fmt.Errorf("%w: client_id is empty", core.ErrNoCredentials)
	}
	if o.flow == nil {
		return false, fmt.Errorf("no interactive authorization available")
	}

	tok, err := o.flow.Token(ctx, o.OAuthConfig(), "Microsoft", oauth2.SetAuthURLParam("prompt", "consent"))
	if errors.Is(err, auth.ErrAccessDenied) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get token: %w", err)
	}
	if err := auth.SaveToken(o.tokenFile, tok); err != nil {
		return false, fmt.Errorf("save token: %w", err)
	}

	o.mu.Lock()
	o.client = nil
	o.mu.Unlock()
	if _, err := o.ensureClient(); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Adapter) OpenPermissionSettings(ctx context.Context) {
	if o.opener == nil {
		return
	}
	if err := o.opener.Open(SettingsURL); err != nil {
		o.log.Warn().Err(err).Msg("could not open account permissions")
	}
}

// ensureClient loads the saved OAuth token and initializes the Graph SDK client.
func (o *Adapter) ensureClient() (*msgraphsdk.GraphServiceClient, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		return o.client, nil
	}
	if o.clientID == "" {
		return nil, fmt.Errorf("%w: client_id is empty", core.ErrNotAuthorized)
	}

	tok, err := auth.TokenFromFile(o.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: run 'meetbar auth' first", core.ErrNotAuthorized)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNotAuthorized, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token file %s has no access token", core.ErrNotAuthorized, o.tokenFile)
	}

	src := auth.PersistingTokenSource(o.OAuthConfig().TokenSource(context.Background(), tok), tok, o.tokenFile, o.log)
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(&tokenCredential{src: src}, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return nil, fmt.Errorf("create graph client: %w", err)
	}
	o.client = client
	return client, nil
}

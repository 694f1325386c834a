package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/dl-alexandre/gdrv-ingest/pkg/version"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ParseServiceAccountKey checks that data is a usable service account key
func ParseServiceAccountKey(data []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, keyError(fmt.Sprintf("failed to parse service account key: %v", err), err)
	}
	if key.Type != "service_account" {
		return nil, keyError(fmt.Sprintf("invalid service account key type: %s", key.Type), nil)
	}
	if key.ClientEmail == "" {
		return nil, keyError("missing client_email in service account key", nil)
	}
	if key.PrivateKey == "" {
		return nil, keyError("missing private_key in service account key", nil)
	}
	return &key, nil
}

// ReadKeyFile loads and validates a key file from disk
func ReadKeyFile(path string) ([]byte, *ServiceAccountKey, error) {
	if path == "" {
		return nil, nil, keyError("service account key file required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, keyError(fmt.Sprintf("service account key file not readable: %s", path), err)
	}
	key, err := ParseServiceAccountKey(data)
	if err != nil {
		return nil, nil, err
	}
	return data, key, nil
}

// ServiceOptions describe how to build an authenticated Drive service
type ServiceOptions struct {
	KeyData         []byte
	Scopes          []string
	ImpersonateUser string
	Timeout         time.Duration
	// Transport wraps the HTTP transport beneath the OAuth layer
	Transport http.RoundTripper
	// Endpoint overrides the Drive base URL
	Endpoint string
}

// Credentials turns key data into a token source for scopes
func Credentials(ctx context.Context, keyData []byte, scopes []string, impersonateUser string) (*google.Credentials, error) {
	if len(scopes) == 0 {
		return nil, keyError("at least one scope required", nil)
	}
	if impersonateUser != "" && !strings.Contains(impersonateUser, "@") {
		return nil, keyError("impersonate user must be an email address", nil)
	}

	var (
		creds *google.Credentials
		err   error
	)
	if impersonateUser != "" {
		creds, err = google.CredentialsFromJSONWithParams(ctx, keyData, google.CredentialsParams{
			Scopes:  scopes,
			Subject: impersonateUser,
		})
	} else {
		creds, err = google.CredentialsFromJSON(ctx, keyData, scopes...)
	}
	if err != nil {
		return nil, keyError(fmt.Sprintf("failed to load service account credentials: %v", err), err)
	}
	return creds, nil
}

// NewDriveService builds a Drive client authenticated as the service account.
// Tokens are fetched lazily on the first request.
func NewDriveService(ctx context.Context, opts ServiceOptions) (*drive.Service, error) {
	if _, err := ParseServiceAccountKey(opts.KeyData); err != nil {
		return nil, err
	}
	creds, err := Credentials(ctx, opts.KeyData, opts.Scopes, opts.ImpersonateUser)
	if err != nil {
		return nil, err
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &oauth2.Transport{
			Source: creds.TokenSource,
			Base:   base,
		},
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	service, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	service.UserAgent = version.UserAgent()
	return service, nil
}

func keyError(msg string, cause error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConfigInvalid, msg).Build(), cause)
}

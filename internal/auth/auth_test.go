package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	testutil "github.com/dl-alexandre/gdrv-ingest/internal/testing"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testKeyJSON(t *testing.T, tokenURI string) []byte {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(pk)
	require.NoError(t, err)

	data, err := json.Marshal(ServiceAccountKey{
		Type:         "service_account",
		ProjectID:    "test-project",
		PrivateKeyID: "kid-1",
		PrivateKey:   string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		ClientEmail:  "ingest@test-project.iam.gserviceaccount.com",
		ClientID:     "1234",
		TokenURI:     tokenURI,
	})
	require.NoError(t, err)
	return data
}

func TestParseServiceAccountKey(t *testing.T) {
	key, err := ParseServiceAccountKey(testKeyJSON(t, "https://oauth2.googleapis.com/token"))
	require.NoError(t, err)
	assert.Equal(t, "ingest@test-project.iam.gserviceaccount.com", key.ClientEmail)

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"wrong type", `{"type":"authorized_user","client_email":"a@b","private_key":"k"}`},
		{"missing email", `{"type":"service_account","private_key":"k"}`},
		{"missing key", `{"type":"service_account","client_email":"a@b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseServiceAccountKey([]byte(tt.data))
			assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))
		})
	}
}

func TestReadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, testKeyJSON(t, "https://oauth2.googleapis.com/token"), 0600))

	data, key, err := ReadKeyFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "test-project", key.ProjectID)

	_, _, err = ReadKeyFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))
}

func TestCredentials_Validation(t *testing.T) {
	ctx := testutil.TestContext(t)
	keyData := testKeyJSON(t, "https://oauth2.googleapis.com/token")

	_, err := Credentials(ctx, keyData, nil, "")
	assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))

	_, err = Credentials(ctx, keyData, utils.DefaultScopes, "not-an-email")
	assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))

	creds, err := Credentials(ctx, keyData, utils.DefaultScopes, "")
	require.NoError(t, err)
	assert.NotNil(t, creds.TokenSource)
}

func TestNewDriveService_AuthorizesRequests(t *testing.T) {
	var mu sync.Mutex
	var authHeaders, userAgents []string

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"sa-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		userAgents = append(userAgents, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"f1","name":"a.pdf"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := testutil.TestContext(t)
	svc, err := NewDriveService(ctx, ServiceOptions{
		KeyData:  testKeyJSON(t, srv.URL+"/token"),
		Scopes:   utils.DefaultScopes,
		Timeout:  10 * time.Second,
		Endpoint: srv.URL + "/",
	})
	require.NoError(t, err)

	list, err := svc.Files.List().Context(ctx).Do()
	require.NoError(t, err)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "f1", list.Files[0].Id)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, authHeaders, 1)
	assert.Equal(t, "Bearer sa-token", authHeaders[0])
	assert.Contains(t, userAgents[0], "gdrv-ingest/")
}

func TestManager_KeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	mgr := NewManager(t.TempDir())
	assert.Equal(t, "system-keyring", mgr.StorageName())
	assert.Empty(t, mgr.StorageWarning())

	keyData := testKeyJSON(t, "https://oauth2.googleapis.com/token")
	key, err := mgr.StoreKey("", keyData)
	require.NoError(t, err)
	assert.Equal(t, "ingest@test-project.iam.gserviceaccount.com", key.ClientEmail)

	loaded, err := mgr.LoadKey(DefaultKeyName)
	require.NoError(t, err)
	assert.Equal(t, keyData, loaded)

	require.NoError(t, mgr.DeleteKey(""))
	_, err = mgr.LoadKey("")
	assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))
}

func TestManager_RejectsInvalidKey(t *testing.T) {
	keyring.MockInit()
	mgr := NewManager(t.TempDir())

	_, err := mgr.StoreKey("bad", []byte(`{"type":"authorized_user"}`))
	assert.True(t, utils.HasCode(err, utils.ErrCodeConfigInvalid))
}

func TestEncryptedFileStorage(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManagerWithOptions(dir, ManagerOptions{ForceEncryptedFile: true})
	assert.Equal(t, "encrypted-file", mgr.StorageName())

	keyData := testKeyJSON(t, "https://oauth2.googleapis.com/token")
	_, err := mgr.StoreKey("primary", keyData)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "keys", "primary.enc"))
	require.NoError(t, err)
	assert.NotEqual(t, keyData, raw)

	// A second manager over the same dir reuses the persisted encryption key
	other := NewManagerWithOptions(dir, ManagerOptions{ForceEncryptedFile: true})
	loaded, err := other.LoadKey("primary")
	require.NoError(t, err)
	assert.Equal(t, keyData, loaded)

	require.NoError(t, other.DeleteKey("primary"))
	_, err = other.LoadKey("primary")
	assert.Error(t, err)
}

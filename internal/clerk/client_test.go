package clerk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteInternalID(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", 5*time.Second)
	err := c.WriteInternalID(context.Background(), "user_123", "65f1ab")
	require.NoError(t, err)

	require.Equal(t, "/v1/users/user_123/metadata", gotPath)
	require.Equal(t, "Bearer sk_test_secret", gotAuth)
	require.Equal(t, "65f1ab", gotBody["public_metadata"]["userId"])
}

func TestWriteInternalIDProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"message":"nope"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_secret", 5*time.Second)
	err := c.WriteInternalID(context.Background(), "user_123", "65f1ab")
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

func TestWriteInternalIDUnreachableProvider(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "sk_test_secret", time.Second)
	err := c.WriteInternalID(context.Background(), "user_123", "65f1ab")
	require.Error(t, err)
}

package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/docmirror/gemini"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// newTestClient returns a Gemini client whose requests go to handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *genai.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gemini.NewClient(context.Background(), "test-key", srv.URL)
	require.NoError(t, err)
	return client
}

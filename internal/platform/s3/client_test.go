package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "fsn1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
	})
	return &Client{s3: client, bucket: "stratus"}
}

func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

// objectServer is a minimal in-memory S3 emulation for a single bucket.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/stratus")
	key = strings.TrimPrefix(key, "/")

	switch {
	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><Name>stratus</Name><IsTruncated>false</IsTruncated>`)
		for k := range s.objects {
			if strings.HasPrefix(k, prefix) {
				b.WriteString("<Contents><Key>" + k + "</Key></Contents>")
			}
		}
		b.WriteString("</ListBucketResult>")
		xmlResponse(w, http.StatusOK, b.String())
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := s.objects[key]
		if !ok {
			xmlResponse(w, http.StatusNotFound, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete:
		delete(s.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), Config{
		Endpoint:  "https://fsn1.your-objectstorage.com",
		Region:    "fsn1",
		AccessKey: "access",
		SecretKey: "secret",
	}, "stratus-state")

	require.NoError(t, err)
	assert.Equal(t, "stratus-state", client.Bucket())
}

func TestClient_ObjectRoundTrip(t *testing.T) {
	t.Parallel()
	client := testClient(t, &objectServer{objects: map[string][]byte{}})
	ctx := context.Background()

	require.NoError(t, client.PutObject(ctx, "clusters/a.json", []byte(`{"id":"a"}`)))
	require.NoError(t, client.PutObject(ctx, "clusters/b.json", []byte(`{"id":"b"}`)))
	require.NoError(t, client.PutObject(ctx, "templates/c.json", []byte(`{"id":"c"}`)))

	data, err := client.GetObject(ctx, "clusters/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(data))

	keys, err := client.ListObjects(ctx, "clusters/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"clusters/a.json", "clusters/b.json"}, keys)

	require.NoError(t, client.DeleteObject(ctx, "clusters/a.json"))
	_, err = client.GetObject(ctx, "clusters/a.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_EnsureBucket_Creates(t *testing.T) {
	t.Parallel()
	var created bool
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			xmlResponse(w, http.StatusOK, `<?xml version="1.0" encoding="UTF-8"?><CreateBucketResult/>`)
		}
	}))

	require.NoError(t, client.EnsureBucket(context.Background()))
	assert.True(t, created)
}

func TestClient_EnsureBucket_ServerError(t *testing.T) {
	t.Parallel()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusForbidden, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code></Error>`)
	}))

	err := client.EnsureBucket(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check bucket")
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"plain error", errors.New("boom"), false},
		{"no such key", &s3types.NoSuchKey{}, true},
		{"no such bucket", &s3types.NoSuchBucket{}, true},
		{"not found", &s3types.NotFound{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}

func TestIsBucketAlreadyOwnedByYou(t *testing.T) {
	t.Parallel()
	assert.False(t, isBucketAlreadyOwnedByYou(nil))
	assert.True(t, isBucketAlreadyOwnedByYou(&s3types.BucketAlreadyOwnedByYou{}))
	assert.True(t, isBucketAlreadyOwnedByYou(&s3types.BucketAlreadyExists{}))
	assert.False(t, isBucketAlreadyOwnedByYou(errors.New("other")))
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves just enough of the S3 REST surface for the minio client:
// bucket HEAD, object PUT, object HEAD and object GET.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/scans" || r.URL.Path == "/scans/" {
		w.WriteHeader(http.StatusOK)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/scans/")
	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// Over plain HTTP the client signs uploads with streaming
		// signature V4, so the body arrives aws-chunked; a real S3
		// endpoint strips that framing before storing.
		if strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
			data, err = decodeAWSChunked(data)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
		f.objects[key] = data
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"fake-etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		w.Header().Set("ETag", `"fake-etag"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// decodeAWSChunked unwraps the aws-chunked framing used by streaming
// signature V4: repeated "<hexlen>;chunk-signature=…\r\n<data>\r\n"
// chunks, terminated by a zero-length chunk.
func decodeAWSChunked(body []byte) ([]byte, error) {
	var out []byte
	rest := body
	for {
		nl := bytes.Index(rest, []byte("\r\n"))
		if nl < 0 {
			return nil, fmt.Errorf("aws-chunked: unterminated chunk header")
		}
		header := rest[:nl]
		rest = rest[nl+2:]
		if i := bytes.IndexByte(header, ';'); i >= 0 {
			header = header[:i]
		}
		size, err := strconv.ParseUint(string(header), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("aws-chunked: bad chunk size %q: %w", header, err)
		}
		if size == 0 {
			return out, nil
		}
		if uint64(len(rest)) < size+2 {
			return nil, fmt.Errorf("aws-chunked: truncated chunk")
		}
		out = append(out, rest[:size]...)
		rest = rest[size+2:]
	}
}

func newMinioStore(t *testing.T) *Minio {
	t.Helper()
	srv := httptest.NewServer(newFakeS3())
	t.Cleanup(srv.Close)
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	s, err := NewMinio(context.Background(), endpoint, "us-east-1", "scans", "test-access", "test-secret", false)
	require.NoError(t, err)
	return s
}

func TestMinio_PutGetRoundTrip(t *testing.T) {
	s := newMinioStore(t)

	ref, err := s.Put(context.Background(), "p1/scan-1", pngHeader, "image/png")
	require.NoError(t, err)

	data, contentType, err := s.Get(context.Background(), ref)
	require.NoError(t, err, "Get accepts the ref Put returned")
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", contentType)
}

func TestMinio_GetMissingKey(t *testing.T) {
	s := newMinioStore(t)

	_, _, err := s.Get(context.Background(), "p1/ghost")
	assert.Error(t, err)
}

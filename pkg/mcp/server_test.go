package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/vlad-ds/street-view-mcp/pkg/localfile"
	"github.com/vlad-ds/street-view-mcp/pkg/streetview"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	client, err := streetview.New("test-key",
		streetview.WithBaseURL(upstream.URL),
		streetview.WithHTTPClient(upstream.Client()))
	require.NoError(t, err)

	root := t.TempDir()
	srv := NewServer(client, &Config{
		OutputDir: filepath.Join(root, "output"),
		HTMLDir:   filepath.Join(root, "html"),
	})
	srv.openFile = func(string) error { return nil }
	return srv
}

func callReq(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil))
	return buf.Bytes()
}

func imageUpstream(t *testing.T, body []byte, capture *url.Values) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = r.URL.Query()
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}
}

func TestGetStreetView(t *testing.T) {
	ctx := context.Background()

	t.Run("returns image content", func(t *testing.T) {
		body := testJPEG(t)
		var gotQuery url.Values
		srv := newTestServer(t, imageUpstream(t, body, &gotQuery))

		res, err := srv.handleGetStreetView(ctx, callReq("get_street_view", map[string]interface{}{
			"location": "Empire State Building, NY",
			"heading":  float64(90),
			"fov":      float64(120),
		}))
		require.NoError(t, err)
		require.Len(t, res.Content, 2)

		ic, ok := res.Content[1].(mcp.ImageContent)
		require.True(t, ok, "second content block should be the image")
		require.Equal(t, "image/jpeg", ic.MIMEType)
		decoded, err := base64.StdEncoding.DecodeString(ic.Data)
		require.NoError(t, err)
		require.Equal(t, body, decoded)

		require.Equal(t, "90", gotQuery.Get("heading"))
		require.Equal(t, "120", gotQuery.Get("fov"))
	})

	t.Run("filename saves under the output directory", func(t *testing.T) {
		body := testJPEG(t)
		srv := newTestServer(t, imageUpstream(t, body, nil))

		args := map[string]interface{}{
			"pano_id":  "abc123",
			"filename": "empire.jpg",
		}
		_, err := srv.handleGetStreetView(ctx, callReq("get_street_view", args))
		require.NoError(t, err)

		saved, err := os.ReadFile(filepath.Join(srv.cfg.OutputDir, "empire.jpg"))
		require.NoError(t, err)
		require.Equal(t, body, saved)

		// Same filename again: no overwrite.
		_, err = srv.handleGetStreetView(ctx, callReq("get_street_view", args))
		require.ErrorIs(t, err, localfile.ErrAlreadyExists)
	})

	t.Run("malformed lat_lng", func(t *testing.T) {
		srv := newTestServer(t, imageUpstream(t, testJPEG(t), nil))
		_, err := srv.handleGetStreetView(ctx, callReq("get_street_view", map[string]interface{}{
			"lat_lng": "abc,def",
		}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})

	t.Run("multiple location specifiers", func(t *testing.T) {
		srv := newTestServer(t, imageUpstream(t, testJPEG(t), nil))
		_, err := srv.handleGetStreetView(ctx, callReq("get_street_view", map[string]interface{}{
			"location": "somewhere",
			"pano_id":  "abc123",
		}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})

	t.Run("upstream failure propagates", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no imagery", http.StatusNotFound)
		})
		_, err := srv.handleGetStreetView(ctx, callReq("get_street_view", map[string]interface{}{
			"location": "nowhere",
		}))
		var statusErr *streetview.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusNotFound, statusErr.Code)
	})
}

func TestGetMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("passes the upstream document through", func(t *testing.T) {
		body := `{"status":"OK","pano_id":"abc123","location":{"lat":40.748817,"lng":-73.985428}}`
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		})

		res, err := srv.handleGetMetadata(ctx, callReq("get_metadata", map[string]interface{}{
			"lat_lng": "40.748817,-73.985428",
		}))
		require.NoError(t, err)
		require.Len(t, res.Content, 1)

		tc, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		require.Equal(t, body, tc.Text)
	})

	t.Run("zero specifiers", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := srv.handleGetMetadata(ctx, callReq("get_metadata", map[string]interface{}{}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})
}

func TestOpenImageLocally(t *testing.T) {
	ctx := context.Background()
	noUpstream := func(w http.ResponseWriter, r *http.Request) {}

	t.Run("opens a saved image", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		var opened string
		srv.openFile = func(path string) error {
			opened = path
			return nil
		}
		require.NoError(t, os.MkdirAll(srv.cfg.OutputDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(srv.cfg.OutputDir, "pic.jpg"), []byte("x"), 0644))

		_, err := srv.handleOpenImageLocally(ctx, callReq("open_image_locally", map[string]interface{}{
			"filename": "pic.jpg",
		}))
		require.NoError(t, err)
		require.Equal(t, "pic.jpg", filepath.Base(opened))
		require.True(t, filepath.IsAbs(opened))
	})

	t.Run("missing file", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		_, err := srv.handleOpenImageLocally(ctx, callReq("open_image_locally", map[string]interface{}{
			"filename": "missing.jpg",
		}))
		require.ErrorIs(t, err, localfile.ErrNotFound)
	})

	t.Run("missing filename argument", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		_, err := srv.handleOpenImageLocally(ctx, callReq("open_image_locally", map[string]interface{}{}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})
}

func TestCreateHTMLPage(t *testing.T) {
	ctx := context.Background()
	noUpstream := func(w http.ResponseWriter, r *http.Request) {}
	fragments := []interface{}{"<h1>A</h1>", "<p>B</p>"}

	t.Run("writes the page and opens it", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		var opened string
		srv.openFile = func(path string) error {
			opened = path
			return nil
		}

		_, err := srv.handleCreateHTMLPage(ctx, callReq("create_html_page", map[string]interface{}{
			"html_elements": fragments,
			"filename":      "tour",
			"title":         "My Tour",
		}))
		require.NoError(t, err)

		path := filepath.Join(srv.cfg.HTMLDir, "tour.html")
		require.Equal(t, path, opened)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		s := string(got)
		require.Contains(t, s, "<title>My Tour</title>")
		require.Contains(t, s, "<h1>A</h1>")
		require.Contains(t, s, "<p>B</p>")
		require.Less(t, strings.Index(s, "<h1>A</h1>"), strings.Index(s, "<p>B</p>"))
	})

	t.Run("second write with the same filename fails", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		args := map[string]interface{}{
			"html_elements": fragments,
			"filename":      "tour",
		}
		_, err := srv.handleCreateHTMLPage(ctx, callReq("create_html_page", args))
		require.NoError(t, err)

		_, err = srv.handleCreateHTMLPage(ctx, callReq("create_html_page", args))
		require.ErrorIs(t, err, localfile.ErrAlreadyExists)
	})

	t.Run("browser failure does not fail the call", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		srv.openFile = func(string) error { return os.ErrPermission }

		res, err := srv.handleCreateHTMLPage(ctx, callReq("create_html_page", map[string]interface{}{
			"html_elements": fragments,
			"filename":      "tour",
		}))
		require.NoError(t, err)
		tc, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		require.Contains(t, tc.Text, "browser open failed")
	})

	t.Run("empty fragments", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		_, err := srv.handleCreateHTMLPage(ctx, callReq("create_html_page", map[string]interface{}{
			"html_elements": []interface{}{},
			"filename":      "tour",
		}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})

	t.Run("non-string fragment", func(t *testing.T) {
		srv := newTestServer(t, noUpstream)
		_, err := srv.handleCreateHTMLPage(ctx, callReq("create_html_page", map[string]interface{}{
			"html_elements": []interface{}{"<p>ok</p>", 42},
			"filename":      "tour",
		}))
		require.ErrorIs(t, err, streetview.ErrInvalidInput)
	})
}

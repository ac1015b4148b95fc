package entity

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/prismctl/prismctl/internal/prismtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type seen struct {
	mu   sync.Mutex
	reqs []captured
}

type captured struct {
	method string
	url    string
	auth   string
	ctype  string
	body   string
}

func (s *seen) add(r *http.Request) captured {
	body, _ := io.ReadAll(r.Body)
	c := captured{
		method: r.Method,
		url:    "https://" + r.Host + r.URL.RequestURI(),
		auth:   r.Header.Get("Authorization"),
		ctype:  r.Header.Get("Content-Type"),
		body:   string(body),
	}
	s.mu.Lock()
	s.reqs = append(s.reqs, c)
	s.mu.Unlock()
	return c
}

func newTestClient(h func(w http.ResponseWriter, r *http.Request), opts ...Option) *Client {
	tr, _ := httpclient.NewTestClient(prismtest.Conn(), http.HandlerFunc(h))
	return New(prismtest.Conn(), tr, "/test", opts...)
}

func TestBuildURL(t *testing.T) {
	c := New(prismtest.Conn(), nil, "test/")
	assert.Equal(t, "https://test.com/test", c.BaseURL())

	tests := []struct {
		name     string
		uuid     string
		endpoint string
		query    url.Values
		want     string
	}{
		{"base", "", "", nil, "https://test.com/test"},
		{"uuid", "abc", "", nil, "https://test.com/test/abc"},
		{"slashes collapse", "/abc/", "/file/", nil, "https://test.com/test/abc/file"},
		{"endpoint only", "", "list", nil, "https://test.com/test/list"},
		{"query", "abc", "", url.Values{"x": {"1"}}, "https://test.com/test/abc?x=1"},
		{"caller query wins", "", "list?offset=1&keep=y", url.Values{"offset": {"5"}}, "https://test.com/test/list?keep=y&offset=5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.BuildURL(tt.uuid, tt.endpoint, tt.query))
		})
	}
}

func TestCreateSendsJSONWithAuth(t *testing.T) {
	var s seen
	c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		s.add(r)
		prismtest.WriteJSON(w, http.StatusAccepted, map[string]any{
			"status": map[string]any{"execution_context": map[string]any{"task_uuid": "t-1"}},
		})
	})

	resp, err := c.Create(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Len(t, s.reqs, 1)
	assert.Equal(t, http.MethodPost, s.reqs[0].method)
	assert.Equal(t, "https://test.com/test", s.reqs[0].url)
	assert.Equal(t, "{}", s.reqs[0].body)
	assert.True(t, strings.HasPrefix(s.reqs[0].auth, "Basic "))
	assert.Equal(t, "application/json", s.reqs[0].ctype)
	assert.Equal(t, "t-1", resp.Get("status.execution_context.task_uuid").String())
}

func TestReadUpdateDeleteURLs(t *testing.T) {
	var s seen
	c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		s.add(r)
		prismtest.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	ctx := context.Background()
	id := "a218f559-9d7f-4d0f-86b0-1e4d2bb3c5a3"

	_, err := c.Read(ctx, id)
	require.NoError(t, err)
	_, err = c.Update(ctx, id, map[string]any{"spec": map[string]any{}})
	require.NoError(t, err)
	_, err = c.Delete(ctx, id, Body(map[string]any{"force": true}))
	require.NoError(t, err)
	_, err = c.Read(ctx, id, Endpoint("file"), Method(http.MethodHead), NoRaise())
	require.NoError(t, err)

	require.Len(t, s.reqs, 4)
	assert.Equal(t, []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead},
		[]string{s.reqs[0].method, s.reqs[1].method, s.reqs[2].method, s.reqs[3].method})
	assert.Equal(t, "https://test.com/test/"+id, s.reqs[1].url)
	assert.Equal(t, `{"force":true}`, s.reqs[2].body)
	assert.Equal(t, "https://test.com/test/"+id+"/file", s.reqs[3].url)
}

func TestErrorPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("status >= 300 raises with server message", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			prismtest.WriteError(w, http.StatusNotFound, "ENTITY_NOT_FOUND")
		})
		resp, err := c.Read(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFetch)
		assert.Equal(t, apperrors.KindProtocol, apperrors.KindOf(err))
		d := apperrors.DetailsOf(err)
		assert.Equal(t, 404, d[apperrors.DetailStatusCode])
		assert.Equal(t, "ENTITY_NOT_FOUND", d[apperrors.DetailMessage])
		assert.Equal(t, "https://test.com/test/missing", d[apperrors.DetailURL])
		require.NotNil(t, resp)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("conflict is a precondition failure", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			prismtest.WriteError(w, http.StatusConflict, "cluster has dependents")
		})
		_, err := c.Delete(ctx, "c1")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
		assert.Contains(t, err.Error(), "cluster has dependents")
	})

	t.Run("no raise returns the parsed body", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			prismtest.WriteError(w, http.StatusInternalServerError, "boom")
		})
		resp, err := c.Read(ctx, "x", NoRaise())
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, "boom", resp.ServerMessage())
	})

	t.Run("no response yields status code only", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		resp, err := c.Delete(ctx, "x", NoResponse())
		require.NoError(t, err)
		assert.JSONEq(t, `{"status_code":204}`, string(resp.JSON))
	})

	t.Run("non JSON body where JSON is required", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>oops</html>"))
		})
		resp, err := c.Read(ctx, "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConvert)
		assert.Equal(t, apperrors.KindParse, apperrors.KindOf(err))
		assert.True(t, resp.IsNull())
		assert.Equal(t, "<html>oops</html>", apperrors.DetailsOf(err)[apperrors.DetailResponse])
	})

	t.Run("non JSON body with no raise is null", func(t *testing.T) {
		c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain"))
		})
		resp, err := c.Read(ctx, "x", NoRaise())
		require.NoError(t, err)
		assert.True(t, resp.IsNull())
		data, err := resp.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})
}

func TestIncludeETag(t *testing.T) {
	srv := prismtest.NewServer()
	ids := srv.SeedNamed("vms", "vm", 1)
	tr, _ := srv.Client()
	c := New(prismtest.Conn(), tr, prismtest.APIPrefix+"/vms")

	resp, err := c.Read(context.Background(), ids[0], IncludeETag())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ETag)
	assert.Equal(t, resp.ETag, resp.Get("etag").String())
	assert.Equal(t, ids[0], resp.Get("metadata.uuid").String())
}

func TestUploadStreamsOctets(t *testing.T) {
	var got captured
	c := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		got = (&seen{}).add(r)
		prismtest.WriteJSON(w, http.StatusAccepted, map[string]any{})
	})
	payload := strings.Repeat("x", 3*httpclient.DefaultUploadChunkSize+17)

	_, err := c.Upload(context.Background(), "img-1", strings.NewReader(payload), int64(len(payload)),
		Endpoint("file"), Method(http.MethodPut))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "https://test.com/test/img-1/file", got.url)
	assert.Equal(t, "application/octet-stream", got.ctype)
	assert.Len(t, got.body, len(payload))
}

func TestAPIVersion(t *testing.T) {
	c := New(prismtest.Conn(), nil, "/x", WithAPIVersion("v4.0"))
	require.NotNil(t, c.APIVersion())
	assert.True(t, c.IsV4())

	c = New(prismtest.Conn(), nil, "/x", WithAPIVersion("3.1"))
	assert.False(t, c.IsV4())

	c = New(prismtest.Conn(), nil, "/x", WithAPIVersion("not a version"))
	assert.Nil(t, c.APIVersion())
}

func entitiesOf(t *testing.T, resp *Response) []gjson.Result {
	t.Helper()
	ents := resp.Get("entities")
	require.True(t, ents.IsArray())
	return ents.Array()
}

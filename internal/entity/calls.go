package entity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prismctl/prismctl/internal/common/apperrors"
	"github.com/prismctl/prismctl/internal/common/httpclient"
	"github.com/rs/zerolog/log"
)

// Create posts data to the collection.
func (c *Client) Create(ctx context.Context, data any, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodPost, opts)
	return c.call(ctx, c.BuildURL("", o.endpoint, o.query), data, o)
}

// Read gets one entity. An empty uuid reads the collection itself.
func (c *Client) Read(ctx context.Context, uuid string, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodGet, opts)
	return c.call(ctx, c.BuildURL(uuid, o.endpoint, o.query), nil, o)
}

// Update puts data to one entity.
func (c *Client) Update(ctx context.Context, uuid string, data any, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodPut, opts)
	return c.call(ctx, c.BuildURL(uuid, o.endpoint, o.query), data, o)
}

// Delete removes one entity. A body can be sent with the Body option.
func (c *Client) Delete(ctx context.Context, uuid string, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodDelete, opts)
	return c.call(ctx, c.BuildURL(uuid, o.endpoint, o.query), o.body, o)
}

// Upload streams length bytes of source to base_url[/uuid][/endpoint] as
// application/octet-stream, in bounded chunks.
func (c *Client) Upload(ctx context.Context, uuid string, source io.Reader, length int64, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodPost, opts)
	url := c.BuildURL(uuid, o.endpoint, o.query)

	headers := c.headers.Clone()
	headers.Set("Content-Type", "application/octet-stream")
	for k, vs := range o.headers {
		headers[k] = vs
	}

	reader := httpclient.NewChunkedReader(source, httpclient.DefaultUploadChunkSize)
	resp, err := c.transport.Upload(ctx, httpclient.UploadRequest{
		URL:     url,
		Method:  o.method,
		Source:  reader,
		Length:  length,
		Headers: headers,
		Timeout: o.timeout,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("url", url).Int64("bytes", reader.BytesRead()).Int("status", resp.StatusCode).Msg("upload finished")
	return c.normalize(resp, o.method, url, o)
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, uuid, path string, opts ...CallOption) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrInvalidCall.MsgErr(fmt.Sprintf("unable to open %s", path), err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, ErrInvalidCall.MsgErr(fmt.Sprintf("unable to stat %s", path), err)
	}
	return c.Upload(ctx, uuid, f, st.Size(), opts...)
}

func (c *Client) call(ctx context.Context, url string, data any, o callOptions) (*Response, error) {
	headers := c.headers.Clone()
	for k, vs := range o.headers {
		headers[k] = vs
	}
	resp, err := c.transport.Fetch(ctx, httpclient.FetchRequest{
		URL:     url,
		Method:  o.method,
		Body:    data,
		Headers: headers,
		Cookies: c.cookies,
		Timeout: o.timeout,
	})
	if err != nil {
		return nil, err
	}
	return c.normalize(resp, o.method, url, o)
}

// normalize applies the error policy of a call to what the server answered.
func (c *Client) normalize(fr *httpclient.FetchResponse, method, url string, o callOptions) (*Response, error) {
	r := newResponse(fr.StatusCode, fr.Header, fr.Body)
	if o.includeETag {
		r = r.withETag()
	}
	if !o.raiseError {
		return r, nil
	}
	if !fr.OK() {
		return r, failure(r, method, url)
	}
	if o.noResponse {
		return r.statusOnly(), nil
	}
	if r.IsNull() {
		return r, ErrConvert.New(fmt.Sprintf("%s %s: response is not JSON", method, url)).
			SetStatusCode(r.StatusCode).
			With(apperrors.DetailStatusCode, r.StatusCode).
			With(apperrors.DetailResponse, string(r.Raw))
	}
	return r, nil
}

package entity

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// PageCap is the largest page requested from the server in one list call.
const PageCap = 20

// ListRequest is the body of a list call. Filters is rendered into Filter when
// Filter is empty; CustomFilter is applied on the client after all pages are in.
type ListRequest struct {
	Kind          string `json:"kind,omitempty"`
	Filter        string `json:"filter,omitempty"`
	Offset        int    `json:"offset"`
	Length        int    `json:"length,omitempty"`
	SortOrder     string `json:"sort_order,omitempty"`
	SortAttribute string `json:"sort_attribute,omitempty"`

	Filters      Filters        `json:"-"`
	CustomFilter map[string]any `json:"-"`
}

func (c *Client) listURL(o callOptions) string {
	if o.useBaseURL {
		return buildURL(c.baseURL, o.query, o.endpoint)
	}
	return buildURL(c.baseURL, o.query, "list", o.endpoint)
}

// List posts req to base_url/list. A requested length above PageCap is served by
// several calls of PageCap entities each; the returned response is the last page
// with its entities replaced by the accumulated ones and metadata.offset and
// metadata.length describing them. Responses without "entities" are returned as is.
func (c *Client) List(ctx context.Context, req ListRequest, opts ...CallOption) (*Response, error) {
	o := newCallOptions(http.MethodPost, opts)
	url := c.listURL(o)
	if req.Filter == "" {
		req.Filter = req.Filters.String()
	}

	if req.Length <= PageCap {
		resp, err := c.call(ctx, url, req, o)
		if err != nil || len(req.CustomFilter) == 0 {
			return resp, err
		}
		ents := resp.Get("entities")
		if !ents.IsArray() {
			return resp, nil
		}
		return withEntities(resp, FilterEntities(ents.Array(), req.CustomFilter), req.Offset), nil
	}
	return c.listPages(ctx, url, req, o)
}

func (c *Client) listPages(ctx context.Context, url string, req ListRequest, o callOptions) (*Response, error) {
	want, start := req.Length, req.Offset
	page := req
	page.Length = PageCap

	var (
		acc  []gjson.Result
		last *Response
	)
	for {
		resp, err := c.call(ctx, url, page, o)
		if err != nil {
			return resp, err
		}
		ents := resp.Get("entities")
		if !ents.IsArray() {
			return resp, nil
		}
		items := ents.Array()
		acc = append(acc, items...)
		last = resp
		log.Debug().Str("url", url).Int("offset", page.Offset).Int("received", len(items)).Int("total", len(acc)).Msg("list page")

		if len(items) < PageCap || len(acc) >= want {
			break
		}
		page.Offset = start + len(acc)
	}

	if len(acc) > want {
		acc = acc[:want]
	}
	if len(req.CustomFilter) > 0 {
		acc = FilterEntities(acc, req.CustomFilter)
	}
	return withEntities(last, acc, start), nil
}

// GetAll lists every entity matching req, page by page, until the server
// reports no more. req.Length is ignored.
func (c *Client) GetAll(ctx context.Context, req ListRequest, opts ...CallOption) ([]gjson.Result, error) {
	o := newCallOptions(http.MethodPost, opts)
	o.raiseError = true
	o.noResponse = false
	url := c.listURL(o)
	if req.Filter == "" {
		req.Filter = req.Filters.String()
	}
	req.Length = PageCap

	var out []gjson.Result
	for {
		resp, err := c.call(ctx, url, req, o)
		if err != nil {
			return nil, err
		}
		items := resp.Get("entities").Array()
		out = append(out, items...)
		total := resp.Get("metadata.total_matches").Int()
		if len(items) < PageCap || (total > 0 && int64(len(out)) >= total) {
			break
		}
		req.Offset += len(items)
	}
	if len(req.CustomFilter) > 0 {
		out = FilterEntities(out, req.CustomFilter)
	}
	return out, nil
}

// withEntities returns a copy of resp whose entities and metadata describe ents.
func withEntities(resp *Response, ents []gjson.Result, offset int) *Response {
	raws := make([]string, len(ents))
	for i, e := range ents {
		raws[i] = e.Raw
	}
	body := resp.JSON
	var err error
	if body, err = sjson.SetRawBytes(body, "entities", []byte("["+strings.Join(raws, ",")+"]")); err != nil {
		return resp
	}
	if body, err = sjson.SetBytes(body, "metadata.offset", offset); err != nil {
		return resp
	}
	if body, err = sjson.SetBytes(body, "metadata.length", len(ents)); err != nil {
		return resp
	}
	out := *resp
	out.JSON = body
	return &out
}

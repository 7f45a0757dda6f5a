package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrBadStatus = errors.New("widgets api bad status")

// Client talks to the /v1/widgets API.
type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) List(ctx context.Context) ([]Widget, error) {
	var out []Widget
	err := c.do(ctx, http.MethodGet, BasePath, nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, w Widget) ([]Widget, error) {
	var out []Widget
	err := c.do(ctx, http.MethodPost, BasePath, w, http.StatusCreated, &out)
	return out, err
}

func (c *Client) CreateBulk(ctx context.Context, ws []Widget) ([]Widget, error) {
	var out []Widget
	err := c.do(ctx, http.MethodPost, BasePath+"/bulk", ws, http.StatusCreated, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, name string) (Widget, error) {
	var out Widget
	err := c.do(ctx, http.MethodGet, widgetPath(name), nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, name string, p Patch) (Widget, error) {
	q := url.Values{}
	if p.Description != nil {
		q.Set("description", *p.Description)
	}
	if p.Price != nil {
		q.Set("price", strconv.FormatFloat(*p.Price, 'f', -1, 64))
	}

	path := widgetPath(name)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out Widget
	err := c.do(ctx, http.MethodPut, path, nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, widgetPath(name), nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case want:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimPrefix(e.Error, ErrInvalid.Error()+": "))
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func widgetPath(name string) string {
	return BasePath + "/" + url.PathEscape(name)
}

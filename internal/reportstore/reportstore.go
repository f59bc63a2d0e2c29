// Package reportstore is a thin net/http client for the external report
// storage service: finished task run outputs, logs, and summaries are
// streamed there rather than held in the record stores. Collapsed from a
// presigned-URL-plus-multipart protocol against an unavailable sibling
// storage service down to direct PUT/GET/DELETE against a single
// configured endpoint.
package reportstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
)

// ReportStorage is the interface report-producing components depend on.
type ReportStorage interface {
	// Store uploads content under name (typically "<runID>/<name>") and
	// returns the locator to record on the Product/TaskRun.
	Store(ctx context.Context, name string, content io.Reader) (locator string, err error)

	// Fetch opens a previously stored artifact for reading. Caller closes.
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)

	// Delete removes one or more artifacts, e.g. as part of a retention
	// sweep.
	Delete(ctx context.Context, locators []string) error
}

// Client is a ReportStorage backed by plain HTTP PUT/GET/DELETE against a
// single storage endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) Store(ctx context.Context, name string, content io.Reader) (string, error) {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/" + strings.Join(segments, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, content)
	if err != nil {
		return "", ctlerr.Internalf(err, "reportstore: building store request for %s", name)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", ctlerr.Internalf(err, "reportstore: storing %s", name)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", ctlerr.Internalf(nil, "reportstore: storing %s: status %d", name, resp.StatusCode)
	}
	return u, nil
}

func (c *Client) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, ctlerr.Internalf(err, "reportstore: building fetch request for %s", locator)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctlerr.Internalf(err, "reportstore: fetching %s", locator)
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, ctlerr.Internalf(nil, "reportstore: fetching %s: status %d", locator, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) Delete(ctx context.Context, locators []string) error {
	for _, locator := range locators {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, locator, nil)
		if err != nil {
			return ctlerr.Internalf(err, "reportstore: building delete request for %s", locator)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return ctlerr.Internalf(err, "reportstore: deleting %s", locator)
		}
		resp.Body.Close()
		if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("reportstore: deleting %s: status %d", locator, resp.StatusCode)
		}
	}
	return nil
}

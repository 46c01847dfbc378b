// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default Hugging Face Hub API endpoint. Overridable for testing and for
// private hub mirrors.
const DefaultEndpoint = "https://huggingface.co"

// ClientOptions configures a Client.
type ClientOptions struct {
	// Token is the bearer token for authenticated API calls and downloads.
	// If empty, the HUGGINGFACE_TOKEN (then HF_TOKEN) environment variable
	// is used.
	Token string

	// Endpoint is the hub's base URL. Defaults to DefaultEndpoint.
	Endpoint string

	// HTTPClient overrides the default transport. Mainly for tests.
	HTTPClient *http.Client

	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client talks to the Hugging Face Hub over HTTPS: listing a repository's
// files with size and SHA-256, and downloading individual files with
// progress reporting. It implements component C1 of the acquisition core.
type Client struct {
	token     string
	endpoint  string
	userAgent string
	http      *http.Client
}

// NewClient builds a Client with sensible transport defaults (connection
// pooling, TLS handshake timeout) and a redirect policy that preserves the
// Authorization header across authority boundaries — required because the
// hub's LFS resolver redirects to a separate CDN host that still requires
// the bearer token for gated repositories.
func NewClient(opts ClientOptions) *Client {
	token := opts.Token
	if token == "" {
		token = firstNonEmptyEnv("HUGGINGFACE_TOKEN", "HF_TOKEN")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "modelhub/1"
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          64,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}
	if httpc.CheckRedirect == nil {
		httpc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			if auth := via[0].Header.Get("Authorization"); auth != "" {
				req.Header.Set("Authorization", auth)
			}
			req.Header.Set("User-Agent", ua)
			return nil
		}
	}

	return &Client{token: token, endpoint: endpoint, userAgent: ua, http: httpc}
}

func firstNonEmptyEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.userAgent)
}

// hubTreeNode mirrors one entry of the hub's tree-listing API response.
type hubTreeNode struct {
	Type   string       `json:"type"` // "file" | "directory" (also seen: "blob" | "tree")
	Path   string       `json:"path"`
	Size   int64        `json:"size,omitempty"`
	Sha256 string       `json:"sha256,omitempty"`
	LFS    *hubLFSBlock `json:"lfs,omitempty"`
}

type hubLFSBlock struct {
	Oid    string `json:"oid,omitempty"`
	Size   int64  `json:"size,omitempty"`
	Sha256 string `json:"sha256,omitempty"`
}

// ListFilesDetailed lists a repository's files with size and SHA-256 where
// available. Fails with KindNotFound for unknown repos, KindTransient for
// timeouts/5xx, and KindPermissionDenied for 401/403.
func (c *Client) ListFilesDetailed(ctx context.Context, hubID string) ([]ManifestEntry, error) {
	id := NormalizeHubID(hubID)
	if id == "" {
		return nil, newError(KindInvalidInput, fmt.Sprintf("invalid hub_id %q", hubID))
	}

	var entries []ManifestEntry
	seen := make(map[string]struct{})

	err := c.walkTree(ctx, id, "", func(n hubTreeNode) error {
		if n.Type != "file" && n.Type != "blob" {
			return nil
		}
		if _, ok := seen[n.Path]; ok {
			return nil
		}
		seen[n.Path] = struct{}{}

		var size *int64
		var sha string
		switch {
		case n.LFS != nil && n.LFS.Size > 0:
			v := n.LFS.Size
			size = &v
		case n.Size > 0:
			v := n.Size
			size = &v
		}
		if n.Sha256 != "" {
			sha = n.Sha256
		} else if n.LFS != nil {
			if n.LFS.Sha256 != "" {
				sha = n.LFS.Sha256
			} else {
				sha = n.LFS.Oid
			}
		}

		entries = append(entries, ManifestEntry{FileName: n.Path, Size: size, SHA256: sha})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// walkTree recursively walks the hub's file tree starting at prefix,
// invoking fn for every file/blob node encountered.
func (c *Client) walkTree(ctx context.Context, hubID, prefix string, fn func(hubTreeNode) error) error {
	reqURL := c.treeURL(hubID, prefix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return wrapError(KindIoError, "build tree request", err)
	}
	c.addHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(KindTransient, fmt.Sprintf("list %s: request failed", hubID), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(KindPermissionDenied, fmt.Sprintf("repository %s requires authentication or access has not been granted", hubID))
	case resp.StatusCode == http.StatusNotFound:
		return newError(KindNotFound, fmt.Sprintf("repository %s not found", hubID))
	case resp.StatusCode >= 500:
		return newError(KindTransient, fmt.Sprintf("hub returned %s for %s", resp.Status, hubID))
	case resp.StatusCode != http.StatusOK:
		return newError(KindTransient, fmt.Sprintf("unexpected status %s for %s", resp.Status, hubID))
	}

	var nodes []hubTreeNode
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return wrapError(KindTransient, fmt.Sprintf("decode tree response for %s", hubID), err)
	}

	for _, n := range nodes {
		if n.Type == "directory" || n.Type == "tree" {
			if err := c.walkTree(ctx, hubID, n.Path, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) treeURL(hubID, prefix string) string {
	if prefix == "" {
		return fmt.Sprintf("%s/api/models/%s/tree/main", c.endpoint, hubID)
	}
	return fmt.Sprintf("%s/api/models/%s/tree/main/%s", c.endpoint, hubID, pathEscapeAll(prefix))
}

func (c *Client) resolveURL(hubID, fileName string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", c.endpoint, hubID, pathEscapeAll(fileName))
}

func pathEscapeAll(p string) string {
	segs := strings.Split(p, "/")
	for i := range segs {
		segs[i] = url.PathEscape(segs[i])
	}
	return strings.Join(segs, "/")
}

// ProgressCallback reports a file download's progress. fraction is in
// [0,1] when total is known, else 0.
// bytesDownloaded is cumulative; totalBytes is the server-advertised
// Content-Length, or 0 if unknown.
type ProgressCallback func(fraction float64, bytesDownloaded, totalBytes int64)

// minProgressInterval / minProgressBytes bound how often DownloadFile
// invokes cb: at least every 512 KiB or every 250ms, whichever comes first.
const (
	minProgressBytes    = 512 * 1024
	minProgressInterval = 250 * time.Millisecond
)

// DownloadFile streams fileName from hubID to dest, creating dest's parent
// directories as needed and invoking cb with progress updates. On transient
// errors the download fails; retrying is the caller's responsibility.
func (c *Client) DownloadFile(ctx context.Context, hubID, fileName, dest string, cb ProgressCallback) error {
	id := NormalizeHubID(hubID)
	if id == "" {
		return newError(KindInvalidInput, fmt.Sprintf("invalid hub_id %q", hubID))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return wrapError(KindIoError, "create destination directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(id, fileName), nil)
	if err != nil {
		return wrapError(KindIoError, "build download request", err)
	}
	c.addHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return wrapError(KindCancelled, "download cancelled", ctx.Err())
		}
		return wrapError(KindTransient, fmt.Sprintf("download %s/%s: request failed", id, fileName), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(KindPermissionDenied, fmt.Sprintf("%s/%s requires authentication", id, fileName))
	case resp.StatusCode == http.StatusNotFound:
		return newError(KindNotFound, fmt.Sprintf("%s/%s not found", id, fileName))
	case resp.StatusCode >= 500:
		return newError(KindTransient, fmt.Sprintf("hub returned %s for %s/%s", resp.Status, id, fileName))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		return newError(KindTransient, fmt.Sprintf("unexpected status %s for %s/%s", resp.Status, id, fileName))
	}

	var total int64
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	out, err := os.Create(dest)
	if err != nil {
		return wrapError(KindIoError, "create destination file", err)
	}
	defer out.Close()

	pr := &progressReader{reader: resp.Body, total: total, cb: cb, lastEmit: time.Now()}
	if _, err := io.Copy(out, pr); err != nil {
		if ctx.Err() != nil {
			return wrapError(KindCancelled, "download cancelled", ctx.Err())
		}
		return wrapError(KindTransient, fmt.Sprintf("download %s/%s: stream failed", id, fileName), err)
	}
	pr.flush(true)
	return nil
}

// progressReader wraps an io.Reader, throttling progress callbacks to at
// most every minProgressBytes bytes or minProgressInterval, whichever comes
// first (always flushing on EOF).
type progressReader struct {
	reader          io.Reader
	total           int64
	downloaded      int64
	sinceLastReport int64
	cb              ProgressCallback
	lastEmit        time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.sinceLastReport += int64(n)
		if pr.sinceLastReport >= minProgressBytes || time.Since(pr.lastEmit) >= minProgressInterval {
			pr.flush(false)
		}
	}
	if err == io.EOF {
		pr.flush(true)
	}
	return n, err
}

func (pr *progressReader) flush(force bool) {
	if pr.cb == nil {
		return
	}
	if !force && pr.sinceLastReport == 0 {
		return
	}
	var fraction float64
	if pr.total > 0 {
		fraction = float64(pr.downloaded) / float64(pr.total)
	}
	pr.cb(fraction, pr.downloaded, pr.total)
	pr.sinceLastReport = 0
	pr.lastEmit = time.Now()
}

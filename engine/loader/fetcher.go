package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// ErrFetchStatus is returned when an HTTP fetch answers with a non-2xx status.
var ErrFetchStatus = errors.New("fetch: unexpected status")

// Fetcher retrieves the bytes behind an asset URL.
// Implementations must be safe for concurrent use; every load calls it from a worker goroutine.
type Fetcher interface {
	// FetchBytes returns the full content at rawURL.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - rawURL: absolute URL or file path
	//
	// Returns:
	//   - []byte: the content
	//   - error: transport or lookup failure
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// FileFetcher reads assets from the local file system.
// Relative paths resolve against Root; "~" is expanded to the user's home directory.
type FileFetcher struct {
	Root string
}

var _ Fetcher = FileFetcher{}

// FetchBytes reads the file named by rawURL, accepting plain paths and file:// URLs.
func (f FileFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.Path(rawURL)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Path maps rawURL to the file it names.
//
// Parameters:
//   - rawURL: a path or file:// URL, possibly percent-encoded
//
// Returns:
//   - string: the cleaned file path
//   - error: an error if the URL uses a non-file scheme or "~" cannot be expanded
func (f FileFetcher) Path(rawURL string) (string, error) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && len(u.Scheme) > 1 {
		if u.Scheme != "file" {
			return "", fmt.Errorf("file fetcher cannot read scheme %q", u.Scheme)
		}
		path = u.Path
	} else if err == nil && u.Scheme == "" {
		path = u.Path
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) && f.Root != "" {
		root, err := homedir.Expand(f.Root)
		if err != nil {
			return "", err
		}
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path), nil
}

// HTTPFetcher downloads assets over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

var _ Fetcher = HTTPFetcher{}

// NewHTTPFetcher creates an HTTPFetcher whose client gives up after timeout.
// A zero timeout leaves the client without a deadline.
func NewHTTPFetcher(timeout time.Duration) HTTPFetcher {
	return HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// FetchBytes issues a GET for rawURL and returns the body.
func (h HTTPFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get %s: %d: %w", rawURL, resp.StatusCode, ErrFetchStatus)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return data, nil
}

// SchemeFetcher sends http and https URLs to HTTP and everything else to File.
type SchemeFetcher struct {
	File FileFetcher
	HTTP HTTPFetcher
}

var _ Fetcher = SchemeFetcher{}

// FetchBytes dispatches on the URL scheme.
func (s SchemeFetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if isRemote(rawURL) {
		return s.HTTP.FetchBytes(ctx, rawURL)
	}
	return s.File.FetchBytes(ctx, rawURL)
}

func isRemote(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// resolveURI resolves a document-relative URI against the asset URL.
//
// Parameters:
//   - base: the URL or path the document was fetched from
//   - uri: the buffer or image URI from the document
//
// Returns:
//   - string: the absolute URL, or a path for file assets
//   - error: an error if either value does not parse
func resolveURI(base, uri string) (string, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(filepath.ToSlash(base))
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}

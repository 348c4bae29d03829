package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var errUnresolved = errors.New("reference not resolved")

// Resolver fetches the bytes behind a path or URL reference.
type Resolver interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Chain tries each resolver in order and returns the first success.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, ref string) ([]byte, error) {
	var errs []error
	for _, r := range c {
		data, err := r.Resolve(ctx, ref)
		if err == nil {
			return data, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errUnresolved
	}
	return nil, errors.Join(errs...)
}

// LocalFiles reads references from disk, confined to Roots. A path inside a
// root is read as is; anything else is looked up by base name in each root.
type LocalFiles struct {
	Roots    []string
	MaxBytes int64
}

func (l LocalFiles) Resolve(_ context.Context, ref string) ([]byte, error) {
	if isURL(ref) {
		return nil, errUnresolved
	}
	cleaned := filepath.Clean(ref)
	for _, root := range l.Roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		for _, candidate := range l.candidates(absRoot, cleaned) {
			data, err := readCapped(candidate, l.MaxBytes)
			if err == nil {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s not under local roots", errUnresolved, ref)
}

func (l LocalFiles) candidates(absRoot, ref string) []string {
	var out []string
	abs := ref
	if !filepath.IsAbs(abs) {
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
	}
	if within(absRoot, abs) {
		out = append(out, abs)
	}
	base := filepath.Base(ref)
	if base != "." && base != string(filepath.Separator) {
		out = append(out, filepath.Join(absRoot, base))
	}
	return out
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

func readCapped(p string, max int64) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", p)
	}
	if max > 0 && info.Size() > max {
		return nil, fmt.Errorf("%s exceeds %d bytes", p, max)
	}
	return os.ReadFile(p)
}

// HTTPFetcher downloads http(s) references.
type HTTPFetcher struct {
	Client   Doer
	MaxBytes int64
}

func (h HTTPFetcher) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if !isURL(ref) {
		return nil, errUnresolved
	}
	return h.get(ctx, ref)
}

func (h HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if h.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, h.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if h.MaxBytes > 0 && int64(len(data)) > h.MaxBytes {
		return nil, fmt.Errorf("get %s: body exceeds %d bytes", rawURL, h.MaxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("get %s: empty body", rawURL)
	}
	return data, nil
}

// Companion asks the tool service's file endpoint for a path it reported.
type Companion struct {
	BaseURL string
	Fetcher HTTPFetcher
}

func (c Companion) Resolve(ctx context.Context, ref string) ([]byte, error) {
	if c.BaseURL == "" || isURL(ref) {
		return nil, errUnresolved
	}
	target, err := url.JoinPath(c.BaseURL, strings.TrimLeft(path.Clean(filepath.ToSlash(ref)), "/."))
	if err != nil {
		return nil, err
	}
	return c.Fetcher.get(ctx, target)
}

func isURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

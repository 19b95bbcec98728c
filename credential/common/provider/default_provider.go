package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

const (
	// DefaultGitHubAPIURL is the GitHub REST endpoint used for blob and tree URLs.
	DefaultGitHubAPIURL = "https://api.github.com"
	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 10 * time.Second

	maxDocumentSize = 4 << 20
)

// Option configures the default provider.
type Option func(*defaultProvider)

// WithGitHubAPIURL overrides the GitHub API base URL.
func WithGitHubAPIURL(apiURL string) Option {
	return func(p *defaultProvider) {
		p.githubAPIURL = strings.TrimRight(apiURL, "/")
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *defaultProvider) {
		p.client.Timeout = timeout
	}
}

// WithToken sets the GitHub token. It defaults to $GITHUB_TOKEN.
func WithToken(token string) Option {
	return func(p *defaultProvider) {
		p.token = token
	}
}

// WithHTTPClient replaces the HTTP client. The client's transport is used as-is.
func WithHTTPClient(client *http.Client) Option {
	return func(p *defaultProvider) {
		p.client = client
	}
}

type defaultProvider struct {
	githubAPIURL string
	token        string
	client       *http.Client
}

// NewDefaultProvider returns a Provider that fetches schemas over HTTP.
// GitHub blob and tree URLs go through the contents API; other URLs are
// downloaded directly. Documents may be JSON or YAML.
func NewDefaultProvider(opts ...Option) Provider {
	p := &defaultProvider{
		githubAPIURL: DefaultGitHubAPIURL,
		token:        os.Getenv("GITHUB_TOKEN"),
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *defaultProvider) SchemaResolver(ctx context.Context, schemaURL string) (interface{}, error) {
	u, err := url.Parse(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid schema URL %q: %w", schemaURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported schema URL scheme %q", u.Scheme)
	}

	downloadURL := schemaURL
	if repo, ok := parseGitHubURL(u); ok {
		downloadURL, err = p.resolveGitHub(ctx, repo)
		if err != nil {
			return nil, err
		}
	}

	body, err := p.get(ctx, downloadURL, false)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema document from %s: %w", schemaURL, err)
	}
	slog.Debug("resolved schema", "url", schemaURL, "download_url", downloadURL)
	return doc, nil
}

// ResolveAll fetches several schemas concurrently. Results keep the order of urls.
func ResolveAll(ctx context.Context, p Provider, urls ...string) ([]interface{}, error) {
	docs := make([]interface{}, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			doc, err := p.SchemaResolver(ctx, u)
			if err != nil {
				return fmt.Errorf("schema %s: %w", u, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// gitHubPath identifies a file in a GitHub repository.
type gitHubPath struct {
	owner, repo, ref, path string
}

// parseGitHubURL recognises https://github.com/{owner}/{repo}/(blob|tree)/{ref}/{path}.
func parseGitHubURL(u *url.URL) (gitHubPath, bool) {
	if !strings.EqualFold(u.Host, "github.com") && !strings.EqualFold(u.Host, "www.github.com") {
		return gitHubPath{}, false
	}
	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 5)
	if len(parts) < 5 || (parts[2] != "blob" && parts[2] != "tree") {
		return gitHubPath{}, false
	}
	return gitHubPath{owner: parts[0], repo: parts[1], ref: parts[3], path: parts[4]}, true
}

type contentsResponse struct {
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

func (p *defaultProvider) resolveGitHub(ctx context.Context, gh gitHubPath) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		p.githubAPIURL,
		url.PathEscape(gh.owner), url.PathEscape(gh.repo),
		escapePath(gh.path), url.QueryEscape(gh.ref))

	body, err := p.get(ctx, apiURL, true)
	if err != nil {
		return "", err
	}

	var contents contentsResponse
	if err := json.Unmarshal(body, &contents); err != nil {
		return "", fmt.Errorf("failed to decode GitHub contents response: %w", err)
	}
	if contents.Type != "file" || contents.DownloadURL == "" {
		return "", fmt.Errorf("GitHub path %s is not a file", gh.path)
	}
	return contents.DownloadURL, nil
}

func (p *defaultProvider) get(ctx context.Context, target string, githubAPI bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", target, err)
	}
	if githubAPI {
		req.Header.Set("Accept", "application/vnd.github+json")
		if p.token != "" {
			req.Header.Set("Authorization", "Bearer "+p.token)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned non-200 status: %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", target, err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", target, maxDocumentSize)
	}
	return body, nil
}

// parseDocument accepts JSON or YAML and returns a plain JSON value.
func parseDocument(body []byte) (interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is empty")
	}
	return jsonmap.Normalize(doc)
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

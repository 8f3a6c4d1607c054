package panel

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pteroexporter/pteroexporter/pkg/types"
)

const (
	defaultTimeout = 10 * time.Second

	pathServers    = "/api/application/servers"
	clientPathRoot = "/api/client/"

	// maxErrorBody caps how much of a non-2xx body is read for the error payload.
	maxErrorBody = 64 << 10
)

// Opts configures a Client.
type Opts struct {
	URL string
	// APIKey is the application API key, sent as a bearer token.
	APIKey string
	// ClientAPIKey is used for /api/client/ endpoints. Empty means APIKey.
	ClientAPIKey string

	Timeout            time.Duration
	IdleConnTimeout    time.Duration
	MaxIdleConns       int
	InsecureSkipVerify bool
	UserAgent          string
}

// Client issues authenticated GET requests against one panel.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a Client for opts. requests may be nil; when set it must be
// partitioned by "code" and "method" (or a subset).
func New(opts Opts, requests *prometheus.CounterVec) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("panel: url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("panel: parse url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("panel: unsupported url scheme %q", base.Scheme)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Client{base: base, http: buildHTTPClient(opts, requests)}, nil
}

// authRoundTripper injects the bearer token and common headers into every
// outgoing request.
type authRoundTripper struct {
	base      http.RoundTripper
	appKey    string
	clientKey string
	userAgent string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	key := t.appKey
	// The panel may be mounted below a path prefix, so match anywhere.
	if strings.Contains(req.URL.Path, clientPathRoot) {
		key = t.clientKey
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs the http.Client: transport, auth, instrumentation.
func buildHTTPClient(opts Opts, requests *prometheus.CounterVec) *http.Client {
	clientKey := opts.ClientAPIKey
	if clientKey == "" {
		clientKey = opts.APIKey
	}

	var rt http.RoundTripper = &authRoundTripper{
		base: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			MaxIdleConns:    opts.MaxIdleConns,
			IdleConnTimeout: opts.IdleConnTimeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // user-configured
			},
		},
		appKey:    opts.APIKey,
		clientKey: clientKey,
		userAgent: opts.UserAgent,
	}
	if requests != nil {
		rt = promhttp.InstrumentRoundTripperCounter(requests, rt)
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
	}
}

// Get performs GET path?query against the panel and decodes the JSON body
// into out. out may be nil to discard the body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("panel: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(path, resp.StatusCode, io.LimitReader(resp.Body, maxErrorBody))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("panel: decode %s: %w", path, err)
	}
	return nil
}

// ListServers fetches one page of the application server listing. When
// includeEgg is set the egg relationship is requested so Server.Egg can be
// filled in.
func (c *Client) ListServers(ctx context.Context, page, perPage int, includeEgg bool) (*types.ServerPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	if includeEgg {
		q.Set("include", "egg")
	}

	var resp listResponse
	if err := c.Get(ctx, pathServers, q, &resp); err != nil {
		return nil, err
	}

	out := &types.ServerPage{
		Servers:    make([]types.Server, 0, len(resp.Data)),
		Page:       page,
		TotalPages: resp.Meta.Pagination.TotalPages,
	}
	for _, obj := range resp.Data {
		out.Servers = append(out.Servers, obj.Attributes.toServer())
	}
	return out, nil
}

// Resources fetches the current resource usage of the server with the given
// identifier.
func (c *Client) Resources(ctx context.Context, identifier string) (types.ResourceSample, error) {
	if identifier == "" {
		return types.ResourceSample{}, fmt.Errorf("panel: empty server identifier")
	}

	var resp resourcesResponse
	path := clientPathRoot + "servers/" + url.PathEscape(identifier) + "/resources"
	if err := c.Get(ctx, path, nil, &resp); err != nil {
		return types.ResourceSample{}, err
	}

	r := resp.Attributes.Resources
	return types.ResourceSample{
		CPUAbsolute:    r.CPUAbsolute,
		MemoryBytes:    r.MemoryBytes,
		DiskBytes:      r.DiskBytes,
		NetworkRxBytes: r.NetworkRxBytes,
		NetworkTxBytes: r.NetworkTxBytes,
	}, nil
}

package servicewizard

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/kbase/navcache/jsonrpc"
	"github.com/kbase/navcache/resolver"
)

const Module = "ServiceWizard"

type serviceStatusParams struct {
	ModuleName string `json:"module_name"`
	Version    string `json:"version"`
}

// ServiceStatus is the subset of get_service_status used to locate a service.
type ServiceStatus struct {
	ModuleName string `json:"module_name"`
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit_hash"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	Health     string `json:"health"`
	Up         int    `json:"up"`
}

// Locator asks the ServiceWizard where a dynamic service currently runs.
type Locator struct {
	client *jsonrpc.Client
}

var _ resolver.Locator = (*Locator)(nil)

func NewLocator(wizardURL string, opts ...Option) *Locator {
	o := newOptions(opts)
	return &Locator{
		client: jsonrpc.NewClient(Module, wizardURL,
			jsonrpc.WithHTTPClient(o.httpClient),
			jsonrpc.WithLogger(o.logger),
		),
	}
}

// Status returns the full service status reported by the wizard.
func (l *Locator) Status(ctx context.Context, id resolver.Identity) (*ServiceStatus, error) {
	version := id.Version
	if version == "" {
		version = resolver.DefaultVersion
	}
	var status ServiceStatus
	err := l.client.Call(ctx, "get_service_status", []any{
		serviceStatusParams{ModuleName: id.Module, Version: version},
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (l *Locator) Locate(ctx context.Context, id resolver.Identity) (string, error) {
	status, err := l.Status(ctx, id)
	if err != nil {
		return "", err
	}
	if status.URL == "" {
		return "", resolver.ErrEmptyURL
	}
	return status.URL, nil
}

type Option func(o *options)

type options struct {
	version    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		version:    resolver.DefaultVersion,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithVersion selects the service release tag, such as "dev" or "beta".
// Only used by DynamicClient.
func WithVersion(v string) Option {
	return func(o *options) {
		if v == "" {
			return
		}
		o.version = v
	}
}

// WithToken sets the auth token passed to the resolved service.
// The wizard itself is always called anonymously.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc == nil {
			return
		}
		o.httpClient = hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			return
		}
		o.logger = l
	}
}

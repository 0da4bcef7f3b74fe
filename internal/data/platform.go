package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	defaultPlatformTimeout = 30 * time.Second

	// UserAgent PostLane 的 User-Agent
	UserAgent = "PostLane/1.0"
)

// endpointClient is a kratos HTTP client bound to one base URL.
type endpointClient struct {
	client   *khttp.Client
	basePath string
}

// newEndpointClient builds a client for endpoint. A path in endpoint is kept as prefix
// of every request path.
func newEndpointClient(endpoint, token string, timeout time.Duration) (*endpointClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", endpoint)
	}
	if timeout <= 0 {
		timeout = defaultPlatformTimeout
	}

	client, err := khttp.NewClient(context.Background(),
		khttp.WithEndpoint(u.Scheme+"://"+u.Host),
		khttp.WithTimeout(timeout),
		khttp.WithUserAgent(UserAgent),
		khttp.WithMiddleware(
			recovery.Recovery(),
			bearerToken(token),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", endpoint, err)
	}
	return &endpointClient{client: client, basePath: strings.TrimSuffix(u.Path, "/")}, nil
}

func (c *endpointClient) post(ctx context.Context, path string, req, reply interface{}) error {
	return c.client.Invoke(ctx, http.MethodPost, c.basePath+path, req, reply)
}

// bearerToken sets the Authorization header on outgoing requests.
func bearerToken(token string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			if token != "" {
				if tr, ok := transport.FromClientContext(ctx); ok {
					tr.RequestHeader().Set("Authorization", "Bearer "+token)
				}
			}
			return handler(ctx, req)
		}
	}
}

// publishRequest is the body sent to a platform.
type publishRequest struct {
	ContentID int64  `json:"content_id"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// publishReply is the platform's answer.
type publishReply struct {
	ID string `json:"id"`
}

// PlatformClient implements biz.Publisher over the configured platform endpoints.
type PlatformClient struct {
	platforms map[string]*endpointClient
	logger    *log.Helper
}

// NewPlatformClient creates one HTTP client per configured platform.
func NewPlatformClient(bc *conf.Bootstrap, logger log.Logger) (*PlatformClient, func(), error) {
	helper := log.NewHelper(logger)
	p := &PlatformClient{
		platforms: make(map[string]*endpointClient, len(bc.Platforms)),
		logger:    helper,
	}

	cleanup := func() {
		for name, c := range p.platforms {
			if err := c.client.Close(); err != nil {
				helper.Warnw("msg", "failed to close platform client", "platform", name, "error", err)
			}
		}
	}

	for _, pc := range bc.Platforms {
		c, err := newEndpointClient(pc.Endpoint, pc.Token, pc.Timeout)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("platform %s: %w", pc.Name, err)
		}
		p.platforms[pc.Name] = c
		helper.Infow("msg", "platform client configured", "platform", pc.Name, "endpoint", pc.Endpoint)
	}

	return p, cleanup, nil
}

// Publish posts item to platform and returns the platform's post id.
func (p *PlatformClient) Publish(ctx context.Context, platform string, item *model.ContentItem) (string, error) {
	c, ok := p.platforms[platform]
	if !ok {
		return "", fmt.Errorf("platform %s is not configured", platform)
	}

	var reply publishReply
	err := c.post(ctx, "/posts", &publishRequest{
		ContentID: item.ID,
		Kind:      string(item.Kind),
		Title:     item.Title,
		Body:      item.Body,
	}, &reply)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", platform, err)
	}
	if reply.ID == "" {
		return "", fmt.Errorf("publish to %s: empty post id in response", platform)
	}

	p.logger.WithContext(ctx).Debugw("msg", "platform accepted post",
		"platform", platform,
		"item_id", item.ID,
		"platform_post_id", reply.ID)
	return reply.ID, nil
}

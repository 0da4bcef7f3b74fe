package data

import (
	"context"
	"errors"
	"fmt"

	"PostLane/internal/conf"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// errGeneratorNotConfigured is returned by Generate when no endpoint is set.
var errGeneratorNotConfigured = errors.New("content generator endpoint is not configured")

// GeneratorClient implements biz.ContentGenerator over HTTP.
type GeneratorClient struct {
	client *endpointClient
	logger *log.Helper
}

// NewGeneratorClient creates the content-generation client. An empty endpoint
// yields a client whose calls fail.
func NewGeneratorClient(bc *conf.Bootstrap, logger log.Logger) (*GeneratorClient, func(), error) {
	helper := log.NewHelper(logger)
	g := &GeneratorClient{logger: helper}

	if bc.Generator == nil || bc.Generator.Endpoint == "" {
		helper.Warn("content generator endpoint is empty, generate-content runs will fail")
		return g, func() {}, nil
	}

	c, err := newEndpointClient(bc.Generator.Endpoint, bc.Generator.Token, bc.Generator.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("generator: %w", err)
	}
	g.client = c

	cleanup := func() {
		if err := c.client.Close(); err != nil {
			helper.Warnw("msg", "failed to close generator client", "error", err)
		}
	}
	return g, cleanup, nil
}

// Generate asks the service for one piece of content.
func (g *GeneratorClient) Generate(ctx context.Context, req model.GenerationRequest) (*model.GeneratedContent, error) {
	if g.client == nil {
		return nil, errGeneratorNotConfigured
	}

	var reply model.GeneratedContent
	if err := g.client.post(ctx, "/generate", &req, &reply); err != nil {
		return nil, fmt.Errorf("generate %s for %s: %w", req.Kind, req.Platform, err)
	}
	if reply.Title == "" && reply.Body == "" {
		return nil, fmt.Errorf("generate %s for %s: empty content in response", req.Kind, req.Platform)
	}
	return &reply, nil
}

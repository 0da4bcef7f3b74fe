package service

import (
	"context"

	v1 "PostLane/api/orchestration/v1"
	"PostLane/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"
)

// BreakerService exposes circuit breaker state and manual resets.
type BreakerService struct {
	registry *biz.BreakerRegistry
	validate *validator.Validate
	logger   *log.Helper
}

// NewBreakerService creates a new BreakerService instance.
func NewBreakerService(registry *biz.BreakerRegistry, v *validator.Validate, logger log.Logger) *BreakerService {
	return &BreakerService{
		registry: registry,
		validate: v,
		logger:   log.NewHelper(logger),
	}
}

// ListBreakers returns every breaker, sorted by name.
func (s *BreakerService) ListBreakers(_ context.Context, _ *v1.ListBreakersRequest) (*v1.ListBreakersReply, error) {
	stats := s.registry.Stats()
	reply := &v1.ListBreakersReply{Breakers: make([]*v1.Breaker, 0, len(stats))}
	for _, st := range stats {
		reply.Breakers = append(reply.Breakers, toBreaker(st))
	}
	return reply, nil
}

// ResetBreaker forces a breaker closed.
func (s *BreakerService) ResetBreaker(ctx context.Context, req *v1.ResetBreakerRequest) (*v1.Breaker, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	if err := s.registry.Reset(ctx, req.Name, req.Operator); err != nil {
		return nil, toKratosError(err)
	}
	b, err := s.registry.Get(req.Name)
	if err != nil {
		return nil, toKratosError(err)
	}
	return toBreaker(b.Stats()), nil
}

func toBreaker(st biz.BreakerStats) *v1.Breaker {
	return &v1.Breaker{
		Name:                 st.Name,
		State:                st.State.String(),
		Failures:             st.Failures,
		ConsecutiveSuccesses: st.ConsecutiveSuccesses,
		LastOpenedAt:         st.LastOpenedAt,
		LastError:            st.LastError,
		RetryAfterSeconds:    st.RetryAfter.Seconds(),
		FailureThreshold:     st.Config.FailureThreshold,
		FailureWindowSeconds: st.Config.FailureWindow.Seconds(),
		CooldownSeconds:      st.Config.CooldownPeriod.Seconds(),
		SuccessThreshold:     st.Config.SuccessThreshold,
	}
}

// Package service implements the operator HTTP API on top of the biz layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"PostLane/internal/biz"
	"PostLane/internal/data"
	pkglog "PostLane/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewValidator, NewContentService, NewJobService, NewBreakerService)

// Error reasons returned to operators.
const (
	ReasonCircuitOpen       = "CIRCUIT_OPEN"
	ReasonInvalidTransition = "INVALID_TRANSITION"
	ReasonScheduledInPast   = "SCHEDULED_IN_PAST"
	ReasonInvalidArgument   = "INVALID_ARGUMENT"
	ReasonNotFound          = "NOT_FOUND"
	ReasonConflict          = "CONFLICT"
	ReasonInternal          = "INTERNAL"
)

// NewValidator creates the request validator shared by all services.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// operatorFrom fills the request operator from the request context when the
// operator middleware identified one.
func operatorFrom(ctx context.Context, fallback string) string {
	if op := pkglog.GetOperator(ctx); op != "" {
		return op
	}
	return strings.TrimSpace(fallback)
}

// validate runs struct validation and converts failures to a 400.
func validate(v *validator.Validate, req interface{}) error {
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return kerrors.BadRequest(ReasonInvalidArgument, strings.Join(fields, "; "))
		}
		return kerrors.BadRequest(ReasonInvalidArgument, err.Error())
	}
	return nil
}

// toKratosError maps biz errors to transport errors with distinct reasons so
// operators can tell a cooling dependency from an item that already moved on.
func toKratosError(err error) error {
	if err == nil {
		return nil
	}

	var kerr *kerrors.Error
	if errors.As(err, &kerr) {
		return kerr
	}

	var openErr *biz.CircuitOpenError
	if errors.As(err, &openErr) {
		retry := int64(math.Ceil(openErr.RetryAfter.Seconds()))
		return kerrors.ServiceUnavailable(ReasonCircuitOpen, err.Error()).WithMetadata(map[string]string{
			"dependency":          openErr.Dependency,
			"retry_after_seconds": fmt.Sprintf("%d", retry),
		})
	}

	var transErr *biz.InvalidTransitionError
	if errors.As(err, &transErr) {
		return kerrors.Conflict(ReasonInvalidTransition, err.Error()).WithMetadata(map[string]string{
			"from": string(transErr.From),
			"to":   string(transErr.To),
		})
	}

	var cfgErr *biz.ConfigurationError
	if errors.As(err, &cfgErr) {
		return kerrors.BadRequest(ReasonInvalidArgument, err.Error())
	}

	switch {
	case errors.Is(err, biz.ErrScheduledInPast):
		return kerrors.BadRequest(ReasonScheduledInPast, err.Error())
	case errors.Is(err, biz.ErrContentNotFound),
		errors.Is(err, biz.ErrUnknownDependency),
		errors.Is(err, biz.ErrUnknownJob):
		return kerrors.NotFound(ReasonNotFound, err.Error())
	case errors.Is(err, data.ErrVersionConflict):
		return kerrors.Conflict(ReasonConflict, "content item was modified concurrently, retry")
	}

	return kerrors.InternalServer(ReasonInternal, "internal error")
}

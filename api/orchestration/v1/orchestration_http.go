package v1

import (
	"context"

	"github.com/go-kratos/kratos/v2/transport/http"
)

// HTTP bindings of the operator API, one handler per operation.
// Static paths are registered before parameterized ones of the same prefix.

const OperationContentServiceListReadyContent = "/api.orchestration.v1.ContentService/ListReadyContent"
const OperationContentServiceGetContent = "/api.orchestration.v1.ContentService/GetContent"
const OperationContentServiceSubmitContent = "/api.orchestration.v1.ContentService/SubmitContent"
const OperationContentServiceApproveContent = "/api.orchestration.v1.ContentService/ApproveContent"
const OperationContentServiceRejectContent = "/api.orchestration.v1.ContentService/RejectContent"
const OperationContentServiceDeleteContent = "/api.orchestration.v1.ContentService/DeleteContent"

type ContentServiceHTTPServer interface {
	ListReadyContent(context.Context, *ListReadyContentRequest) (*ListReadyContentReply, error)
	GetContent(context.Context, *GetContentRequest) (*ContentReply, error)
	SubmitContent(context.Context, *SubmitContentRequest) (*ContentReply, error)
	ApproveContent(context.Context, *ApproveContentRequest) (*ContentReply, error)
	RejectContent(context.Context, *RejectContentRequest) (*ContentReply, error)
	DeleteContent(context.Context, *DeleteContentRequest) (*DeleteContentReply, error)
}

func RegisterContentServiceHTTPServer(s *http.Server, srv ContentServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/content/ready", _ContentService_ListReadyContent0_HTTP_Handler(srv))
	r.GET("/v1/content/{id}", _ContentService_GetContent0_HTTP_Handler(srv))
	r.POST("/v1/content/{id}/submit", _ContentService_SubmitContent0_HTTP_Handler(srv))
	r.POST("/v1/content/{id}/approve", _ContentService_ApproveContent0_HTTP_Handler(srv))
	r.POST("/v1/content/{id}/reject", _ContentService_RejectContent0_HTTP_Handler(srv))
	r.DELETE("/v1/content/{id}", _ContentService_DeleteContent0_HTTP_Handler(srv))
}

func _ContentService_ListReadyContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListReadyContentRequest
		http.SetOperation(ctx, OperationContentServiceListReadyContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListReadyContent(ctx, req.(*ListReadyContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListReadyContentReply)
		return ctx.Result(200, reply)
	}
}

func _ContentService_GetContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetContentRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationContentServiceGetContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetContent(ctx, req.(*GetContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ContentReply)
		return ctx.Result(200, reply)
	}
}

func _ContentService_SubmitContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SubmitContentRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationContentServiceSubmitContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.SubmitContent(ctx, req.(*SubmitContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ContentReply)
		return ctx.Result(200, reply)
	}
}

func _ContentService_ApproveContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ApproveContentRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationContentServiceApproveContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ApproveContent(ctx, req.(*ApproveContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ContentReply)
		return ctx.Result(200, reply)
	}
}

func _ContentService_RejectContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RejectContentRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationContentServiceRejectContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.RejectContent(ctx, req.(*RejectContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ContentReply)
		return ctx.Result(200, reply)
	}
}

func _ContentService_DeleteContent0_HTTP_Handler(srv ContentServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in DeleteContentRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationContentServiceDeleteContent)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.DeleteContent(ctx, req.(*DeleteContentRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*DeleteContentReply)
		return ctx.Result(200, reply)
	}
}

const OperationJobServiceListExecutions = "/api.orchestration.v1.JobService/ListExecutions"
const OperationJobServiceListOrphaned = "/api.orchestration.v1.JobService/ListOrphaned"
const OperationJobServiceListSilentFailures = "/api.orchestration.v1.JobService/ListSilentFailures"
const OperationJobServiceGetJobStats = "/api.orchestration.v1.JobService/GetJobStats"
const OperationJobServiceRunJob = "/api.orchestration.v1.JobService/RunJob"

type JobServiceHTTPServer interface {
	ListExecutions(context.Context, *ListExecutionsRequest) (*ListExecutionsReply, error)
	ListOrphaned(context.Context, *ListOrphanedRequest) (*ListExecutionsReply, error)
	ListSilentFailures(context.Context, *ListSilentFailuresRequest) (*ListSilentFailuresReply, error)
	GetJobStats(context.Context, *GetJobStatsRequest) (*JobStats, error)
	RunJob(context.Context, *RunJobRequest) (*JobRun, error)
}

func RegisterJobServiceHTTPServer(s *http.Server, srv JobServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/jobs/executions", _JobService_ListExecutions0_HTTP_Handler(srv))
	r.GET("/v1/jobs/orphaned", _JobService_ListOrphaned0_HTTP_Handler(srv))
	r.GET("/v1/jobs/silent-failures", _JobService_ListSilentFailures0_HTTP_Handler(srv))
	r.GET("/v1/jobs/{name}/stats", _JobService_GetJobStats0_HTTP_Handler(srv))
	r.POST("/v1/jobs/{name}/run", _JobService_RunJob0_HTTP_Handler(srv))
}

func _JobService_ListExecutions0_HTTP_Handler(srv JobServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListExecutionsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationJobServiceListExecutions)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListExecutions(ctx, req.(*ListExecutionsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListExecutionsReply)
		return ctx.Result(200, reply)
	}
}

func _JobService_ListOrphaned0_HTTP_Handler(srv JobServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListOrphanedRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationJobServiceListOrphaned)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListOrphaned(ctx, req.(*ListOrphanedRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListExecutionsReply)
		return ctx.Result(200, reply)
	}
}

func _JobService_ListSilentFailures0_HTTP_Handler(srv JobServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListSilentFailuresRequest
		http.SetOperation(ctx, OperationJobServiceListSilentFailures)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListSilentFailures(ctx, req.(*ListSilentFailuresRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListSilentFailuresReply)
		return ctx.Result(200, reply)
	}
}

func _JobService_GetJobStats0_HTTP_Handler(srv JobServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetJobStatsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationJobServiceGetJobStats)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetJobStats(ctx, req.(*GetJobStatsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*JobStats)
		return ctx.Result(200, reply)
	}
}

func _JobService_RunJob0_HTTP_Handler(srv JobServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in RunJobRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationJobServiceRunJob)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.RunJob(ctx, req.(*RunJobRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*JobRun)
		return ctx.Result(200, reply)
	}
}

const OperationBreakerServiceListBreakers = "/api.orchestration.v1.BreakerService/ListBreakers"
const OperationBreakerServiceResetBreaker = "/api.orchestration.v1.BreakerService/ResetBreaker"

type BreakerServiceHTTPServer interface {
	ListBreakers(context.Context, *ListBreakersRequest) (*ListBreakersReply, error)
	ResetBreaker(context.Context, *ResetBreakerRequest) (*Breaker, error)
}

func RegisterBreakerServiceHTTPServer(s *http.Server, srv BreakerServiceHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/breakers", _BreakerService_ListBreakers0_HTTP_Handler(srv))
	r.POST("/v1/breakers/{name}/reset", _BreakerService_ResetBreaker0_HTTP_Handler(srv))
}

func _BreakerService_ListBreakers0_HTTP_Handler(srv BreakerServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListBreakersRequest
		http.SetOperation(ctx, OperationBreakerServiceListBreakers)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListBreakers(ctx, req.(*ListBreakersRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*ListBreakersReply)
		return ctx.Result(200, reply)
	}
}

func _BreakerService_ResetBreaker0_HTTP_Handler(srv BreakerServiceHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ResetBreakerRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationBreakerServiceResetBreaker)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ResetBreaker(ctx, req.(*ResetBreakerRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*Breaker)
		return ctx.Result(200, reply)
	}
}

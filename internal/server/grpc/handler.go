package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/services"
)

type LinkIssuer interface {
	IssueLink(ctx context.Context, contractID int64, mode services.LinkMode, send bool) (*services.IssuedLink, error)
}

type TermsPublisher interface {
	Publish(ctx context.Context, content string, activate bool) (*models.TermsVersion, error)
	Activate(ctx context.Context, id int64) (*models.TermsVersion, error)
}

type Sweeper interface {
	Run(ctx context.Context) (services.SweepResult, error)
}

type ContractAdmin interface {
	SetSchedule(ctx context.Context, contractID int64, stages []models.Stage) ([]models.Stage, error)
	Complete(ctx context.Context, contractID int64) error
}

var errBadRequest = status.Error(codes.InvalidArgument, "malformed request")

func (s *GRPCServer) IssueLink(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "contract_id")
	if err != nil {
		return nil, err
	}
	mode, err := services.ParseLinkMode(stringField(req, "mode"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	link, err := s.links.IssueLink(ctx, id, mode, boolField(req, "send"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return structpb.NewStruct(map[string]any{
		"url":        link.URL,
		"token":      link.Token,
		"mode":       string(link.Mode),
		"expires_at": link.ExpiresAt.UTC().Format(time.RFC3339),
		"emailed":    link.Emailed,
	})
}

func (s *GRPCServer) PublishTerms(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tv, err := s.terms.Publish(ctx, stringField(req, "content"), boolField(req, "activate"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return termsStruct(tv)
}

func (s *GRPCServer) ActivateTerms(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "id")
	if err != nil {
		return nil, err
	}
	tv, err := s.terms.Activate(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return termsStruct(tv)
}

func (s *GRPCServer) RunSweep(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.sweeper.Run(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		"overdue":        res.Overdue,
		"archived":       res.Archived,
		"tokens_deleted": res.TokensDeleted,
	})
}

func (s *GRPCServer) SetSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "contract_id")
	if err != nil {
		return nil, err
	}
	stages, err := stagesField(req)
	if err != nil {
		return nil, err
	}

	effective, err := s.contracts.SetSchedule(ctx, id, stages)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]any, 0, len(effective))
	for _, st := range effective {
		out = append(out, map[string]any{
			"stage":       st.Stage,
			"amount":      st.Amount.String(),
			"description": st.Description,
		})
	}
	return structpb.NewStruct(map[string]any{"contract_id": id, "stages": out})
}

func (s *GRPCServer) CompleteContract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(req, "contract_id")
	if err != nil {
		return nil, err
	}
	if err := s.contracts.Complete(ctx, id); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		"contract_id": id,
		"status":      string(models.StatusCompleted),
	})
}

func termsStruct(tv *models.TermsVersion) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":      tv.ID,
		"version": tv.Version,
		"active":  tv.IsActive,
	})
}

// toStatus maps service errors to gRPC codes. Unexpected errors are logged
// and reported without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	s.logger.Error(ctx, "operator call failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

func stringField(req *structpb.Struct, name string) string {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func boolField(req *structpb.Struct, name string) bool {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetBoolValue()
	}
	return false
}

// intField reads a positive integer. Numbers arrive as float64; strings
// are accepted too.
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}

	var n int64
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		n = int64(f)
	case *structpb.Value_StringValue:
		parsed, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		n = parsed
	default:
		return 0, errBadRequest
	}

	if n <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be positive", name)
	}
	return n, nil
}

// stagesField reads [{stage, amount, description}]. Amounts may be strings
// ("1500.00") or numbers.
func stagesField(req *structpb.Struct) ([]models.Stage, error) {
	list := req.GetFields()["stages"].GetListValue()
	if list == nil {
		return nil, nil
	}

	stages := make([]models.Stage, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, status.Errorf(codes.InvalidArgument, "stage %d is not an object", i+1)
		}

		var raw string
		switch k := obj.GetFields()["amount"].GetKind().(type) {
		case *structpb.Value_StringValue:
			raw = k.StringValue
		case *structpb.Value_NumberValue:
			raw = strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
		default:
			return nil, status.Errorf(codes.InvalidArgument, "stage %d has no amount", i+1)
		}
		amount, err := models.ParseMoney(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("stage %d: %v", i+1, err))
		}

		stages = append(stages, models.Stage{
			Stage:       stringField(obj, "stage"),
			Amount:      amount,
			Description: stringField(obj, "description"),
		})
	}
	return stages, nil
}

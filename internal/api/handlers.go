package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/watcherai/glassbox-gateway/internal/cache"
	"github.com/watcherai/glassbox-gateway/internal/models"
	"github.com/watcherai/glassbox-gateway/internal/services"
	"github.com/watcherai/glassbox-gateway/internal/utils"
)

// Handler implements GatewayServer on top of the analysis service, holding one result
// cache per session.
type Handler struct {
	logger   *slog.Logger
	service  *services.AnalysisService
	sessions *cache.Sessions
}

// NewHandler constructs the gRPC facade.
func NewHandler(logger *slog.Logger, service *services.AnalysisService, sessions *cache.Sessions) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions}
}

// Analyze submits {prompt, output} and returns {id}.
func (h *Handler) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	session, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := h.service.Analyze(ctx, h.sessions.Open(session), stringField(in, "prompt"), stringField(in, "output"))
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"id": id})
}

// GetResult returns the canonical result for {id}.
func (h *Handler) GetResult(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	session, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	result, err := h.service.GetResult(ctx, h.sessions.Open(session), stringField(in, "id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(result)
}

// GetHistory returns {items} for the optional {limit, offset}.
func (h *Handler) GetHistory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	items, err := h.service.GetHistory(ctx, intField(in, "limit"), intField(in, "offset"))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(struct {
		Items []models.HistoryItem `json:"items"`
	}{Items: items})
}

// CheckHealth returns the backend health report.
func (h *Handler) CheckHealth(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	health, err := h.service.CheckHealth(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(health)
}

// EndSession discards the caller's result cache and returns {ended}.
func (h *Handler) EndSession(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	session, err := sessionID(ctx)
	if err != nil {
		return nil, err
	}
	ended := h.sessions.End(session)
	h.logger.Debug("end session requested", slog.String("session", session), slog.Bool("ended", ended))
	return structpb.NewStruct(map[string]any{"ended": ended})
}

func sessionID(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		for _, v := range md.Get(SessionHeader) {
			if id := strings.TrimSpace(v); id != "" {
				return id, nil
			}
		}
	}
	return "", status.Errorf(codes.InvalidArgument, "%s metadata is required", SessionHeader)
}

func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

func intField(in *structpb.Struct, name string) int {
	return int(in.GetFields()[name].GetNumberValue())
}

// toStruct converts v through its JSON encoding so that field names match the models' tags.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// FromStruct decodes a response message into a domain model.
func FromStruct(in *structpb.Struct, out any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	return json.Unmarshal(data, out)
}

// toStatus maps the failure taxonomy onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	code := codes.Internal
	switch utils.KindOf(err) {
	case utils.KindInvalidInput:
		code = codes.InvalidArgument
	case utils.KindNotFound:
		code = codes.NotFound
	case utils.KindSchemaMismatch:
		code = codes.DataLoss
	case utils.KindTransport:
		code = codes.Unavailable
	case utils.KindBackend:
		code = codes.Unavailable
		if s := utils.StatusOf(err); s >= http.StatusBadRequest && s < http.StatusInternalServerError {
			code = codes.FailedPrecondition
		}
	}
	return status.Error(code, err.Error())
}

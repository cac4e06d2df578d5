package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/extract"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "docverify.v1.ExtractionService"

// ExtractionServer exposes the pipeline over gRPC. Requests and responses are
// google.protobuf.Struct values carrying the same JSON bodies the CLI uses.
type ExtractionServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDocumentTypes(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type ExtractionService struct {
	proc        extract.Processor
	logger      *slog.Logger
	allowedRoot string
}

type ServiceOption func(*ExtractionService)

// WithAllowedRoot restricts Extract to files inside root. Empty means no restriction.
func WithAllowedRoot(root string) ServiceOption {
	return func(s *ExtractionService) {
		if root = strings.TrimSpace(root); root != "" {
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}
			s.allowedRoot = filepath.Clean(root)
		}
	}
}

func NewExtractionService(proc extract.Processor, logger *slog.Logger, opts ...ServiceOption) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ExtractionService{proc: proc, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// permitted reports whether path lies inside the allowed root.
func (s *ExtractionService) permitted(path string) bool {
	if s.allowedRoot == "" {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.allowedRoot, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Extract runs one document through the pipeline. Malformed requests fail with
// InvalidArgument; extraction faults come back inside the response body with
// success=false.
func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request body is required")
	}
	m := req.AsMap()
	if raw, ok := m["documentType"].(string); ok {
		if dt, ok := constants.ParseDocumentType(raw); ok {
			m["documentType"] = string(dt)
		}
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "request body is not valid JSON")
	}
	if err := extract.ValidateRequest(body); err != nil {
		s.logger.Error("invalid extract request", "error", err)
		return nil, common.InvalidArgumentError(err.Error())
	}

	var in struct {
		FilePath     string `json:"filePath"`
		DocumentType string `json:"documentType"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, common.InvalidArgumentErrorf("decode request: %v", err)
	}
	docType, ok := constants.ParseDocumentType(in.DocumentType)
	if !ok {
		return nil, common.InvalidArgumentErrorf("unknown documentType %q", in.DocumentType)
	}
	path := strings.TrimSpace(in.FilePath)
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("filePath", path, common.Required, common.MaxLength(4096))); err != nil {
		return nil, err
	}
	if !s.permitted(path) {
		s.logger.Warn("extract request outside allowed root", "path", path, "allowed_root", s.allowedRoot)
		return nil, status.Error(codes.PermissionDenied, "filePath is outside the allowed root")
	}

	s.logger.Info("extract request", "path", path, "document_type", docType, "request_id", common.RequestIDFromContext(ctx))
	resp := s.proc.Process(ctx, path, docType)
	if err := extract.ValidateResponse(resp); err != nil {
		s.logger.Warn("response does not match schema", "run_id", resp.RunID, "error", err)
	}

	out, err := toStruct(resp)
	if err != nil {
		s.logger.Error("encode response failed", "run_id", resp.RunID, "error", err)
		return nil, common.InternalError("encode response failed")
	}
	return out, nil
}

// ListDocumentTypes reports the accepted document types and file extensions.
func (s *ExtractionService) ListDocumentTypes(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	types := make([]any, 0, 3)
	for _, t := range constants.DocumentTypesAsStrings() {
		types = append(types, t)
	}
	exts := []any{"pdf", "jpg", "jpeg", "png"}
	out, err := structpb.NewStruct(map[string]any{
		"documentTypes": types,
		"extensions":    exts,
	})
	if err != nil {
		return nil, common.InternalError("encode response failed")
	}
	return out, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// RegisterExtractionServer registers srv on s.
func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Extract"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listDocumentTypesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).ListDocumentTypes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListDocumentTypes"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).ListDocumentTypes(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractionServiceDesc describes the service for grpc.Server.RegisterService.
var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "ListDocumentTypes", Handler: listDocumentTypesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docverify/v1/extraction.proto",
}

var _ ExtractionServer = (*ExtractionService)(nil)

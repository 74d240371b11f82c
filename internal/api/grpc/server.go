package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/setexpand/setexpand/internal/api"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
)

// Server implements ExpansionServer over an api.Service.
type Server struct {
	svc *api.Service
}

// NewServer creates a gRPC expansion server.
func NewServer(svc *api.Service) *Server {
	return &Server{svc: svc}
}

// Keyword handles {"keyword": [...]}.
func (s *Server) Keyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := extractRequestID(ctx)
	keywords, err := stringsField(req, "keyword")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	tables, err := s.svc.Keyword(ctx, keywords)
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	return response(requestID, map[string]interface{}{"tables": tables})
}

// PostSeedSet handles {"tableIDs": [...], "rowIDs": [...], "session"?}.
func (s *Server) PostSeedSet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := extractRequestID(ctx)
	tables, err := intsField(req, "tableIDs")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	rows, err := intsField(req, "rowIDs")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	if len(tables) != len(rows) {
		return nil, toStatus(seterrors.NewInvalidInput(
			fmt.Sprintf("tableIDs and rowIDs differ in length (%d vs %d)", len(tables), len(rows))), requestID)
	}
	refs := make([]seedset.RowRef, len(tables))
	for i := range tables {
		refs[i] = seedset.RowRef{TableID: int64(tables[i]), RowID: int64(rows[i])}
	}

	view, err := s.svc.PostSeedSet(ctx, stringField(req, "session"), refs)
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	return response(requestID, view)
}

// DotOp handles {"session", "dotOp", "sliders", "unique", "rowsReturned"}.
func (s *Server) DotOp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := extractRequestID(ctx)
	r := api.DotOpRequest{
		SessionID: stringField(req, "session"),
		DotOp:     stringField(req, "dotOp"),
	}
	var err error
	if r.Sliders, err = intsField(req, "sliders"); err != nil {
		return nil, toStatus(err, requestID)
	}
	if r.Unique, err = intsField(req, "unique"); err != nil {
		return nil, toStatus(err, requestID)
	}
	returned, err := intsField(req, "rowsReturned")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	if len(returned) > 0 {
		r.RowsReturned = returned[0]
	}

	view, err := s.svc.DotOp(ctx, r)
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	return response(requestID, view)
}

// DeleteColumns handles {"session", "del": [...]}.
func (s *Server) DeleteColumns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := extractRequestID(ctx)
	cols, err := intsField(req, "del")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	view, err := s.svc.DeleteColumns(ctx, stringField(req, "session"), cols)
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	return response(requestID, view)
}

// SwapCells handles {"session", "rowIDs": [a, b], "colIDs": [c, d]}.
func (s *Server) SwapCells(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	requestID := extractRequestID(ctx)
	rows, err := intsField(req, "rowIDs")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	cols, err := intsField(req, "colIDs")
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	if len(rows) != 2 || len(cols) != 2 {
		return nil, toStatus(seterrors.NewInvalidInput(
			fmt.Sprintf("swap needs two rowIDs and two colIDs, got %d and %d", len(rows), len(cols))), requestID)
	}
	view, err := s.svc.SwapCells(ctx, stringField(req, "session"), rows[0], cols[0], rows[1], cols[1])
	if err != nil {
		return nil, toStatus(err, requestID)
	}
	return response(requestID, view)
}

// response renders v through its JSON form into a Struct and adds request_id.
func response(requestID string, v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	fields["request_id"] = requestID
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// stringsField accepts a string or a list of strings.
func stringsField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
		return []string{s.StringValue}, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, seterrors.NewInvalidInput(fmt.Sprintf("%s must be a string or a list of strings", name))
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, seterrors.NewInvalidInput(fmt.Sprintf("%s must contain strings", name))
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// intsField accepts a number, a numeric string, or a list of either.
func intsField(req *structpb.Struct, name string) ([]int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, nil
	}
	items := []*structpb.Value{v}
	if list := v.GetListValue(); list != nil {
		items = list.GetValues()
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := toInt(item)
		if err != nil {
			return nil, seterrors.NewInvalidInput(fmt.Sprintf("%s: %v", name, err))
		}
		out = append(out, n)
	}
	return out, nil
}

func toInt(v *structpb.Value) (int, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := int(k.NumberValue)
		if float64(n) != k.NumberValue {
			return 0, fmt.Errorf("%v is not an integer", k.NumberValue)
		}
		return n, nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(k.StringValue)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", k.StringValue)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

// toStatus maps an error to a gRPC status.
func toStatus(err error, requestID string) error {
	code := codes.Internal
	switch seterrors.GetCategory(err) {
	case seterrors.ErrCategoryValidation:
		code = codes.InvalidArgument
	case seterrors.ErrCategorySession:
		code = codes.NotFound
	case seterrors.ErrCategoryStore:
		code = codes.Unavailable
	case seterrors.ErrCategoryExpansion:
		if seterrors.GetCode(err) == seterrors.CodeSeedNotInitialized {
			code = codes.InvalidArgument
		}
	}
	if code == codes.Internal || code == codes.Unavailable {
		log.Printf("grpc: request %s failed: %v", requestID, err)
	}
	return status.Error(code, err.Error())
}

// extractRequestID extracts or generates a request ID from the gRPC context.
func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			return ids[0]
		}
	}
	return uuid.New().String()
}

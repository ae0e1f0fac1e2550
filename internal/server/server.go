// Package server implements the gRPC Documents service over a versioned app
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/docversions/internal/logger"
	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
	"github.com/nainya/docversions/pkg/version"
)

// Provider marks service calls arriving over gRPC
const Provider = "grpc"

var _ DocumentsServer = (*Server)(nil)

// Server implements DocumentsServer on top of an application.
//
// The acting user is read from the request's "user" object as sent by the
// client. Server does not authenticate it, so a deployment that keeps version
// authorship meaningful must put an authenticating proxy or interceptor in
// front and overwrite that field.
type Server struct {
	app       *app.App
	userField string
	log       *logger.Logger
}

// NewServer creates a server exposing every service of a. The acting user of
// a request is passed to hooks under userField.
func NewServer(a *app.App, userField string, log *logger.Logger) *Server {
	if userField == "" {
		userField = version.DefaultUserEntityField
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Server{app: a, userField: userField, log: log}
}

// request is the decoded form of a Documents call
type request struct {
	service *app.Service
	name    string
	id      any
	hasID   bool
	data    document.Document
	query   map[string]any
	limit   int
	params  *app.Params
}

func (s *Server) decode(req *structpb.Struct) (*request, error) {
	fields := req.AsMap()

	name, _ := fields["service"].(string)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "service is required")
	}
	svc := s.app.Service(name)
	if svc == nil {
		return nil, status.Errorf(codes.NotFound, "no service '%s'", name)
	}

	r := &request{
		service: svc,
		name:    name,
		params:  &app.Params{Provider: Provider, Values: map[string]any{}},
	}
	r.id, r.hasID = fields["id"]
	if r.id == nil {
		r.hasID = false
	}
	if data, ok := fields["data"].(map[string]any); ok {
		r.data = document.Document(data)
	}
	if q, ok := fields["query"].(map[string]any); ok {
		r.query = q
	}
	if limit, ok := fields["limit"].(float64); ok {
		r.limit = int(limit)
	}
	// taken as given, see Server
	if user, ok := fields["user"].(map[string]any); ok {
		r.params.Values[s.userField] = document.Document(user)
	}
	return r, nil
}

func (r *request) requireID() error {
	if !r.hasID {
		return status.Error(codes.InvalidArgument, "id is required")
	}
	return nil
}

func (r *request) requireData() error {
	if r.data == nil {
		return status.Error(codes.InvalidArgument, "data is required")
	}
	return nil
}

func (s *Server) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireData(); err != nil {
		return nil, err
	}
	doc, err := r.service.Create(ctx, r.data, r.params)
	if err != nil {
		return nil, s.statusOf("Create", err)
	}
	return toStruct(doc)
}

func (s *Server) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireID(); err != nil {
		return nil, err
	}
	doc, err := r.service.Get(ctx, r.id, r.params)
	if err != nil {
		return nil, s.statusOf("Get", err)
	}
	return toStruct(doc)
}

func (s *Server) Find(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	docs, err := r.service.Find(ctx, document.Query{Fields: r.query, Limit: r.limit}, r.params)
	if err != nil {
		return nil, s.statusOf("Find", err)
	}

	list := make([]any, 0, len(docs))
	for _, d := range docs {
		norm, err := document.Normalize(d)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		list = append(list, map[string]any(norm))
	}
	out, err := structpb.NewStruct(map[string]any{"data": list, "total": float64(len(list))})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireID(); err != nil {
		return nil, err
	}
	if err := r.requireData(); err != nil {
		return nil, err
	}
	doc, err := r.service.Update(ctx, r.id, r.data, r.params)
	if err != nil {
		return nil, s.statusOf("Update", err)
	}
	return toStruct(doc)
}

func (s *Server) Patch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireID(); err != nil {
		return nil, err
	}
	if err := r.requireData(); err != nil {
		return nil, err
	}
	doc, err := r.service.Patch(ctx, r.id, r.data, r.params)
	if err != nil {
		return nil, s.statusOf("Patch", err)
	}
	return toStruct(doc)
}

func (s *Server) Remove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireID(); err != nil {
		return nil, err
	}
	doc, err := r.service.Remove(ctx, r.id, r.params)
	if err != nil {
		return nil, s.statusOf("Remove", err)
	}
	return toStruct(doc)
}

// GetVersion returns the history of {service, id}
func (s *Server) GetVersion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.decode(req)
	if err != nil {
		return nil, err
	}
	if err := r.requireID(); err != nil {
		return nil, err
	}

	h, err := version.GetVersion(ctx, s.app, r.service, r.id)
	if err != nil {
		return nil, s.statusOf("GetVersion", err)
	}
	if h == nil {
		return nil, status.Errorf(codes.NotFound, "no versions for '%v' on '%s'", r.id, r.name)
	}

	raw, err := json.Marshal(h)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// statusOf converts err for the caller, logging failures the client cannot act on
func (s *Server) statusOf(method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.log.GrpcLogger(method).Error("request failed").Err(err).Send()
	}
	return st
}

func toStruct(doc document.Document) (*structpb.Struct, error) {
	norm, err := document.Normalize(doc)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(map[string]any(norm))
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode document: %v", err))
	}
	return out, nil
}

// toStatus maps service errors onto gRPC status codes
func toStatus(err error) error {
	var (
		appErr    *app.Error
		usageErr  *app.UsageError
		lookupErr *version.LookupError
		cfgErr    *version.ConfigError
	)

	switch {
	case errors.As(err, &appErr):
		switch appErr.Code {
		case 400:
			return status.Error(codes.InvalidArgument, appErr.Message)
		case 404:
			return status.Error(codes.NotFound, appErr.Message)
		case 405:
			return status.Error(codes.PermissionDenied, appErr.Message)
		}
		return status.Error(codes.Internal, appErr.Message)
	case errors.Is(err, document.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &lookupErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, version.ErrNotInitialized),
		errors.Is(err, version.ErrSelfReference),
		errors.As(err, &usageErr),
		errors.As(err, &cfgErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

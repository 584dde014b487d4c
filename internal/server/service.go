// Package server exposes index computation over gRPC. Messages are
// google.protobuf.Struct values so no generated code is needed.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/forest-guardian/salinity-indices/internal/config"
	"github.com/forest-guardian/salinity-indices/internal/indices"
	"github.com/forest-guardian/salinity-indices/internal/pipeline"
	"github.com/forest-guardian/salinity-indices/internal/raster"
)

const (
	ServiceName          = "salinity.v1.IndexService"
	computeIndicesMethod = "/" + ServiceName + "/ComputeIndices"
)

// IndexServiceServer is the server API of salinity.v1.IndexService.
type IndexServiceServer interface {
	ComputeIndices(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var indexServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IndexServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ComputeIndices",
			Handler:    computeIndicesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salinity/v1/index_service.proto",
}

func RegisterIndexServiceServer(s grpc.ServiceRegistrar, srv IndexServiceServer) {
	s.RegisterService(&indexServiceDesc, srv)
}

func computeIndicesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IndexServiceServer).ComputeIndices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: computeIndicesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IndexServiceServer).ComputeIndices(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Loader resolves a scene reference to a raw scene raster.
type Loader interface {
	Load(ctx context.Context, scene string) (*raster.Raster, error)
}

type LoaderFunc func(ctx context.Context, scene string) (*raster.Raster, error)

func (f LoaderFunc) Load(ctx context.Context, scene string) (*raster.Raster, error) {
	return f(ctx, scene)
}

// Request is the decoded ComputeIndices request.
type Request struct {
	Scene   string
	Profile string
	// Indices restricts the built-in indices computed. Empty means the
	// profile's set.
	Indices []string
}

// IndexStats is one entry of a ComputeIndices response.
type IndexStats struct {
	Name    string
	Formula string
	Stats   indices.Stats
	Display indices.DisplayRange
}

type Response struct {
	Scene   string
	Profile string
	Indices []IndexStats
}

// Service implements IndexServiceServer over a Loader and the profiles
// known to internal/config.
type Service struct {
	Loader Loader
	Log    logrus.FieldLogger
}

func NewService(loader Loader, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Loader: loader, Log: log}
}

func (s *Service) ComputeIndices(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := s.Compute(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp.Encode()
}

// Compute runs the profile pipeline over one scene and summarises every
// index.
func (s *Service) Compute(ctx context.Context, req Request) (*Response, error) {
	log := s.Log.WithFields(logrus.Fields{"scene": req.Scene, "profile": req.Profile})
	profile, err := config.Resolve(req.Profile)
	if err != nil {
		return nil, raster.Configf("server.Compute", "%v", err)
	}
	opts := profile.PipelineOptions()
	if len(req.Indices) > 0 {
		opts.Engine.Set = req.Indices
		opts.Engine.Expressions = nil
	}
	raw, err := s.Loader.Load(ctx, req.Scene)
	if err != nil {
		return nil, fmt.Errorf("loading scene %s: %w", req.Scene, err)
	}
	res, err := pipeline.Run(ctx, log, raw, opts)
	if err != nil {
		return nil, err
	}
	resp := &Response{Scene: req.Scene, Profile: profile.Name}
	for _, r := range res.Indices {
		resp.Indices = append(resp.Indices, IndexStats{
			Name:    r.Name,
			Formula: r.Formula,
			Stats:   indices.Summarize(r),
			Display: r.Display,
		})
	}
	return resp, nil
}

func toStatus(err error) error {
	var cfgErr *raster.ConfigurationError
	var lookupErr *raster.LookupError
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, fs.ErrNotExist):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &cfgErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &lookupErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// DecodeRequest reads {scene, profile, indices[]} from a Struct.
func DecodeRequest(in *structpb.Struct) (Request, error) {
	var req Request
	fields := in.GetFields()
	req.Scene = fields["scene"].GetStringValue()
	if req.Scene == "" {
		return Request{}, errors.New("scene is required")
	}
	req.Profile = fields["profile"].GetStringValue()
	for i, v := range fields["indices"].GetListValue().GetValues() {
		name, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return Request{}, fmt.Errorf("indices[%d] is not a string", i)
		}
		req.Indices = append(req.Indices, name.StringValue)
	}
	return req, nil
}

func (r Request) Encode() (*structpb.Struct, error) {
	names := make([]interface{}, len(r.Indices))
	for i, n := range r.Indices {
		names[i] = n
	}
	return structpb.NewStruct(map[string]interface{}{
		"scene":   r.Scene,
		"profile": r.Profile,
		"indices": names,
	})
}

// number maps NaN, which JSON cannot carry, to null.
func number(v float64) *structpb.Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return structpb.NewNullValue()
	}
	return structpb.NewNumberValue(v)
}

func (r *Response) Encode() (*structpb.Struct, error) {
	list := make([]*structpb.Value, 0, len(r.Indices))
	for _, ix := range r.Indices {
		st := &structpb.Struct{Fields: map[string]*structpb.Value{
			"name":        structpb.NewStringValue(ix.Name),
			"formula":     structpb.NewStringValue(ix.Formula),
			"pixels":      structpb.NewNumberValue(float64(ix.Stats.Pixels)),
			"valid":       structpb.NewNumberValue(float64(ix.Stats.Valid)),
			"min":         number(ix.Stats.Min),
			"max":         number(ix.Stats.Max),
			"mean":        number(ix.Stats.Mean),
			"std_dev":     number(ix.Stats.StdDev),
			"p02":         number(ix.Stats.P02),
			"p98":         number(ix.Stats.P98),
			"display_min": number(ix.Display.Min),
			"display_max": number(ix.Display.Max),
		}}
		list = append(list, structpb.NewStructValue(st))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"scene":   structpb.NewStringValue(r.Scene),
		"profile": structpb.NewStringValue(r.Profile),
		"indices": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

func numberOf(v *structpb.Value) float64 {
	if _, null := v.GetKind().(*structpb.Value_NullValue); null || v == nil {
		return math.NaN()
	}
	return v.GetNumberValue()
}

// DecodeResponse reads a ComputeIndices response Struct.
func DecodeResponse(in *structpb.Struct) (*Response, error) {
	fields := in.GetFields()
	resp := &Response{
		Scene:   fields["scene"].GetStringValue(),
		Profile: fields["profile"].GetStringValue(),
	}
	for i, v := range fields["indices"].GetListValue().GetValues() {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("indices[%d] is not an object", i)
		}
		f := st.GetFields()
		name := f["name"].GetStringValue()
		resp.Indices = append(resp.Indices, IndexStats{
			Name:    name,
			Formula: f["formula"].GetStringValue(),
			Stats: indices.Stats{
				Index:  name,
				Pixels: int(f["pixels"].GetNumberValue()),
				Valid:  int(f["valid"].GetNumberValue()),
				Min:    numberOf(f["min"]),
				Max:    numberOf(f["max"]),
				Mean:   numberOf(f["mean"]),
				StdDev: numberOf(f["std_dev"]),
				P02:    numberOf(f["p02"]),
				P98:    numberOf(f["p98"]),
			},
			Display: indices.DisplayRange{Min: numberOf(f["display_min"]), Max: numberOf(f["display_max"])},
		})
	}
	return resp, nil
}

// loggingInterceptor logs every unary call with its duration and status.
func loggingInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(started).Round(time.Millisecond),
		})
		if err != nil {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Info("rpc completed")
		}
		return resp, err
	}
}

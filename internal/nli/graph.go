package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// The graph runtime is a sidecar executing an exported (optionally
// quantized) model graph. It speaks gRPC with JSON-encoded messages so
// the Python side needs no generated stubs.
const (
	graphServiceName = "claimgate.nli.v1.GraphRuntime"
	graphLoadMethod  = "/" + graphServiceName + "/Load"
	graphScoreMethod = "/" + graphServiceName + "/ScorePairs"
)

// JSONCodec encodes gRPC messages as JSON
type JSONCodec struct{}

func (JSONCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                               { return "json" }

// GraphLoadRequest asks the runtime to create an inference session
type GraphLoadRequest struct {
	Model              string   `json:"model,omitempty"`
	QuantizedModelPath string   `json:"quantized_model_path,omitempty"`
	ExecutionProviders []string `json:"execution_providers,omitempty"`
	Device             string   `json:"device"`
	MaxLength          int      `json:"max_length"`
}

// GraphLoadResponse describes the session the runtime created
type GraphLoadResponse struct {
	SessionID string   `json:"session_id"`
	Providers []string `json:"providers"` // Providers actually enabled, in priority order
	Quantized bool     `json:"quantized"`
}

// GraphScoreRequest scores one batch within a session
type GraphScoreRequest struct {
	SessionID string `json:"session_id"`
	Pairs     []Pair `json:"pairs"`
}

// GraphScoreResponse carries one score per requested pair
type GraphScoreResponse struct {
	Scores []model.RelationScore `json:"scores"`
}

// GraphRuntimeServer is the server side of the graph runtime service
type GraphRuntimeServer interface {
	Load(ctx context.Context, req *GraphLoadRequest) (*GraphLoadResponse, error)
	ScorePairs(ctx context.Context, req *GraphScoreRequest) (*GraphScoreResponse, error)
}

// RegisterGraphRuntimeServer registers srv on s. The server must be created
// with grpc.ForceServerCodec(JSONCodec{}).
func RegisterGraphRuntimeServer(s grpc.ServiceRegistrar, srv GraphRuntimeServer) {
	s.RegisterService(&graphRuntimeServiceDesc, srv)
}

var graphRuntimeServiceDesc = grpc.ServiceDesc{
	ServiceName: graphServiceName,
	HandlerType: (*GraphRuntimeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Load", Handler: graphLoadHandler},
		{MethodName: "ScorePairs", Handler: graphScoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "claimgate/nli/v1/graph_runtime",
}

func graphLoadHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GraphLoadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphRuntimeServer).Load(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: graphLoadMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GraphRuntimeServer).Load(ctx, req.(*GraphLoadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func graphScoreHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GraphScoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GraphRuntimeServer).ScorePairs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: graphScoreMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(GraphRuntimeServer).ScorePairs(ctx, req.(*GraphScoreRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// GraphBackend scores pairs through a graph runtime session
type GraphBackend struct {
	conn      *grpc.ClientConn
	sessionID string
	timeout   time.Duration
	batcher   batcher
	logger    *zap.Logger
}

// NewGraphBackend connects to the runtime and loads the model graph.
// Extra dial options are appended after the defaults.
func NewGraphBackend(ctx context.Context, cfg model.BackendConfig, logger *zap.Logger, opts ...grpc.DialOption) (*GraphBackend, error) {
	if cfg.Endpoint == "" {
		return nil, configErr(KindGraph, "endpoint is required")
	}

	// The runtime runs beside us and shares the filesystem
	if path := cfg.QuantizedModelPath; path != "" && !strings.Contains(path, "://") {
		if _, err := os.Stat(path); err != nil {
			return nil, &ConfigError{Backend: KindGraph, Err: fmt.Errorf("%w: %v", ErrModelNotFound, err)}
		}
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(cfg.Endpoint, dialOpts...)
	if err != nil {
		return nil, &ConfigError{Backend: KindGraph, Err: fmt.Errorf("%w: grpc dial %s: %v", ErrRuntimeUnavailable, cfg.Endpoint, err)}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var loaded GraphLoadResponse
	err = conn.Invoke(loadCtx, graphLoadMethod, &GraphLoadRequest{
		Model:              cfg.Model,
		QuantizedModelPath: cfg.QuantizedModelPath,
		ExecutionProviders: cfg.ExecutionProviders,
		Device:             cfg.Device,
		MaxLength:          cfg.MaxSeqLength,
	}, &loaded)
	if err != nil {
		_ = conn.Close()
		return nil, &ConfigError{Backend: KindGraph, Err: classifyLoadError(err)}
	}

	logger.Info("graph backend ready",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("session", loaded.SessionID),
		zap.Strings("providers", loaded.Providers),
		zap.Bool("quantized", loaded.Quantized),
	)

	return &GraphBackend{
		conn:      conn,
		sessionID: loaded.SessionID,
		timeout:   timeout,
		batcher:   newBatcher(KindGraph, cfg, logger),
		logger:    logger,
	}, nil
}

// classifyLoadError maps runtime status codes onto configuration sentinels
func classifyLoadError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrModelNotFound, status.Convert(err).Message())
	case codes.Unimplemented, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRuntimeUnavailable, status.Convert(err).Message())
	default:
		return fmt.Errorf("%w: load: %v", ErrRuntimeUnavailable, err)
	}
}

// Score implements Backend
func (b *GraphBackend) Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error) {
	return b.batcher.run(ctx, pairs, b.scoreBatch)
}

func (b *GraphBackend) scoreBatch(ctx context.Context, batch []Pair) ([]model.RelationScore, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var resp GraphScoreResponse
	err := b.conn.Invoke(callCtx, graphScoreMethod, &GraphScoreRequest{
		SessionID: b.sessionID,
		Pairs:     batch,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("score rpc: %w", err)
	}
	return resp.Scores, nil
}

// Close shuts down the gRPC connection
func (b *GraphBackend) Close() error {
	return b.conn.Close()
}

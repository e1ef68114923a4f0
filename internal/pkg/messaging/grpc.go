package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName        = "kubeimport.messaging.EventService"
	publishEventMethod = "/" + serviceName + "/PublishEvent"
	topicField         = "topic"
	payloadField       = "payload"
)

// eventServiceServer is the server side of the event service
type eventServiceServer interface {
	PublishEvent(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error)
}

var eventServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*eventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PublishEvent",
			Handler:    publishEventHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "messaging/events.proto",
}

func publishEventHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(eventServiceServer).PublishEvent(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: publishEventMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(eventServiceServer).PublishEvent(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

// GRPCServer receives published events and dispatches them to subscribers
type GRPCServer struct {
	server   *grpc.Server
	handlers map[string][]func([]byte) error
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewGRPCServer creates a new GRPCServer instance
func NewGRPCServer(logger *slog.Logger) *GRPCServer {
	s := &GRPCServer{
		server:   grpc.NewServer(),
		handlers: make(map[string][]func([]byte) error),
		logger:   logger,
	}
	s.server.RegisterService(&eventServiceDesc, s)

	return s
}

// Start listens on address and serves until ctx is cancelled
func (s *GRPCServer) Start(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.Serve(ctx, listener)
	s.logger.Info("gRPC server started", "address", address)

	return nil
}

// Serve serves on an existing listener in the background
func (s *GRPCServer) Serve(ctx context.Context, listener net.Listener) {
	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop gracefully stops the gRPC server
func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
	s.logger.Info("gRPC server stopped gracefully")
}

// Subscribe registers handler for topic
func (s *GRPCServer) Subscribe(topic string, handler func([]byte) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[topic] = append(s.handlers[topic], handler)
}

// PublishEvent dispatches an incoming event. Unknown topics are reported as unhandled.
func (s *GRPCServer) PublishEvent(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	topic := req.GetFields()[topicField].GetStringValue()
	payload := req.GetFields()[payloadField].GetStringValue()

	s.mu.RLock()
	defer s.mu.RUnlock()

	handlers, exists := s.handlers[topic]
	if !exists {
		s.logger.Warn("No subscribers for topic", "topic", topic)
		return wrapperspb.Bool(false), nil
	}

	for _, handler := range handlers {
		if err := handler([]byte(payload)); err != nil {
			return wrapperspb.Bool(false), err
		}
	}

	return wrapperspb.Bool(true), nil
}

// GRPCClient publishes events to a GRPCServer
type GRPCClient struct {
	conn *grpc.ClientConn
	mu   sync.RWMutex
}

// NewGRPCClient creates a new GRPCClient instance
func NewGRPCClient() *GRPCClient {
	return &GRPCClient{}
}

// Connect prepares the connection to address. The connection closes when ctx is done.
func (c *GRPCClient) Connect(ctx context.Context, address string, opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	return nil
}

// Publish sends message to topic and fails when no subscriber handled it
func (c *GRPCClient) Publish(topic string, message []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("client not connected")
	}

	req, err := structpb.NewStruct(map[string]interface{}{
		topicField:   topic,
		payloadField: string(message),
	})
	if err != nil {
		return fmt.Errorf("failed to build event request: %w", err)
	}

	resp := new(wrapperspb.BoolValue)
	if err := conn.Invoke(context.Background(), publishEventMethod, req, resp); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", topic, err)
	}

	if !resp.GetValue() {
		return fmt.Errorf("event %s was not handled", topic)
	}

	return nil
}

// Close closes the client connection
func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

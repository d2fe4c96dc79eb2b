package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// messageCodec кодирует Message в JSON: gRPC работает без .proto и
// без сгенерированного кода, клиент и сервер видят те же поля, что и WebSocket
type messageCodec struct{}

func (messageCodec) Name() string                       { return "json" }
func (messageCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (messageCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(messageCodec{})
}

// streamMethod полное имя единственного метода сервиса
const streamMethod = "/voicemood.Classifier/Stream"

// streamServer то, что умеет обслуживать поток Classifier.Stream
type streamServer interface {
	serveStream(grpc.ServerStream) error
}

// classifierService двунаправленный поток Message, тот же протокол, что /ws
var classifierService = grpc.ServiceDesc{
	ServiceName: "voicemood.Classifier",
	HandlerType: (*streamServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Stream",
		ServerStreams: true,
		ClientStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			return srv.(streamServer).serveStream(stream)
		},
	}},
}

// serveStream читает запросы из потока до EOF. Ответы и broadcast пишутся
// из разных горутин, поэтому запись идёт через streamClient.
func (s *Server) serveStream(stream grpc.ServerStream) error {
	client := &streamClient{stream: stream}
	s.addClient(client)
	defer s.removeClient(client)

	for {
		var msg Message
		if err := stream.RecvMsg(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.processMessage(stream.Context(), client, msg)
	}
}

type streamClient struct {
	stream grpc.ServerStream
	mu     sync.Mutex
}

func (c *streamClient) Send(m *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream.SendMsg(m)
}

// DefaultGRPCAddr адрес локального сокета по умолчанию
func DefaultGRPCAddr() string {
	if runtime.GOOS == "windows" {
		return "npipe:\\\\.\\pipe\\voicemood-grpc"
	}
	return "unix://" + os.TempDir() + "/voicemood-grpc.sock"
}

func newGRPCServer(s *Server) *grpc.Server {
	server := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.ForceServerCodec(messageCodec{}),
		grpc.MaxRecvMsgSize(int(s.maxFrameBytes())),
	)
	server.RegisterService(&classifierService, s)
	return server
}

func listenGRPC(addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix:"):
		socketPath := strings.TrimPrefix(strings.TrimPrefix(addr, "unix:"), "//")
		if err := removeIfExists(socketPath); err != nil {
			return nil, err
		}
		return net.Listen("unix", socketPath)
	case strings.HasPrefix(addr, "npipe:"):
		pipePath := strings.TrimPrefix(addr, "npipe:")
		return listenPipe(pipePath)
	default:
		return net.Listen("tcp", addr)
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return errors.New("empty socket path")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

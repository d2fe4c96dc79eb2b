package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"voicemood/internal/config"
	"voicemood/internal/display"
	"voicemood/internal/service"
	"voicemood/media"
	"voicemood/models"
)

const (
	defaultMaxUploadMB = 25
	envelopeBytes      = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sender is a client connection that accepts messages: a WebSocket or a gRPC stream.
type sender interface {
	Send(*Message) error
}

// wsClient serializes writes to a single WebSocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(m *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

type Server struct {
	Config     config.Server
	Classifier *service.ClassificationService
	ModelMgr   *models.Manager

	clients map[sender]bool
	mu      sync.Mutex
}

func NewServer(cfg config.Server, classifier *service.ClassificationService, modMgr *models.Manager) *Server {
	s := &Server{
		Config:     cfg,
		Classifier: classifier,
		ModelMgr:   modMgr,
		clients:    make(map[sender]bool),
	}
	s.setupCallbacks()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/classify", s.handleClassify)
	mux.HandleFunc("/api/emotions", s.handleEmotions)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/models", s.handleModels)
	return withCORS(mux)
}

// Start serves HTTP (and gRPC when configured) until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.Config.GRPCAddr != "" {
		lis, err := listenGRPC(s.Config.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to start gRPC listener (%s): %w", s.Config.GRPCAddr, err)
		}
		grpcServer := newGRPCServer(s)
		go func() {
			log.WithField("addr", s.Config.GRPCAddr).Info("gRPC listening")
			if err := grpcServer.Serve(lis); err != nil {
				log.WithError(err).Warn("gRPC server stopped")
			}
		}()
		defer grpcServer.GracefulStop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", s.Config.Port).Info("HTTP listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupCallbacks() {
	if s.ModelMgr == nil {
		return
	}
	s.ModelMgr.SetProgressCallback(func(id string, progress float64, status models.ArtifactStatus, err error) {
		errStr := ""
		if err != nil {
			errStr = err.Error()
		}
		s.broadcast(&Message{
			Type:     TypeModelProgress,
			ModelID:  id,
			Progress: progress,
			Status:   string(status),
			Error:    errStr,
		})
	})
}

func (s *Server) addClient(c sender) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *Server) removeClient(c sender) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) broadcast(msg *Message) {
	s.mu.Lock()
	targets := make([]sender, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			log.WithError(err).Debug("broadcast write failed")
			s.removeClient(c)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(s.maxFrameBytes())
	client := &wsClient{conn: conn}
	s.addClient(client)

	defer func() {
		s.removeClient(client)
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read")
			}
			return
		}
		s.processMessage(r.Context(), client, msg)
	}
}

// maxUploadBytes is the decoded upload limit shared by all transports.
func (s *Server) maxUploadBytes() int64 {
	if s.Config.MaxUploadMB <= 0 {
		return defaultMaxUploadMB << 20
	}
	return int64(s.Config.MaxUploadMB) << 20
}

// maxFrameBytes bounds one WebSocket or gRPC message: a base64 upload plus
// the JSON envelope.
func (s *Server) maxFrameBytes() int64 {
	return s.maxUploadBytes()*4/3 + envelopeBytes
}

// processMessage handles one request from a WebSocket or gRPC client.
func (s *Server) processMessage(ctx context.Context, c sender, msg Message) {
	reply := func(m *Message) {
		if err := c.Send(m); err != nil {
			log.WithError(err).Debug("reply write failed")
		}
	}

	switch msg.Type {
	case TypeClassify:
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			reply(&Message{Type: TypeError, RequestID: msg.RequestID, Error: "invalid base64 payload"})
			return
		}
		if int64(len(data)) > s.maxUploadBytes() {
			reply(&Message{Type: TypeError, RequestID: msg.RequestID, Error: "upload too large"})
			return
		}
		reply(&Message{Type: TypeProcessing, RequestID: msg.RequestID, Name: msg.Name})

		result, err := s.Classifier.ClassifyBytes(ctx, msg.Name, data)
		if err != nil {
			reply(&Message{Type: TypeError, RequestID: msg.RequestID, Error: err.Error()})
			return
		}
		reply(&Message{Type: TypeResult, RequestID: msg.RequestID, Result: result})

	case TypeGetEmotions:
		reply(&Message{Type: TypeEmotions, Emotions: display.All(), Labels: s.Classifier.Labels()})

	case TypeGetModels:
		if s.ModelMgr == nil {
			reply(&Message{Type: TypeError, Error: "model manager is not available"})
			return
		}
		reply(&Message{Type: TypeModelsList, Models: s.ModelMgr.Status()})

	case TypePullModel:
		if s.ModelMgr == nil {
			reply(&Message{Type: TypeError, Error: "model manager is not available"})
			return
		}
		go func(id string) {
			if err := s.ModelMgr.Pull(context.Background(), id); err != nil {
				log.WithError(err).WithField("artifact", id).Warn("pull failed")
			}
		}(msg.ModelID)

	default:
		reply(&Message{Type: TypeError, Error: fmt.Sprintf("unknown message type: %q", msg.Type)})
	}
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	file, header, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"audio\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	result, err := s.Classifier.ClassifyBytes(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEmotions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, display.All())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Labels: s.Classifier.Labels()})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.ModelMgr == nil {
		writeError(w, http.StatusNotFound, "model manager is not available")
		return
	}
	writeJSON(w, http.StatusOK, s.ModelMgr.Status())
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("response write failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// withCORS allows a browser front end served from another origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package cli

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voicemood/internal/api"
	"voicemood/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP, WebSocket and gRPC API",
	Long: `Serve the classifier over the network.

Endpoints:
  POST /api/classify   multipart upload, field "audio"
  GET  /api/emotions   emotion map (emoji, color, text)
  GET  /api/health     liveness and label set
  GET  /api/models     artifact status
  GET  /ws             WebSocket, JSON messages

With --grpc, the same messages are served over the voicemood.Classifier/Stream
gRPC method (JSON codec) on a TCP address, unix:/path or npipe:\\.\pipe\name.
Use --grpc default for the platform's local socket.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		classifier, err := loadClassifier()
		if err != nil {
			return err
		}
		defer classifier.Close()

		mgr, err := newModelManager()
		if err != nil {
			return err
		}

		serverCfg := cfg.Server
		if serverCfg.GRPCAddr == "default" {
			serverCfg.GRPCAddr = api.DefaultGRPCAddr()
		}

		svc := service.NewClassificationService(classifier, serverCfg.UploadDir)
		server := api.NewServer(serverCfg, svc, mgr)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.WithField("labels", classifier.Labels()).Info("voicemood server starting")
		return server.Start(ctx)
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("port", "", "HTTP port")
	flags.String("grpc", "", "gRPC listen address")
	flags.Int("max-upload-mb", 0, "maximum upload size in MB")

	mustBind(serveCmd, "server.port", "port")
	mustBind(serveCmd, "server.grpc_addr", "grpc")
	mustBind(serveCmd, "server.max_upload_mb", "max-upload-mb")
}

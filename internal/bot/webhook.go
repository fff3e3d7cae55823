package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tinyvault/internal/logger"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

// WebhookServer is the HTTP server that receives Telegram updates.
type WebhookServer struct {
	server   *http.Server
	certFile string
	keyFile  string
}

// Start begins serving, with TLS when a certificate pair is configured.
func (ws *WebhookServer) Start() error {
	logger.Infof("Starting webhook server on %s", ws.server.Addr)

	if ws.certFile != "" && ws.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", ws.certFile, ws.keyFile)
		return ws.server.ListenAndServeTLS(ws.certFile, ws.keyFile)
	}

	logger.Warningf("Running without TLS, an HTTPS proxy must terminate TLS in front of this server")
	return ws.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ws *WebhookServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

// webhookPath extracts the local serving path from the public endpoint URL.
func webhookPath(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if parsed.Path == "" {
		logger.Infof("No path in webhook endpoint, defaulting to /webhook")
		return "/webhook", nil
	}
	return parsed.Path, nil
}

// SetupWebhook registers the webhook with Telegram and builds the local
// HTTP server plus the bot handler consuming its update stream.
func SetupWebhook(ctx context.Context, bot *telego.Bot, endpoint, listenPort, debugPath, secretToken string, certFile, keyFile string) (*th.BotHandler, *WebhookServer, error) {
	if endpoint == "" {
		return nil, nil, fmt.Errorf("webhook endpoint is required")
	}
	if listenPort == "" {
		listenPort = "8443"
		logger.Infof("Using default listen port: %s", listenPort)
	}
	// Telegram only delivers to HTTPS; without a local cert pair something
	// upstream has to terminate TLS.
	if (certFile == "" || keyFile == "") && !strings.HasPrefix(endpoint, "https://") {
		return nil, nil, fmt.Errorf("HTTPS configuration required: set cert_file and key_file in config or use a HTTPS proxy")
	}

	path, err := webhookPath(endpoint)
	if err != nil {
		return nil, nil, err
	}

	logger.Infof("Setting webhook to: %s", endpoint)
	err = bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL: endpoint,
		// The vault only consumes direct messages.
		AllowedUpdates: []string{"message"},
		SecretToken:    secretToken,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	if info, err := bot.GetWebhookInfo(ctx); err != nil {
		logger.Warningf("Failed to get webhook info: %v", err)
	} else {
		logger.Infof("Webhook info: URL=%s, PendingUpdateCount=%d, AllowedUpdates=%v",
			info.URL, info.PendingUpdateCount, info.AllowedUpdates)
		if info.LastErrorDate > 0 {
			logger.Warningf("Webhook last error: [%d] %s", info.LastErrorDate, info.LastErrorMessage)
		}
	}

	mux := http.NewServeMux()
	if debugPath != "" {
		mux.HandleFunc(debugPath, func(w http.ResponseWriter, r *http.Request) {
			logger.Infof("Debug endpoint accessed: %s %s", r.Method, r.URL.Path)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")

			fmt.Fprintf(w, "Webhook server is running\nEndpoint: %s\n", endpoint)
			info, err := bot.GetWebhookInfo(ctx)
			if err != nil {
				fmt.Fprintf(w, "Error getting webhook info: %v\n", err)
				return
			}
			fmt.Fprintf(w, "Registered URL: %s\nPending updates: %d\n", info.URL, info.PendingUpdateCount)
			if info.LastErrorDate > 0 {
				errorTime := time.Unix(int64(info.LastErrorDate), 0)
				fmt.Fprintf(w, "Last error: [%s] %s\n", errorTime.Format("2006-01-02 15:04:05"), info.LastErrorMessage)
			}
		})
	}

	server := &http.Server{
		Addr:    "0.0.0.0:" + listenPort,
		Handler: mux,
	}

	updates, err := bot.UpdatesViaWebhook(ctx,
		telego.WebhookHTTPServeMux(mux, path, secretToken),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get updates channel: %w", err)
	}

	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	return bh, &WebhookServer{
		server:   server,
		certFile: certFile,
		keyFile:  keyFile,
	}, nil
}

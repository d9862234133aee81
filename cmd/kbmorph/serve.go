package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quailyquaily/kbmorph/agent"
	"github.com/quailyquaily/kbmorph/internal/conversation"
	kbslack "github.com/quailyquaily/kbmorph/internal/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack Events API webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
			if bind == "" {
				bind = "127.0.0.1"
			}
			port := flagOrViperInt(cmd, "server-port", "server.port")
			if port <= 0 {
				port = 8790
			}
			botToken := strings.TrimSpace(flagOrViperString(cmd, "slack-bot-token", "slack.bot_token"))
			if botToken == "" {
				return fmt.Errorf("missing slack.bot_token (set via --slack-bot-token or KBMORPH_SLACK_BOT_TOKEN)")
			}

			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			api := kbslack.NewClient(nil, viper.GetString("slack.base_url"), botToken, "")
			registry := newConversationRegistry(logger, api)

			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":   true,
					"time": time.Now().Format(time.RFC3339Nano),
				})
			})
			mux.HandleFunc("/slack/events", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				var envelope kbslack.EventEnvelope
				if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
					http.Error(w, "invalid json", http.StatusBadRequest)
					return
				}
				switch envelope.Type {
				case kbslack.EnvelopeURLVerification:
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte(envelope.Challenge))
				case kbslack.EnvelopeEventCallback:
					// Ack before generation: the reply continues on the
					// conversation's worker goroutine.
					registry.Dispatch(envelope.Event)
					w.Header().Set("Content-Type", "application/json")
					_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
				default:
					http.Error(w, "not found", http.StatusNotFound)
				}
			})

			addr := fmt.Sprintf("%s:%d", bind, port)
			logger.Info("serve_start", "addr", addr, "max_steps", viper.GetInt("max_steps"))
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().String("server-bind", "", "Bind address for the webhook server.")
	cmd.Flags().Int("server-port", 0, "Port for the webhook server.")
	cmd.Flags().String("slack-bot-token", "", "Slack bot token (xoxb-...).")

	return cmd
}

func newConversationRegistry(logger *slog.Logger, api *kbslack.Client) *conversation.Registry {
	engine := agent.New(llmClientFromViper(), registryFromViper(), agent.Config{
		Model:    viper.GetString("llm.model"),
		MaxSteps: viper.GetInt("max_steps"),
	}, agent.WithLogger(logger))

	return conversation.NewRegistry(conversation.RegistryOptions{
		Engine:    engine,
		Deliver:   api.PostMessage,
		Logger:    logger,
		QueueSize: viper.GetInt("conversation.queue_size"),
	})
}

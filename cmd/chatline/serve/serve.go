package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/pkg/config"
	"github.com/papercomputeco/chatline/pkg/logger"
	"github.com/papercomputeco/chatline/pkg/tts"
	"github.com/papercomputeco/chatline/proxy"
)

const serveLongDesc string = `Run the text-to-speech proxy.

The proxy accepts POST /api/tts with {"message", "voice"} and answers
with audio/mpeg from Azure Cognitive Services. Credentials come from
AZURE_SUBSCRIPTION_KEY and AZURE_REGION (or the config file) and never
leave the server.

When a config file is given it is watched; changing voice.default takes
effect without a restart.

Examples:
  chatline serve
  chatline serve --listen :9090 --cache ~/.chatline/audio.db
  chatline serve --config chatline.toml --debug`

const serveShortDesc string = "Run the TTS proxy"

type serveCommander struct {
	listen     string
	cachePath  string
	configPath string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (default from config, :8080)")
	cmd.Flags().StringVar(&cmder.cachePath, "cache", "", "Path to SQLite audio cache (default: in-memory)")
	cmd.Flags().StringVar(&cmder.configPath, "config", "", "Path to TOML config file")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Proxy.ListenAddr = c.listen
	}
	if cmd.Flags().Changed("cache") {
		cfg.Proxy.CachePath = c.cachePath
	}
	if err := cfg.ValidateProxy(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func proxyConfig(cfg config.Config) proxy.Config {
	return proxy.Config{
		ListenAddr: cfg.Proxy.ListenAddr,
		Azure: tts.AzureConfig{
			SubscriptionKey: cfg.Azure.SubscriptionKey,
			Region:          cfg.Azure.Region,
			OutputFormat:    cfg.Azure.OutputFormat,
		},
		DefaultVoice: cfg.Voice.Default,
		CachePath:    cfg.Proxy.CachePath,
	}
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	p, err := proxy.New(proxyConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("could not create proxy: %w", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.configPath != "" {
		go func() {
			err := config.Watch(ctx, c.configPath, log, func(next config.Config) {
				p.SetDefaultVoice(next.Voice.Default)
			})
			if err != nil {
				log.Warn("config watch stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down tts proxy")
		if err := p.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}

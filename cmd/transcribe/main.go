package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rakhabit/deepgram-realtime-transcription/internal/audio"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/auth"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/config"
	"github.com/rakhabit/deepgram-realtime-transcription/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Stream microphone audio to a realtime transcription endpoint",
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a live transcription session until interrupted",
	RunE:  runListen,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a streaming credential and print it",
	RunE:  runToken,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE:  runDevices,
}

func init() {
	rootCmd.PersistentFlags().String("api-base-url", "", "token grant API base URL")
	rootCmd.PersistentFlags().String("bearer-token", "", "bearer token for the grant request")
	rootCmd.PersistentFlags().String("language", "", "transcription language code")
	rootCmd.PersistentFlags().String("service", "", "transcription provider identifier")
	rootCmd.PersistentFlags().Int("device-index", -1, "capture device index (-1 for default)")

	viper.BindPFlag(config.KeyAPIBaseURL, rootCmd.PersistentFlags().Lookup("api-base-url"))
	viper.BindPFlag(config.KeyBearerToken, rootCmd.PersistentFlags().Lookup("bearer-token"))
	viper.BindPFlag(config.KeyLanguage, rootCmd.PersistentFlags().Lookup("language"))
	viper.BindPFlag(config.KeyService, rootCmd.PersistentFlags().Lookup("service"))
	viper.BindPFlag(config.KeyDeviceIndex, rootCmd.PersistentFlags().Lookup("device-index"))

	rootCmd.AddCommand(listenCmd, tokenCmd, devicesCmd)
}

func newLogger(cfg config.Config, prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	return logger.WithPrefix(prefix)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg, "live")

	provider := auth.NewProvider(cfg.APIBaseURL, cfg.BearerToken, newLogger(cfg, "auth"))
	source := audio.NewCapture(config.SampleRate, config.FramesPerBuffer, cfg.DeviceIndex, newLogger(cfg, "mic"))

	ctrl := session.NewController(session.Options{
		Provider:      provider,
		Source:        source,
		StreamingHost: cfg.StreamingHost,
		Language:      cfg.Language,
		Service:       cfg.Service,
		OnUpdate:      printUpdate,
		Logger:        logger,
	})

	if err := ctrl.Start(cmd.Context()); err != nil {
		ctrl.Stop()
		return err
	}

	logger.Info("listening", "session", ctrl.ID(), "language", cfg.Language, "service", cfg.Service)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	ctrl.Stop()

	if segments := ctrl.Transcript().Segments(); len(segments) > 0 {
		fmt.Println()
		fmt.Println(strings.Join(segments, " "))
	}

	return nil
}

// printUpdate renders interim results on one rewritten line and finalized
// segments on their own lines.
func printUpdate(final []string, interim string) {
	if interim != "" {
		fmt.Printf("\r... %s", interim)
		return
	}
	if len(final) > 0 {
		fmt.Printf("\r%s\n", final[len(final)-1])
	}
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	provider := auth.NewProvider(cfg.APIBaseURL, cfg.BearerToken, newLogger(cfg, "auth"))
	cred, err := provider.Grant(context.Background(), "")
	if err != nil {
		return err
	}

	fmt.Printf("access_token: %s\n", cred.AccessToken)
	fmt.Printf("key_type:     %s\n", cred.KeyType)
	fmt.Printf("expires_at:   %s\n", cred.ExpiresAt)
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := audio.ListInputDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("no input devices found")
		return nil
	}

	for _, d := range devices {
		fmt.Printf("%3d  %s (%d ch)\n", d.Index, d.Name, d.Channels)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Command kuzzle-cli probes a Kuzzle backend from the terminal over any of
// the SDK transports.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kuzzleio/go-sdk/pkg/kuzzle"
	"github.com/kuzzleio/go-sdk/pkg/protocol"
	protohttp "github.com/kuzzleio/go-sdk/pkg/protocol/http"
	protomqtt "github.com/kuzzleio/go-sdk/pkg/protocol/mqtt"
	protows "github.com/kuzzleio/go-sdk/pkg/protocol/websocket"
)

func init() {
	viper.SetEnvPrefix("KUZZLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func main() {
	root := &cobra.Command{
		Use:           "kuzzle-cli",
		Short:         "Probe a Kuzzle backend over websocket, http or mqtt",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("host", "localhost", "backend host")
	flags.Int("port", 0, "backend port (defaults to the transport's standard port)")
	flags.String("protocol", "ws", "transport to use: ws, http or mqtt")
	flags.Bool("ssl", false, "use TLS")
	flags.Duration("timeout", 10*time.Second, "per-command timeout")
	flags.Bool("verbose", false, "verbose logging")

	for _, name := range []string{"host", "port", "protocol", "ssl", "timeout", "verbose"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			log.Fatal(err)
		}
	}

	root.AddCommand(nowCommand(), infoCommand(), pingCommand())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// buildClient assembles a client from the persistent flags.
func buildClient() (*kuzzle.Kuzzle, error) {
	logger := log.New()
	if viper.GetBool("verbose") {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	host := viper.GetString("host")
	port := viper.GetInt("port")
	ssl := viper.GetBool("ssl")

	var proto protocol.Protocol
	switch viper.GetString("protocol") {
	case "ws", "websocket":
		opts := []protows.Option{protows.WithSSL(ssl), protows.WithLogger(logger)}
		if port > 0 {
			opts = append(opts, protows.WithPort(port))
		}
		proto = protows.New(host, opts...)
	case "http":
		opts := []protohttp.Option{protohttp.WithSSL(ssl), protohttp.WithLogger(logger)}
		if port > 0 {
			opts = append(opts, protohttp.WithPort(port))
		}
		proto = protohttp.New(host, opts...)
	case "mqtt":
		opts := []protomqtt.Option{protomqtt.WithSSL(ssl), protomqtt.WithLogger(logger)}
		if port > 0 {
			opts = append(opts, protomqtt.WithPort(port))
		}
		proto = protomqtt.New(host, opts...)
	default:
		return nil, fmt.Errorf("unknown protocol %q (expected ws, http or mqtt)", viper.GetString("protocol"))
	}

	return kuzzle.New(proto, kuzzle.WithLogger(logger)), nil
}

// withClient connects, runs fn, then disconnects.
func withClient(fn func(ctx context.Context, k *kuzzle.Kuzzle) error) error {
	k, err := buildClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
	defer cancel()

	if err := k.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := k.Disconnect(); err != nil {
			log.WithError(err).Debug("disconnect")
		}
	}()

	return fn(ctx, k)
}

func nowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Print the backend's current epoch timestamp",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withClient(func(ctx context.Context, k *kuzzle.Kuzzle) error {
				now, err := k.Server.Now(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d (%s)\n", now, time.UnixMilli(now).UTC().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the backend's server description",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withClient(func(ctx context.Context, k *kuzzle.Kuzzle) error {
				info, err := k.Server.Info(ctx)
				if err != nil {
					return err
				}
				fmt.Println(string(info))
				return nil
			})
		},
	}
}

func pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is reachable",
		RunE: func(_ *cobra.Command, _ []string) error {
			start := time.Now()
			return withClient(func(ctx context.Context, k *kuzzle.Kuzzle) error {
				if _, err := k.Server.Now(ctx); err != nil {
					return err
				}
				fmt.Printf("ok (%s, %s)\n", k.State(), time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

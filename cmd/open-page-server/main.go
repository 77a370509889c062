package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/technopolitica/open-page/internal/client"
	"github.com/technopolitica/open-page/internal/config"
	"github.com/technopolitica/open-page/internal/logger"
	"github.com/technopolitica/open-page/internal/server"
)

func loadPublicKey(publicKeyURL *url.URL) (publicKey *rsa.PublicKey, err error) {
	switch publicKeyURL.Scheme {
	case "file":
		filePath := publicKeyURL.Path
		var pemBytes []byte
		pemBytes, err = os.ReadFile(filePath)
		if err != nil {
			return
		}
		pemBlock, _ := pem.Decode(pemBytes)
		if pemBlock == nil {
			err = fmt.Errorf("no PEM data found in %s", filePath)
			return
		}
		if pemBlock.Type != "RSA PUBLIC KEY" {
			err = fmt.Errorf("invalid public key of type %s", pemBlock.Type)
			return
		}
		publicKey, err = x509.ParsePKCS1PublicKey(pemBlock.Bytes)
		return
	default:
		err = fmt.Errorf("unsupported public key source: %s", publicKeyURL.Scheme)
		return
	}
}

var (
	configPath = flag.String("config", "", "path to a YAML config file")
	port       = flag.Int("port", 0, "port to listen on (0 picks a free port)")
	publicKey  = flag.String("public-key", "", "URL to the public key used to sign auth tokens. Currently only file:// URLs are supported.")
	logLevel   = flag.String("log-level", "", "one of debug, info, warn, error")
	logFormat  = flag.String("log-format", "", "one of json, console")
	env        = flag.String("env", "", "one of dev, staging, prod")
)

func loadConfig() (cfg *config.Config, err error) {
	cfg, err = config.Load(*configPath)
	if err != nil {
		return
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "public-key":
			cfg.PublicKey = *publicKey
		case "log-level":
			cfg.Logger.Level = *logLevel
		case "log-format":
			cfg.Logger.Format = *logFormat
		case "env":
			cfg.Logger.Env = *env
		}
	})
	err = cfg.Validate()
	return
}

func main() {
	flag.Parse()
	cfg, err := loadConfig()
	if err != nil {
		log.Print(err)
		flag.Usage()
		os.Exit(1)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %s", err)
	}

	publicKeyURL, err := url.Parse(cfg.PublicKey)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to parse public key as URL")
	}
	if publicKeyURL.Path == "" {
		appLogger.Fatal().Msg("public key url cannot have an empty path")
	}
	key, err := loadPublicKey(publicKeyURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to read public key")
	}

	pageClient := client.New(&http.Client{Timeout: 10 * time.Second}, appLogger)
	router := server.New(*key, pageClient, appLogger)
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to listen on specified address")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan error, 1)
	go func() {
		done <- httpServer.Serve(listener)
	}()
	appLogger.Info().Str("addr", fmt.Sprintf("http://%s", listener.Addr())).Msg("listening")

	select {
	case err = <-done:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	case <-ctx.Done():
		appLogger.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"

	"vanrent/internal/config"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
)

type GRPCServer struct {
	cfg      *config.APIConfig
	server   *grpc.Server
	listener net.Listener
	log      zerolog.Logger
}

// NewGRPCServer listens on the configured port. Pass lis to serve on an
// existing listener instead (tests use bufconn).
func NewGRPCServer(cfg *config.APIConfig, bookings Bookings, limiter *RateLimiter, lis net.Listener, logger *zerolog.Logger) (*GRPCServer, error) {
	if lis == nil {
		addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		var err error
		lis, err = net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
		}
	}

	auth := NewAuthInterceptor(cfg, limiter)
	unary := ChainUnaryInterceptors(
		RecoveryUnaryInterceptor(logger),
		LoggingUnaryInterceptor(logger),
		auth.Unary(),
	)

	serverOpts := []grpc.ServerOption{grpc.UnaryInterceptor(unary)}
	if cfg.GRPC.TLS.Enabled {
		tlsCfg, err := buildTLSConfig(cfg.GRPC.TLS)
		if err != nil {
			_ = lis.Close()
			return nil, err
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	grpcServer := grpc.NewServer(serverOpts...)
	RegisterQuoteServiceServer(grpcServer, newQuoteService(bookings))

	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	serverLogger := zerolog.Nop()
	if logger != nil {
		serverLogger = logger.With().Str("component", "grpc").Logger()
	}

	return &GRPCServer{
		cfg:      cfg,
		server:   grpcServer,
		listener: lis,
		log:      serverLogger,
	}, nil
}

var errTLSConfig = errors.New("api.grpc: invalid tls config")

// buildTLSConfig loads the server keypair and, for mutual TLS, the pool of
// accepted client CAs.
func buildTLSConfig(cfg config.APITLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("%w: cert_file and key_file are required", errTLSConfig)
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: keypair: %v", errTLSConfig, err)
	}

	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if !cfg.RequireClientCert {
		return tlsCfg, nil
	}

	pool, err := loadClientCAs(cfg.ClientCAFile)
	if err != nil {
		return nil, err
	}
	tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	tlsCfg.ClientCAs = pool
	return tlsCfg, nil
}

func loadClientCAs(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: client_ca_file is required with require_client_cert", errTLSConfig)
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: client ca: %v", errTLSConfig, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: client ca %s holds no PEM certificates", errTLSConfig, path)
	}
	return pool, nil
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

// Shutdown drains in-flight calls until ctx ends or the configured
// shutdown timeout passes, whichever comes first, then stops hard.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout())
	defer cancel()

	drained := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.log.Warn().Dur("timeout", s.cfg.ShutdownTimeout()).Msg("gRPC drain did not finish, stopping")
		s.server.Stop()
	}
}

package api

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadCatalog       = "read:catalog"
	permReadSlots         = "read:slots"
	permWriteQuotes       = "write:quotes"
	permReadReservations  = "read:reservations"
	permWriteReservations = "write:reservations"
)

// keyring checks API key pairs and their permissions for both transports.
type keyring struct {
	apiKeyHeader string
	extraHeader  string
	clients      map[string]config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &keyring{apiKeyHeader: apiKeyHeader, extraHeader: extraHeader, clients: m}
}

func (k *keyring) authenticate(apiKey, extra, required string) error {
	if apiKey == "" || extra == "" {
		return errMissingAPIKey
	}

	client, ok := k.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}
	return checkPermissions(client, required)
}

func checkPermissions(client config.APIClientKey, required string) error {
	if required == "" {
		return nil
	}

	// If permissions list is empty, treat as allow-all.
	if len(client.Permissions) == 0 {
		return nil
	}

	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

type AuthInterceptor struct {
	cfg     *config.APIConfig
	keys    *keyring
	limiter *RateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig, limiter *RateLimiter) *AuthInterceptor {
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimit)
	}
	return &AuthInterceptor{
		cfg:     cfg,
		keys:    newKeyring(cfg.Auth),
		limiter: limiter,
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.cfg.Enabled {
			return handler(ctx, req)
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(ctx, info.FullMethod); err != nil {
				return nil, err
			}
		}
		if !a.limiter.Allow(a.clientKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimitExceeded.Error())
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKey := first(md.Get(a.keys.apiKeyHeader))
	extra := first(md.Get(a.keys.extraHeader))
	if err := a.keys.authenticate(apiKey, extra, requiredPermission(fullMethod)); err != nil {
		return grpcError(err)
	}
	return nil
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodGetQuote, methodValidateDiscount:
		return permWriteQuotes
	case methodListSlots:
		return permReadSlots
	default:
		return ""
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))
		reqLog := base.With().Str("request_id", requestID).Logger()
		ctx = reqLog.WithContext(ctx)

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}
		metrics.IncGRPC(info.FullMethod, code.String())

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		reqLog.Info().
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

const requestIDMetadataKey = "x-request-id"

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}

package server

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/technopolitica/open-page/internal/client"
	"github.com/technopolitica/open-page/internal/domain"
)

type authClaims struct {
	jwt.RegisteredClaims
	domain.AuthInfo
}

// MaxRequestBytes bounds request bodies. Larger bodies fail to decode.
const MaxRequestBytes = 10 << 20

type contextKey int

const (
	ContextKeyAuth contextKey = iota
)

func GetAuthInfo(r *http.Request) (auth domain.AuthInfo) {
	ctx := r.Context()
	auth, ok := ctx.Value(ContextKeyAuth).(domain.AuthInfo)
	if !ok {
		panic("missing required AuthInfo")
	}
	return
}

// Env holds what the route handlers share.
type Env struct {
	pageClient *client.Client
}

func parseBearerToken(r *http.Request) (bearerToken string, err error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		err = fmt.Errorf("missing required Authorization header")
		return
	}
	bearerToken, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		err = fmt.Errorf("unsupported or malformed Authorization header (only Bearer scheme is supported)")
		return
	}
	if bearerToken == "" {
		err = fmt.Errorf("malformed Authorization header missing bearer token")
	}
	return
}

func checkAuthentication(r *http.Request, publicKey *rsa.PublicKey) (authInfo domain.AuthInfo, err error) {
	bearerToken, err := parseBearerToken(r)
	if err != nil {
		return
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name}))
	var claims authClaims
	authToken, err := parser.ParseWithClaims(bearerToken, &claims, func(t *jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		err = fmt.Errorf("invalid auth token: %w", err)
		return
	}
	if !authToken.Valid {
		err = fmt.Errorf("invalid auth token")
		return
	}
	if claims.ClientID == uuid.Nil {
		err = fmt.Errorf("invalid auth token: missing client_id claim")
		return
	}
	authInfo = claims.AuthInfo
	return
}

func authentication(publicKey *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authInfo, err := checkAuthentication(r, publicKey)
			if err != nil {
				hlog.FromRequest(r).Info().Err(err).Msg("rejected unauthenticated request")
				w.Header().Set("WWW-Authenticate", `Bearer, charset="UTF-8"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), ContextKeyAuth, authInfo))
			next.ServeHTTP(w, r)
		})
	}
}

func addHostToRequestURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Host = r.Host
		if r.TLS != nil {
			r.URL.Scheme = "https"
		} else {
			r.URL.Scheme = "http"
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// FIXME: a JWKS endpoint would let keys rotate without a restart.
func New(publicKey rsa.PublicKey, pageClient *client.Client, logger zerolog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(hlog.NewHandler(logger))
	router.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	router.Use(hlog.AccessHandler(accessLog))
	router.Use(middleware.Recoverer)
	router.Use(middleware.AllowContentType("application/json"))
	router.Use(middleware.RequestSize(MaxRequestBytes))
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.Timeout(15 * time.Second))
	router.Use(addHostToRequestURL)
	router.Use(authentication(&publicKey))

	env := &Env{pageClient: pageClient}
	router.Mount("/pages", NewPagesRouter(env))

	return router
}

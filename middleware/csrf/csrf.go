package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key must be at least 32 bytes")
)

const (
	DefaultTokenLength   = 32
	DefaultContextKey    = "csrf"
	DefaultFormFieldName = "_csrf"
	DefaultHeaderName    = "X-CSRF-Token"
)

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// TokenLength is the nonce size in bytes
	TokenLength int

	// ContextKey holds the issued token in locals, templates read it from there
	ContextKey string

	FormFieldName string
	HeaderName    string

	// TokenLookup defines where to look for the token, e.g.
	// "form:_csrf,header:X-CSRF-Token"
	TokenLookup string

	ErrorHandler   router.ErrorHandler
	SuccessHandler router.HandlerFunc

	// SafeMethods are issued a token but never validated
	SafeMethods []string

	// Expiration bounds the age of an accepted token
	Expiration time.Duration

	// SecureKey signs tokens, at least 32 bytes
	SecureKey []byte

	// SessionKey binds tokens to a client. Defaults to the session id,
	// then the user id, then the client IP.
	SessionKey func(router.Context) string
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(router.Context) string

// New returns a middleware that issues a signed token on every request
// and validates it on unsafe methods.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)
	extractors := getExtractors(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := generateToken(cfg, cfg.SessionKey(ctx), time.Now())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			if slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				return cfg.SuccessHandler(ctx)
			}

			received := ""
			for _, extractor := range extractors {
				if received = extractor(ctx); received != "" {
					break
				}
			}

			if err := validateToken(cfg, received, cfg.SessionKey(ctx), time.Now()); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// Token returns the token issued for the current request
func Token(ctx router.Context, contextKey ...string) string {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}
	token, _ := ctx.Locals(key).(string)
	return token
}

func generateToken(cfg Config, sessionKey string, now time.Time) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", now.UTC().Unix(), hex.EncodeToString(nonce), sessionKey)
	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(cfg Config, token, sessionKey string, now time.Time) error {
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	// the session key may contain ':' (IPv6), split off the known fields
	raw := string(decoded)
	sigIdx := strings.LastIndex(raw, ":")
	if sigIdx < 0 {
		return ErrTokenMismatch
	}
	payload, signatureHex := raw[:sigIdx], raw[sigIdx+1:]

	parts := strings.SplitN(payload, ":", 3)
	if len(parts) != 3 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, payload)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(sessionKey)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 && now.UTC().After(time.Unix(timestamp, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func defaultSessionKey(ctx router.Context) string {
	if id, ok := ctx.Locals("session_id").(string); ok && id != "" {
		return "session_" + id
	}
	if id, ok := ctx.Locals("user_id").(string); ok && id != "" {
		return "user_" + id
	}
	return "ip_" + ctx.IP()
}

func getExtractors(cfg Config) []TokenExtractor {
	if cfg.TokenLookup == "" {
		return []TokenExtractor{
			extractorFromForm(cfg.FormFieldName),
			extractorFromHeader(cfg.HeaderName),
		}
	}

	var extractors []TokenExtractor
	for _, part := range strings.Split(cfg.TokenLookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		switch source {
		case "form":
			extractors = append(extractors, extractorFromForm(name))
		case "header":
			extractors = append(extractors, extractorFromHeader(name))
		}
	}
	return extractors
}

func extractorFromForm(fieldName string) TokenExtractor {
	return func(ctx router.Context) string {
		return ctx.FormValue(fieldName)
	}
}

func extractorFromHeader(headerName string) TokenExtractor {
	return func(ctx router.Context) string {
		return ctx.Header(headerName)
	}
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if len(cfg.SecureKey) < 32 {
		panic(ErrSecureKeyMissing)
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = time.Hour
	}

	if cfg.SessionKey == nil {
		cfg.SessionKey = defaultSessionKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	return cfg
}

// DefaultErrorHandler answers 403 for every rejected token
func DefaultErrorHandler(ctx router.Context, err error) error {
	msg := "Invalid CSRF token"
	if errors.Is(err, ErrTokenMissing) {
		msg = "Missing CSRF token"
	}
	return ctx.JSON(router.StatusForbidden, map[string]string{
		"error": msg,
	})
}

package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"contentgen/internal/identity"
	"contentgen/internal/infra/google"
)

// TokenClaims are the session-token claims this service signs and verifies.
type TokenClaims struct {
	Sub      string `json:"sub"`
	Name     string `json:"name"`
	Exp      int64  `json:"exp"`
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
}

type authKey string

const (
	principalKey authKey = "principal"
	bearerKey    authKey = "bearer"
)

func SignJWT(secret string, claims TokenClaims) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(claims)
	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	data := headerEnc + "." + payloadEnc
	sig := hmacSign(secret, data)
	return data + "." + sig, nil
}

func hmacSign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func VerifyJWT(secret, token string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token")
	}
	expected := hmacSign(secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, err
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}

// IDTokenVerifier validates tokens issued by an external identity provider,
// tried when the service's own HS256 verification fails.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*google.Claims, error)
}

// Auth verifies a required bearer token and installs the principal and the
// raw credential into the request context.
func Auth(secret string, verifiers ...IDTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerFromHeader(r)
			if !ok {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			ctx, err := verifyBearer(r.Context(), secret, raw, verifiers)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthOptional verifies a bearer token when one is present. Requests without
// an Authorization header pass through as anonymous; requests with an invalid
// token are rejected rather than silently downgraded.
func AuthOptional(secret string, verifiers ...IDTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerFromHeader(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := verifyBearer(r.Context(), secret, raw, verifiers)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyBearer(ctx context.Context, secret, raw string, verifiers []IDTokenVerifier) (context.Context, error) {
	claims, err := VerifyJWT(secret, raw)
	if err == nil {
		return withPrincipal(ctx, claims, raw), nil
	}
	for _, v := range verifiers {
		if v == nil {
			continue
		}
		external, vErr := v.VerifyIDToken(ctx, raw)
		if vErr != nil {
			continue
		}
		return withPrincipal(ctx, &TokenClaims{Sub: external.Subject, Name: external.Name}, raw), nil
	}
	return nil, err
}

func bearerFromHeader(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func withPrincipal(ctx context.Context, claims *TokenClaims, rawToken string) context.Context {
	ctx = context.WithValue(ctx, principalKey, identity.Principal{ID: claims.Sub, DisplayName: claims.Name})
	return context.WithValue(ctx, bearerKey, rawToken)
}

// CallerFromContext rebuilds the request's caller: the verified principal
// with its presented credential as the token source, or the anonymous caller.
func CallerFromContext(ctx context.Context) identity.Caller {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	if !ok {
		return identity.Anonymous
	}
	raw, _ := ctx.Value(bearerKey).(string)
	return identity.Caller{Principal: &p, Tokens: identity.StaticTokenSource(raw)}
}

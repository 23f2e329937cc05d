package google

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAudienceMatches(t *testing.T) {
	cases := []struct {
		name     string
		aud      any
		clientID string
		want     bool
	}{
		{name: "string match", aud: "client", clientID: "client", want: true},
		{name: "string mismatch", aud: "client", clientID: "other", want: false},
		{name: "slice any match", aud: []any{"other", "client"}, clientID: "client", want: true},
		{name: "slice any mismatch", aud: []any{"other", 1}, clientID: "client", want: false},
		{name: "slice string match", aud: []string{"client", "alt"}, clientID: "client", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := audienceMatches(tc.aud, tc.clientID); got != tc.want {
				t.Fatalf("audienceMatches(%v, %q) = %v, want %v", tc.aud, tc.clientID, got, tc.want)
			}
		})
	}
}

type testIssuer struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	iss := &testIssuer{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"jwks_uri": iss.server.URL + "/jwks"})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub := key.Public().(*rsa.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": "test-key",
				"kty": "RSA",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString([]byte{0x01, 0x00, 0x01}),
			}},
		})
	})
	iss.server = httptest.NewServer(mux)
	t.Cleanup(iss.server.Close)
	return iss
}

func (iss *testIssuer) sign(t *testing.T, payload map[string]any) string {
	t.Helper()
	header, _ := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	body, _ := json.Marshal(payload)
	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(body)
	hashed := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, iss.key, crypto.SHA256, hashed[:])
	if err != nil {
		t.Fatalf("SignPKCS1v15: %v", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestVerifyIDToken(t *testing.T) {
	iss := newTestIssuer(t)
	v := NewVerifier(iss.server.URL, "my-client", iss.server.Client())

	token := iss.sign(t, map[string]any{
		"iss":   iss.server.URL,
		"aud":   "my-client",
		"sub":   "google-uid-1",
		"name":  "Ada",
		"email": "ada@example.com",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	})

	claims, err := v.VerifyIDToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if claims.Subject != "google-uid-1" || claims.Name != "Ada" || claims.Email != "ada@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyIDTokenRejects(t *testing.T) {
	iss := newTestIssuer(t)
	v := NewVerifier(iss.server.URL, "my-client", iss.server.Client())

	base := map[string]any{
		"iss": iss.server.URL,
		"aud": "my-client",
		"sub": "google-uid-1",
		"exp": float64(time.Now().Add(time.Hour).Unix()),
	}

	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "wrong audience", mutate: func(p map[string]any) { p["aud"] = "someone-else" }},
		{name: "wrong issuer", mutate: func(p map[string]any) { p["iss"] = "https://evil.example" }},
		{name: "expired", mutate: func(p map[string]any) { p["exp"] = float64(time.Now().Add(-time.Minute).Unix()) }},
		{name: "missing subject", mutate: func(p map[string]any) { delete(p, "sub") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := map[string]any{}
			for k, v := range base {
				payload[k] = v
			}
			tc.mutate(payload)
			if _, err := v.VerifyIDToken(context.Background(), iss.sign(t, payload)); err == nil {
				t.Fatal("expected verification failure")
			}
		})
	}

	t.Run("tampered signature", func(t *testing.T) {
		token := iss.sign(t, base)
		if _, err := v.VerifyIDToken(context.Background(), token+"x"); err == nil {
			t.Fatal("expected verification failure")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := v.VerifyIDToken(context.Background(), "not.a.token"); err == nil {
			t.Fatal("expected verification failure")
		}
	})
}

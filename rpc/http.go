package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// AuthService signs and validates the bearer tokens an HTTP-mode serve
// session requires when a secret is configured. An empty secret disables
// token checking entirely, matching stdio serve mode's implicit trust.
type AuthService struct {
	secret string
}

// NewAuthService creates an AuthService for secret. An empty secret means
// every request is accepted without a token.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: secret}
}

// IssueToken mints a bearer token for a client, valid for ttl.
func (a *AuthService) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{"sub": subject, "iat": now.Unix(), "exp": now.Add(ttl).Unix()}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.secret))
}

func (a *AuthService) validate(tokenString string) error {
	if a.secret == "" {
		return nil
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return ErrUnauthorized
	}
	return nil
}

// ErrUnauthorized is returned for a missing or invalid bearer token.
var ErrUnauthorized = errors.New("rpc: unauthorized")

// bearerToken extracts a token from the Authorization header or the
// `token` query parameter, the way the WebSocket upgrade handshake
// carries credentials that an HTTP header would on a plain request.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authMiddleware rejects requests whose bearer token doesn't validate
// against auth's secret. When auth has no secret configured, every
// request passes through.
func authMiddleware(auth *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.validate(bearerToken(r)); err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rpcRequest and rpcResponse mirror JSON-RPC 2.0's wire shape, matching
// what the stdio transport already speaks via go.lsp.dev/jsonrpc2, so a
// client can reuse the same request builder against either transport.
type rpcRequest struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result interface{}     `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewHTTPHandler builds the chi router `shellkit serve --port` mounts: a
// single-shot POST /rpc endpoint for request/response calls, and a
// GET /ws endpoint for a long-lived connection a client keeps open across
// many calls (what executeStreaming needs to push partial output over).
func NewHTTPHandler(d *Dispatcher, auth *AuthService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware(auth))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := dispatchOne(r.Context(), d, req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWebsocket(d, w, r)
	})

	return r
}

func dispatchOne(ctx context.Context, d *Dispatcher, req rpcRequest) rpcResponse {
	result, err := d.Dispatch(ctx, req.Method, req.Params)
	resp := rpcResponse{ID: req.ID}
	if err != nil {
		resp.Error = &rpcError{Message: err.Error()}
		return resp
	}
	resp.Result = result
	return resp
}

// serveWebsocket upgrades the connection and serves JSON-RPC requests
// over it until the client disconnects, one request per inbound frame.
// executeStreaming's partial-output behavior has no separate wire
// message yet; a served session today returns only the final result, the
// same as over stdio.
func serveWebsocket(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.kernel.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := dispatchOne(ctx, d, req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

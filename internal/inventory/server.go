package inventory

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
)

const defaultMaxUpload = 10 << 20

// Server serves the stock and bill API and the embedded UI
type Server struct {
	service   *Service
	basicAuth BasicAuth
	version   string
	maxUpload int64
	schemas   requestSchemas
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials. Both empty disables auth.
type BasicAuth struct {
	Username string
	Password string
}

// ServerConfig configures a Server
type ServerConfig struct {
	BasicAuth BasicAuth
	Version   string
	// MaxUploadBytes caps bill uploads; zero means 10 MB
	MaxUploadBytes int64
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, cfg ServerConfig) (*Server, error) {
	return NewServerWithMux(service, cfg, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, cfg ServerConfig, mux *http.ServeMux) (*Server, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("loading request schemas: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}

	s := &Server{
		service:   service,
		basicAuth: cfg.BasicAuth,
		version:   cfg.Version,
		maxUpload: cfg.MaxUploadBytes,
		schemas:   schemas,
		mux:       mux,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Quantify"`)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// cors sets CORS headers on every response and answers preflight requests
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// registerRoutes registers every route; literal segments such as
// /api/stocks/export take precedence over {sku} wildcards
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api", s.requireAuth(s.handleAPIIndex))

	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /static/app.js", s.requireAuth(s.handleStaticJS))

	s.mux.HandleFunc("GET /api/stocks/export", s.requireAuth(s.handleExportStocks))
	s.mux.HandleFunc("PATCH /api/stocks/batch", s.requireAuth(s.handleBatchUpdate))
	s.mux.HandleFunc("GET /api/stocks/{sku}", s.requireAuth(s.handleGetStock))
	s.mux.HandleFunc("PUT /api/stocks/{sku}", s.requireAuth(s.handleUpdateStock))
	s.mux.HandleFunc("DELETE /api/stocks/{sku}", s.requireAuth(s.handleDeleteStock))
	s.mux.HandleFunc("GET /api/stocks", s.requireAuth(s.handleListStocks))
	s.mux.HandleFunc("POST /api/stocks", s.requireAuth(s.handleCreateStock))

	s.mux.HandleFunc("POST /api/items/validate", s.requireAuth(s.handleValidateItems))

	s.mux.HandleFunc("POST /api/bills/text", s.requireAuth(s.handleParseText))
	s.mux.HandleFunc("POST /api/bills/{id}/apply", s.requireAuth(s.handleApplyBill))
	s.mux.HandleFunc("GET /api/bills/{id}/file", s.requireAuth(s.handleGetBillFile))
	s.mux.HandleFunc("GET /api/bills/{id}", s.requireAuth(s.handleGetBill))
	s.mux.HandleFunc("DELETE /api/bills/{id}", s.requireAuth(s.handleDeleteBill))
	s.mux.HandleFunc("GET /api/bills", s.requireAuth(s.handleListBills))
	s.mux.HandleFunc("POST /api/bills", s.requireAuth(s.handleUploadBill))

	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cors(s.mux).ServeHTTP(w, r)
}

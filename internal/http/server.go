package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"wonchon/internal/api"
	"wonchon/internal/auth"
	"wonchon/internal/core"
	applog "wonchon/internal/log"
	"wonchon/internal/metrics"
	"wonchon/internal/middleware/ratelimit"
	"wonchon/internal/middleware/security"
	"wonchon/internal/middleware/trace"
	"wonchon/internal/services"
	"wonchon/internal/storage"
	appweb "wonchon/web"
)

const (
	hasTokenCookie = auth.HasTokenKey
	loginProvider  = "KAKAO"
	staticMaxAge   = 86400
	requestTimeout = 10 * time.Second
)

// TokenStore is the slice of auth.TokenStore the server needs.
type TokenStore interface {
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	HasToken(ctx context.Context) bool
}

// LoginProvider resolves the social login page.
type LoginProvider interface {
	SocialLoginURL(ctx context.Context, provider string) (string, error)
}

// ReceiptSource downloads filing receipts.
type ReceiptSource interface {
	Receipt(ctx context.Context, businessID int64, jobID string) ([]byte, error)
}

// DocumentStore lists and reads generated documents.
type DocumentStore interface {
	ListDocuments(ctx context.Context, f storage.DocumentFilter) ([]core.Document, error)
	GetDocument(ctx context.Context, id string) (core.Document, error)
}

var (
	_ TokenStore    = (*auth.TokenStore)(nil)
	_ LoginProvider = (*api.Client)(nil)
	_ ReceiptSource = (*api.Client)(nil)
	_ DocumentStore = (*storage.SQLiteRepository)(nil)
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(context.Context) error
}

// Deps are the collaborators behind the pages. Documents may be nil, in
// which case the documents page lists nothing.
type Deps struct {
	Tokens       TokenStore
	Login        LoginProvider
	Receipts     ReceiptSource
	Businesses   *services.BusinessService
	Declarations *services.DeclarationService
	Documents    DocumentStore
	Checks       []ReadinessCheck

	Logger             *applog.Logger
	RateLimitPerMinute int
	// ExposeMetrics serves /metrics on this server. Leave it off when a
	// separate metrics port is configured.
	ExposeMetrics bool
	Now           func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	logger    *applog.Logger
	now       func() time.Time
	started   time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	trace       *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		deps:     deps,
		logger:   deps.Logger,
		now:      deps.Now,
		started:  deps.Now(),
		detector: security.NewDetector(deps.Logger.WithComponent(applog.ComponentSecurity)),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}
	s.trace = trace.NewMiddleware(s.detector.ClientIP, deps.Logger.WithComponent(applog.ComponentHTTP))

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	s.routes(mux)

	limited := s.rateLimiter.Middleware(s.detector.ClientIP, ratelimit.Mutating, s.onRateLimit)(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := s.trace.Middleware(s.detector.Middleware(headers.Middleware(s.requireLogin(limited))))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.deps.ExposeMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("POST /login", s.handleLoginStart)
	mux.HandleFunc("GET /login/success", s.handleLoginSuccess)
	mux.HandleFunc("GET /login/fail", s.handleLoginFail)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.HandleFunc("GET /home", s.handleHome)
	mux.HandleFunc("GET /business/register", s.handleRegisterPage)
	mux.HandleFunc("GET /business/register/lookup", s.handleLookup)
	mux.HandleFunc("POST /business/register", s.handleRegister)
	mux.HandleFunc("GET /business/{id}", s.handleBusiness)
	mux.HandleFunc("GET /business/{id}/receipt/{jobId}", s.handleReceipt)
	mux.HandleFunc("POST /business/{id}/filer", s.handleFilerInfo)
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("POST /profile", s.handleUpdateProfile)

	mux.HandleFunc("POST /business/{id}/declaration/start", s.handleStartDeclaration)
	mux.HandleFunc("GET /business/{id}/declaration", s.handleDeclaration)
	mux.HandleFunc("GET /business/{id}/declaration/status", s.handleDeclarationStatus)
	mux.HandleFunc("POST /business/{id}/declaration/next", s.wizardAction(actionNext))
	mux.HandleFunc("POST /business/{id}/declaration/back", s.wizardAction(actionBack))
	mux.HandleFunc("POST /business/{id}/declaration/edit", s.wizardAction(actionEditEarners))
	mux.HandleFunc("POST /business/{id}/declaration/earners", s.wizardAction(actionAddEarner))
	mux.HandleFunc("POST /business/{id}/declaration/earners/form", s.wizardAction(actionUpdateEarner))
	mux.HandleFunc("POST /business/{id}/declaration/earners/save-and-add", s.wizardAction(actionSaveAndAdd))
	mux.HandleFunc("POST /business/{id}/declaration/earners/delete", s.wizardAction(actionDeleteEarner))
	mux.HandleFunc("POST /business/{id}/declaration/earners/{index}/edit", s.wizardAction(actionEditEarner))
	mux.HandleFunc("POST /business/{id}/declaration/submit", s.handleSubmit)

	mux.HandleFunc("GET /documents", s.handleDocuments)
	mux.HandleFunc("GET /documents/{id}", s.handleDocumentDownload)
}

// Shutdown stops the rate limiter and the HTTP server. Open declaration
// sessions are closed by their owner.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// publicPath lists what is reachable without logging in.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return auth.IsPublicPath(path) || strings.HasPrefix(path, "/static/")
}

// requireLogin sends visitors without a token to /login.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) || s.loggedIn(r) {
			next.ServeHTTP(w, r)
			return
		}
		redirect(w, r, "/login")
	})
}

// loggedIn needs both the browser cookie and a stored token. The token is
// cleared when the API answers 401.
func (s *Server) loggedIn(r *http.Request) bool {
	c, err := r.Cookie(hasTokenCookie)
	if err != nil || c.Value != "true" {
		return false
	}
	return s.deps.Tokens != nil && s.deps.Tokens.HasToken(r.Context())
}

func (s *Server) setLoginCookie(w http.ResponseWriter, r *http.Request, on bool) {
	c := &http.Cookie{
		Name:     hasTokenCookie,
		Value:    "true",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60,
	}
	if !on {
		c.Value = ""
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.").Write(w)
}

// render executes a named template. Output is buffered so a failing
// template never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// fail maps a service error to a response. An expired token logs the user
// out; anything else is logged and shown as a toast.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, api.ErrUnauthorized) {
		s.setLoginCookie(w, r, false)
		redirect(w, r, "/login")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Request timed out", applog.FieldPath, r.URL.Path, applog.FieldError, err)
		ErrorResponse(http.StatusGatewayTimeout, "응답이 늦어지고 있어요. 잠시 후 다시 시도해주세요.").Write(w)
		return
	}

	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.FieldPath, r.URL.Path,
		applog.FieldMethod, r.Method,
		applog.FieldError, err)

	var se *api.StatusError
	if errors.As(err, &se) {
		BadGatewayError(msg).Write(w)
		return
	}
	InternalServerError(msg).Write(w)
}

// pageMeta is embedded in every full-page view model.
type pageMeta struct {
	Title string
	Nav   string
}

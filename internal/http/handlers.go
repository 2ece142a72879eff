package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	applog "wonchon/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady probes templates and every configured dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for _, c := range s.deps.Checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}
	stats := s.trace.Stats()
	checks["requests"] = map[string]any{
		"total":     stats.TotalRequests,
		"in_flight": stats.InFlight,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// requireLogin already sent anonymous visitors to /login.
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.loggedIn(r) {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login_page", pageMeta{Title: "로그인"})
}

// handleLoginStart sends the browser to the social login page.
func (s *Server) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if s.deps.Login == nil {
		InternalServerError("로그인을 사용할 수 없습니다.").Write(w)
		return
	}
	loginURL, err := s.deps.Login.SocialLoginURL(ctx, loginProvider)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch social login url", applog.FieldError, err)
		BadGatewayError("카카오 로그인 요청에 실패했습니다. 다시 시도해주세요.").Write(w)
		return
	}
	redirect(w, r, loginURL)
}

// handleLoginSuccess stores the token handed back by the login callback.
func (s *Server) handleLoginSuccess(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("accessToken"))
	if token == "" {
		http.Redirect(w, r, "/login/fail?error="+url.QueryEscape("토큰이 전달되지 않았습니다."), http.StatusSeeOther)
		return
	}
	if err := s.deps.Tokens.SetToken(r.Context(), token); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to store access token", applog.FieldError, err)
		http.Redirect(w, r, "/login/fail?error="+url.QueryEscape("로그인 정보를 저장하지 못했습니다."), http.StatusSeeOther)
		return
	}
	s.setLoginCookie(w, r, true)
	s.logger.InfoContext(r.Context(), "Logged in", applog.FieldClientIP, s.detector.ClientIP(r))
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleLoginFail(w http.ResponseWriter, r *http.Request) {
	msg := sanitizeInput(r.URL.Query().Get("error"))
	if msg == "" {
		msg = "로그인에 실패했습니다."
	}
	s.render(w, r, http.StatusOK, "login_fail_page", struct {
		pageMeta
		Message string
	}{pageMeta{Title: "로그인 실패"}, msg})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tokens.Clear(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to clear access token", applog.FieldError, err)
	}
	s.setLoginCookie(w, r, false)
	redirect(w, r, "/login")
}

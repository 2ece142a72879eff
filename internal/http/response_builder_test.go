package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyHTML("<p>test</p>").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "<p>test</p>" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "<p>test</p>")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerWizardUpdated("review").
		TriggerModalClose().
		TriggerSuccessNotification("사업장이 등록되었어요.").
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"wizard:updated", "modal:close", "show-notification"} {
		if _, ok := got[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}
	if !strings.Contains(string(got["wizard:updated"]), `"step":"review"`) {
		t.Errorf("wizard:updated = %s", got["wizard:updated"])
	}
}

func TestHTMXResponseBuilder_RedirectAndHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Redirect("/home").
		Retarget("#modal").
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("HX-Redirect") != "/home" {
		t.Errorf("HX-Redirect = %q", w.Header().Get("HX-Redirect"))
	}
	if w.Header().Get("HX-Retarget") != "#modal" {
		t.Errorf("HX-Retarget = %q", w.Header().Get("HX-Retarget"))
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("잘못된 요청"), http.StatusBadRequest, `<div class="error">잘못된 요청</div>`},
		{"unprocessable entity", UnprocessableEntityError("입력 오류"), http.StatusUnprocessableEntity, `<div class="error">입력 오류</div>`},
		{"conflict", ConflictError("진행 중"), http.StatusConflict, `<div class="error">진행 중</div>`},
		{"bad gateway", BadGatewayError("요청 실패"), http.StatusBadGateway, `<div class="error">요청 실패</div>`},
		{"internal server error", InternalServerError("오류"), http.StatusInternalServerError, `<div class="error">오류</div>`},
		{"not found", NotFoundError("없음"), http.StatusNotFound, `<div class="error">없음</div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("missing error toast: %s", w.Header().Get("HX-Trigger"))
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()

	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Error("Error response did not escape HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("Error response did not properly escape HTML entities")
	}
}

func TestNotificationTypes(t *testing.T) {
	tests := []struct {
		notifType NotificationType
		want      string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		NewHTMXResponse().
			TriggerNotification(tt.notifType, "test", 1000).
			Write(w)

		trigger := w.Header().Get("HX-Trigger")
		if !strings.Contains(trigger, `"type":"`+tt.want+`"`) {
			t.Errorf("Notification type %q not found in trigger: %s", tt.want, trigger)
		}
	}
}

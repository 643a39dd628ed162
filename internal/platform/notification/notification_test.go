package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()

	body, err := e.Render("access-requested", map[string]string{"clinician_name": "Bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Dr. Bob") {
		t.Errorf("expected clinician name in body, got %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	e := NewTemplateEngine()
	if _, err := e.Render("no-such-template", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateEngine_LeavesUnknownKeys(t *testing.T) {
	e := NewTemplateEngine()
	body, err := e.Render("appointment-reminder", map[string]string{"provider": "Dr. Smith"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "{{date}}") {
		t.Errorf("expected unfilled placeholder preserved, got %q", body)
	}
}

func TestDispatcher_Success(t *testing.T) {
	mock := &MockSMSSender{}
	d := NewDispatcher(mock, NewTemplateEngine(), zerolog.Nop())

	res := d.SendAccessApproved(context.Background(), "+15550001111", "Alice")
	if !res.Success {
		t.Fatalf("expected success, got err %v", res.Err)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "+15550001111" {
		t.Errorf("expected recipient +15550001111, got %s", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "Alice") {
		t.Errorf("expected patient name in body, got %q", calls[0].Body)
	}
}

func TestDispatcher_SenderFailure(t *testing.T) {
	mock := &MockSMSSender{ShouldFail: true, FailError: "carrier down"}
	d := NewDispatcher(mock, NewTemplateEngine(), zerolog.Nop())

	res := d.SendAccessRejected(context.Background(), "+15550001111", "Alice")
	if res.Success {
		t.Error("expected failure result")
	}
	if res.Err == nil {
		t.Error("expected error in result")
	}
}

func TestDispatcher_MissingRecipient(t *testing.T) {
	mock := &MockSMSSender{}
	d := NewDispatcher(mock, NewTemplateEngine(), zerolog.Nop())

	res := d.SendAccessRequested(context.Background(), "", "Bob")
	if res.Success {
		t.Error("expected failure for missing phone number")
	}
	if len(mock.Calls()) != 0 {
		t.Error("expected no sender call for missing phone number")
	}
}

func TestDisabledSender_ReportsNotDelivered(t *testing.T) {
	s := NewDisabledSender(zerolog.Nop())
	err := s.SendSMS(context.Background(), "+15550001111", "hello")
	if !errors.Is(err, ErrSMSDisabled) {
		t.Errorf("expected ErrSMSDisabled, got %v", err)
	}
}

func TestTwilioSender_SendSMS(t *testing.T) {
	var gotPath, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		r.ParseForm()
		gotTo = r.PostFormValue("To")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender("AC1", "token", "+15550009999")
	s.BaseURL = srv.URL

	if err := s.SendSMS(context.Background(), "+15550001111", "test body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/Accounts/AC1/Messages.json" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotTo != "+15550001111" {
		t.Errorf("expected To forwarded, got %s", gotTo)
	}
}

func TestTwilioSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number"}`))
	}))
	defer srv.Close()

	s := NewTwilioSender("AC1", "token", "+15550009999")
	s.BaseURL = srv.URL

	err := s.SendSMS(context.Background(), "garbage", "test")
	if err == nil {
		t.Fatal("expected error from API failure")
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Errorf("expected twilio error code in message, got %v", err)
	}
}

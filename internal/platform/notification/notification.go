// Package notification delivers SMS messages for the portal: access-request
// lifecycle notices and appointment reminders. Delivery is best effort; the
// Dispatcher reports failures in its Result and callers log rather than fail.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification message body.
type Template struct {
	ID   string
	Body string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   "access-requested",
			Body: "Dr. {{clinician_name}} has requested access to your medical records. Log in to approve or reject the request.",
		},
		{
			ID:   "access-approved",
			Body: "{{patient_name}} has approved your access request. You can now view and manage their records.",
		},
		{
			ID:   "access-rejected",
			Body: "{{patient_name}} has rejected your access request.",
		},
		{
			ID:   "appointment-reminder",
			Body: "Reminder: you have an appointment with {{provider}} on {{date}}. {{description}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Disabled sender
// ---------------------------------------------------------------------------

// ErrSMSDisabled is returned by the disabled sender so dispatch results show
// success=false without crashing anything.
var ErrSMSDisabled = errors.New("sms delivery is not configured")

type disabledSender struct {
	logger zerolog.Logger
}

// NewDisabledSender returns a sender used when Twilio credentials are absent.
// It logs the intent and reports the message as not delivered.
func NewDisabledSender(logger zerolog.Logger) SMSSender {
	return &disabledSender{logger: logger}
}

func (d *disabledSender) SendSMS(_ context.Context, to, body string) error {
	d.logger.Info().
		Str("to", to).
		Str("body", body).
		Msg("sms delivery disabled; message not sent")
	return ErrSMSDisabled
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender is a test double for SMSSender.
type MockSMSSender struct {
	mu         sync.Mutex
	calls      []SMSCall
	ShouldFail bool
	FailError  string
}

// SendSMS records the call and optionally returns an error.
func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded SMS calls.
func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

// Result describes a single dispatch attempt.
type Result struct {
	Success     bool
	ProviderRef string
	Err         error
}

// Dispatcher renders templates and hands messages to the configured sender.
type Dispatcher struct {
	sender    SMSSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewDispatcher(sender SMSSender, templates *TemplateEngine, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, templates: templates, logger: logger}
}

func (d *Dispatcher) send(ctx context.Context, templateID, to string, data map[string]string) Result {
	if to == "" {
		return Result{Success: false, Err: fmt.Errorf("recipient has no phone number")}
	}

	body, err := d.templates.Render(templateID, data)
	if err != nil {
		return Result{Success: false, Err: err}
	}

	if err := d.sender.SendSMS(ctx, to, body); err != nil {
		d.logger.Warn().Err(err).Str("to", to).Str("template", templateID).Msg("sms dispatch failed")
		return Result{Success: false, Err: err}
	}
	return Result{Success: true}
}

// SendAccessRequested notifies a patient that a clinician wants access.
func (d *Dispatcher) SendAccessRequested(ctx context.Context, to, clinicianName string) Result {
	return d.send(ctx, "access-requested", to, map[string]string{"clinician_name": clinicianName})
}

// SendAccessApproved notifies a clinician that the patient approved.
func (d *Dispatcher) SendAccessApproved(ctx context.Context, to, patientName string) Result {
	return d.send(ctx, "access-approved", to, map[string]string{"patient_name": patientName})
}

// SendAccessRejected notifies a clinician that the patient rejected.
func (d *Dispatcher) SendAccessRejected(ctx context.Context, to, patientName string) Result {
	return d.send(ctx, "access-rejected", to, map[string]string{"patient_name": patientName})
}

// SendAppointmentReminder notifies a patient of an upcoming appointment.
func (d *Dispatcher) SendAppointmentReminder(ctx context.Context, to, provider, date, description string) Result {
	return d.send(ctx, "appointment-reminder", to, map[string]string{
		"provider":    provider,
		"date":        date,
		"description": description,
	})
}

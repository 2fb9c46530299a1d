// Package erpgate implements erp.Session over the HTTP gateway that fronts
// the legacy automation server. The gateway exposes the record protocol
// one-to-one: every cursor call is one blocking round trip, which keeps the
// session semantics of the legacy store intact.
//
// Wire format: JSON. Sessions and cursors are server-side handles.
//
//	POST   /v1/sessions                      {mandant, firma, benutzer, passwort} -> {sessionId}
//	DELETE /v1/sessions/{sid}
//	POST   /v1/sessions/{sid}/recordsets     {name} -> {handle}
//	POST   /v1/sessions/{sid}/special        {code} -> {handle}
//	POST   /v1/recordsets/{handle}           {op, args} -> result envelope
//	POST   /v1/documents/{handle}            {op, args} -> result envelope
//
// Failures carry {error: {code, message}}; well-known codes map onto the
// erp package sentinels.
package erpgate

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
)

// connectionOptions is the validated subset of the gateway configuration a
// factory cannot operate without.
type connectionOptions struct {
	BaseURL string `validate:"required,url"`
	Mandant string `validate:"required"`
}

// Factory opens gateway sessions. It implements erp.SessionFactory; each
// Open call yields an independent server-side session, so independent
// reconciliation runs may hold their own.
type Factory struct {
	http   *resty.Client
	cfg    config.ERPConfig
	logger *zap.Logger
}

// NewFactory creates a session factory against the gateway named in the
// configuration.
func NewFactory(cfg config.ERPConfig, logger *zap.Logger) (*Factory, error) {
	opts := connectionOptions{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		Mandant: cfg.Mandant,
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(opts); err != nil {
		return nil, fmt.Errorf("erpgate: invalid connection settings: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Factory{
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}, nil
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type handleResponse struct {
	Handle string `json:"handle"`
}

// callResult is the generic envelope of a cursor or document operation.
type callResult struct {
	Found bool   `json:"found"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	EOF   bool   `json:"eof"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

type gateError struct {
	Err struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// asSentinel maps well-known gateway error codes onto the erp package
// sentinels so errors.Is keeps working across the wire.
func (e *gateError) asSentinel() error {
	if e == nil {
		return nil
	}
	var sentinel error
	switch e.Err.Code {
	case "session_closed":
		sentinel = erp.ErrSessionClosed
	case "recordset_unavailable":
		sentinel = erp.ErrRecordsetUnavailable
	case "unknown_field":
		sentinel = erp.ErrFieldUnknown
	case "no_document_object":
		sentinel = erp.ErrNoDocumentObject
	case "delete_refused":
		sentinel = erp.ErrDeleteRefused
	default:
		return fmt.Errorf("erpgate: %s: %s", e.Err.Code, e.Err.Message)
	}
	return fmt.Errorf("%w: %s", sentinel, e.Err.Message)
}

func gatewayError(resp *resty.Response) error {
	if gerr, ok := resp.Error().(*gateError); ok && gerr.Err.Code != "" {
		return gerr.asSentinel()
	}
	return fmt.Errorf("erpgate: gateway returned status %d", resp.StatusCode())
}

// Open dials a new gateway session and selects the configured company.
func (f *Factory) Open() (erp.Session, error) {
	var opened sessionResponse
	resp, err := f.http.R().
		SetBody(map[string]string{
			"mandant":  f.cfg.Mandant,
			"firma":    f.cfg.Firma,
			"benutzer": f.cfg.Benutzer,
			"passwort": f.cfg.Passwort,
		}).
		SetResult(&opened).
		SetError(&gateError{}).
		Post("/v1/sessions")
	if err != nil {
		return nil, fmt.Errorf("erpgate: open session: %w", err)
	}
	if resp.IsError() {
		return nil, gatewayError(resp)
	}
	if opened.SessionID == "" {
		return nil, fmt.Errorf("erpgate: gateway returned no session id")
	}

	f.logger.Debug("gateway session opened", zap.String("session", opened.SessionID))
	return &session{factory: f, id: opened.SessionID}, nil
}

// session is one server-side legacy session. Not safe for concurrent use,
// like the protocol it wraps.
type session struct {
	factory *Factory
	id      string
	closed  bool
}

func (s *session) OpenRecordset(name string) (erp.Recordset, error) {
	if s.closed {
		return nil, erp.ErrSessionClosed
	}
	var opened handleResponse
	resp, err := s.factory.http.R().
		SetBody(map[string]string{"name": name}).
		SetResult(&opened).
		SetError(&gateError{}).
		Post("/v1/sessions/" + s.id + "/recordsets")
	if err != nil {
		return nil, fmt.Errorf("erpgate: open recordset %s: %w", name, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", erp.ErrRecordsetUnavailable, name)
	}
	if resp.IsError() {
		return nil, gatewayError(resp)
	}
	return &recordset{session: s, handle: opened.Handle, name: name}, nil
}

func (s *session) SpecialObject(code int) (any, error) {
	if s.closed {
		return nil, erp.ErrSessionClosed
	}
	var opened handleResponse
	resp, err := s.factory.http.R().
		SetBody(map[string]int{"code": code}).
		SetResult(&opened).
		SetError(&gateError{}).
		Post("/v1/sessions/" + s.id + "/special")
	if err != nil {
		return nil, fmt.Errorf("erpgate: special object %d: %w", code, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: code %d", erp.ErrNoDocumentObject, code)
	}
	if resp.IsError() {
		return nil, gatewayError(resp)
	}
	return &document{session: s, handle: opened.Handle}, nil
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	resp, err := s.factory.http.R().
		SetError(&gateError{}).
		Delete("/v1/sessions/" + s.id)
	if err != nil {
		return fmt.Errorf("erpgate: close session: %w", err)
	}
	if resp.IsError() {
		return gatewayError(resp)
	}
	return nil
}

// call runs one operation against a server-side handle.
func (s *session) call(path, op string, args ...any) (*callResult, error) {
	if s.closed {
		return nil, erp.ErrSessionClosed
	}
	var result callResult
	resp, err := s.factory.http.R().
		SetBody(map[string]any{"op": op, "args": args}).
		SetResult(&result).
		SetError(&gateError{}).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("erpgate: %s: %w", op, err)
	}
	if resp.IsError() {
		return nil, gatewayError(resp)
	}
	return &result, nil
}

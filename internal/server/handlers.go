package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/pipeline"
)

// request is the body of /v1/order and /v1/run.
type request struct {
	Config json.RawMessage `json:"config"`
	Format string          `json:"format,omitempty"` // format of a string config
	Graph  *fx.Graph       `json:"graph,omitempty"`
}

// orderResponse is the body returned by /v1/order.
type orderResponse struct {
	Order []string `json:"order"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, pipeline.Catalog())
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	_, cfg, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	order, err := s.runner.Order(r.Context(), cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orderResponse{Order: order})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, cfg, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Graph == nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing graph"))
		return
	}
	if err := req.Graph.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.runner.Execute(r.Context(), cfg, req.Graph)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// decode reads the request body and parses its config.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*request, *pipeline.Config, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	cfg, err := parseConfig(req.Config, req.Format)
	if err != nil {
		return nil, nil, err
	}
	return &req, cfg, nil
}

// parseConfig accepts a JSON object, or a JSON string holding a config in
// the given format.
func parseConfig(raw json.RawMessage, format string) (*pipeline.Config, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing config")
	}
	if raw[0] != '"' {
		return pipeline.ParseConfig(raw, pipeline.FormatJSON)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode config")
	}
	if format == "" {
		format = string(pipeline.FormatTOML)
	}
	return pipeline.ParseConfig([]byte(text), pipeline.Format(format))
}

// statusFor maps an error to its HTTP status. A check failure wins over the
// codes wrapping it.
func statusFor(err error) int {
	if errors.Is(err, errors.ErrCodeCheckFailed) {
		return http.StatusUnprocessableEntity
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidGraph,
		errors.ErrCodeInvalidFormat, errors.ErrCodeUnsatisfiableConstraints,
		errors.ErrCodeScheduleViolated, errors.ErrCodeUnknownPass,
		errors.ErrCodeDuplicatePass, errors.ErrCodeSignatureMismatch:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/isuventra/attendance-hub/internal/application/command"
	"github.com/isuventra/attendance-hub/internal/application/query"
	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/timeutil"
	"github.com/isuventra/attendance-hub/pkg/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type scanRequest struct {
	StudentIdentifier string `json:"student_identifier" validate:"notblank,max=64"`
}

type manualCreateRequest struct {
	StudentID int64   `json:"student_id" validate:"gt=0"`
	EventID   int64   `json:"event_id" validate:"gt=0"`
	TimeIn    string  `json:"time_in" validate:"notblank"`
	TimeOut   *string `json:"time_out"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCANNING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleScanIn(w http.ResponseWriter, r *http.Request) {
	s.scan(w, r, "ScanIn", s.deps.Recorder.ScanIn)
}

func (s *Server) handleScanOut(w http.ResponseWriter, r *http.Request) {
	s.scan(w, r, "ScanOut", s.deps.Recorder.ScanOut)
}

func (s *Server) scan(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	run func(ctx context.Context, cmd command.ScanCommand) (*command.ScanResult, error),
) {
	eventID, err := pathID(r, "eventID", "event_id", op)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req scanRequest
	if err := s.decode(r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := run(r.Context(), command.ScanCommand{
		Actor:             adminFrom(r.Context()),
		EventID:           eventID,
		StudentIdentifier: req.StudentIdentifier,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Status == attendance.ScanJoined {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, res)
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventID", "event_id", "CheckStatus")
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.CheckStatus.Handle(r.Context(), query.CheckStatusQuery{
		EventID:           eventID,
		StudentIdentifier: r.PathValue("identifier"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPATIONS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleManualCreate(w http.ResponseWriter, r *http.Request) {
	const op = "ManualCreate"

	var req manualCreateRequest
	if err := s.decode(r, op, &req); err != nil {
		writeError(w, r, err)
		return
	}

	timeIn, timeOut, err := s.parseTimes(op, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.deps.Recorder.ManualCreate(r.Context(), command.ManualCreateCommand{
		Actor:     adminFrom(r.Context()),
		StudentID: req.StudentID,
		EventID:   req.EventID,
		TimeIn:    timeIn,
		TimeOut:   timeOut,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (s *Server) handleGetParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "participation_id", "GetParticipation")
	if err != nil {
		writeError(w, r, err)
		return
	}

	dto, err := s.deps.GetParticipation.Handle(r.Context(), query.GetParticipationQuery{
		Actor:           adminFrom(r.Context()),
		ParticipationID: id,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

func (s *Server) handleDeleteParticipation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "participation_id", "Delete")
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.deps.Recorder.Delete(r.Context(), command.DeleteCommand{
		Actor:           adminFrom(r.Context()),
		ParticipationID: id,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"message":       "Participation deleted successfully",
		"participation": p,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// pathID parses a positive integer path parameter; field names it in the
// validation details.
func pathID(r *http.Request, param, field, op string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewFieldsValidationError(op, map[string]string{
			field: "must be a positive integer",
		})
	}
	return id, nil
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// to the zero value so that validation reports the missing fields. Anything
// after the first JSON value is rejected.
func (s *Server) decode(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.NewValidationError(op, "body", "request body too large")
		}
		return shared.WrapError("attendance", op, shared.ErrValidation, "request body is not valid JSON", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return shared.NewFieldsValidationError(op, map[string]string{
			"body": "must contain a single JSON object",
		})
	}

	if err := s.deps.Validator.Struct(dst); err != nil {
		var fields validation.FieldErrors
		if errors.As(err, &fields) {
			return shared.NewFieldsValidationError(op, fields)
		}
		return shared.WrapError("attendance", op, shared.ErrValidation, "invalid request", err)
	}
	return nil
}

func (s *Server) parseTimes(op string, req manualCreateRequest) (time.Time, *time.Time, error) {
	fields := map[string]string{}

	timeIn, err := timeutil.ParseTimestamp(req.TimeIn, s.deps.Location)
	if err != nil {
		fields["time_in"] = "must be formatted as " + timeutil.FormatDateTimeSeconds + " or RFC3339"
	}

	var timeOut *time.Time
	if req.TimeOut != nil && strings.TrimSpace(*req.TimeOut) != "" {
		t, err := timeutil.ParseTimestamp(*req.TimeOut, s.deps.Location)
		if err != nil {
			fields["time_out"] = "must be formatted as " + timeutil.FormatDateTimeSeconds + " or RFC3339"
		} else {
			timeOut = &t
		}
	}

	if len(fields) > 0 {
		return time.Time{}, nil, shared.NewFieldsValidationError(op, fields)
	}
	return timeIn, timeOut, nil
}

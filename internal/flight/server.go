// Package flight exposes the signature table and fingerprint comparison over
// Apache Arrow Flight.
package flight

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/smellsense/internal/core"
	"github.com/23skdu/smellsense/internal/dashboard"
	"github.com/23skdu/smellsense/internal/metrics"
	"github.com/23skdu/smellsense/internal/signature"
	"github.com/23skdu/smellsense/internal/similarity"
)

// Ticket and descriptor path for the signature table stream.
const TicketSignatures = "signatures"

// Action types served by DoAction.
const (
	ActionCompare   = "compare"
	ActionBestMatch = "best-match"
	ActionDefaults  = "defaults"
)

// CompareRequest is the JSON body of the compare and best-match actions.
type CompareRequest struct {
	Levels []float64 `json:"levels"`
}

// BestMatchResponse is the JSON body returned by the best-match action.
type BestMatchResponse struct {
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	ScoreText string  `json:"score_text"`
}

// DefaultsResponse is the JSON body returned by the defaults action.
type DefaultsResponse struct {
	Names  []string  `json:"names"`
	Levels []float64 `json:"levels"`
}

var actionTypes = []*flight.ActionType{
	{Type: ActionCompare, Description: "Score a fingerprint against every signature and return the full result"},
	{Type: ActionBestMatch, Description: "Return the closest signature and its score"},
	{Type: ActionDefaults, Description: "Return the VOC names and default levels"},
}

// Server implements the Flight service. It keeps no per-request state.
type Server struct {
	flight.BaseFlightServer
	comparer *dashboard.Comparer
	mem      memory.Allocator
	logger   zerolog.Logger
}

// NewServer creates a Flight server backed by comparer.
func NewServer(comparer *dashboard.Comparer, mem memory.Allocator, logger zerolog.Logger) *Server {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Server{comparer: comparer, mem: mem, logger: logger}
}

func observe(method string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = status.Code(err).String()
	}
	metrics.FlightOperationsTotal.WithLabelValues(method, result).Inc()
	metrics.FlightDurationSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func isSignaturesDescriptor(desc *flight.FlightDescriptor) bool {
	if desc == nil {
		return false
	}
	switch desc.Type {
	case flight.DescriptorPATH:
		return len(desc.Path) == 1 && desc.Path[0] == TicketSignatures
	case flight.DescriptorCMD:
		return string(desc.Cmd) == TicketSignatures
	}
	return false
}

func (s *Server) signaturesInfo(desc *flight.FlightDescriptor) *flight.FlightInfo {
	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(signature.Schema(), s.mem),
		FlightDescriptor: desc,
		Endpoint: []*flight.FlightEndpoint{{
			Ticket: &flight.Ticket{Ticket: []byte(TicketSignatures)},
		}},
		TotalRecords: int64(s.comparer.Store().Len()),
		TotalBytes:   -1,
	}
}

// ListFlights advertises the signature table.
func (s *Server) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	desc := &flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{TicketSignatures}}
	return stream.Send(s.signaturesInfo(desc))
}

// GetFlightInfo describes the signature table.
func (s *Server) GetFlightInfo(_ context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	if !isSignaturesDescriptor(desc) {
		return nil, core.ToGRPCStatus(core.NewNotFoundError("flight", descriptorName(desc)))
	}
	return s.signaturesInfo(desc), nil
}

// GetSchema returns the Arrow schema of the signature table.
func (s *Server) GetSchema(_ context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	if !isSignaturesDescriptor(desc) {
		return nil, core.ToGRPCStatus(core.NewNotFoundError("flight", descriptorName(desc)))
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(signature.Schema(), s.mem)}, nil
}

func descriptorName(desc *flight.FlightDescriptor) string {
	if desc == nil {
		return "<nil>"
	}
	if desc.Type == flight.DescriptorCMD {
		return string(desc.Cmd)
	}
	if len(desc.Path) > 0 {
		return desc.Path[0]
	}
	return ""
}

// DoGet streams the signature table as a single Arrow record batch.
func (s *Server) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) (err error) {
	defer func(start time.Time) { observe("DoGet", start, err) }(time.Now())

	if tkt == nil || string(tkt.Ticket) != TicketSignatures {
		name := ""
		if tkt != nil {
			name = string(tkt.Ticket)
		}
		return core.ToGRPCStatus(core.NewNotFoundError("ticket", name))
	}

	rec := s.comparer.Store().Record(s.mem)
	defer rec.Release()

	w := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.mem))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		s.logger.Error().Err(err).Msg("Failed to write signature record")
		return core.ToGRPCStatus(core.NewInternalError("write signature record", err))
	}
	if err := w.Close(); err != nil {
		return core.ToGRPCStatus(core.NewInternalError("close record writer", err))
	}

	s.logger.Debug().Int64("rows", rec.NumRows()).Msg("DoGet signatures")
	return nil
}

// ListActions lists the supported DoAction types.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	for _, at := range actionTypes {
		if err := stream.Send(at); err != nil {
			return err
		}
	}
	return nil
}

// DoAction handles compare, best-match and defaults.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) (err error) {
	if action == nil {
		return status.Error(codes.InvalidArgument, "action is required")
	}
	defer func(start time.Time) { observe("DoAction/"+action.Type, start, err) }(time.Now())

	var body interface{}
	switch action.Type {
	case ActionCompare:
		body, err = s.handleCompare(stream.Context(), action.Body)
	case ActionBestMatch:
		body, err = s.handleBestMatch(stream.Context(), action.Body)
	case ActionDefaults:
		body = DefaultsResponse{Names: signature.VOCNames(), Levels: s.comparer.Defaults()}
	default:
		return status.Errorf(codes.Unimplemented, "unknown action: %s", action.Type)
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("action", action.Type).Msg("DoAction rejected")
		return core.ToGRPCStatus(err)
	}

	out, err := json.Marshal(body)
	if err != nil {
		return core.ToGRPCStatus(core.NewInternalError("serialize "+action.Type+" result", err))
	}
	return stream.Send(&flight.Result{Body: out})
}

func decodeCompareRequest(body []byte) (CompareRequest, error) {
	var req CompareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, core.NewInvalidArgumentError("body", "invalid JSON: "+err.Error())
	}
	return req, nil
}

func (s *Server) handleCompare(ctx context.Context, body []byte) (*dashboard.Result, error) {
	req, err := decodeCompareRequest(body)
	if err != nil {
		return nil, err
	}
	return s.comparer.Compare(ctx, req.Levels)
}

func (s *Server) handleBestMatch(ctx context.Context, body []byte) (*BestMatchResponse, error) {
	res, err := s.handleCompare(ctx, body)
	if err != nil {
		return nil, err
	}
	return &BestMatchResponse{
		Label:     res.BestMatch,
		Score:     res.BestScore,
		ScoreText: similarity.Percent(res.BestScore),
	}, nil
}

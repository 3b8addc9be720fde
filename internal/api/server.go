// Package api serves SentencePiece tokenization over HTTP.
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/spmcheck/internal/logger"
	"github.com/samcharles93/spmcheck/internal/probe"
)

// maxProbeSamples bounds the corpus accepted by POST /v1/probe.
const maxProbeSamples = 1024

type Server struct {
	provider ProcessorProvider
	log      logger.Logger
}

func NewServer(provider ProcessorProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		provider: provider,
		log:      log,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(RequestID())

	e.GET("/v1/models", s.handleListModels)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/tokenize", s.handleTokenize)
	e.POST("/v1/detokenize", s.handleDetokenize)
	e.GET("/v1/pieces/:id", s.handlePiece)
	e.GET("/v1/lookup", s.handleLookup)
	e.POST("/v1/probe", s.handleProbe)
}

func (s *Server) load(c *echo.Context, modelID string) (*LoadedModel, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("model provider not configured")
	}
	ctx := logger.WithContext(c.Request().Context(), s.log)
	return s.provider.Processor(ctx, modelID)
}

func (s *Server) handleListModels(c *echo.Context) error {
	if s.provider == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "model provider not configured")
	}
	names, err := s.provider.ListModels()
	if err != nil {
		return writeErr(c, err)
	}
	resp := ModelListResponse{Object: "list", Data: make([]ModelItem, 0, len(names))}
	for _, name := range names {
		resp.Data = append(resp.Data, ModelItem{ID: name, Object: "model"})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleModel(c *echo.Context) error {
	m, err := s.load(c, c.QueryParam("model"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, ModelResponse{
		Name:      m.Name,
		ModelInfo: m.Processor.ModelInfo(),
	})
}

func (s *Server) handleTokenize(c *echo.Context) error {
	req, err := decodeJSON[TokenizeRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, err)
	}
	m, err := s.load(c, req.Model)
	if err != nil {
		return writeErr(c, err)
	}

	tokens := m.Processor.EncodeTokens(req.Text, req.AddBOS, req.AddEOS)
	resp := TokenizeResponse{
		Model:  m.Name,
		Pieces: make([]string, len(tokens)),
		IDs:    make([]int, len(tokens)),
		Count:  len(tokens),
	}
	for i, t := range tokens {
		resp.Pieces[i] = t.Text
		resp.IDs[i] = t.ID
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDetokenize(c *echo.Context) error {
	req, err := decodeJSON[DetokenizeRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, err)
	}
	m, err := s.load(c, req.Model)
	if err != nil {
		return writeErr(c, err)
	}
	text, err := m.Processor.Decode(req.IDs)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, DetokenizeResponse{Model: m.Name, Text: text})
}

func (s *Server) handlePiece(c *echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("invalid piece id %q", c.Param("id")))
	}
	m, err := s.load(c, c.QueryParam("model"))
	if err != nil {
		return writeErr(c, err)
	}
	piece, ok := m.Processor.IDToPiece(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("piece id %d out of range [0, %d)", id, m.Processor.VocabSize()))
	}
	return c.JSON(http.StatusOK, pieceResponse(m, id, piece))
}

func (s *Server) handleLookup(c *echo.Context) error {
	piece := c.QueryParam("piece")
	if piece == "" {
		return writeBadRequest(c, "piece is required")
	}
	m, err := s.load(c, c.QueryParam("model"))
	if err != nil {
		return writeErr(c, err)
	}
	id := m.Processor.PieceToID(piece)
	if stored, _ := m.Processor.IDToPiece(id); stored != piece {
		return writeNotFound(c, fmt.Sprintf("piece %q not in vocabulary", piece))
	}
	return c.JSON(http.StatusOK, pieceResponse(m, id, piece))
}

func (s *Server) handleProbe(c *echo.Context) error {
	req, err := decodeJSON[ProbeRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, err)
	}
	if len(req.Samples) > maxProbeSamples {
		return writeBadRequest(c, fmt.Sprintf("at most %d samples per request", maxProbeSamples))
	}
	m, err := s.load(c, req.Model)
	if err != nil {
		return writeErr(c, err)
	}

	samples := req.Samples
	if len(samples) == 0 {
		samples = probe.DefaultCorpus()
	}
	ctx := logger.WithContext(c.Request().Context(), s.log)
	report, err := probe.Run(ctx, m.Processor, samples)
	if err != nil {
		return writeErr(c, err)
	}
	report.Model = m.Name
	return c.JSON(http.StatusOK, struct {
		*probe.Report
		Summary probe.Summary `json:"summary"`
	}{report, report.Summary()})
}

func pieceResponse(m *LoadedModel, id int, piece string) PieceResponse {
	return PieceResponse{
		ID:    id,
		Piece: piece,
		Score: m.Processor.Score(id),
		Type:  m.Processor.Type(id).String(),
	}
}

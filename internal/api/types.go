package api

import "github.com/samcharles93/spmcheck/internal/sentencepiece"

type TokenizeRequest struct {
	Model  string `json:"model,omitempty"`
	Text   string `json:"text"`
	AddBOS bool   `json:"add_bos,omitempty"`
	AddEOS bool   `json:"add_eos,omitempty"`
}

type TokenizeResponse struct {
	Model  string   `json:"model"`
	Pieces []string `json:"pieces"`
	IDs    []int    `json:"ids"`
	Count  int      `json:"count"`
}

type DetokenizeRequest struct {
	Model string `json:"model,omitempty"`
	IDs   []int  `json:"ids"`
}

type DetokenizeResponse struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type PieceResponse struct {
	ID    int     `json:"id"`
	Piece string  `json:"piece"`
	Score float32 `json:"score"`
	Type  string  `json:"type"`
}

type ModelResponse struct {
	Name string `json:"name"`
	sentencepiece.ModelInfo
}

type ProbeRequest struct {
	Model   string   `json:"model,omitempty"`
	Samples []string `json:"samples,omitempty"`
}

type ModelListResponse struct {
	Object string      `json:"object"`
	Data   []ModelItem `json:"data"`
}

type ModelItem struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

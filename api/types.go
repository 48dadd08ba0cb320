// Package api defines the JSON types exchanged with the tokenizer
// server.
package api

import (
	"fmt"
	"net/http"
	"strings"
)

type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %v", e.Code, strings.ToLower(http.StatusText(int(e.Code))))
	}
	return e.Message
}

type EncodeRequest struct {
	Text string `json:"text"`
}

type EncodeResponse struct {
	IDs   []int32 `json:"ids"`
	Count int     `json:"count"`
}

type DecodeRequest struct {
	IDs []int32 `json:"ids"`
}

type DecodeResponse struct {
	Text string `json:"text"`
}

type TokenizeRequest struct {
	Text string `json:"text"`
}

// Token is one display token: its glyph-form text, resolved id, byte
// width and whether it is a reserved special.
type Token struct {
	Text    string `json:"text"`
	ID      int32  `json:"id"`
	Bytes   int    `json:"bytes"`
	Special bool   `json:"special"`
}

type TokenizeResponse struct {
	Tokens []Token `json:"tokens"`
}

type VocabResponse struct {
	Size     int `json:"size"`
	Merges   int `json:"merges"`
	Specials int `json:"specials"`
}

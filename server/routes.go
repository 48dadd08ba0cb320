// Package server exposes the tokenizer facade over HTTP for the
// interactive visualization page and other local consumers.
package server

import (
	"log/slog"
	"net"
	"net/http"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bpekit/bpekit/api"
	"github.com/bpekit/bpekit/envconfig"
	"github.com/bpekit/bpekit/tokenizer"
)

func NewRouter(t *tokenizer.Tokenizer) *gin.Engine {
	if !envconfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowOrigins = envconfig.AllowOrigins

	r := gin.Default()
	r.Use(cors.New(config))

	r.POST("/api/encode", func(c *gin.Context) {
		var req api.EncodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.Error{Code: http.StatusBadRequest, Message: err.Error()})
			return
		}

		ids, err := t.Encode(req.Text)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, api.Error{Code: http.StatusUnprocessableEntity, Message: err.Error()})
			return
		}

		c.JSON(http.StatusOK, api.EncodeResponse{IDs: ids, Count: len(ids)})
	})

	r.POST("/api/decode", func(c *gin.Context) {
		var req api.DecodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.Error{Code: http.StatusBadRequest, Message: err.Error()})
			return
		}

		text, err := t.Decode(req.IDs)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, api.Error{Code: http.StatusUnprocessableEntity, Message: err.Error()})
			return
		}

		c.JSON(http.StatusOK, api.DecodeResponse{Text: text})
	})

	r.POST("/api/tokenize", func(c *gin.Context) {
		var req api.TokenizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.Error{Code: http.StatusBadRequest, Message: err.Error()})
			return
		}

		tokens, err := t.Tokenize(req.Text)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, api.Error{Code: http.StatusUnprocessableEntity, Message: err.Error()})
			return
		}

		resp := api.TokenizeResponse{Tokens: make([]api.Token, 0, len(tokens))}
		for _, token := range tokens {
			special := t.IsSpecialToken(token)

			// one glyph stands in for one raw byte
			width := utf8.RuneCountInString(token)
			if special {
				width = len(token)
			}

			resp.Tokens = append(resp.Tokens, api.Token{
				Text:    token,
				ID:      t.Vocabulary().Encode(token),
				Bytes:   width,
				Special: special,
			})
		}

		c.JSON(http.StatusOK, resp)
	})

	r.GET("/api/vocab", func(c *gin.Context) {
		v := t.Vocabulary()
		c.JSON(http.StatusOK, api.VocabResponse{
			Size:     v.Size(),
			Merges:   len(v.Merges),
			Specials: v.Specials.Len(),
		})
	})

	return r
}

func Serve(ln net.Listener, t *tokenizer.Tokenizer) error {
	slog.Info("listening", "addr", ln.Addr())

	s := &http.Server{
		Handler: NewRouter(t),
	}

	return s.Serve(ln)
}

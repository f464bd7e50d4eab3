// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	stderrors "bizsearch/internal/common/errors"
)

// searchRequestSchema rejects malformed payloads before they reach the
// pipeline. Everything past this gate degrades instead of failing.
const searchRequestSchema = `{
	"type": "object",
	"required": ["query"],
	"additionalProperties": false,
	"properties": {
		"query": {"type": "string", "minLength": 1, "maxLength": 500},
		"sources": {
			"type": "array",
			"items": {"type": "string", "minLength": 1},
			"maxItems": 20
		}
	}
}`

var searchSchemaLoader = gojsonschema.NewStringLoader(searchRequestSchema)

type searchPayload struct {
	Query   string   `json:"query"`
	Sources []string `json:"sources"`
}

func (s *Server) handleSearch(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.writeError(c, http.StatusBadRequest, stderrors.NewValidationError(err.Error()))
		return
	}

	result, err := gojsonschema.Validate(searchSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		s.writeError(c, http.StatusBadRequest, stderrors.NewValidationError("request body must be valid JSON"))
		return
	}
	if !result.Valid() {
		details := ""
		for i, desc := range result.Errors() {
			if i > 0 {
				details += "; "
			}
			details += desc.String()
		}
		s.writeError(c, http.StatusBadRequest, stderrors.NewValidationError(details))
		return
	}

	var payload searchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.writeError(c, http.StatusBadRequest, stderrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.service.Search(c.Request.Context(), payload.Query, payload.Sources)
	if err != nil {
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) && !stdErr.Retryable {
			s.writeError(c, http.StatusBadRequest, stdErr)
			return
		}
		s.writeError(c, http.StatusInternalServerError, stderrors.NewValidationError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSuggestions(c *gin.Context) {
	prefix := c.Query("q")
	suggestions, err := s.service.Suggest(c.Request.Context(), prefix)
	if err != nil {
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) {
			s.writeError(c, http.StatusBadRequest, stdErr)
			return
		}
		s.writeError(c, http.StatusInternalServerError, stderrors.NewValidationError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"suggestions": suggestions,
	})
}

func (s *Server) writeError(c *gin.Context, status int, stdErr *stderrors.StandardError) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    stdErr.Code,
			"message": stdErr.Message,
			"details": stdErr.Details,
		},
	})
}

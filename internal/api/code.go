package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"agentflow/internal/services"
)

// CodeSearchRequest is the body of a semantic code search.
type CodeSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// DeleteResult reports how many records a delete removed.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// IndexCode embeds and stores a code chunk
// (POST /api/v1/code/embeddings)
func (s *Server) IndexCode(c echo.Context) error {
	var in services.CodeChunkInput
	if err := bind(c, &in); err != nil {
		return err
	}
	embedding, err := s.CodeSearch.Index(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, embedding)
}

// SearchCode returns the chunks nearest to a natural-language query
// (POST /api/v1/code/search)
func (s *Server) SearchCode(c echo.Context) error {
	var req CodeSearchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	matches, err := s.CodeSearch.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matches)
}

// DeleteCodeFile removes every chunk of a file
// (DELETE /api/v1/code/embeddings?file_path=)
func (s *Server) DeleteCodeFile(c echo.Context) error {
	var filePath string
	if err := runtime.BindQueryParameter("form", true, true, "file_path", c.QueryParams(), &filePath); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter file_path: "+err.Error())
	}
	n, err := s.CodeSearch.DeleteFile(c.Request().Context(), filePath)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResult{Deleted: n})
}

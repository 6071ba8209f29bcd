package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/document"
	"github.com/spigell/resume-intake/internal/export"
	"github.com/spigell/resume-intake/internal/pipeline"
	"github.com/spigell/resume-intake/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) processBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		fail(c, http.StatusBadRequest, "expected multipart form data: "+err.Error())
		return
	}

	docs, err := readDocuments(form.File["files"])
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.batcher.ProcessBatch(c.Request.Context(), docs, c.PostForm("jobDescription"), c.PostForm("recruiterGuidance"))
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, pipeline.ErrInvalidRequest) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"totalProcessed": res.TotalProcessed,
		"candidates":     res.Candidates,
	})
}

func readDocuments(headers []*multipart.FileHeader) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}

		docs = append(docs, document.Document{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return docs, nil
}

func (s *Server) listCandidates(c *gin.Context) {
	if !s.hasRepository(c) {
		return
	}

	list, err := s.repo.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "listing candidates failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(list), "candidates": list})
}

func (s *Server) getCandidate(c *gin.Context) {
	if !s.hasRepository(c) {
		return
	}

	found, err := s.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.repositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "candidate": found})
}

func (s *Server) setApproval(c *gin.Context) {
	if !s.hasRepository(c) {
		return
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		fail(c, http.StatusBadRequest, `expected a JSON body like {"approved": true}`)
		return
	}

	updated, err := s.repo.SetApproved(c.Request.Context(), c.Param("id"), *req.Approved)
	if err != nil {
		s.repositoryError(c, err)
		return
	}

	s.logger.Info("candidate approval changed",
		zap.String("candidate_id", updated.ID),
		zap.Bool("approved", updated.Approved),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "candidate": updated})
}

func (s *Server) exportCandidates(c *gin.Context) {
	if !s.hasRepository(c) {
		return
	}

	list, err := s.repo.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "listing candidates failed")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, list); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "building workbook failed")
		return
	}

	name := fmt.Sprintf("candidates-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) hasRepository(c *gin.Context) bool {
	if s.repo == nil {
		fail(c, http.StatusServiceUnavailable, "candidate store is not configured")
		return false
	}
	return true
}

func (s *Server) repositoryError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "candidate not found")
		return
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, "candidate store request failed")
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/document"
	"github.com/spigell/resume-intake/internal/pipeline"
	"github.com/spigell/resume-intake/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBatcher struct {
	docs     []document.Document
	jd       string
	guidance string
	err      error
}

func (s *stubBatcher) ProcessBatch(_ context.Context, docs []document.Document, jd, guidance string) (*pipeline.Result, error) {
	s.docs = docs
	s.jd = jd
	s.guidance = guidance
	if s.err != nil {
		return nil, s.err
	}

	out := make([]candidate.Candidate, 0, len(docs))
	for i, d := range docs {
		out = append(out, candidate.Candidate{
			ID:        fmt.Sprintf("id-%d", i),
			Fields:    candidate.Fields{Name: d.Name, Score: 50},
			ResumeURL: candidate.ResumeURLNone,
		})
	}
	return &pipeline.Result{TotalProcessed: len(out), Candidates: out}, nil
}

type response struct {
	Success        bool                  `json:"success"`
	Error          string                `json:"error"`
	TotalProcessed int                   `json:"totalProcessed"`
	Total          int                   `json:"total"`
	Candidates     []candidate.Candidate `json:"candidates"`
	Candidate      candidate.Candidate   `json:"candidate"`
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, body
}

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	batcher := &stubBatcher{}
	srv := New(Config{}, batcher, nil, zap.NewNop())

	body, contentType := multipartBody(t,
		map[string]string{"jobDescription": "Go engineer", "recruiterGuidance": "remote"},
		map[string]string{"ann.pdf": "%PDF-1.4 ann"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/candidates/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := do(t, srv.Handler(), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success || resp.TotalProcessed != 1 || resp.Candidates[0].Name != "ann.pdf" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if batcher.jd != "Go engineer" || batcher.guidance != "remote" {
		t.Fatalf("unexpected form values %q %q", batcher.jd, batcher.guidance)
	}
	if len(batcher.docs) != 1 || batcher.docs[0].ContentType != "application/pdf" || string(batcher.docs[0].Data) != "%PDF-1.4 ann" {
		t.Fatalf("unexpected documents %+v", batcher.docs)
	}
}

func TestProcessBatchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid request", err: fmt.Errorf("%w: no documents uploaded", pipeline.ErrInvalidRequest), status: http.StatusBadRequest},
		{name: "internal", err: fmt.Errorf("filter documents: boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := New(Config{}, &stubBatcher{err: tt.err}, nil, zap.NewNop())
			body, contentType := multipartBody(t, map[string]string{"jobDescription": "jd"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/candidates/batch", body)
			req.Header.Set("Content-Type", contentType)

			rec, resp := do(t, srv.Handler(), req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if resp.Success || resp.Error != tt.err.Error() {
				t.Fatalf("unexpected error body %+v", resp)
			}
		})
	}
}

func TestProcessBatchRejectsNonMultipart(t *testing.T) {
	t.Parallel()

	srv := New(Config{}, &stubBatcher{}, nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/candidates/batch", strings.NewReader(`{"files": []}`))
	req.Header.Set("Content-Type", "application/json")

	rec, resp := do(t, srv.Handler(), req)
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Fatalf("expected 400, got %d %+v", rec.Code, resp)
	}
}

func TestProcessBatchBodyLimit(t *testing.T) {
	t.Parallel()

	srv := New(Config{MaxBodyBytes: 1024}, &stubBatcher{}, nil, zap.NewNop())
	body, contentType := multipartBody(t,
		map[string]string{"jobDescription": "jd"},
		map[string]string{"big.pdf": strings.Repeat("x", 4096)},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/candidates/batch", body)
	req.Header.Set("Content-Type", contentType)

	rec, resp := do(t, srv.Handler(), req)
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected the oversized body to be rejected, got %d", rec.Code)
	}
	if resp.Success {
		t.Fatalf("unexpected success")
	}
}

func TestCandidateEndpoints(t *testing.T) {
	t.Parallel()

	repo := memory.New()
	ctx := context.Background()
	for i, score := range []int{30, 80} {
		id := fmt.Sprintf("c%d", i)
		_ = repo.Write(ctx, id, candidate.Candidate{
			ID:         id,
			Fields:     candidate.Fields{Name: id, Score: score},
			UploadedAt: time.Now(),
		})
	}

	h := New(Config{}, &stubBatcher{}, repo, zap.NewNop()).Handler()

	rec, resp := do(t, h, httptest.NewRequest(http.MethodGet, "/api/candidates", nil))
	if rec.Code != http.StatusOK || resp.Total != 2 || resp.Candidates[0].ID != "c1" {
		t.Fatalf("unexpected list response %d %+v", rec.Code, resp)
	}

	rec, resp = do(t, h, httptest.NewRequest(http.MethodGet, "/api/candidates/c0", nil))
	if rec.Code != http.StatusOK || resp.Candidate.Score != 30 {
		t.Fatalf("unexpected get response %d %+v", rec.Code, resp)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/candidates/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/candidates/c0/approval", strings.NewReader(`{"approved": true}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp = do(t, h, req)
	if rec.Code != http.StatusOK || !resp.Candidate.Approved {
		t.Fatalf("unexpected approval response %d %+v", rec.Code, resp)
	}
	if stored, _ := repo.Get(ctx, "c0"); !stored.Approved {
		t.Fatalf("expected approval persisted")
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/candidates/c0/approval", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if rec, _ = do(t, h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without approved flag, got %d", rec.Code)
	}

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/candidates/export.xlsx", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected export response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected a zip container")
	}
}

func TestCandidateEndpointsWithoutStore(t *testing.T) {
	t.Parallel()

	h := New(Config{}, &stubBatcher{}, nil, zap.NewNop()).Handler()

	rec, resp := do(t, h, httptest.NewRequest(http.MethodGet, "/api/candidates", nil))
	if rec.Code != http.StatusServiceUnavailable || resp.Success {
		t.Fatalf("expected 503, got %d %+v", rec.Code, resp)
	}
}

func TestNewDefaults(t *testing.T) {
	srv := New(Config{}, &stubBatcher{}, nil, zap.NewNop())

	if srv.cfg.MaxBodyBytes != DefaultMaxBodyBytes || srv.cfg.Address != ":8080" {
		t.Fatalf("unexpected defaults %+v", srv.cfg)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := New(Config{}, &stubBatcher{}, nil, zap.NewNop()).Handler()
	rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

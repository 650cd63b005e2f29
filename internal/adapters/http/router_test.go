package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/usecase"
)

type sessionStoreFake struct {
	tokens map[string]bool
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{tokens: map[string]bool{}}
}

func (s *sessionStoreFake) Create(time.Duration) string {
	token := "session-token"
	s.tokens[token] = true
	return token
}

func (s *sessionStoreFake) IsAuthenticated(token string) bool {
	return s.tokens[token]
}

func (s *sessionStoreFake) Destroy(token string) {
	delete(s.tokens, token)
}

type repoFake struct {
	appendErr error
	listRows  []domain.EstimateSummary
	listErr   error
	getRecord *domain.EstimateRecord
	getErr    error

	lastLimit int
	nextID    int64
}

func (r *repoFake) Append(_ context.Context, record *domain.EstimateRecord) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	return nil
}

func (r *repoFake) List(_ context.Context, limit int) ([]domain.EstimateSummary, error) {
	r.lastLimit = limit
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listRows, nil
}

func (r *repoFake) GetByID(context.Context, int64) (*domain.EstimateRecord, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.getRecord, nil
}

type invokerStub struct {
	reply string
	err   error

	calls   int
	lastDoc domain.PromptDocument
}

func (s *invokerStub) Invoke(_ context.Context, _ string, doc domain.PromptDocument) (string, error) {
	s.calls++
	s.lastDoc = doc
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *invokerStub) ModelName() string { return "test-model" }

type testHarness struct {
	server  *httptest.Server
	client  *http.Client
	repo    *repoFake
	invoker *invokerStub
}

func newTestHarness(t *testing.T, uploads UploadLimits) *testHarness {
	t.Helper()

	repo := &repoFake{}
	invoker := &invokerStub{reply: "Estimated Volume: 3-5 cubic yards\nConfidence: Medium\nNotes: None"}
	auth := usecase.NewAuthUseCase("1234", newSessionStoreFake(), time.Hour)
	estimates := usecase.NewEstimateUseCase(repo, invoker, "policy text", nil)
	history := usecase.NewHistoryUseCase(repo)

	router := NewRouter(auth, estimates, history, uploads, CookieSettings{Name: "estimate_session"}, nil)
	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testHarness{
		server:  server,
		client:  server.Client(),
		repo:    repo,
		invoker: invoker,
	}
}

func defaultUploads() UploadLimits {
	return UploadLimits{MaxPhotoCount: 12, MaxFileBytes: 15 << 20}
}

func (h *testHarness) login(t *testing.T, pin string) *http.Cookie {
	t.Helper()

	resp := h.postJSON(t, "/api/login", map[string]string{"pin": pin})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "estimate_session" {
			return cookie
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (h *testHarness) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := h.client.Post(h.server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (h *testHarness) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

type multipartFile struct {
	field    string
	filename string
	mimeType string
	data     []byte
}

func buildMultipart(t *testing.T, fields map[string]string, files []multipartFile) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			`form-data; name="`+file.field+`"; filename="`+file.filename+`"`)
		header.Set("Content-Type", file.mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

func (h *testHarness) postEstimate(t *testing.T, cookie *http.Cookie, fields map[string]string, files []multipartFile) *http.Response {
	t.Helper()

	body, contentType := buildMultipart(t, fields, files)
	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/estimate", body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("POST /api/estimate: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestLoginWrongPIN(t *testing.T) {
	h := newTestHarness(t, defaultUploads())

	resp := h.postJSON(t, "/api/login", map[string]string{"pin": "9999"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "Invalid PIN" {
		t.Fatalf("error = %q, want %q", body["error"], "Invalid PIN")
	}
}

func TestProtectedRoutesRejectMissingSession(t *testing.T) {
	h := newTestHarness(t, defaultUploads())

	for _, path := range []string{"/api/history", "/api/history/export", "/api/estimate/1"} {
		resp := h.get(t, path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["error"] != "Not authorized" {
			t.Fatalf("GET %s error = %q, want %q", path, body["error"], "Not authorized")
		}
	}

	if h.invoker.calls != 0 {
		t.Fatalf("invoker calls = %d, want 0", h.invoker.calls)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/logout", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.AddCookie(cookie)
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("POST /api/logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	after := h.get(t, "/api/history", cookie)
	after.Body.Close()
	if after.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", after.StatusCode)
	}
}

func TestCreateEstimateEndToEnd(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie,
		map[string]string{
			"job_type":      "DUMPSTER_CLEANOUT",
			"dumpster_size": "20",
			"agent_label":   "Crew B",
		},
		[]multipartFile{
			{field: "photos", filename: "front.jpg", mimeType: "image/jpeg", data: []byte("front-bytes")},
			{field: "photos", filename: "back.png", mimeType: "image/png", data: []byte("back-bytes")},
			{field: "overlays", filename: "front-overlay.png", mimeType: "image/png", data: []byte("overlay-bytes")},
		})
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200 (body %s)", resp.StatusCode, raw)
	}

	var body estimateResponse
	decodeBody(t, resp, &body)
	if !body.OK {
		t.Fatal("ok = false, want true")
	}
	if body.ID == nil || *body.ID != 1 {
		t.Fatalf("id = %v, want 1", body.ID)
	}
	if body.CreatedAt == nil {
		t.Fatal("created_at is null, want timestamp")
	}
	if !strings.Contains(body.Result, "Confidence: Medium") {
		t.Fatalf("result = %q, want confidence line", body.Result)
	}

	if h.invoker.calls != 1 {
		t.Fatalf("invoker calls = %d, want 1", h.invoker.calls)
	}
	if got := h.invoker.lastDoc.ImageCount(); got != 3 {
		t.Fatalf("prompt image count = %d, want 3", got)
	}
	first := h.invoker.lastDoc.Segments[0]
	if first.Kind != domain.SegmentText || !strings.Contains(first.Text, "Job type: DUMPSTER_CLEANOUT") {
		t.Fatalf("first segment = %+v, want metadata text", first)
	}
}

func TestCreateEstimateWithoutPhotos(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie, map[string]string{"job_type": "STANDARD"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "Please upload at least 1 photo." {
		t.Fatalf("error = %q", body["error"])
	}
	if h.invoker.calls != 0 {
		t.Fatalf("invoker calls = %d, want 0", h.invoker.calls)
	}
}

func TestCreateEstimateUnknownJobType(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie,
		map[string]string{"job_type": "GARAGE_SALE"},
		[]multipartFile{{field: "photos", filename: "a.jpg", mimeType: "image/jpeg", data: []byte("x")}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if h.invoker.calls != 0 {
		t.Fatalf("invoker calls = %d, want 0", h.invoker.calls)
	}
}

func TestCreateEstimateOversizedFile(t *testing.T) {
	uploads := defaultUploads()
	uploads.MaxFileBytes = 64
	h := newTestHarness(t, uploads)
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie, nil,
		[]multipartFile{{field: "photos", filename: "huge.jpg", mimeType: "image/jpeg", data: bytes.Repeat([]byte("x"), 256)}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if h.invoker.calls != 0 {
		t.Fatalf("invoker calls = %d, want 0", h.invoker.calls)
	}
}

func TestCreateEstimateUnrecognizedMimeFallsBack(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie, nil,
		[]multipartFile{{field: "photos", filename: "scan.tiff", mimeType: "image/tiff", data: []byte("scan-bytes")}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var photo *domain.Segment
	for i, seg := range h.invoker.lastDoc.Segments {
		if seg.Kind == domain.SegmentImage {
			photo = &h.invoker.lastDoc.Segments[i]
			break
		}
	}
	if photo == nil {
		t.Fatal("no image segment in prompt")
	}
	if photo.Image.MimeType != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", photo.Image.MimeType)
	}
}

func TestCreateEstimateUnsavedResult(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	h.repo.appendErr = domain.WrapError(domain.ErrStorageUnavailable, "append estimate", errors.New("connection refused"))
	cookie := h.login(t, "1234")

	resp := h.postEstimate(t, cookie, nil,
		[]multipartFile{{field: "photos", filename: "a.jpg", mimeType: "image/jpeg", data: []byte("x")}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body estimateResponse
	decodeBody(t, resp, &body)
	if !body.OK {
		t.Fatal("ok = false, want true")
	}
	if body.ID != nil || body.CreatedAt != nil {
		t.Fatalf("id = %v created_at = %v, want both null", body.ID, body.CreatedAt)
	}
	if body.Result == "" {
		t.Fatal("result is empty, want model output")
	}
}

func TestListHistoryClampsLimit(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	label := "Crew A"
	h.repo.listRows = []domain.EstimateSummary{
		{ID: 2, JobType: domain.JobTypeStandard, AgentLabel: &label, PhotoCount: 3, ResultPreview: "Estimated Volume: 3-5"},
	}
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/history?limit=5000", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body historyListResponse
	decodeBody(t, resp, &body)
	if !body.OK || len(body.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(body.Rows))
	}
	if h.repo.lastLimit != usecase.MaxHistoryLimit {
		t.Fatalf("limit = %d, want %d", h.repo.lastLimit, usecase.MaxHistoryLimit)
	}
}

func TestListHistoryStorageDown(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	h.repo.listErr = domain.WrapError(domain.ErrStorageUnavailable, "list estimates", errors.New("connection refused"))
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/history", cookie)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "History is unavailable right now" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestGetEstimateByID(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	h.repo.getRecord = &domain.EstimateRecord{
		ID:         7,
		JobType:    domain.JobTypeDumpsterOverflow,
		PhotoCount: 2,
		ModelName:  "test-model",
		ResultText: "Estimated Volume: 8-10 cubic yards",
	}
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/estimate/7", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body historyRowResponse
	decodeBody(t, resp, &body)
	if body.Row == nil || body.Row.ID != 7 {
		t.Fatalf("row = %+v, want id 7", body.Row)
	}
}

func TestGetEstimateNotFound(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	h.repo.getErr = domain.WrapError(domain.ErrEstimateNotFound, "fetch estimate", errors.New("no rows"))
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/estimate/999", cookie)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "Estimate not found" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestGetEstimateInvalidID(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/estimate/abc", cookie)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExportHistory(t *testing.T) {
	h := newTestHarness(t, defaultUploads())
	h.repo.listRows = []domain.EstimateSummary{
		{ID: 1, CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC), JobType: domain.JobTypeStandard, PhotoCount: 1, ResultPreview: "Estimated Volume: 2-3"},
	}
	cookie := h.login(t, "1234")

	resp := h.get(t, "/api/history/export", cookie)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("content type = %q, want xlsx", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("content disposition = %q, want attachment", got)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(data) == 0 || data[0] != 'P' || data[1] != 'K' {
		t.Fatal("body is not a zip container")
	}
}

func TestPingAndHealthzOpen(t *testing.T) {
	h := newTestHarness(t, defaultUploads())

	for _, path := range []string{"/api/ping", "/healthz"} {
		resp := h.get(t, path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

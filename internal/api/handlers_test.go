package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloud-scan/controlcenter/internal/auth"
	"github.com/cloud-scan/controlcenter/internal/broker"
	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenStore struct{ byID map[string]*domain.Token }

func (s *fakeTokenStore) Get(id string) (*domain.Token, bool) {
	t, ok := s.byID[id]
	return t, ok
}
func (s *fakeTokenStore) Put(t *domain.Token) error { s.byID[t.ID] = t; return nil }
func (s *fakeTokenStore) Remove(id string) error    { delete(s.byID, id); return nil }

type fakeSyncServer struct {
	outcome broker.SyncOutcome
	gotReq  broker.SyncRequest
}

func (f *fakeSyncServer) Sync(req broker.SyncRequest, now time.Time) broker.SyncOutcome {
	f.gotReq = req
	return f.outcome
}

type fakeTaskDoner struct {
	err       error
	gotJobID  domain.JobID
	gotTask   string
	gotResult domain.Result
}

func (f *fakeTaskDoner) TaskDone(jobID domain.JobID, taskName, reporter string, result domain.Result, summary string, outputs map[string]string, now time.Time) error {
	f.gotJobID = jobID
	f.gotTask = taskName
	f.gotResult = result
	return f.err
}

func newTestServer(sync *fakeSyncServer, engine *fakeTaskDoner) *Server {
	return NewServer(nil, sync, engine, http.NewServeMux(), true)
}

func TestHandleSyncReturnsWaitByDefault(t *testing.T) {
	sync := &fakeSyncServer{outcome: broker.SyncOutcome{WaitSeconds: 5}}
	s := newTestServer(sync, &fakeTaskDoner{})

	body := `<request runnerId="tr-1"/>`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<wait seconds="5">`)
	assert.Equal(t, "tr-1", sync.gotReq.RunnerID)
}

func TestHandleSyncRejectsNonPost(t *testing.T) {
	s := newTestServer(&fakeSyncServer{}, &fakeTaskDoner{})
	req := httptest.NewRequest(http.MethodGet, "/sync", nil)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleSyncRejectsInvalidXML(t *testing.T) {
	s := newTestServer(&fakeSyncServer{}, &fakeTaskDoner{})
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("not xml"))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSyncRejectsMissingRunnerID(t *testing.T) {
	s := newTestServer(&fakeSyncServer{}, &fakeTaskDoner{})
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`<request/>`))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSyncEncodesAssignment(t *testing.T) {
	sync := &fakeSyncServer{outcome: broker.SyncOutcome{Assignment: &broker.Assignment{
		RunID: "run-1", TaskName: "build", Wrapper: "docker",
		Outputs: []string{"artifact"},
	}}}
	s := newTestServer(sync, &fakeTaskDoner{})

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`<request runnerId="tr-1"/>`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taskId="build"`)
	assert.Contains(t, w.Body.String(), "artifact")
}

func TestHandleTaskDoneReportsOutcome(t *testing.T) {
	engine := &fakeTaskDoner{}
	s := newTestServer(&fakeSyncServer{}, engine)

	body := `<taskDone id="job-1" name="build" result="ok"><output name="artifact">s3://x</output></taskDone>`
	req := httptest.NewRequest(http.MethodPost, "/taskDone?runnerId=tr-1", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.JobID("job-1"), engine.gotJobID)
	assert.Equal(t, "build", engine.gotTask)
	assert.Equal(t, domain.ResultOK, engine.gotResult)
}

func TestHandleTaskDoneRejectsInvalidResult(t *testing.T) {
	s := newTestServer(&fakeSyncServer{}, &fakeTaskDoner{})
	body := `<taskDone id="job-1" name="build" result="bogus"/>`
	req := httptest.NewRequest(http.MethodPost, "/taskDone", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTaskDonePropagatesEngineError(t *testing.T) {
	engine := &fakeTaskDoner{err: assertAnError{}}
	s := newTestServer(&fakeSyncServer{}, engine)

	body := `<taskDone id="job-1" name="build" result="ok"/>`
	req := httptest.NewRequest(http.MethodPost, "/taskDone", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }

func TestHandleSyncRebindsRunnerIDToAuthenticatedToken(t *testing.T) {
	tokens := &fakeTokenStore{byID: make(map[string]*domain.Token)}
	_, bearer, err := auth.Issue(tokens, domain.TokenResource, "tr-real", time.Time{}, nil)
	require.NoError(t, err)

	sync := &fakeSyncServer{outcome: broker.SyncOutcome{WaitSeconds: 5}}
	s := NewServer(auth.New(tokens), sync, &fakeTaskDoner{}, http.NewServeMux(), false)

	body := `<request runnerId="tr-impersonated"/>`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+bearer)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tr-real", sync.gotReq.RunnerID,
		"the authenticated token's owner must win over a self-asserted runnerId in the body")
}

func TestHandleSyncRejectsMissingBearerWhenAuthRequired(t *testing.T) {
	tokens := &fakeTokenStore{byID: make(map[string]*domain.Token)}
	s := NewServer(auth.New(tokens), &fakeSyncServer{}, &fakeTaskDoner{}, http.NewServeMux(), false)

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`<request runnerId="tr-1"/>`))
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthenticateSkipsWhenNoAuth(t *testing.T) {
	s := newTestServer(&fakeSyncServer{}, &fakeTaskDoner{})
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)

	tok, err := s.authenticate(req, domain.TokenResource)
	require.NoError(t, err)
	assert.Nil(t, tok)
}

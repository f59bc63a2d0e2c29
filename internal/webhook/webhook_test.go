package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResourceStore struct{ resources []*domain.Resource }

func (s *fakeResourceStore) All() []*domain.Resource { return s.resources }

type fakeScheduleStore struct {
	schedules []*domain.Schedule
	puts      []*domain.Schedule
}

func (s *fakeScheduleStore) All() []*domain.Schedule { return s.schedules }
func (s *fakeScheduleStore) Put(sched *domain.Schedule) error {
	s.puts = append(s.puts, sched)
	return nil
}

type fakeWaker struct{ woken bool }

func (w *fakeWaker) Wake() { w.woken = true }

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func pushBody(cloneURL, ref string) string {
	return `{"ref":"` + ref + `","repository":{"clone_url":"` + cloneURL + `"}}`
}

func newRequest(body, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	return req
}

func TestServeHTTPFiresMatchingTriggeredSchedule(t *testing.T) {
	repo := &domain.Resource{ID: "repo-1", Type: domain.RepositoryResType, Locator: "https://git.example/repo.git", Secret: "s3cr3t"}
	resources := &fakeResourceStore{resources: []*domain.Resource{repo}}
	sched := &domain.Schedule{ID: "sched-1", Repeat: domain.RepeatTriggered, Tags: map[string][]string{triggerTag: {"repo-1/main"}}}
	schedules := &fakeScheduleStore{schedules: []*domain.Schedule{sched}}
	waker := &fakeWaker{}

	h := New(resources, schedules, waker)

	body := pushBody(repo.Locator, "refs/heads/main")
	req := newRequest(body, sign([]byte(body), "s3cr3t"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, schedules.puts, 1)
	assert.True(t, waker.woken)
}

func TestServeHTTPRejectsWrongSignature(t *testing.T) {
	repo := &domain.Resource{ID: "repo-1", Type: domain.RepositoryResType, Locator: "https://git.example/repo.git", Secret: "s3cr3t"}
	resources := &fakeResourceStore{resources: []*domain.Resource{repo}}
	schedules := &fakeScheduleStore{}

	h := New(resources, schedules, nil)

	body := pushBody(repo.Locator, "refs/heads/main")
	req := newRequest(body, sign([]byte(body), "wrong-secret"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, schedules.puts)
}

func TestServeHTTPRejectsUnknownRepository(t *testing.T) {
	resources := &fakeResourceStore{}
	schedules := &fakeScheduleStore{}
	h := New(resources, schedules, nil)

	body := pushBody("https://git.example/unknown.git", "refs/heads/main")
	req := newRequest(body, sign([]byte(body), "dummysecret"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServeHTTPRejectsNonJSONContentType(t *testing.T) {
	h := New(&fakeResourceStore{}, &fakeScheduleStore{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("irrelevant"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestServeHTTPRejectsMalformedJSON(t *testing.T) {
	repo := &domain.Resource{ID: "repo-1", Type: domain.RepositoryResType, Locator: "x", Secret: "s"}
	resources := &fakeResourceStore{resources: []*domain.Resource{repo}}
	h := New(resources, &fakeScheduleStore{}, nil)

	req := newRequest("not json", sign([]byte("not json"), "dummysecret"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeHTTPIgnoresTagPushes(t *testing.T) {
	repo := &domain.Resource{ID: "repo-1", Type: domain.RepositoryResType, Locator: "https://git.example/repo.git", Secret: "s3cr3t"}
	resources := &fakeResourceStore{resources: []*domain.Resource{repo}}
	schedules := &fakeScheduleStore{}
	h := New(resources, schedules, nil)

	body := pushBody(repo.Locator, "refs/tags/v1.0.0")
	req := newRequest(body, sign([]byte(body), "s3cr3t"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "irrelevant")
}

func TestServeHTTPRejectsWhenRepositoryHasNoSecret(t *testing.T) {
	repo := &domain.Resource{ID: "repo-1", Type: domain.RepositoryResType, Locator: "https://git.example/repo.git"}
	resources := &fakeResourceStore{resources: []*domain.Resource{repo}}
	h := New(resources, &fakeScheduleStore{}, nil)

	body := pushBody(repo.Locator, "refs/heads/main")
	req := newRequest(body, sign([]byte(body), "dummysecret"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

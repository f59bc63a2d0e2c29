// Package webhook implements the inbound repository push-notification
// endpoint: match the payload's repository URL against a
// RepositoryResType Resource's locator, verify an HMAC-SHA256 signature
// over the raw request body using that resource's Secret, then trigger
// every TRIGGERED Schedule whose "sf.trigger" tag names the matched
// "<repositoryId>/<branch>" pair. Grounded on
// original_source/src/softfab/webhooks/__init__.py's WebhookResource:
// the same relevant-event / verify-signature / find-repository-URLs /
// find-branches pipeline, generalized to one hosting platform (GitHub-style
// X-Hub-Signature-256 header) since the pack's per-platform parser modules
// (webhooks/gogs.py etc.) were not included in original_source.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloud-scan/controlcenter/internal/domain"
	log "github.com/sirupsen/logrus"
)

const triggerTag = "sf.trigger"

// signatureHeader is the GitHub-convention header carrying
// "sha256=<hex hmac>" over the raw body.
const signatureHeader = "X-Hub-Signature-256"

// ResourceStore is the subset of store.Store[*domain.Resource] needed to
// find the repository a push notification refers to.
type ResourceStore interface {
	All() []*domain.Resource
}

// ScheduleStore is the subset of store.Store[*domain.Schedule] needed to
// find and persist TRIGGERED schedules.
type ScheduleStore interface {
	All() []*domain.Schedule
	Put(*domain.Schedule) error
}

// Waker lets the handler nudge the scheduler driver into an immediate
// re-evaluation instead of waiting for its next idle tick.
type Waker interface {
	Wake()
}

// pushPayload is the subset of a repository push notification body this
// handler reads. Hosting platforms vary in shape; the fields below cover
// GitHub/Gogs/Gitea-style payloads, which is what findRepositoryURLs and
// findBranches extract from in the original.
type pushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		CloneURL string `json:"clone_url"`
		HTMLURL  string `json:"html_url"`
		SSHURL   string `json:"ssh_url"`
	} `json:"repository"`
}

// repositoryURLs returns every URL form a push payload advertises for its
// repository, mirroring findRepositoryURLs's multi-URL match (a repository
// Resource's locator might be the clone, HTML, or SSH form).
func (p pushPayload) repositoryURLs() []string {
	var urls []string
	for _, u := range []string{p.Repository.CloneURL, p.Repository.HTMLURL, p.Repository.SSHURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// branch extracts the branch name from a "refs/heads/<branch>" ref,
// mirroring findBranches. Tag pushes (refs/tags/...) are not relevant.
func (p pushPayload) branch() (string, bool) {
	const prefix = "refs/heads/"
	if strings.HasPrefix(p.Ref, prefix) {
		return strings.TrimPrefix(p.Ref, prefix), true
	}
	return "", false
}

// Handler serves the repository push webhook.
type Handler struct {
	resources ResourceStore
	schedules ScheduleStore
	waker     Waker
}

func New(resources ResourceStore, schedules ScheduleStore, waker Waker) *Handler {
	return &Handler{resources: resources, schedules: schedules, waker: waker}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")

	contentType := r.Header.Get("Content-Type")
	if base, _, _ := strings.Cut(contentType, ";"); strings.TrimSpace(base) != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		fmt.Fprintln(w, "unsupported Content-Type; expected application/json")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "could not read request body")
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "invalid JSON: %s\n", err)
		return
	}

	// Find the repository. URLs compare case-insensitively: hosting
	// platforms either ignore case or redirect to all-lowercase.
	pushURLs := make(map[string]struct{})
	for _, u := range payload.repositoryURLs() {
		pushURLs[strings.ToLower(u)] = struct{}{}
	}
	var repo *domain.Resource
	for _, res := range h.resources.All() {
		if res.Type != domain.RepositoryResType {
			continue
		}
		if res.Locator == "" {
			continue
		}
		if _, ok := pushURLs[strings.ToLower(res.Locator)]; ok {
			repo = res
			break
		}
	}

	// Authenticate using the same code path regardless of whether a
	// repository was matched, to make timing attacks on "which repos
	// exist" harder.
	var errMsg string
	secret := "dummysecret"
	if repo == nil {
		errMsg = "no repository matches given URL(s)"
	} else if repo.Secret == "" {
		errMsg = "no secret has been set for repository"
	} else {
		secret = repo.Secret
	}
	if !verifySignature(r.Header.Get(signatureHeader), body, secret) {
		if errMsg == "" {
			errMsg = "signature mismatch"
		}
	}
	if errMsg != "" {
		log.WithField("error", errMsg).Warn("webhook: ignoring callback")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintln(w, "could not authenticate this callback")
		return
	}

	branch, ok := payload.branch()
	if !ok {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "irrelevant event ignored")
		return
	}

	tagValue := repo.ID + "/" + branch
	var fired []string
	for _, s := range h.schedules.All() {
		if s.Repeat != domain.RepeatTriggered {
			continue
		}
		if !contains(s.TagValues(triggerTag), tagValue) {
			continue
		}
		s.Trigger()
		if err := h.schedules.Put(s); err != nil {
			log.WithError(err).WithField("schedule", s.ID).Error("webhook: failed to record trigger")
			continue
		}
		fired = append(fired, s.ID)
	}
	if len(fired) > 0 && h.waker != nil {
		h.waker.Wake()
	}

	log.WithFields(log.Fields{
		"repository": repo.ID,
		"branch":     branch,
		"triggered":  fired,
	}).Info("webhook: received push")
	fmt.Fprintln(w, "received")
}

// verifySignature checks the "sha256=<hex>" header against an HMAC-SHA256
// of body keyed by secret, using constant-time comparison.
func verifySignature(header string, body []byte, secret string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	want, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	got := mac.Sum(nil)
	return hmac.Equal(want, got)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package api

import (
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloud-scan/controlcenter/internal/auth"
	"github.com/cloud-scan/controlcenter/internal/broker"
	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
	log "github.com/sirupsen/logrus"
)

// SyncServer is the subset of broker.Server the sync handler needs.
type SyncServer interface {
	Sync(req broker.SyncRequest, now time.Time) broker.SyncOutcome
}

// TaskDoner is the subset of engine.Engine the result-report handler needs.
type TaskDoner interface {
	TaskDone(jobID domain.JobID, taskName, reporter string, result domain.Result, summary string, outputs map[string]string, now time.Time) error
}

// Server wires the three HTTP endpoints to their backing
// components, behind the bearer-token authenticator.
type Server struct {
	auth    *auth.Authenticator
	sync    SyncServer
	engine  TaskDoner
	webhook http.Handler
	noAuth  bool
}

func NewServer(a *auth.Authenticator, sync SyncServer, engine TaskDoner, wh http.Handler, noAuth bool) *Server {
	return &Server{auth: a, sync: sync, engine: engine, webhook: wh, noAuth: noAuth}
}

// Handler returns the fully wrapped root handler (routing plus middleware).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/taskDone", s.handleTaskDone)
	mux.Handle("/webhook/", http.StripPrefix("/webhook", s.webhook))
	return recoveryMiddleware(loggingMiddleware(mux))
}

func (s *Server) authenticate(r *http.Request, role domain.TokenRole) (*domain.Token, error) {
	if s.noAuth {
		return nil, nil
	}
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, prefix) {
		return nil, ctlerr.AccessDeniedf("api: missing bearer credential")
	}
	return s.auth.Verify(strings.TrimPrefix(h, prefix), role, time.Now())
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tok, err := s.authenticate(r, domain.TokenResource)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: reading request body: %v", err))
		return
	}
	var req syncRequestXML
	if err := xml.Unmarshal(body, &req); err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: decoding sync request: %v", err))
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: invalid sync request: %v", err))
		return
	}

	caps := make([]string, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		caps = append(caps, c.Name)
	}
	sreq := broker.SyncRequest{
		RunnerID:      req.RunnerID,
		RunnerVersion: req.RunnerVersion,
		Capabilities:  caps,
		ExitOnIdle:    req.ExitOnIdle != nil,
	}
	if tok != nil {
		sreq.RunnerID = tok.Owner
	}
	if req.Target != nil {
		sreq.Target = req.Target.Name
	}
	if req.Run != nil {
		id := domain.RunID(req.Run.RunID)
		sreq.ReportedRun = &id
	}
	if req.ShadowRun != nil {
		id := domain.RunID(req.ShadowRun.ShadowID)
		sreq.ReportedShadow = &id
	}

	outcome := s.sync.Sync(sreq, time.Now())
	resp := syncResponseXML{}
	switch {
	case outcome.Abort:
		resp.Abort = &struct{}{}
	case outcome.Exit:
		resp.Exit = &struct{}{}
	case outcome.Assignment != nil:
		resp.Assignment = encodeAssignment(outcome.Assignment)
	default:
		resp.Wait = &waitXML{Seconds: outcome.WaitSeconds}
	}

	w.Header().Set("Content-Type", "application/xml")
	enc := xml.NewEncoder(w)
	if err := enc.Encode(resp); err != nil {
		log.WithError(err).Error("api: encoding sync response")
	}
}

func encodeAssignment(a *broker.Assignment) *assignmentXML {
	out := &assignmentXML{
		RunID: string(a.RunID), TaskID: a.TaskName, Wrapper: a.Wrapper,
		TimeoutMins: a.TimeoutMins, Outputs: append([]string(nil), a.Outputs...),
	}
	for name, value := range a.Params {
		out.Params = append(out.Params, paramRefXML{Name: name, Value: value.Value})
	}
	for name, locator := range a.Inputs {
		out.Inputs = append(out.Inputs, inputRefXML{Name: name, Locator: locator})
	}
	for ref, res := range a.Resources {
		out.Resources = append(out.Resources, resourceRefXML{Ref: ref, Locator: res.Locator})
	}
	return out
}

func (s *Server) handleTaskDone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tok, err := s.authenticate(r, domain.TokenResource)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: reading request body: %v", err))
		return
	}
	var done taskDoneXML
	if err := xml.Unmarshal(body, &done); err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: decoding taskDone: %v", err))
		return
	}
	if err := validate.Struct(&done); err != nil {
		writeError(w, ctlerr.InvalidRequestf("api: invalid taskDone: %v", err))
		return
	}

	reporter := r.URL.Query().Get("runnerId")
	if tok != nil {
		reporter = tok.Owner
	}

	outputs := make(map[string]string, len(done.Outputs))
	for _, o := range done.Outputs {
		outputs[o.Name] = o.Locator
	}

	err = s.engine.TaskDone(domain.JobID(done.JobID), done.TaskName, reporter,
		domain.Result(done.Result), done.Summary, outputs, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

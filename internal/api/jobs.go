package api

import (
	"net/http"
	"strings"

	"essaygrader/internal/grading"
	"essaygrader/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func jobWorkflowID(jobID string) string {
	return "grade-" + jobID
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusNotImplemented, errJobsDisabled)
		return
	}
	form, err := s.parseGradeForm(w, r)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	// Validate before starting so bad input is a 400 here rather than a
	// failed workflow later.
	if _, err := grading.NewRequest(form.Essay, form.Options); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	jobID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    jobWorkflowID(jobID),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.GradeEssayWorkflow, workflows.GradeEssayInput{
		GradingID:   jobID,
		Essay:       form.Essay,
		Options:     form.Options,
		Target:      form.Target,
		WriteReport: true,
	})
	if err != nil {
		s.log.Error("api: start grading job failed", zap.String("job_id", jobID), zap.Error(err))
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

// handleJobScoped reports a job's status, and its result once completed.
func (s *Server) handleJobScoped(w http.ResponseWriter, r *http.Request) {
	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	if jobID == "" || strings.Contains(jobID, "/") {
		writeErr(w, http.StatusNotFound, errNotFound)
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusNotImplemented, errJobsDisabled)
		return
	}
	wfID := jobWorkflowID(jobID)
	resp, err := s.temporal.QueryWorkflow(r.Context(), wfID, "", workflows.QueryGetGradeStatus)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	var status workflows.GradeStatus
	if err := resp.Get(&status); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	body := map[string]any{"job_id": jobID, "status": status}
	if status.Status == "completed" {
		var out workflows.GradeEssayOutput
		if err := s.temporal.GetWorkflow(r.Context(), wfID, "").Get(r.Context(), &out); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		body["result"] = newGradingResponse(out.Result)
		body["report_path"] = out.ReportPath
	}
	writeJSON(w, http.StatusOK, body)
}

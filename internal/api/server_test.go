package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"essaygrader/internal/config"
	"essaygrader/internal/grading"
	"essaygrader/internal/providers"
	"essaygrader/internal/storage"
	"essaygrader/internal/workflows"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/mocks"
)

const essay = "Technology changes how students learn. It brings new tools into the classroom."

type fakeConverter struct {
	html string
	err  error
}

func (f *fakeConverter) Convert(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type jsonValue struct{ v any }

func (j jsonValue) HasValue() bool { return j.v != nil }

func (j jsonValue) Get(ptr interface{}) error {
	b, err := json.Marshal(j.v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ptr)
}

type fakeJobs struct {
	started []tclient.StartWorkflowOptions
	inputs  []workflows.GradeEssayInput
	status  workflows.GradeStatus
	out     workflows.GradeEssayOutput
}

func (f *fakeJobs) ExecuteWorkflow(_ context.Context, opts tclient.StartWorkflowOptions, _ interface{}, args ...interface{}) (tclient.WorkflowRun, error) {
	f.started = append(f.started, opts)
	f.inputs = append(f.inputs, args[0].(workflows.GradeEssayInput))
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return(opts.ID)
	run.On("GetRunID").Return("run-1")
	return run, nil
}

func (f *fakeJobs) QueryWorkflow(_ context.Context, _ string, _ string, queryType string, _ ...interface{}) (converter.EncodedValue, error) {
	if queryType != workflows.QueryGetGradeStatus {
		return nil, fmt.Errorf("unknown query %s", queryType)
	}
	return jsonValue{f.status}, nil
}

func (f *fakeJobs) GetWorkflow(_ context.Context, _ string, _ string) tclient.WorkflowRun {
	run := &mocks.WorkflowRun{}
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*(args.Get(1).(*workflows.GradeEssayOutput)) = f.out
	}).Return(nil)
	return run
}

type testEnv struct {
	srv   *httptest.Server
	store *storage.SQLiteStore
	conv  *fakeConverter
}

func newTestEnv(t *testing.T, jobs JobClient) testEnv {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Config{Provider: "mock", Model: "mock-grader-v1", ModelTimeoutSecs: 5, MaxUploadMB: 1, TemporalTaskQueue: "essaygrader"}
	conv := &fakeConverter{}
	deps := Deps{
		Grader:    grading.NewService(providers.NewManager(cfg), store, nil),
		Store:     store,
		Converter: conv,
	}
	if jobs != nil {
		deps.Temporal = jobs
	}
	srv := httptest.NewServer(NewServer(cfg, deps).Routes())
	t.Cleanup(srv.Close)
	return testEnv{srv: srv, store: store, conv: conv}
}

func multipartBody(t *testing.T, fields map[string]string, file string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", file)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])
	require.Equal(t, true, body["history"])
	require.Equal(t, false, body["jobs"])
}

func TestIndexIsServed(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "Essay Grader")

	resp, err = http.Get(env.srv.URL + "/static/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModels(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/models", map[string][]string{"provider": {"mock"}})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []any{"mock-grader-v1"}, body["models"])
}

func TestModelsUnreachableServer(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/models", map[string][]string{"provider": {"ollama"}, "ollama_url": {url}})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "EG-LLM-5030", errorCode(body))
}

func TestAnalyzeAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	body, ct := multipartBody(t, map[string]string{
		"text_input": essay,
		"criteria":   "grammar,vocabulary,coherence,spelling",
		"tone":       "encouraging",
	}, "", nil)
	resp, err := http.Post(env.srv.URL+"/analyze", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, essay, out["original"])
	require.Contains(t, out["annotated"], `<mark class="ai-comment">[Comment: Consider a stronger opening sentence.]</mark>`)
	require.NotEqual(t, "N/A", out["grade"])
	require.Equal(t, "The essay states its topic clearly.", out["strengths"])
	require.Empty(t, out["warnings"])
	require.Empty(t, out["degraded"])
	scores := out["detailed_scores"].(map[string]any)
	require.Len(t, scores, 5)

	id := out["id"].(string)
	resp, err = http.Get(env.srv.URL + "/gradings/" + id)
	require.NoError(t, err)
	saved := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, out["grade"], saved["grade"])
	require.Equal(t, out["annotated"], saved["annotated"])

	resp, err = http.Get(env.srv.URL + "/gradings")
	require.NoError(t, err)
	list := decode(t, resp)
	require.Len(t, list["gradings"], 1)

	resp, err = http.Get(env.srv.URL + "/gradings/" + id + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(html), "Overall Grade: ")
}

func TestAnalyzeUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	body, ct := multipartBody(t, nil, "essay.txt", []byte("\ufeff"+essay))
	resp, err := http.Post(env.srv.URL+"/analyze", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, essay, out["original"])
}

func TestAnalyzeWeightMismatchWarns(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/analyze", map[string][]string{
		"text_input":        {essay},
		"weight_grammar":    {"30"},
		"weight_vocabulary": {"30"},
		"weight_coherence":  {"30"},
	})
	require.NoError(t, err)
	out := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []any{"rubric weights sum to 90, not 100"}, out["warnings"])
}

func TestAnalyzeInputErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	cases := map[string]map[string][]string{
		"empty":            {"text_input": {"   "}},
		"unknown criteria": {"text_input": {essay}, "criteria": {"grammar,style"}},
		"bad weight":       {"text_input": {essay}, "weight_grammar": {"lots"}},
		"bad tone":         {"text_input": {essay}, "tone": {"sarcastic"}},
		"unknown provider": {"text_input": {essay}, "provider": {"carrier-pigeon"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.PostForm(env.srv.URL+"/analyze", form)
			require.NoError(t, err)
			body := decode(t, resp)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, "EG-API-4001", errorCode(body))
		})
	}
}

func TestAnalyzeModelDown(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'llama3' not found"}`))
	}))
	defer model.Close()

	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/analyze", map[string][]string{
		"text_input": {essay},
		"provider":   {"ollama"},
		"ollama_url": {model.URL},
	})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "EG-LLM-5030", errorCode(body))

	resp, err = http.Get(env.srv.URL + "/gradings")
	require.NoError(t, err)
	list := decode(t, resp)
	require.Empty(t, list["gradings"])
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.srv.URL + "/analyze")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "EG-API-4005", errorCode(body))
}

func TestAnnotateFlattenRemove(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, out := postJSON(t, env.srv.URL+"/annotations", annotateRequest{
		AnnotatedHTML: `Hello <mark class="ai-comment">[Comment: hi]</mark> world`,
		Start:         0,
		End:           5,
		Comment:       "greeting",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["applied"])
	html := out["annotated_html"].(string)
	require.Contains(t, html, `title="greeting">Hello</span>`)
	require.Contains(t, html, `<mark class="ai-comment">[Comment: hi]</mark>`)

	resp, out = postJSON(t, env.srv.URL+"/flatten", flattenRequest{AnnotatedHTML: html})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), out["flattened"])
	flat := out["annotated_html"].(string)
	require.Contains(t, flat, "[Manual Annotation: greeting]")

	resp, out = postJSON(t, env.srv.URL+"/flatten", flattenRequest{AnnotatedHTML: flat})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), out["flattened"])
	require.Equal(t, flat, out["annotated_html"])

	var id int
	for _, part := range strings.Split(flat, `data-id="`)[1:] {
		_, err := fmt.Sscanf(part, "%d", &id)
		require.NoError(t, err)
		break
	}
	resp, out = postJSON(t, env.srv.URL+"/annotations/remove", removeRequest{AnnotatedHTML: flat, ID: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `Hello <mark class="ai-comment">[Comment: hi]</mark> world`, out["annotated_html"])
}

func TestAnnotateNoOpAndOutOfRange(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, out := postJSON(t, env.srv.URL+"/annotations", annotateRequest{AnnotatedHTML: "Hello world", Start: 0, End: 5, Comment: "  "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["applied"])
	require.Equal(t, "Hello world", out["annotated_html"])

	resp, out = postJSON(t, env.srv.URL+"/annotations", annotateRequest{AnnotatedHTML: "Hello world", Start: 3, End: 40, Comment: "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "EG-API-4001", errorCode(out))

	resp, out = postJSON(t, env.srv.URL+"/annotations/remove", removeRequest{AnnotatedHTML: "Hello world", ID: 9})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "EG-API-4004", errorCode(out))
}

func downloadForm() map[string][]string {
	return map[string][]string{
		"original_essay":  {"Hello world"},
		"annotated_html":  {`<span class="teacher-manual-annotation" data-id="1" title="hi">Hello</span> world<script>alert(1)</script>`},
		"grade":           {"80"},
		"detailed_scores": {`{"grammar":"80","vocabulary":"N/A"}`},
		"strengths":       {"Short."},
		"weaknesses":      {""},
		"suggestions":     {"Write more."},
	}
}

func TestDownloadPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/download", downloadForm())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "graded_essay.pdf")
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 fake", string(b))

	require.Contains(t, env.conv.html, "[Manual Annotation: hi]")
	require.Contains(t, env.conv.html, "Overall Grade: 80/100")
	require.Contains(t, env.conv.html, "Not provided")
	require.NotContains(t, env.conv.html, "<script>")
}

func TestDownloadConverterFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.conv.err = fmt.Errorf("%w: weasyprint: not installed", grading.ErrRender)
	resp, err := http.PostForm(env.srv.URL+"/download", downloadForm())
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "EG-PDF-5002", errorCode(body))
}

func TestJobsDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.PostForm(env.srv.URL+"/jobs", map[string][]string{"text_input": {essay}})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	require.Equal(t, "EG-API-5010", errorCode(body))
}

func TestJobsStartAndPoll(t *testing.T) {
	jobs := &fakeJobs{}
	env := newTestEnv(t, jobs)
	resp, err := http.PostForm(env.srv.URL+"/jobs", map[string][]string{"text_input": {essay}, "provider": {"mock"}})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobID := body["job_id"].(string)
	require.Equal(t, "grade-"+jobID, body["workflow_id"])

	require.Len(t, jobs.started, 1)
	require.Equal(t, "essaygrader", jobs.started[0].TaskQueue)
	require.Equal(t, essay, jobs.inputs[0].Essay)
	require.Equal(t, "mock", jobs.inputs[0].Target.Provider)

	jobs.status = workflows.GradeStatus{GradingID: jobID, Status: "processing", CurrentStep: "generate"}
	resp, err = http.Get(env.srv.URL + "/jobs/" + jobID)
	require.NoError(t, err)
	body = decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, body["result"])

	jobs.status.Status = "completed"
	jobs.out = workflows.GradeEssayOutput{Result: grading.Analyze(essay, providers.MockReply(essay), nil)}
	resp, err = http.Get(env.srv.URL + "/jobs/" + jobID)
	require.NoError(t, err)
	body = decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	require.Equal(t, essay, result["original"])
}

func TestJobsRejectBadInputBeforeStart(t *testing.T) {
	jobs := &fakeJobs{}
	env := newTestEnv(t, jobs)
	resp, err := http.PostForm(env.srv.URL+"/jobs", map[string][]string{"text_input": {essay}, "preset": {"SAT"}})
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "EG-API-4001", errorCode(body))
	require.Empty(t, jobs.started)
}

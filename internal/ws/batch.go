package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go-azml-client/internal/blob"
	"go-azml-client/internal/codec"
	"go-azml-client/internal/model"
	"go-azml-client/pkg/utils"
)

// DefaultPollInterval is the cadence of job status checks.
const DefaultPollInterval = 5 * time.Second

// BatchClient runs one scoring call through the asynchronous batch flow:
// stage inputs on the blob store, submit and start a job, poll until a
// terminal state, download the outputs.
type BatchClient struct {
	HTTPClient   *http.Client
	Stager       *blob.Stager
	PollInterval time.Duration
	Codec        codec.Options
	// OnJobSubmitted, when set, observes the job id right after
	// submission.
	OnJobSubmitted func(jobID string)
}

// Execute runs the full batch state machine. Polling is unbounded: the
// caller's ctx is the only way to cut a job short. Staged blobs are left
// in place afterwards.
func (c *BatchClient) Execute(ctx context.Context, baseURL, apiKey string, inputs map[string]*model.Table, params map[string]string, outputNames []string) (map[string]*model.Table, error) {
	stamp := utils.UniqueStamp(time.Now())

	inputRefs := make(map[string]model.BlobRef, len(inputs))
	for name, table := range inputs {
		data, err := codec.TableToCSV(table, c.Codec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input %s: %w", name, err)
		}
		ref, err := c.Stager.StageInput(name, stamp, data)
		if err != nil {
			return nil, err
		}
		inputRefs[name] = ref
	}

	outputRefs := make(map[string]model.BlobRef, len(outputNames))
	for _, name := range outputNames {
		ref, err := c.Stager.OutputRef(name, stamp)
		if err != nil {
			return nil, err
		}
		outputRefs[name] = ref
	}

	jobID, err := c.submitJob(ctx, baseURL, apiKey, model.BatchRequest{
		Inputs:           inputRefs,
		GlobalParameters: orEmpty(params),
		Outputs:          outputRefs,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🚀 batch job %s submitted", jobID)
	if c.OnJobSubmitted != nil {
		c.OnJobSubmitted(jobID)
	}
	defer c.deleteJob(baseURL, apiKey, jobID)

	if err := c.startJob(ctx, baseURL, apiKey, jobID); err != nil {
		return nil, err
	}

	status, err := c.pollUntilTerminal(ctx, baseURL, apiKey, jobID)
	if err != nil {
		return nil, err
	}

	jobStatus, err := model.ParseJobStatus(string(status.StatusCode))
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	switch jobStatus {
	case model.JobFailed:
		return nil, &JobExecutionError{JobID: jobID, Status: jobStatus, Details: status.Details}
	case model.JobCancelled:
		return nil, &JobStateError{JobID: jobID, Status: jobStatus}
	}

	outputs := make(map[string]*model.Table, len(outputRefs))
	for name, ref := range outputRefs {
		// The service may relocate an output; its reported ref wins.
		if reported, ok := status.Results[name]; ok {
			ref = reported
		}
		data, err := c.Stager.Download(ref)
		if err != nil {
			return nil, err
		}
		table, err := codec.TableFromCSV(data, c.Codec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode output %s: %w", name, err)
		}
		outputs[name] = table
	}
	log.Printf("✅ batch job %s finished, %d outputs downloaded", jobID, len(outputs))
	return outputs, nil
}

func (c *BatchClient) submitJob(ctx context.Context, baseURL, apiKey string, spec model.BatchRequest) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to encode job spec: %w", err)
	}
	_, respBody, err := doJSON(ctx, c.HTTPClient, http.MethodPost, jobsURL(baseURL, ""), apiKey, body)
	if err != nil {
		return "", err
	}
	return parseJobID(respBody)
}

func (c *BatchClient) startJob(ctx context.Context, baseURL, apiKey, jobID string) error {
	_, _, err := doJSON(ctx, c.HTTPClient, http.MethodPost, jobsURL(baseURL, jobID+"/start"), apiKey, nil)
	return err
}

// pollUntilTerminal checks the job status at the configured interval
// until the service reports a terminal state.
func (c *BatchClient) pollUntilTerminal(ctx context.Context, baseURL, apiKey, jobID string) (*model.JobStatusResponse, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		_, respBody, err := doJSON(ctx, c.HTTPClient, http.MethodGet, jobsURL(baseURL, jobID), apiKey, nil)
		if err != nil {
			return nil, err
		}
		var status model.JobStatusResponse
		if err := json.Unmarshal(respBody, &status); err != nil {
			return nil, fmt.Errorf("job %s: malformed status response: %w", jobID, err)
		}
		jobStatus, err := model.ParseJobStatus(string(status.StatusCode))
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", jobID, err)
		}
		log.Printf("⏳ job %s status: %s", jobID, jobStatus)
		if jobStatus.Terminal() {
			return &status, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("job %s: polling interrupted: %w", jobID, ctx.Err())
		case <-time.After(interval):
		}
	}
}

// deleteJob removes the job server-side, best effort. Runs even when the
// caller's context is already cancelled.
func (c *BatchClient) deleteJob(baseURL, apiKey, jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, _, err := doJSON(ctx, c.HTTPClient, http.MethodDelete, jobsURL(baseURL, jobID), apiKey, nil); err != nil {
		log.Printf("⚠️ failed to delete job %s: %v", jobID, err)
	}
}

func jobsURL(baseURL, suffix string) string {
	url := joinURL(baseURL, "/jobs")
	if suffix != "" {
		url += "/" + suffix
	}
	return url + "?api-version=" + apiVersion
}

// parseJobID tolerates both a bare and a JSON-quoted job identifier.
func parseJobID(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	var id string
	if err := json.Unmarshal([]byte(trimmed), &id); err == nil {
		trimmed = id
	}
	if trimmed == "" {
		return "", fmt.Errorf("job submission returned no job id")
	}
	return trimmed, nil
}

func orEmpty(params map[string]string) map[string]string {
	if params == nil {
		return map[string]string{}
	}
	return params
}

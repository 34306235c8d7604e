package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/errs"
	"github.com/codeready-toolchain/meetingcore/pkg/summarize"
)

// summarizeRequestTimeout bounds one call to the summarization service.
const summarizeRequestTimeout = 2 * time.Minute

// httpSummarizeClient is the minimal external-collaborator seam for
// summarize.Client: a plain JSON POST to an externally hosted
// summarization service. The prompt templates and LLM client live behind
// a thin interface by design — this is that interface's only concrete
// production wiring, deliberately without any prompt construction of its
// own.
type httpSummarizeClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// newSummarizeClient builds the client from SUMMARIZE_SERVICE_URL and
// SUMMARIZE_SERVICE_API_KEY. Both are read directly from the environment,
// like every other secret in this module, rather than from the YAML
// configuration file.
func newSummarizeClient() summarize.Client {
	return &httpSummarizeClient{
		httpClient: &http.Client{Timeout: summarizeRequestTimeout},
		endpoint:   os.Getenv("SUMMARIZE_SERVICE_URL"),
		apiKey:     os.Getenv("SUMMARIZE_SERVICE_API_KEY"),
	}
}

type summarizeRequest struct {
	MeetingSubject     string    `json:"meeting_subject"`
	OrganizerName      string    `json:"organizer_name"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	ParticipantNames   []string  `json:"participant_names"`
	Transcript         string    `json:"transcript"`
	CustomInstructions string    `json:"custom_instructions,omitempty"`
	Version            int       `json:"version"`
}

type summarizeResponse struct {
	SummaryText      string   `json:"summary_text"`
	SummaryHTML      string   `json:"summary_html"`
	ActionItems      []string `json:"action_items"`
	Decisions        []string `json:"decisions"`
	Topics           []string `json:"topics"`
	Highlights       []string `json:"highlights"`
	Mentions         []string `json:"mentions"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	CostUSD          float64  `json:"cost_usd"`
}

// Generate posts the transcript and meeting metadata to the summarization
// service and decodes its structured response.
func (c *httpSummarizeClient) Generate(ctx context.Context, input summarize.Input) (summarize.Output, error) {
	if c.endpoint == "" {
		return summarize.Output{}, errs.NewNonRetryable("summarization service", fmt.Errorf("SUMMARIZE_SERVICE_URL is not set"))
	}

	body, err := json.Marshal(summarizeRequest{
		MeetingSubject:     input.MeetingSubject,
		OrganizerName:      input.OrganizerName,
		StartTime:          input.StartTime,
		EndTime:            input.EndTime,
		ParticipantNames:   input.ParticipantNames,
		Transcript:         input.Transcript,
		CustomInstructions: input.CustomInstructions,
		Version:            input.Version,
	})
	if err != nil {
		return summarize.Output{}, errs.NewNonRetryable("encoding summarize request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return summarize.Output{}, errs.NewNonRetryable("building summarize request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return summarize.Output{}, errs.NewRetryable("summarization service request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return summarize.Output{}, errs.NewRetryable("reading summarization service response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return summarize.Output{}, errs.NewRetryable(
			fmt.Sprintf("summarization service returned %d", resp.StatusCode),
			fmt.Errorf("%s", respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return summarize.Output{}, errs.NewNonRetryable(
			fmt.Sprintf("summarization service returned %d", resp.StatusCode),
			fmt.Errorf("%s", respBody))
	}

	var out summarizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return summarize.Output{}, errs.NewNonRetryable("decoding summarization service response", err)
	}

	return summarize.Output{
		SummaryText:      out.SummaryText,
		SummaryHTML:      out.SummaryHTML,
		ActionItems:      out.ActionItems,
		Decisions:        out.Decisions,
		Topics:           out.Topics,
		Highlights:       out.Highlights,
		Mentions:         out.Mentions,
		Model:            out.Model,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
		CostUSD:          out.CostUSD,
	}, nil
}

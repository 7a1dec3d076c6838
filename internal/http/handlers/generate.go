package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"imagestudio/internal/jobs"
)

const generateRequestSchema = `{
	"type": "object",
	"properties": {
		"prompt": {"type": "string"},
		"images": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

var generateSchema = jsonschema.MustCompileString("generate_request.json", generateRequestSchema)

type generateRequest struct {
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
}

type generateResponse struct {
	Success bool     `json:"success"`
	JobID   int64    `json:"job_id"`
	Images  []string `json:"images"`
	Text    string   `json:"text"`
}

// Generate runs a job to completion and answers with the generated images
// as data URLs.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	req, err := a.decodeGenerate(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "request_too_large", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := a.Jobs.Submit(r.Context(), jobs.SubmitRequest{Prompt: req.Prompt, Images: req.Images})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	images := make([]string, len(res.Outputs))
	for i, out := range res.Outputs {
		images[i] = out.DataURL
	}
	a.json(w, http.StatusOK, generateResponse{Success: true, JobID: res.JobID, Images: images, Text: res.Text})
}

func (a *App) decodeGenerate(w http.ResponseWriter, r *http.Request) (generateRequest, error) {
	var req generateRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes()))
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return req, errors.New("invalid JSON body")
	}
	if err := generateSchema.Validate(doc); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, errors.New("invalid JSON body")
	}
	return req, nil
}

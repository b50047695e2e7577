package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/resilience"
)

// Client forwards assignments to the external analysis workflow as multipart form posts.
type Client struct {
	url        string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(url string, executor *resilience.Executor) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Submit(ctx context.Context, req domain.AnalysisRequest, file io.Reader) error {
	if c.url == "" {
		return errors.New("ANALYSIS_WEBHOOK_URL is not configured")
	}

	// The body is rebuilt on every attempt, so the file is buffered once up front.
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read assignment file: %w", err)
	}

	call := func(ctx context.Context) error {
		return c.post(ctx, req, data)
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "analysis.webhook", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if resilience.ClassifyHTTPError(err).Retryable {
			return domain.WrapError(domain.ErrTemporary, "submit analysis", err)
		}
		return err
	}
	return nil
}

func (c *Client) post(ctx context.Context, req domain.AnalysisRequest, data []byte) error {
	body, contentType, err := buildForm(req, data)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("analysis webhook", "submit", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildForm(req domain.AnalysisRequest, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipartDisposition("data", req.Filename))
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	fields := [][2]string{
		{"student_email", req.StudentEmail},
		{"student_id", req.StudentID},
		{"filename", req.Filename},
		{"assignment_id", strconv.FormatInt(req.AssignmentID, 10)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartDisposition(field, filename string) string {
	return fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(filename))
}

// Package dashboard is the Go client SDK behind the admin scheduling screen:
// it loads weekly snapshots, searches students, and drives the trial booking
// intake flow against the gateway API.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nayeem-islam/linguadesk/libs/schedule"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Student struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NewStudent struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Whatsapp string `json:"whatsapp,omitempty"`
	Country  string `json:"country,omitempty"`
}

type TrialRequest struct {
	TeacherID  string      `json:"teacher_id"`
	CourseID   string      `json:"course_id"`
	TrialDate  string      `json:"trial_date"`
	StartTime  string      `json:"start_time"`
	EndTime    string      `json:"end_time"`
	Notes      string      `json:"notes,omitempty"`
	StudentID  string      `json:"student_id,omitempty"`
	NewStudent *NewStudent `json:"new_student,omitempty"`
}

// API is the slice of the gateway surface the scheduling screen consumes.
type API interface {
	FetchWeekly(ctx context.Context, teacherID string, weekStart time.Time) (*schedule.WeekSnapshot, error)
	SearchStudents(ctx context.Context, query string, limit, offset int) ([]Student, error)
	ListCourses(ctx context.Context) ([]Course, error)
	CreateTrial(ctx context.Context, req TrialRequest, idempotencyKey string) (string, error)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) FetchWeekly(ctx context.Context, teacherID string, weekStart time.Time) (*schedule.WeekSnapshot, error) {
	q := url.Values{}
	q.Set("teacher_id", teacherID)
	q.Set("week_start", weekStart.Format("2006-01-02"))

	var snapshot schedule.WeekSnapshot
	if err := c.getJSON(ctx, "/api/v1/schedule/weekly?"+q.Encode(), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) SearchStudents(ctx context.Context, query string, limit, offset int) ([]Student, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp struct {
		Students []Student `json:"students"`
	}
	if err := c.getJSON(ctx, "/api/v1/directory/students?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Students, nil
}

func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var resp struct {
		Courses []Course `json:"courses"`
	}
	if err := c.getJSON(ctx, "/api/v1/directory/courses", &resp); err != nil {
		return nil, err
	}
	return resp.Courses, nil
}

func (c *Client) CreateTrial(ctx context.Context, req TrialRequest, idempotencyKey string) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &SubmissionError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/schedule/trials", bytes.NewReader(body))
	if err != nil {
		return "", &SubmissionError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &SubmissionError{Err: err}
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var created struct {
		TrialID string `json:"trial_id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", &SubmissionError{Err: err}
	}
	return created.TrialID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &LoadError{Op: path, Err: err}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &LoadError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &LoadError{Op: path, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &LoadError{Op: path, Err: err}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

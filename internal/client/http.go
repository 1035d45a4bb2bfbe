// Package client provides controller backends: one speaking to the HTTP API and
// one calling the services in-process.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

const defaultTimeout = 15 * time.Second

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

// HTTPBackend drives the points API over HTTP. Requests are never retried.
type HTTPBackend struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPBackend builds a backend for the API rooted at baseURL, e.g. http://localhost:8080/api/v1.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
	}
}

// Authenticate logs in and keeps the issued token for later calls.
func (b *HTTPBackend) Authenticate(ctx context.Context, password string) (bool, error) {
	var res models.LoginResponse
	err := b.do(ctx, http.MethodPost, "/auth/login", b.client.R().SetBody(models.LoginRequest{Password: password}), &res)
	if errors.Is(err, appErrors.ErrInvalidCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.mu.Lock()
	b.token = res.AccessToken
	b.mu.Unlock()
	return res.Valid, nil
}

// ChangePassword reports false when the old password does not match.
func (b *HTTPBackend) ChangePassword(ctx context.Context, oldPassword, newPassword string) (bool, error) {
	body := models.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	var res models.ChangePasswordResponse
	err := b.do(ctx, http.MethodPost, "/auth/change-password", b.client.R().SetBody(body), &res)
	if errors.Is(err, appErrors.ErrForbidden) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Changed, nil
}

// CloseSession forgets the access token.
func (b *HTTPBackend) CloseSession() {
	b.mu.Lock()
	b.token = ""
	b.mu.Unlock()
}

func (b *HTTPBackend) CreateRecord(ctx context.Context, req models.CreateRecordRequest) error {
	return b.do(ctx, http.MethodPost, "/records", b.client.R().SetBody(req), nil)
}

func (b *HTTPBackend) ListRecords(ctx context.Context) ([]models.Record, error) {
	return b.SearchRecords(ctx, "")
}

func (b *HTTPBackend) SearchRecords(ctx context.Context, term string) ([]models.Record, error) {
	var records []models.Record
	err := b.do(ctx, http.MethodGet, "/records", withTerm(b.client.R(), term), &records)
	return records, err
}

func (b *HTTPBackend) ListSummaries(ctx context.Context) ([]models.Summary, error) {
	return b.SearchSummaries(ctx, "")
}

func (b *HTTPBackend) SearchSummaries(ctx context.Context, term string) ([]models.Summary, error) {
	var summaries []models.Summary
	err := b.do(ctx, http.MethodGet, "/summaries", withTerm(b.client.R(), term), &summaries)
	return summaries, err
}

func (b *HTTPBackend) StudentRecords(ctx context.Context, studentID string) ([]models.Record, error) {
	var records []models.Record
	req := b.client.R().SetPathParam("studentId", studentID)
	err := b.do(ctx, http.MethodGet, "/students/{studentId}/records", req, &records)
	return records, err
}

func (b *HTTPBackend) UpdateRecord(ctx context.Context, id int64, body models.UpdateRecordRequest) error {
	req := b.client.R().SetPathParam("id", strconv.FormatInt(id, 10)).SetBody(body)
	return b.do(ctx, http.MethodPut, "/records/{id}", req, nil)
}

func (b *HTTPBackend) DeleteRecord(ctx context.Context, id int64) error {
	req := b.client.R().SetPathParam("id", strconv.FormatInt(id, 10))
	return b.do(ctx, http.MethodDelete, "/records/{id}", req, nil)
}

func (b *HTTPBackend) Reset(ctx context.Context) error {
	return b.do(ctx, http.MethodPost, "/maintenance/reset", b.client.R(), nil)
}

func (b *HTTPBackend) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	var backups []models.BackupInfo
	err := b.do(ctx, http.MethodGet, "/backups", b.client.R(), &backups)
	return backups, err
}

func (b *HTTPBackend) RestoreBackup(ctx context.Context, name string) error {
	req := b.client.R().SetPathParam("name", name)
	return b.do(ctx, http.MethodPost, "/backups/{name}/restore", req, nil)
}

// RequestExport asks the server to render an export and returns its signed link.
func (b *HTTPBackend) RequestExport(ctx context.Context, body models.ExportRequest) (*models.ExportResult, error) {
	var res models.ExportResult
	if err := b.do(ctx, http.MethodPost, "/exports", b.client.R().SetBody(body), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DownloadExport fetches the file behind a link returned by RequestExport.
func (b *HTTPBackend) DownloadExport(ctx context.Context, link string) ([]byte, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("token", path.Base(link)).
		Get("/exports/{token}")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request failed")
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	return resp.Body(), nil
}

func (b *HTTPBackend) do(ctx context.Context, method, url string, req *resty.Request, out interface{}) error {
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()
	if token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request failed")
	}
	if resp.IsError() {
		return decodeError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, url, err)
	}
	return nil
}

// decodeError turns an error envelope into *appErrors.Error, falling back to the HTTP status.
func decodeError(resp *resty.Response) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error != nil {
		if env.Error.Status == 0 {
			env.Error.Status = resp.StatusCode()
		}
		return env.Error
	}
	return appErrors.New("HTTP_"+strconv.Itoa(resp.StatusCode()), resp.StatusCode(), resp.Status())
}

func withTerm(req *resty.Request, term string) *resty.Request {
	if term != "" {
		req.SetQueryParam("q", term)
	}
	return req
}

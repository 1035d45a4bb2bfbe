package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
	"github.com/noah-isme/sma-merit/pkg/response"
)

type apiStub struct {
	password  string
	token     string
	lastQuery string
	lastAuth  string
	lastPath  string
	created   models.CreateRecordRequest
}

func (s *apiStub) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/login", func(c *gin.Context) {
		var req models.LoginRequest
		_ = c.ShouldBindJSON(&req)
		if req.Password != s.password {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidCredentials, ""))
			return
		}
		response.JSON(c, http.StatusOK, models.LoginResponse{Valid: true, AccessToken: s.token})
	})
	api.POST("/auth/change-password", func(c *gin.Context) {
		var req models.ChangePasswordRequest
		_ = c.ShouldBindJSON(&req)
		if req.OldPassword != s.password {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "old password does not match"))
			return
		}
		response.JSON(c, http.StatusOK, models.ChangePasswordResponse{Changed: true})
	})
	api.GET("/summaries", func(c *gin.Context) {
		s.lastQuery = c.Query("q")
		s.lastAuth = c.GetHeader("Authorization")
		response.JSON(c, http.StatusOK, []models.Summary{{StudentID: "1234", Name: "Kim", Total: 5}})
	})
	api.POST("/records", func(c *gin.Context) {
		_ = c.ShouldBindJSON(&s.created)
		response.Created(c, models.Record{ID: 9})
	})
	api.DELETE("/records/:id", func(c *gin.Context) {
		if c.Param("id") != "9" {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "record not found"))
			return
		}
		response.NoContent(c)
	})
	api.GET("/students/:studentId/records", func(c *gin.Context) {
		s.lastPath = c.Param("studentId")
		response.JSON(c, http.StatusOK, []models.Record{})
	})
	api.GET("/exports/:token", func(c *gin.Context) {
		response.Attachment(c, "x.csv", "text/csv", []byte("a,b\n"))
	})
	return r
}

func newStubbedBackend(t *testing.T) (*HTTPBackend, *apiStub) {
	t.Helper()
	stub := &apiStub{password: "admin123", token: "tok"}
	srv := httptest.NewServer(stub.router())
	t.Cleanup(srv.Close)
	return NewHTTPBackend(srv.URL + "/api/v1"), stub
}

func TestHTTPBackendAuthenticate(t *testing.T) {
	b, stub := newStubbedBackend(t)
	ctx := context.Background()

	ok, err := b.Authenticate(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Authenticate(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = b.SearchSummaries(ctx, "kim lee")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", stub.lastAuth)
	assert.Equal(t, "kim lee", stub.lastQuery)

	b.CloseSession()
	_, err = b.ListSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, stub.lastAuth)
	assert.Empty(t, stub.lastQuery)
}

func TestHTTPBackendChangePassword(t *testing.T) {
	b, _ := newStubbedBackend(t)

	changed, err := b.ChangePassword(context.Background(), "nope", "secret")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = b.ChangePassword(context.Background(), "admin123", "secret")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestHTTPBackendRecords(t *testing.T) {
	b, stub := newStubbedBackend(t)
	ctx := context.Background()

	require.NoError(t, b.CreateRecord(ctx, models.CreateRecordRequest{StudentID: "1234", Name: "Kim", Reason: "r", Points: 5, PointType: models.PointTypeAward}))
	assert.Equal(t, 5, stub.created.Points)
	assert.Nil(t, stub.created.Date)

	require.NoError(t, b.DeleteRecord(ctx, 9))

	err := b.DeleteRecord(ctx, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "record not found", err.Error())

	_, err = b.StudentRecords(ctx, "12 34")
	require.NoError(t, err)
	assert.Equal(t, "12 34", stub.lastPath)
}

func TestHTTPBackendDownloadExport(t *testing.T) {
	b, _ := newStubbedBackend(t)

	data, err := b.DownloadExport(context.Background(), "/api/v1/exports/abc.def")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestDecodeErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"oops": "x"})
	}))
	defer srv.Close()

	_, err := NewHTTPBackend(srv.URL).ListRecords(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-prayer-verify/internal/application/verification"
	"github.com/go-prayer-verify/internal/domain"
	jwtinfra "github.com/go-prayer-verify/internal/infrastructure/jwt"
	"github.com/go-prayer-verify/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerifySvc struct{ mock.Mock }

func (m *mockVerifySvc) SendCode(ctx context.Context, req verification.SendCodeRequest) (*verification.SendCodeResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*verification.SendCodeResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerifySvc) VerifyCode(ctx context.Context, req verification.VerifyCodeRequest) (*verification.VerifyCodeResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*verification.VerifyCodeResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSettingSvc struct{ mock.Mock }

func (m *mockSettingSvc) Get(ctx context.Context, key string) (*domain.AdminSetting, error) {
	args := m.Called(ctx, key)
	if s, _ := args.Get(0).(*domain.AdminSetting); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSettingSvc) Set(ctx context.Context, key string, value bool, updatedBy string) (*domain.AdminSetting, error) {
	args := m.Called(ctx, key, value, updatedBy)
	if s, _ := args.Get(0).(*domain.AdminSetting); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func withKey(r *http.Request, key string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("key", key)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- verification ---

func TestSendCode_OK(t *testing.T) {
	svc := &mockVerifySvc{}
	exp := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("SendCode", mock.Anything, mock.MatchedBy(func(r verification.SendCodeRequest) bool {
		return r.Email == "a@b.com" && r.ActionType == "prayer_update" && string(r.ActionData) == `{"content":"hi"}`
	})).Return(&verification.SendCodeResult{CodeID: "c1", ExpiresAt: exp}, nil)

	rr := post(t, NewVerificationHandler(svc).SendCode,
		`{"email":"a@b.com","actionType":"prayer_update","actionData":{"content":"hi"}}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"codeId":"c1","expiresAt":"2099-01-01T00:00:00Z"}`, rr.Body.String())
}

func TestSendCode_BadBody(t *testing.T) {
	rr := post(t, NewVerificationHandler(&mockVerifySvc{}).SendCode, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendCode_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("Try again later: %w", domain.ErrTooManyRequests), http.StatusTooManyRequests,
			`{"error":"Rate limited","details":"Try again later"}`},
		{fmt.Errorf("field 'email' failed 'email': %w", domain.ErrBadRequest), http.StatusBadRequest,
			`{"error":"Invalid request","details":"field 'email' failed 'email'"}`},
		{errors.New("dynamo exploded"), http.StatusInternalServerError,
			`{"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		svc := &mockVerifySvc{}
		svc.On("SendCode", mock.Anything, mock.Anything).Return(nil, tc.err)
		rr := post(t, NewVerificationHandler(svc).SendCode, `{"email":"a@b.com","actionType":"prayer_update"}`)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, rr.Body.String())
	}
}

func TestVerifyCode_OK(t *testing.T) {
	svc := &mockVerifySvc{}
	svc.On("VerifyCode", mock.Anything, verification.VerifyCodeRequest{CodeID: "c1", Code: "123456"}).
		Return(&verification.VerifyCodeResult{
			ActionType: "prayer_update",
			ActionData: json.RawMessage(`{"content":"hi"}`),
			Email:      "a@b.com",
			ExpiresAt:  time.Date(2099, 1, 1, 0, 15, 0, 0, time.UTC),
		}, nil)

	rr := post(t, NewVerificationHandler(svc).VerifyCode, `{"codeId":"c1","code":"123456"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"actionType":"prayer_update","actionData":{"content":"hi"},"email":"a@b.com","expiresAt":"2099-01-01T00:15:00Z"}`, rr.Body.String())
}

func TestVerifyCode_InvalidCode(t *testing.T) {
	svc := &mockVerifySvc{}
	svc.On("VerifyCode", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%s: %w", verification.MsgInvalidCode, domain.ErrUnauthorized))

	rr := post(t, NewVerificationHandler(svc).VerifyCode, `{"codeId":"c1","code":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid code"}`, rr.Body.String())
}

// --- settings ---

func TestSettingGet(t *testing.T) {
	svc := &mockSettingSvc{}
	svc.On("Get", mock.Anything, domain.SettingRequireEmailVerification).
		Return(&domain.AdminSetting{Key: domain.SettingRequireEmailVerification, Value: true}, nil)

	req := withKey(httptest.NewRequest(http.MethodGet, "/", nil), domain.SettingRequireEmailVerification)
	rr := httptest.NewRecorder()
	NewSettingHandler(svc).Get(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got domain.AdminSetting
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Value)
}

func TestSettingGet_Unknown(t *testing.T) {
	svc := &mockSettingSvc{}
	svc.On("Get", mock.Anything, "nope").Return(nil, fmt.Errorf("unknown setting: %w", domain.ErrNotFound))

	req := withKey(httptest.NewRequest(http.MethodGet, "/", nil), "nope")
	rr := httptest.NewRecorder()
	NewSettingHandler(svc).Get(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSettingUpdate(t *testing.T) {
	svc := &mockSettingSvc{}
	svc.On("Set", mock.Anything, domain.SettingRequireEmailVerification, false, "admin-1").
		Return(&domain.AdminSetting{Key: domain.SettingRequireEmailVerification, UpdatedBy: "admin-1"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"value":false}`))
	req = withKey(req, domain.SettingRequireEmailVerification)
	req = req.WithContext(middleware.WithClaims(req.Context(), &jwtinfra.Claims{UserID: "admin-1", Role: domain.RoleAdmin}))
	rr := httptest.NewRecorder()
	NewSettingHandler(svc).Update(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestSettingUpdate_MissingValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{}`))
	req = req.WithContext(middleware.WithClaims(req.Context(), &jwtinfra.Claims{UserID: "admin-1", Role: domain.RoleAdmin}))
	rr := httptest.NewRecorder()
	NewSettingHandler(&mockSettingSvc{}).Update(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingUpdate_NoClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(`{"value":true}`))
	rr := httptest.NewRecorder()
	NewSettingHandler(&mockSettingSvc{}).Update(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPing(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", "ping")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	NewHealthHandler().Ping(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

package verifyapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-prayer-verify/internal/domain"
	"github.com/go-prayer-verify/internal/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendVerificationCode_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/verification/send-code", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"email":"a@b.com","actionType":"prayer_update","actionData":{"content":"hi"}}`, string(b))
		_, _ = w.Write([]byte(`{"codeId":"c1","expiresAt":"2099-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL+"/").SendVerificationCode(context.Background(), verification.SendCodeRequest{
		Email: "a@b.com", ActionType: "prayer_update", ActionData: json.RawMessage(`{"content":"hi"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", resp.CodeID)
	assert.Equal(t, "2099-01-01T00:00:00Z", resp.ExpiresAt)
	assert.False(t, resp.Present())
}

func TestSendVerificationCode_ErrorPayloadOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limited","details":"Try again later"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL).SendVerificationCode(context.Background(), verification.SendCodeRequest{Email: "a@b.com", ActionType: "x"})
	require.NoError(t, err)
	require.True(t, resp.Present())
	assert.Equal(t, "Rate limited - Try again later", resp.Message())
}

func TestVerifyCode_Non2xxWithoutPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).VerifyCode(context.Background(), verification.VerifyCodeRequest{CodeID: "c1", Code: "1"})
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestVerifyCode_Undecodable2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).VerifyCode(context.Background(), verification.VerifyCodeRequest{CodeID: "c1", Code: "1"})
	assert.Error(t, err)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).VerifyCode(context.Background(), verification.VerifyCodeRequest{CodeID: "c1", Code: "1"})
	assert.Error(t, err)
}

func TestGetAdminSetting(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   *bool
	}{
		{"true", http.StatusOK, `{"key":"require_email_verification","value":true}`, boolPtr(true)},
		{"false", http.StatusOK, `{"value":false}`, boolPtr(false)},
		{"absent field", http.StatusOK, `{"key":"require_email_verification"}`, nil},
		{"missing row", http.StatusNotFound, `{"error":"unknown setting"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/settings/"+domain.SettingRequireEmailVerification, r.URL.Path)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			got, err := New(srv.URL).GetAdminSetting(context.Background(), domain.SettingRequireEmailVerification)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetAdminSetting_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetAdminSetting(context.Background(), domain.SettingRequireEmailVerification)
	assert.Error(t, err)
}

func boolPtr(b bool) *bool { return &b }

package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartcoffee/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreatePayment(t *testing.T) {
	var gotKey string
	var gotBody models.CreatePaymentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/create-payment", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paymentId":123,"pix":{"qr_code":"pix","qr_code_base64":"b64"}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/").CreatePayment(context.Background(), 2, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(123), resp.PaymentID)
	assert.Equal(t, "b64", resp.Pix.QRCodeBase64)
	assert.Equal(t, "abc", gotKey)
	assert.Equal(t, uint(2), gotBody.DosageID)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Dosagem não encontrada."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreatePayment(context.Background(), 99, "abc")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Dosagem não encontrada.", apiErr.Message)
}

func TestClient_PaymentStatusAndMenu(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment-status/77":
			_, _ = w.Write([]byte(`{"status":"approved"}`))
		case "/client-data":
			_, _ = w.Write([]byte(`{"dosages":[{"id":1,"name":"Expresso","ml":30,"price":4.5,"time_s":5}],"bannerUrl":"https://x/y.png"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.PaymentStatus(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, "approved", status)

	data, err := c.ClientData(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Dosages, 1)
	assert.Equal(t, 4.5, data.Dosages[0].Price)
	assert.Equal(t, "https://x/y.png", data.BannerURL)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).PaymentStatus(context.Background(), 1)
	assert.ErrorIs(t, err, ErrTransport)
}

package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTranslator_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "ko", r.URL.Query().Get("sl"))
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		assert.Equal(t, "내일 일정 알려줘", r.URL.Query().Get("q"))

		w.Write([]byte(`[[["Tell me ","내일 ",null],["tomorrow's schedule","일정 알려줘",null]],null,"ko"]`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(WithEndpoint(server.URL))

	result, err := translator.Translate(context.Background(), "내일 일정 알려줘", "ko", "en")
	require.NoError(t, err)
	// 複数セグメントは連結される
	assert.Equal(t, "Tell me tomorrow's schedule", result)
}

func TestGoogleTranslator_Translate_EmptyText(t *testing.T) {
	translator := NewGoogleTranslator(WithEndpoint("http://invalid.example"))

	result, err := translator.Translate(context.Background(), "   ", "ko", "en")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestGoogleTranslator_Translate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator := NewGoogleTranslator(WithEndpoint(server.URL))

	_, err := translator.Translate(context.Background(), "질문", "ko", "en")
	assert.Error(t, err)
}

func TestGoogleTranslator_Translate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	}))
	defer server.Close()

	translator := NewGoogleTranslator(WithEndpoint(server.URL))

	_, err := translator.Translate(context.Background(), "질문", "ko", "en")
	assert.Error(t, err)
}

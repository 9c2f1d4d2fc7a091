package layout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planproof/internal/config"
	"planproof/internal/domain"
)

func TestAnalyzeMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"page_count": 2,
			"text_blocks": [
				{"page_number": 1, "content": "Application Form", "role": "title"},
				{"page_number": 2, "content": "Postcode: B8 1BG"}
			],
			"tables": [
				{"page_number": 2, "row_count": 1, "column_count": 2,
				 "cells": [
					{"row_index": 0, "column_index": 0, "content": "Reference"},
					{"row_index": 0, "column_index": 1, "content": "PP-14469287"}
				 ]}
			]
		}`))
	}))
	defer srv.Close()

	c := New(&config.DocAIConfig{Endpoint: srv.URL, APIKey: "test-key", TimeoutSecs: 5})
	ex, err := c.Analyze(context.Background(), []byte("%PDF-1.7"), "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, ex.PageCount)
	require.Len(t, ex.TextBlocks, 2)
	assert.Equal(t, "title", ex.TextBlocks[0].Role)
	require.Len(t, ex.Tables, 1)
	assert.Equal(t, "PP-14469287", ex.Tables[0].Cells[1].Content)
}

func TestAnalyzeFailureIsExtractionUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(&config.DocAIConfig{Endpoint: srv.URL, TimeoutSecs: 5})
	_, err := c.Analyze(context.Background(), []byte("%PDF-1.7"), "application/pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionUnavailable)
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(&config.DocAIConfig{Endpoint: srv.URL, TimeoutSecs: 5})
	_, err := c.Analyze(context.Background(), []byte("%PDF-1.7"), "application/pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionUnavailable)
}

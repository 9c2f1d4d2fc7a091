package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"planproof/internal/config"
	"planproof/internal/domain"
)

// Client calls a remote layout-analysis service over HTTP. The service is a
// black box that accepts document bytes and returns text blocks and tables;
// any failure becomes an extraction-unavailable error for that document only.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a layout analysis client from config.
func New(cfg *config.DocAIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// analyzeResponse models the layout service's analysis result.
type analyzeResponse struct {
	TextBlocks []struct {
		PageNumber  int       `json:"page_number"`
		Content     string    `json:"content"`
		Role        string    `json:"role"`
		BoundingBox []float64 `json:"bounding_box"`
	} `json:"text_blocks"`
	Tables []struct {
		PageNumber  int `json:"page_number"`
		RowCount    int `json:"row_count"`
		ColumnCount int `json:"column_count"`
		Cells       []struct {
			RowIndex    int    `json:"row_index"`
			ColumnIndex int    `json:"column_index"`
			Content     string `json:"content"`
		} `json:"cells"`
	} `json:"tables"`
	PageCount int `json:"page_count"`
}

func (c *Client) Analyze(ctx context.Context, docBytes []byte, contentType string) (*domain.Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/analyze", bytes.NewReader(docBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", domain.ErrExtractionUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling layout service: %v", domain.ErrExtractionUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrExtractionUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: layout service status %d: %s", domain.ErrExtractionUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	var ar analyzeResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrExtractionUnavailable, err)
	}

	ex := &domain.Extraction{PageCount: ar.PageCount}
	for _, b := range ar.TextBlocks {
		ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{
			PageNumber:  b.PageNumber,
			Content:     b.Content,
			Role:        b.Role,
			BoundingBox: b.BoundingBox,
		})
	}
	for _, t := range ar.Tables {
		table := domain.Table{
			PageNumber:  t.PageNumber,
			RowCount:    t.RowCount,
			ColumnCount: t.ColumnCount,
		}
		for _, cell := range t.Cells {
			table.Cells = append(table.Cells, domain.TableCell{
				RowIndex:    cell.RowIndex,
				ColumnIndex: cell.ColumnIndex,
				Content:     cell.Content,
			})
		}
		ex.Tables = append(ex.Tables, table)
	}
	return ex, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

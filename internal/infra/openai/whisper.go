package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"chaos-car/internal/infra"
)

const defaultBaseURL = "https://api.openai.com/v1"

type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	language   string
	retry      infra.RetryConfig
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, defaultBaseURL)
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		retry:      infra.DefaultRetryConfig(),
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var result transcriptionResponse

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("file", "audio"+audioExtension(audio))
		if err != nil {
			return fmt.Errorf("creating form file: %w", err)
		}

		if _, err = part.Write(audio); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}

		if err = writer.WriteField("model", "whisper-1"); err != nil {
			return fmt.Errorf("writing model field: %w", err)
		}

		if c.language != "" {
			if err = writer.WriteField("language", c.language); err != nil {
				return fmt.Errorf("writing language field: %w", err)
			}
		}

		if err = writer.Close(); err != nil {
			return fmt.Errorf("closing writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			apiErr := fmt.Errorf("whisper API error %d: %s", resp.StatusCode, string(respBody))
			if !infra.IsRetryableHTTPStatus(resp.StatusCode) {
				return infra.Permanent(apiErr)
			}
			return apiErr
		}

		if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		return "", retryErr
	}

	return strings.TrimSpace(result.Text), nil
}

// audioExtension sniffs the container so the API can pick a decoder. Browsers
// record webm/opus, the microphone source produces wav.
func audioExtension(audio []byte) string {
	switch {
	case bytes.HasPrefix(audio, []byte("RIFF")):
		return ".wav"
	case bytes.HasPrefix(audio, []byte{0x1a, 0x45, 0xdf, 0xa3}):
		return ".webm"
	case bytes.HasPrefix(audio, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(audio, []byte("ID3")), len(audio) > 1 && audio[0] == 0xff && audio[1]&0xe0 == 0xe0:
		return ".mp3"
	}
	return ".wav"
}

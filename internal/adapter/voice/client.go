// Package voice implements speech synthesis and transcription against an
// OpenAI-compatible audio API. Audio bytes are opaque to the rest of the
// system; transcription output re-enters the pipeline as plain text.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Client calls the /audio endpoints of an OpenAI-compatible API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	ttsModel   string
	ttsVoice   string
	sttModel   string
}

// New builds a voice client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   60 * time.Second,
		},
		baseURL:  cfg.AIBaseURL,
		apiKey:   cfg.AIAPIKey,
		ttsModel: cfg.TTSModel,
		ttsVoice: cfg.TTSVoice,
		sttModel: cfg.STTModel,
	}
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Synthesize renders text as audio. The response body is the audio payload.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("op=voice.Synthesize: %w: empty text", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(speechRequest{Model: c.ttsModel, Input: text, Voice: c.ttsVoice})
	if err != nil {
		return nil, fmt.Errorf("op=voice.Synthesize marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("op=voice.Synthesize: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=voice.Synthesize: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("op=voice.Synthesize: upstream status=%d", resp.StatusCode)
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("op=voice.Synthesize read: %w", err)
	}
	return audio, nil
}

// Transcribe converts recorded audio to text via multipart upload. The mime
// type determines the filename extension some providers require.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("op=voice.Transcribe: %w: empty audio", domain.ErrInvalidArgument)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "answer"+extensionFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}
	if err := mw.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("op=voice.Transcribe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("op=voice.Transcribe: upstream status=%d", resp.StatusCode)
	}
	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("op=voice.Transcribe decode: %w: %v", domain.ErrSchemaInvalid, err)
	}
	return tr.Text, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	default:
		return ".bin"
	}
}

package voice_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/voice"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func testClient(baseURL string) *voice.Client {
	return voice.New(config.Config{
		AIAPIKey:  "sk-test",
		AIBaseURL: baseURL,
		TTSModel:  "tts-1",
		TTSVoice:  "alloy",
		STTModel:  "whisper-1",
	})
}

func TestSynthesize(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	audio, err := testClient(srv.URL).Synthesize(context.Background(), "What is a goroutine?")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3-bytes"), audio)
}

func TestSynthesize_EmptyTextRejected(t *testing.T) {
	t.Parallel()
	_, err := testClient("http://localhost:0").Synthesize(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, "answer.wav", hdr.Filename)

		_, _ = w.Write([]byte(`{"text": "a goroutine is a lightweight thread"}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Transcribe(context.Background(), []byte("RIFF...."), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "a goroutine is a lightweight thread", text)
}

func TestTranscribe_EmptyAudioRejected(t *testing.T) {
	t.Parallel()
	_, err := testClient("http://localhost:0").Transcribe(context.Background(), nil, "audio/wav")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestTranscribe_UpstreamFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Transcribe(context.Background(), []byte("x"), "audio/mpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}

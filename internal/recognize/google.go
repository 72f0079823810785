package recognize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fmueller/speech2symbol/internal/audio"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

const DefaultRequestTimeout = 30 * time.Second

type GoogleOptions struct {
	// APIKey takes precedence over CredentialsFile. With neither, application
	// default credentials are used.
	APIKey          string
	CredentialsFile string
	Endpoint        string
	Model           string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Google calls the Cloud Speech-to-Text v1 recognize endpoint.
type Google struct {
	svc     *speech.Service
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGoogle(ctx context.Context, opts GoogleOptions) (*Google, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case strings.TrimSpace(opts.APIKey) != "":
		clientOpts = append(clientOpts, option.WithAPIKey(strings.TrimSpace(opts.APIKey)))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}

	svc, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client (set an API key or credentials file): %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Google{svc: svc, model: opts.Model, timeout: timeout, logger: logger}, nil
}

func (g *Google) Recognize(ctx context.Context, clip audio.Clip, locale string) (string, error) {
	if strings.TrimSpace(locale) == "" {
		return "", errors.New("locale is required")
	}

	pcm, err := clip.LINEAR16()
	if err != nil {
		return "", fmt.Errorf("encode audio for recognition: %w", err)
	}

	channels := clip.Channels
	if channels <= 0 {
		channels = 1
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(clip.SampleRate),
			AudioChannelCount: int64(channels),
			LanguageCode:      locale,
			MaxAlternatives:   1,
			Model:             g.model,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(pcm),
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.svc.Speech.Recognize(req).Context(callCtx).Do()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		g.logger.Debug("recognize request failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", classifyError(err)
	}
	g.logger.Debug("recognize request finished", zap.Duration("elapsed", time.Since(started)), zap.Int("results", len(resp.Results)))

	transcript := bestTranscript(resp)
	if transcript == "" {
		return "", ErrUnintelligible
	}
	return transcript, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrServiceUnavailable)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = http.StatusText(apiErr.Code)
		}
		return fmt.Errorf("%w: %s (HTTP %d)", ErrServiceUnavailable, message, apiErr.Code)
	}

	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

// bestTranscript joins the top alternative of every result segment.
func bestTranscript(resp *speech.RecognizeResponse) string {
	if resp == nil {
		return ""
	}

	var parts []string
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 || result.Alternatives[0] == nil {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

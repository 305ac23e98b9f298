package dictation

import (
	"context"
	"errors"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"chrisper/pkg/config"
	"chrisper/pkg/reconcile"
)

// Recognizer turns a stream of audio chunks into ordered hypotheses. It
// must close out before returning, and it returns once audio is closed and
// the service has delivered its last result, or when ctx is done.
type Recognizer interface {
	Recognize(ctx context.Context, audio <-chan []byte, out chan<- reconcile.Hypothesis) error
}

// GoogleRecognizer streams to Cloud Speech-to-Text.
type GoogleRecognizer struct {
	client     *speech.Client
	cfg        config.SpeechConfig
	sampleRate int
}

// NewGoogleRecognizer dials the speech API. A credentials file wins over an
// API key; with neither, application default credentials are used.
func NewGoogleRecognizer(ctx context.Context, cfg config.SpeechConfig, sampleRate int) (*GoogleRecognizer, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleRecognizer{client: client, cfg: cfg, sampleRate: sampleRate}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// Recognize runs one streaming recognition over audio.
func (g *GoogleRecognizer) Recognize(ctx context.Context, audio <-chan []byte, out chan<- reconcile.Hypothesis) error {
	defer close(out)

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return fmt.Errorf("open recognize stream: %w", err)
	}
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: streamingConfig(g.cfg, g.sampleRate),
		},
	})
	if err != nil {
		return fmt.Errorf("send streaming config: %w", err)
	}

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sendAudio(stream, audio)
	}()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive transcript: %w", err)
		}
		if st := resp.GetError(); st != nil {
			return fmt.Errorf("speech api error %d: %s", st.GetCode(), st.GetMessage())
		}
		h, ok := hypothesisFrom(resp)
		if !ok {
			continue
		}
		select {
		case out <- h:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return <-sendErr
}

func sendAudio(stream speechpb.Speech_StreamingRecognizeClient, audio <-chan []byte) error {
	for chunk := range audio {
		err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: chunk},
		})
		if errors.Is(err, io.EOF) {
			// The server ended the stream; Recv reports why.
			return nil
		}
		if err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close send: %w", err)
	}
	return nil
}

func streamingConfig(cfg config.SpeechConfig, sampleRate int) *speechpb.StreamingRecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(sampleRate),
		AudioChannelCount:          channelCount,
		LanguageCode:               cfg.Language,
		EnableAutomaticPunctuation: cfg.Punctuation,
		Model:                      cfg.Model,
		UseEnhanced:                cfg.Enhanced,
	}
	if cfg.SpokenPunctuation {
		rc.EnableSpokenPunctuation = wrapperspb.Bool(true)
	}
	return &speechpb.StreamingRecognitionConfig{
		Config:         rc,
		InterimResults: cfg.InterimResults,
	}
}

// hypothesisFrom reads the first alternative of the first result. Responses
// without one (endpointing events, empty updates) are skipped.
func hypothesisFrom(resp *speechpb.StreamingRecognizeResponse) (reconcile.Hypothesis, bool) {
	results := resp.GetResults()
	if len(results) == 0 {
		return reconcile.Hypothesis{}, false
	}
	result := results[0]
	alts := result.GetAlternatives()
	if len(alts) == 0 {
		return reconcile.Hypothesis{}, false
	}
	return reconcile.Hypothesis{
		Text:       alts[0].GetTranscript(),
		IsFinal:    result.GetIsFinal(),
		Stability:  float64(result.GetStability()),
		Confidence: float64(alts[0].GetConfidence()),
	}, true
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// FragmentHandler receives one text fragment. Returning ErrStopStream ends
// decoding cleanly; any other error aborts it.
type FragmentHandler func(fragment string) error

// StreamMetrics observes decoding. Implementations must be safe for
// concurrent use across requests.
type StreamMetrics interface {
	FragmentDecoded(kind ProviderKind)
	FrameSkipped(kind ProviderKind)
}

// StreamDecoder turns a provider event stream into ordered text fragments.
// One decoder value serves one stream; it holds no state between calls.
type StreamDecoder struct {
	Kind    ProviderKind
	Logger  *zap.Logger
	Metrics StreamMetrics
}

const (
	readChunkSize = 4096
	dataPrefix    = "data:"
	doneSentinel  = "[DONE]"
)

// frame shapes
type openAIStreamFrame struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type anthropicStreamFrame struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Decode reads body until EOF, the end-of-stream marker, cancellation of ctx,
// or the handler asking to stop. Lines that do not parse are logged and
// skipped. The returned response is non-nil even when err is not.
func (d StreamDecoder) Decode(ctx context.Context, body io.Reader, onFragment FragmentHandler) (*ChatResponse, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	var (
		text    strings.Builder
		resp    = &ChatResponse{}
		pending []byte
		chunk   = make([]byte, readChunkSize)
	)
	finish := func() *ChatResponse {
		resp.Content = text.String()
		return resp
	}

	emit := func(line []byte) (done bool, err error) {
		fragment, done := d.parseLine(line)
		if fragment == "" {
			return done, nil
		}
		text.WriteString(fragment)
		resp.Fragments++
		if d.Metrics != nil {
			d.Metrics.FragmentDecoded(d.Kind)
		}
		if onFragment != nil {
			if herr := onFragment(fragment); herr != nil {
				return true, herr
			}
		}
		return done, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		n, readErr := body.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]

				done, herr := emit(line)
				if herr != nil {
					return d.stopped(finish(), herr)
				}
				if done {
					return finish(), nil
				}
			}
		}

		if errors.Is(readErr, io.EOF) {
			// a final frame without its trailing newline
			if len(bytes.TrimSpace(pending)) > 0 {
				if _, herr := emit(pending); herr != nil {
					return d.stopped(finish(), herr)
				}
			}
			return finish(), nil
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(), ctxErr
			}
			return finish(), fmt.Errorf("llm: read %s stream: %w", d.Kind, readErr)
		}
	}
}

func (d StreamDecoder) stopped(resp *ChatResponse, err error) (*ChatResponse, error) {
	if errors.Is(err, ErrStopStream) {
		resp.Stopped = true
		return resp, nil
	}
	return resp, err
}

// parseLine extracts the fragment carried by one line, if any. done reports
// an end-of-stream marker.
func (d StreamDecoder) parseLine(raw []byte) (fragment string, done bool) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || !bytes.HasPrefix(line, []byte(dataPrefix)) {
		// blank separators, "event:" and ":" comment lines carry no text
		return "", false
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if string(payload) == doneSentinel {
		return "", true
	}

	switch d.Kind {
	case KindAnthropic:
		var f anthropicStreamFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			d.skip(line, err)
			return "", false
		}
		switch f.Type {
		case "content_block_delta":
			return f.Delta.Text, false
		case "message_stop":
			return "", true
		case "error":
			if f.Error != nil {
				d.Logger.Warn("provider reported stream error",
					zap.String("provider", string(d.Kind)),
					zap.String("type", f.Error.Type),
					zap.String("message", f.Error.Message))
			}
		}
		return "", false
	default:
		var f openAIStreamFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			d.skip(line, err)
			return "", false
		}
		if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
			return "", false
		}
		return *f.Choices[0].Delta.Content, false
	}
}

func (d StreamDecoder) skip(line []byte, err error) {
	if d.Metrics != nil {
		d.Metrics.FrameSkipped(d.Kind)
	}
	const maxLogged = 256
	if len(line) > maxLogged {
		line = line[:maxLogged]
	}
	d.Logger.Warn("skipping malformed stream frame",
		zap.String("provider", string(d.Kind)),
		zap.ByteString("line", line),
		zap.Error(err))
}

package generate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

// MaxImageBytes bounds the decoded size of an attached image.
const MaxImageBytes = 5 << 20

// Input is one generation request.
type Input struct {
	// Config overrides the active profile and the server default.
	Config    *llm.ProviderConfig `json:"config,omitempty"`
	ChartType string              `json:"chartType,omitempty"`
	UserInput string              `json:"userInput" validate:"required_without=Image,max=20000"`
	Image     *llm.Image          `json:"image,omitempty"`
}

type imageRules struct {
	MimeType string `validate:"required,oneof=image/jpeg image/jpg image/png image/webp image/gif"`
	Data     string `validate:"required,base64"`
}

type configRules struct {
	BaseURL string `validate:"required,url"`
	APIKey  string `validate:"required"`
	Model   string `validate:"required"`
}

// ErrInvalidInput is wrapped by every request validation failure.
var ErrInvalidInput = errors.New("invalid generation request")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request and returns its chart type.
func (in Input) Validate() (ChartType, error) {
	ct, ok := ParseChartType(in.ChartType)
	if !ok {
		return "", fmt.Errorf("%w: unknown chart type %q", ErrInvalidInput, in.ChartType)
	}
	if err := validate.Struct(in); err != nil {
		return "", invalid(err)
	}
	if in.Image != nil {
		if err := ValidateImage(*in.Image); err != nil {
			return "", err
		}
	}
	if in.Config != nil {
		if _, err := llm.ParseProviderKind(string(in.Config.Kind)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if err := validate.Struct(configRules{BaseURL: in.Config.BaseURL, APIKey: in.Config.APIKey, Model: in.Config.Model}); err != nil {
			return "", invalid(err)
		}
	}
	return ct, nil
}

// ValidateImage checks the mime type, the base64 payload and its decoded size.
func ValidateImage(img llm.Image) error {
	if err := validate.Struct(imageRules{MimeType: strings.ToLower(img.MimeType), Data: img.Data}); err != nil {
		return invalid(err)
	}
	if n := decodedLen(img.Data); n > MaxImageBytes {
		return fmt.Errorf("%w: image is %d bytes, limit is %d", ErrInvalidInput, n, MaxImageBytes)
	}
	return nil
}

func decodedLen(data string) int {
	n := base64.StdEncoding.DecodedLen(len(data))
	return n - strings.Count(data[max(0, len(data)-2):], "=")
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, strings.ToLower(fe.Field()[:1])+fe.Field()[1:], fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

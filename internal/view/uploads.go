package view

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/models"
)

// MaxUploadBytes is the per-file limit enforced before submission.
const MaxUploadBytes = 50 << 20

// UploadError explains why a file was refused before it was sent.
type UploadError struct {
	Field  string
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var curveTypes = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/svg+xml"}

func checkSize(field string, data []byte) error {
	if len(data) == 0 {
		return &UploadError{Field: field, Reason: "file is empty"}
	}
	if len(data) > MaxUploadBytes {
		return &UploadError{Field: field, Reason: fmt.Sprintf("file exceeds %d MiB", MaxUploadBytes>>20)}
	}
	return nil
}

func checkExt(field, name string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return &UploadError{Field: field, Reason: fmt.Sprintf("expected a %s file, got %q", strings.Join(allowed, " or "), filepath.Base(name))}
}

// EncodeSetFile checks a parameter set file and returns its encoded form.
func EncodeSetFile(name string, data []byte) (string, error) {
	if err := checkExt("set_file", name, ".set"); err != nil {
		return "", err
	}
	if err := checkSize("set_file", data); err != nil {
		return "", err
	}
	return codec.EncodeDataURL(data, "application/octet-stream"), nil
}

// EncodeCapitalCurve checks that data is a supported image and returns it as
// a data URL usable directly as an image source.
func EncodeCapitalCurve(data []byte) (string, error) {
	if err := checkSize("capital_curve", data); err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), curveTypes...) {
		return "", &UploadError{Field: "capital_curve", Reason: fmt.Sprintf("unsupported image type %s", mt.String())}
	}
	return codec.EncodeDataURL(data, codec.DetectMediaType(data)), nil
}

// BuildBundle checks a compiled/source pair and returns the encoded bundle.
func BuildBundle(name, exName string, exData []byte, mqName string, mqData []byte) (*models.StrategyFileBundle, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &UploadError{Field: "strategy_name", Reason: "name is required"}
	}
	if err := checkExt("strategy_ex_file", exName, ".ex4", ".ex5"); err != nil {
		return nil, err
	}
	if err := checkSize("strategy_ex_file", exData); err != nil {
		return nil, err
	}
	if err := checkExt("strategy_mq_file", mqName, ".mq4", ".mq5"); err != nil {
		return nil, err
	}
	if err := checkSize("strategy_mq_file", mqData); err != nil {
		return nil, err
	}
	return &models.StrategyFileBundle{
		StrategyName:   strings.TrimSpace(name),
		StrategyExFile: codec.EncodeDataURL(exData, "application/octet-stream"),
		StrategyMqFile: codec.EncodeDataURL(mqData, "text/plain"),
	}, nil
}

// IsUploadError reports whether err came from a pre-submission check.
func IsUploadError(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}

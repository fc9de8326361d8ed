package model

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"StockPredictor/internal/domain/models"
	"StockPredictor/pkg/config"
)

const (
	artifactMagic   = "SPMD"
	ArtifactVersion = uint16(1)
	artifactPrefix  = "stock_predictor_"
	artifactExt     = ".model"
	artifactStamp   = "20060102_150405"
)

// Artifact is the persisted bundle: fitted model, preprocessing state,
// ordered feature columns and the configuration it was trained under.
type Artifact struct {
	Version   uint16    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Symbol    string    `json:"symbol"`
	Period    string    `json:"period"`

	Model   *Model                   `json:"model"`
	Profile models.VolatilityProfile `json:"profile"`

	Params   config.ModelParams    `json:"params"`
	Risk     config.RiskParams     `json:"risk"`
	Labeling config.LabelingConfig `json:"labeling"`
	Backtest config.BacktestConfig `json:"backtest"`
	Training config.TrainingConfig `json:"training"`
	Result   *TrainResult          `json:"result,omitempty"`
}

// Regime returns the volatility regime the model was trained under.
func (a *Artifact) Regime() models.VolatilityRegime {
	return a.Profile.Regime
}

// ArtifactName formats the file name for a creation time.
func ArtifactName(t time.Time) string {
	return artifactPrefix + t.Format(artifactStamp) + artifactExt
}

// SaveArtifact writes a to dir under a timestamped name and returns the path.
// An existing file is never overwritten; a numeric suffix is added instead.
func SaveArtifact(dir string, a *Artifact) (string, error) {
	if a == nil || !a.Model.Fitted() {
		return "", models.NewPipelineError(models.ErrModelNotFitted, "save", "")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Version = ArtifactVersion
	data, err := EncodeArtifact(a)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	base := strings.TrimSuffix(ArtifactName(a.CreatedAt), artifactExt)
	for n := 0; n < 1000; n++ {
		name := base + artifactExt
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, artifactExt)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create artifact: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close artifact: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free artifact name for %s", base)
}

// EncodeArtifact serializes a as magic, version and a zstd-compressed JSON body.
func EncodeArtifact(a *Artifact) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()

	var buf bytes.Buffer
	buf.WriteString(artifactMagic)
	_ = binary.Write(&buf, binary.BigEndian, ArtifactVersion)
	buf.Write(enc.EncodeAll(body, nil))
	return buf.Bytes(), nil
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewPipelineError(models.ErrModelNotFitted, "load", "").
				WithMessage("artifact %s not found", path)
		}
		return nil, corrupt(path, err)
	}
	a, err := DecodeArtifact(data)
	if err != nil {
		return nil, corrupt(path, err)
	}
	return a, nil
}

// DecodeArtifact parses bytes produced by EncodeArtifact.
func DecodeArtifact(data []byte) (*Artifact, error) {
	r := bytes.NewReader(data)
	magic := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != artifactMagic {
		return nil, errors.New("bad magic header")
	}
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", version)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	body, err := dec.DecodeAll(data[len(artifactMagic)+2:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if !a.Model.Fitted() {
		return nil, errors.New("artifact holds no fitted model")
	}
	if a.Result != nil {
		a.Result.Model = a.Model
	}
	return &a, nil
}

// LatestArtifact returns the newest artifact path in dir.
func LatestArtifact(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, artifactPrefix+"*"+artifactExt))
	if err != nil {
		return "", fmt.Errorf("list artifacts: %w", err)
	}
	if len(matches) == 0 {
		return "", models.NewPipelineError(models.ErrModelNotFitted, "load", "").
			WithMessage("no artifact in %s", dir)
	}
	// timestamped names sort chronologically; collision suffixes sort after the base name
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func corrupt(path string, err error) error {
	return models.NewPipelineError(models.ErrArtifactCorrupt, "load", "").
		WithMessage("%s", path).WithError(err)
}

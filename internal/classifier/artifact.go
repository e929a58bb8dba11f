package classifier

// #region imports
import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// #endregion

// #region format

// Artifact wire format, all little-endian:
//
//	magic        [4]byte  "VGAF"
//	version      uint16   currently 1
//	featureCount uint16
//	classCount   uint16
//	features     featureCount × (uint16 len + bytes), schema order
//	classes      classCount × (uint16 len + bytes), ordinal order
//	weights      classCount × featureCount float64
//	bias         classCount float64
//
// The trained model is a multinomial logistic regression; the blob is opaque
// to everything outside this package.
var artifactMagic = [4]byte{'V', 'G', 'A', 'F'}

const artifactVersion = 1

// #endregion format

// #region artifact

// Artifact is the decoded trained-model blob: schema plus parameters.
// Immutable at inference time.
type Artifact struct {
	Features []string
	Classes  []string
	Weights  [][]float64 // [class][feature]
	Bias     []float64   // [class]
}

// #endregion artifact

// #region load

// LoadArtifact reads and decodes an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	a, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return a, nil
}

// Decode parses the artifact wire format.
func Decode(r io.Reader) (*Artifact, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != artifactMagic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}

	var version, featureCount, classCount uint16
	for _, p := range []*uint16{&version, &featureCount, &classCount} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	if version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", version)
	}

	a := &Artifact{
		Features: make([]string, featureCount),
		Classes:  make([]string, classCount),
	}
	for i := range a.Features {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read feature name %d: %w", i, err)
		}
		a.Features[i] = s
	}
	for i := range a.Classes {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read class name %d: %w", i, err)
		}
		a.Classes[i] = s
	}

	a.Weights = make([][]float64, classCount)
	for c := range a.Weights {
		a.Weights[c] = make([]float64, featureCount)
		if err := binary.Read(r, binary.LittleEndian, a.Weights[c]); err != nil {
			return nil, fmt.Errorf("read weights class %d: %w", c, err)
		}
	}
	a.Bias = make([]float64, classCount)
	if err := binary.Read(r, binary.LittleEndian, a.Bias); err != nil {
		return nil, fmt.Errorf("read bias: %w", err)
	}
	return a, nil
}

// #endregion load

// #region save

// SaveArtifact encodes and writes an artifact file.
func SaveArtifact(path string, a *Artifact) error {
	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// Encode writes the artifact wire format.
func Encode(w io.Writer, a *Artifact) error {
	if len(a.Weights) != len(a.Classes) || len(a.Bias) != len(a.Classes) {
		return fmt.Errorf("artifact parameter shape mismatch")
	}
	if _, err := w.Write(artifactMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := []uint16{artifactVersion, uint16(len(a.Features)), uint16(len(a.Classes))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, s := range a.Features {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	for _, s := range a.Classes {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	for c, row := range a.Weights {
		if len(row) != len(a.Features) {
			return fmt.Errorf("weights class %d: %d values for %d features", c, len(row), len(a.Features))
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("write weights class %d: %w", c, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, a.Bias); err != nil {
		return fmt.Errorf("write bias: %w", err)
	}
	return nil
}

// #endregion save

// #region string-codec

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// #endregion string-codec

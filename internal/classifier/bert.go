package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Artifact names inside the model directory, matching a HuggingFace export.
const (
	modelFile     = "model.onnx"
	tokenizerFile = "tokenizer.json"
	configFile    = "config.json"
)

// BertConfig locates the on-disk model artifacts for the ONNX backend.
type BertConfig struct {
	// Path is a directory containing model.onnx, tokenizer.json and
	// config.json as exported from the HuggingFace hub.
	Path string
	// ONNXRuntimeLibrary overrides the location of the ONNX Runtime shared
	// library. Empty means the platform default.
	ONNXRuntimeLibrary string
	// MaxSequenceLength bounds tokenizer truncation. Defaults to 512.
	MaxSequenceLength int
}

// BertBackend runs a BERT sequence-classification model through ONNX Runtime.
// The session is created once and reused for every request; ONNX Runtime
// handles concurrent Run calls on its own.
type BertBackend struct {
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

// NewBertBackend loads the tokenizer and model exactly once. A load failure
// here is fatal to process startup; there is no retry.
func NewBertBackend(cfg BertConfig) (*BertBackend, error) {
	maxLen := cfg.MaxSequenceLength
	if maxLen <= 0 {
		maxLen = 512
	}

	tk, err := pretrained.FromFile(filepath.Join(cfg.Path, tokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxLen,
		Strategy:  tokenizer.LongestFirst,
	})

	if cfg.ONNXRuntimeLibrary != "" {
		ort.SetSharedLibraryPath(cfg.ONNXRuntimeLibrary)
	}
	if !ort.IsInitialized() {
		if initErr := ort.InitializeEnvironment(); initErr != nil {
			return nil, fmt.Errorf("failed to initialize onnxruntime: %w", initErr)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		filepath.Join(cfg.Path, modelFile),
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	return &BertBackend{tk: tk, session: session}, nil
}

// Tokenize encodes text with special tokens, truncated to the configured
// maximum sequence length. Single-input batches need no padding.
func (b *BertBackend) Tokenize(text string) (Encoding, error) {
	en, err := b.tk.EncodeSingle(text, true)
	if err != nil {
		return Encoding{}, fmt.Errorf("failed to encode text: %w", err)
	}
	return Encoding{
		IDs:           toInt64(en.GetIds()),
		AttentionMask: toInt64(en.GetAttentionMask()),
		TypeIDs:       toInt64(en.GetTypeIds()),
	}, nil
}

// Infer runs a single forward pass and returns the raw logits row.
func (b *BertBackend) Infer(ctx context.Context, enc Encoding) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := ort.NewShape(1, int64(len(enc.IDs)))

	inputIDs, err := ort.NewTensor(shape, enc.IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = inputIDs.Destroy() }()

	attentionMask, err := ort.NewTensor(shape, enc.AttentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention mask tensor: %w", err)
	}
	defer func() { _ = attentionMask.Destroy() }()

	typeIDs, err := ort.NewTensor(shape, enc.TypeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create token type tensor: %w", err)
	}
	defer func() { _ = typeIDs.Destroy() }()

	outputs := []ort.Value{nil}
	if runErr := b.session.Run([]ort.Value{inputIDs, attentionMask, typeIDs}, outputs); runErr != nil {
		return nil, fmt.Errorf("forward pass failed: %w", runErr)
	}

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer func() { _ = logitsTensor.Destroy() }()

	data := logitsTensor.GetData()
	logits := make([]float32, len(data))
	copy(logits, data)
	return logits, nil
}

// Close releases the ONNX session.
func (b *BertBackend) Close() error {
	return b.session.Destroy()
}

// LoadID2Label reads the id2label mapping from the model's config.json. A
// missing file or mapping is not an error; callers fall back to synthesized
// label names.
func LoadID2Label(modelPath string) (map[int]string, error) {
	raw, err := os.ReadFile(filepath.Join(modelPath, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}

	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	labels := make(map[int]string, len(cfg.ID2Label))
	for k, v := range cfg.ID2Label {
		id, convErr := strconv.Atoi(k)
		if convErr != nil {
			continue
		}
		labels[id] = v
	}
	return labels, nil
}

func toInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

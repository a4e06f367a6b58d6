package classifier

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	tokenizeErr error
	inferErr    error
	lastText    string
	logits      []float32
}

func (s *stubBackend) Tokenize(text string) (Encoding, error) {
	s.lastText = text
	if s.tokenizeErr != nil {
		return Encoding{}, s.tokenizeErr
	}
	return Encoding{
		IDs:           []int64{101, 2023, 102},
		AttentionMask: []int64{1, 1, 1},
		TypeIDs:       []int64{0, 0, 0},
	}, nil
}

func (s *stubBackend) Infer(_ context.Context, _ Encoding) ([]float32, error) {
	if s.inferErr != nil {
		return nil, s.inferErr
	}
	return s.logits, nil
}

func TestPrepareText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		txnType string
		want    string
	}{
		{
			name:    "income type uses template",
			text:    " salary deposit ",
			txnType: "income",
			want:    "Transaction: salary deposit - Type: income",
		},
		{
			name:    "expense type uses template",
			text:    "grocery run",
			txnType: "expense",
			want:    "Transaction: grocery run - Type: expense",
		},
		{
			name:    "expenses type uses template",
			text:    "grocery run",
			txnType: "expenses",
			want:    "Transaction: grocery run - Type: expenses",
		},
		{
			name:    "unknown type passes through trimmed",
			text:    "  coffee  ",
			txnType: "transfer",
			want:    "coffee",
		},
		{
			name:    "empty type passes through",
			text:    "coffee",
			txnType: "",
			want:    "coffee",
		},
		{
			name:    "whitespace-only text trims to empty",
			text:    "   ",
			txnType: "",
			want:    "",
		},
		{
			name:    "empty text with recognized type is still templated",
			text:    "",
			txnType: "income",
			want:    "Transaction:  - Type: income",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrepareText(tt.text, tt.txnType))
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		id2label  map[int]string
		name      string
		wantLabel string
		logits    []float32
		wantID    int
	}{
		{
			name:      "argmax picks highest logit",
			logits:    []float32{1.0, 3.0, 2.0},
			id2label:  map[int]string{0: "Income", 1: "Groceries", 2: "Transport"},
			wantID:    1,
			wantLabel: "Groceries",
		},
		{
			name:      "missing mapping synthesizes name",
			logits:    []float32{2.5, 0.5},
			id2label:  nil,
			wantID:    0,
			wantLabel: "LABEL_0",
		},
		{
			name:      "partial mapping falls back for unmapped id",
			logits:    []float32{0.1, 0.2, 5.0},
			id2label:  map[int]string{0: "Income"},
			wantID:    2,
			wantLabel: "LABEL_2",
		},
		{
			name:      "empty mapped name falls back",
			logits:    []float32{4.0, 1.0},
			id2label:  map[int]string{0: ""},
			wantID:    0,
			wantLabel: "LABEL_0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{logits: tt.logits}
			clf := New(backend, tt.id2label)

			result, err := clf.Classify(context.Background(), Request{Text: "some transaction"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantID, result.LabelID)
			assert.Equal(t, tt.wantLabel, result.LabelName)
			assert.Greater(t, result.Score, 0.0)
			assert.LessOrEqual(t, result.Score, 1.0)

			// Score must equal the softmax probability at the argmax.
			probs := softmax(tt.logits)
			assert.InDelta(t, probs[tt.wantID], result.Score, 1e-12)
		})
	}
}

func TestClassifier_TextReachesBackend(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "recognized type rewrites input",
			req:  Request{Text: " UBER TRIP ", Type: "expense"},
			want: "Transaction: UBER TRIP - Type: expense",
		},
		{
			name: "unrecognized type sends raw text",
			req:  Request{Text: " UBER TRIP ", Type: "debit"},
			want: "UBER TRIP",
		},
		{
			name: "empty text passes through unmodified",
			req:  Request{Text: ""},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{logits: []float32{1.0, 2.0}}
			clf := New(backend, nil)

			_, err := clf.Classify(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend.lastText)
		})
	}
}

func TestClassifier_Errors(t *testing.T) {
	tests := []struct {
		backend *stubBackend
		name    string
		wantMsg string
	}{
		{
			name:    "tokenizer failure propagates",
			backend: &stubBackend{tokenizeErr: errors.New("bad vocab")},
			wantMsg: "tokenization failed",
		},
		{
			name:    "inference failure propagates",
			backend: &stubBackend{inferErr: errors.New("session closed")},
			wantMsg: "inference failed",
		},
		{
			name:    "empty logits rejected",
			backend: &stubBackend{logits: []float32{}},
			wantMsg: "no logits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := New(tt.backend, nil)
			_, err := clf.Classify(context.Background(), Request{Text: "anything"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSoftmax(t *testing.T) {
	t.Run("probabilities sum to one", func(t *testing.T) {
		probs := softmax([]float32{0.5, -1.2, 3.3, 0.0})

		var sum float64
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.Equal(t, 2, argmax(probs))
	})

	t.Run("large logits stay finite", func(t *testing.T) {
		probs := softmax([]float32{1000, 999})

		require.False(t, math.IsNaN(probs[0]))
		require.False(t, math.IsInf(probs[0], 1))
		assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-9)
		assert.Greater(t, probs[0], probs[1])
	})

	t.Run("uniform logits give uniform distribution", func(t *testing.T) {
		probs := softmax([]float32{1.5, 1.5, 1.5, 1.5})
		for _, p := range probs {
			assert.InDelta(t, 0.25, p, 1e-9)
		}
	})
}

func TestLoadID2Label(t *testing.T) {
	t.Run("reads mapping from config.json", func(t *testing.T) {
		dir := t.TempDir()
		cfgJSON := `{"model_type": "bert", "id2label": {"0": "Income", "1": "Groceries", "7": "Travel"}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfgJSON), 0o600))

		labels, err := LoadID2Label(dir)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{0: "Income", 1: "Groceries", 7: "Travel"}, labels)
	})

	t.Run("missing config is not an error", func(t *testing.T) {
		labels, err := LoadID2Label(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, labels)
	})

	t.Run("config without id2label yields empty mapping", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"model_type": "bert"}`), 0o600))

		labels, err := LoadID2Label(dir)
		require.NoError(t, err)
		assert.Empty(t, labels)
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{not json`), 0o600))

		_, err := LoadID2Label(dir)
		require.Error(t, err)
	})

	t.Run("non-numeric ids are skipped", func(t *testing.T) {
		dir := t.TempDir()
		cfgJSON := `{"id2label": {"0": "Income", "oops": "Broken"}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfgJSON), 0o600))

		labels, err := LoadID2Label(dir)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{0: "Income"}, labels)
	})
}

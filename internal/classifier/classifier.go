// Package classifier runs a pretrained transaction-categorization model locally.
package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Encoding is a tokenized input ready for a forward pass.
type Encoding struct {
	IDs           []int64
	AttentionMask []int64
	TypeIDs       []int64
}

// Backend tokenizes text and produces raw classification logits. The service
// shares a single backend across requests, so implementations must be safe for
// concurrent use.
type Backend interface {
	Tokenize(text string) (Encoding, error)
	Infer(ctx context.Context, enc Encoding) ([]float32, error)
}

// Request is a single classification input. Type is an optional hint; only
// "income", "expense" and "expenses" are recognized.
type Request struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// Result is the top predicted label for a request.
type Result struct {
	LabelID   int     `json:"label_id"`
	LabelName string  `json:"label_name"`
	Score     float64 `json:"score"`
}

// Classifier wraps a model backend with transaction-specific input shaping and
// output decoding. It is stateless across calls.
type Classifier struct {
	backend  Backend
	id2label map[int]string
}

// New creates a classifier around a loaded backend. id2label may be nil, in
// which case label names are synthesized from the label index.
func New(backend Backend, id2label map[int]string) *Classifier {
	return &Classifier{backend: backend, id2label: id2label}
}

// PrepareText trims the input and, when the transaction type is recognized,
// rewrites it into the template the model was trained against.
func PrepareText(text, txnType string) string {
	text = strings.TrimSpace(text)
	switch txnType {
	case "income", "expense", "expenses":
		return fmt.Sprintf("Transaction: %s - Type: %s", text, txnType)
	}
	return text
}

// Classify tokenizes the request text, runs a forward pass and returns the
// highest-probability label with its softmax score.
func (c *Classifier) Classify(ctx context.Context, req Request) (Result, error) {
	enc, err := c.backend.Tokenize(PrepareText(req.Text, req.Type))
	if err != nil {
		return Result{}, fmt.Errorf("tokenization failed: %w", err)
	}

	logits, err := c.backend.Infer(ctx, enc)
	if err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}
	if len(logits) == 0 {
		return Result{}, fmt.Errorf("model returned no logits")
	}

	probs := softmax(logits)
	labelID := argmax(probs)

	return Result{
		LabelID:   labelID,
		LabelName: c.labelName(labelID),
		Score:     probs[labelID],
	}, nil
}

func (c *Classifier) labelName(id int) string {
	if name, ok := c.id2label[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("LABEL_%d", id)
}

// softmax converts raw logits into a probability distribution. The max logit
// is subtracted first to keep the exponentials finite.
func softmax(logits []float32) []float64 {
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

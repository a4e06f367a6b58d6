package main

import (
	"fmt"
	"log/slog"

	"github.com/mchalk/txncat/internal/classifier"
	"github.com/mchalk/txncat/internal/config"
	"github.com/mchalk/txncat/internal/fina"
)

// buildClassifier loads the local model once and returns the classifier with a
// cleanup function releasing the backend.
func buildClassifier(cfg *config.Config) (*classifier.Classifier, func(), error) {
	if err := cfg.ValidateModel(); err != nil {
		return nil, nil, err
	}

	slog.Info("Loading model", "path", cfg.Model.Path)
	backend, err := classifier.NewBertBackend(classifier.BertConfig{
		Path:               cfg.Model.Path,
		ONNXRuntimeLibrary: cfg.Model.ONNXRuntimeLibrary,
		MaxSequenceLength:  cfg.Model.MaxSequenceLength,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}

	id2label, err := classifier.LoadID2Label(cfg.Model.Path)
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("failed to load label mapping: %w", err)
	}

	cleanup := func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("Failed to close model backend", "error", closeErr)
		}
	}

	return classifier.New(backend, id2label), cleanup, nil
}

func newCategorizer(cfg *config.Config) fina.Categorizer {
	return fina.NewClient(fina.Config{
		URL:       cfg.Fina.URL,
		APIKey:    cfg.Fina.APIKey,
		PartnerID: cfg.Fina.PartnerID,
		Timeout:   cfg.Fina.Timeout,
	})
}

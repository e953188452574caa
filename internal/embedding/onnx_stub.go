//go:build !cgo
// +build !cgo

package embedding

import "errors"

// NewONNXEmbedder requires CGO and the ONNX runtime library. Without CGO the
// caller should fall back to MockEmbedder.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (Embedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; rebuild with CGO_ENABLED=1")
}

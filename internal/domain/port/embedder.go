package port

import "context"

// Embedder интерфейс внешнего сервиса эмбеддингов (CLIP).
// Возвращаемые векторы нормированы (L2) и имеют фиксированную длину.
type Embedder interface {
	// ImageEmbedding считает эмбеддинг изображения по его байтам.
	ImageEmbedding(ctx context.Context, imageData []byte) ([]float64, error)

	// TextEmbedding считает эмбеддинг текстового описания.
	TextEmbedding(ctx context.Context, text string) ([]float64, error)
}

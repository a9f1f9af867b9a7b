package embeddings

import "testing"

func TestEmbedIsDeterministic(t *testing.T) {
	m := New(DefaultDimension)
	a := m.Embed("weather forecast tool")
	b := m.Embed("weather forecast tool")

	if len(a) != DefaultDimension {
		t.Fatalf("expected dimension %d, got %d", DefaultDimension, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding is not deterministic at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmbedDifferentTextDiffers(t *testing.T) {
	m := New(DefaultDimension)
	a := m.Embed("get current weather forecast")
	b := m.Embed("list open support tickets")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("expected distinct texts to embed differently")
	}
}

func TestEmbedIsNormalized(t *testing.T) {
	m := New(32)
	vec := m.Embed("some reasonably long piece of descriptive text")

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares < 0.99 || sumSquares > 1.01 {
		t.Errorf("expected unit-norm vector, got squared norm %f", sumSquares)
	}
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	m := New(16)
	vec := m.Embed("")
	for i, v := range vec {
		if v != 0 {
			t.Errorf("expected zero vector for empty text, index %d = %f", i, v)
		}
	}
}

func TestNewFallsBackToDefaultDimension(t *testing.T) {
	m := New(0)
	if m.Dimension() != DefaultDimension {
		t.Errorf("expected fallback dimension %d, got %d", DefaultDimension, m.Dimension())
	}
}

package semantic

import "testing"

func TestNewStoreDefaultsToMemory(t *testing.T) {
	s, err := NewStore(StoreConfig{}, axisEmbedder(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
}

func TestNewStoreQdrantNeedsAddr(t *testing.T) {
	if _, err := NewStore(StoreConfig{Backend: BackendQdrant}, axisEmbedder(), nil); err == nil {
		t.Fatal("expected error for missing address")
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	if _, err := NewStore(StoreConfig{Backend: "annoy"}, axisEmbedder(), nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

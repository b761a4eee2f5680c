package service

import (
	"reflect"
	"testing"

	"github.com/collectfs/collectfs/internal/adapter/outbound/memback"
	"github.com/collectfs/collectfs/internal/adapter/outbound/memstore"
	"github.com/collectfs/collectfs/internal/port"
)

func newNamedCollection(t *testing.T, name string) *Collection {
	t.Helper()
	collection, err := New(name, Config{
		Store:    memstore.New(),
		Adapters: []port.StorageAdapter{memback.New("local")},
	})
	if err != nil {
		t.Fatalf("failed to construct %s: %v", name, err)
	}
	return collection
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	registry := NewRegistry()
	photos := newNamedCollection(t, "photos")
	docs := newNamedCollection(t, "docs")

	registry.Register(photos)
	registry.Register(docs)

	got, ok := registry.Get("photos")
	if !ok || got != photos {
		t.Fatalf("Get returned %v, %v", got, ok)
	}

	resolved, ok := registry.Resolve("docs")
	if !ok || resolved.Name() != "docs" {
		t.Fatalf("Resolve failed: %v, %v", resolved, ok)
	}

	if _, ok := registry.Resolve("missing"); ok {
		t.Fatalf("Resolve found unregistered collection")
	}

	if names := registry.Names(); !reflect.DeepEqual(names, []string{"docs", "photos"}) {
		t.Fatalf("Names = %v", names)
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistry()
	first := newNamedCollection(t, "photos")
	second := newNamedCollection(t, "photos")

	registry.Register(first)
	registry.Register(second)

	got, _ := registry.Get("photos")
	if got != second {
		t.Fatalf("expected the newest registration to win")
	}
	if len(registry.All()) != 1 {
		t.Fatalf("collision left %d entries", len(registry.All()))
	}
}

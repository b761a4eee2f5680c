package app

import (
	"context"
	"errors"
	"testing"

	"github.com/collectfs/collectfs/internal/adapter/outbound/memstore"
	"github.com/collectfs/collectfs/internal/config"
	"github.com/collectfs/collectfs/internal/service"
)

func TestBuildAccessRulesTranslatesPolicies(t *testing.T) {
	rules := buildAccessRules(config.AccessConfig{
		Insert:   []string{"authenticated", "!mallory"},
		Remove:   []string{"alice"},
		Download: []string{"anyone"},
	})

	cases := []struct {
		name      string
		op        service.Operation
		principal string
		allowed   bool
	}{
		{"authenticated principal may insert", service.OpInsert, "alice", true},
		{"anonymous may not insert", service.OpInsert, "", false},
		{"denied principal loses despite authentication", service.OpInsert, "mallory", false},
		{"anyone may download", service.OpDownload, "", true},
		{"named principal may remove", service.OpRemove, "alice", true},
		{"other principals may not remove", service.OpRemove, "bob", false},
		{"unconfigured operation denies", service.OpUpdate, "alice", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.principal != "" {
				ctx = service.WithPrincipal(ctx, tc.principal)
			}

			err := rules.Authorize(ctx, tc.op, nil)
			if tc.allowed && err != nil {
				t.Fatalf("expected the operation to be allowed, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, service.ErrAuthorizationDenied) {
				t.Fatalf("expected denial, got %v", err)
			}
		})
	}
}

func TestBuildBackendsRejectsDuplicates(t *testing.T) {
	_, err := buildBackends(context.Background(), []config.BackendConfig{
		{Name: "disk", Kind: "memory"},
		{Name: "disk", Kind: "memory"},
	})
	if err == nil {
		t.Fatal("expected duplicate backend names to be rejected")
	}
}

func TestBuildCollectionResolvesBackendsInOrder(t *testing.T) {
	adapters, err := buildBackends(context.Background(), []config.BackendConfig{
		{Name: "mirror", Kind: "memory"},
		{Name: "disk", Kind: "memory"},
	})
	if err != nil {
		t.Fatalf("failed to build backends: %v", err)
	}

	collection, err := buildCollection(config.CollectionConfig{
		Name:     "photos",
		Backends: []string{"disk", "mirror"},
		Access:   config.AccessConfig{Insert: []string{"anyone"}},
	}, memstore.New(), adapters)
	if err != nil {
		t.Fatalf("failed to build collection: %v", err)
	}

	got := collection.Backends()
	if len(got) != 2 || got[0] != "disk" || got[1] != "mirror" {
		t.Fatalf("unexpected placement order %v", got)
	}

	if _, err := buildCollection(config.CollectionConfig{
		Name:     "broken",
		Backends: []string{"tape"},
	}, memstore.New(), adapters); err == nil {
		t.Fatal("expected unknown backend reference to fail")
	}
}

package natsbridge

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/collectfs/collectfs/internal/adapter/outbound/memback"
	"github.com/collectfs/collectfs/internal/adapter/outbound/memstore"
	"github.com/collectfs/collectfs/internal/domain"
	"github.com/collectfs/collectfs/internal/port"
	"github.com/collectfs/collectfs/internal/port/mocks"
	"github.com/collectfs/collectfs/internal/service"
)

func TestDispatchAppliesEvents(t *testing.T) {
	updatedAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	info := domain.FileInfo{Name: "a.png", ContentType: "image/png", Size: 4, UpdatedAt: updatedAt}

	tests := []struct {
		name    string
		verb    string
		payload string
		setup   func(handler *mocks.MockSyncHandler)
		wantErr bool
	}{
		{
			name:    "Insert",
			verb:    verbInsert,
			payload: `{"backend_id":"disk-1","name":"a.png","content_type":"image/png","size":4,"updated_at":"2026-03-14T10:30:00Z"}`,
			setup: func(handler *mocks.MockSyncHandler) {
				handler.EXPECT().
					OnInsert(gomock.Any(), "disk-1", info, nil).
					Return(nil)
			},
		},
		{
			name:    "Update",
			verb:    verbUpdate,
			payload: `{"backend_id":"disk-1","name":"a.png","content_type":"image/png","size":4,"updated_at":"2026-03-14T10:30:00Z"}`,
			setup: func(handler *mocks.MockSyncHandler) {
				handler.EXPECT().
					OnUpdate(gomock.Any(), "disk-1", info).
					Return(nil)
			},
		},
		{
			name:    "Remove",
			verb:    verbRemove,
			payload: `{"backend_id":"disk-1"}`,
			setup: func(handler *mocks.MockSyncHandler) {
				handler.EXPECT().
					OnRemove(gomock.Any(), "disk-1").
					Return(nil)
			},
		},
		{
			name:    "InvalidJSON",
			verb:    verbInsert,
			payload: `{broken`,
			setup: func(handler *mocks.MockSyncHandler) {
				handler.EXPECT().
					OnInsert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantErr: true,
		},
		{
			name:    "MissingBackendID",
			verb:    verbRemove,
			payload: `{"name":"a.png"}`,
			setup: func(handler *mocks.MockSyncHandler) {
				handler.EXPECT().
					OnRemove(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantErr: true,
		},
		{
			name:    "UnknownVerb",
			verb:    "rename",
			payload: `{"backend_id":"disk-1"}`,
			setup:   func(handler *mocks.MockSyncHandler) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			handler := mocks.NewMockSyncHandler(ctrl)
			tt.setup(handler)

			err := dispatch(context.Background(), tt.verb, handler, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("dispatch error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoutesCoverEveryBackendAndVerb(t *testing.T) {
	collection, err := service.New("photos", service.Config{
		Store:    memstore.New(),
		Adapters: []port.StorageAdapter{memback.New("disk"), memback.New("mirror")},
		Access:   service.NewAccessRules().AllowAll(),
	})
	if err != nil {
		t.Fatalf("failed to construct collection: %v", err)
	}

	registry := service.NewRegistry()
	registry.Register(collection)

	bridge := New(nil, registry)
	routes, err := bridge.routes(context.Background())
	if err != nil {
		t.Fatalf("routes failed: %v", err)
	}

	expected := []string{
		"collectfs.sync.photos.disk.insert",
		"collectfs.sync.photos.disk.update",
		"collectfs.sync.photos.disk.remove",
		"collectfs.sync.photos.mirror.insert",
		"collectfs.sync.photos.mirror.update",
		"collectfs.sync.photos.mirror.remove",
	}
	if len(routes) != len(expected) {
		t.Fatalf("expected %d routes, got %d", len(expected), len(routes))
	}
	for _, subject := range expected {
		if _, ok := routes[subject]; !ok {
			t.Fatalf("expected route for %s", subject)
		}
	}
}

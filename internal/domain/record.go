package domain

import (
	"path"
	"strings"
	"time"
)

// ReplicationState is derived from a record's copies map, never stored.
type ReplicationState string

const (
	// ReplicationPending means metadata exists but no backend holds the bytes yet.
	ReplicationPending ReplicationState = "pending"
	// ReplicationPartial means at least one, but not all, configured backends hold a current copy.
	ReplicationPartial ReplicationState = "partial"
	// ReplicationComplete means every configured backend holds a current copy.
	ReplicationComplete ReplicationState = "complete"
)

// FileInfo carries the metadata of a candidate or observed file.
type FileInfo struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ext returns the lowercase file extension without the leading dot.
func (i FileInfo) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(i.Name)), ".")
}

// CopyDescriptor records the state of one backend's physical copy
// as of its last successful sync.
type CopyDescriptor struct {
	BackendID   string    `json:"backend_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DescriptorFor builds the copy descriptor for a backend object holding
// the given metadata.
func DescriptorFor(backendID string, info FileInfo) CopyDescriptor {
	return CopyDescriptor{
		BackendID:   backendID,
		Name:        info.Name,
		ContentType: info.ContentType,
		Size:        info.Size,
		UpdatedAt:   info.UpdatedAt,
	}
}

// FileRecord is the canonical metadata entity for one logical file.
// Copies is keyed by backend name; a key's presence means that backend
// holds a current copy, its absence means the copy is missing or stale.
type FileRecord struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	ContentType string                    `json:"content_type"`
	Size        int64                     `json:"size"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Copies      map[string]CopyDescriptor `json:"copies"`
}

// NewFileRecord creates a record from candidate metadata with no copies yet.
func NewFileRecord(info FileInfo) *FileRecord {
	updatedAt := info.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	return &FileRecord{
		Name:        info.Name,
		ContentType: info.ContentType,
		Size:        info.Size,
		UpdatedAt:   updatedAt,
		Copies:      map[string]CopyDescriptor{},
	}
}

// Info projects the record's top-level metadata as candidate file info.
func (r *FileRecord) Info() FileInfo {
	return FileInfo{
		Name:        r.Name,
		ContentType: r.ContentType,
		Size:        r.Size,
		UpdatedAt:   r.UpdatedAt,
	}
}

// StorageKey returns the deterministic object key replication writes
// this record's bytes under. Derived from the record id, so two records
// sharing a file name never collide.
func (r *FileRecord) StorageKey() string {
	return r.ID + "/" + r.Name
}

// Clone returns a deep copy so callers can mutate without aliasing the original.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Copies = make(map[string]CopyDescriptor, len(r.Copies))
	for backend, copyDesc := range r.Copies {
		clone.Copies[backend] = copyDesc
	}

	return &clone
}

// CopyFor returns the descriptor tracked for the named backend.
func (r *FileRecord) CopyFor(backend string) (CopyDescriptor, bool) {
	copyDesc, ok := r.Copies[backend]
	return copyDesc, ok
}

// SetCopy records a current copy for the named backend.
func (r *FileRecord) SetCopy(backend string, copyDesc CopyDescriptor) {
	if r.Copies == nil {
		r.Copies = map[string]CopyDescriptor{}
	}
	r.Copies[backend] = copyDesc
}

// DropCopy forgets the named backend's copy. Missing entries are ignored.
func (r *FileRecord) DropCopy(backend string) {
	delete(r.Copies, backend)
}

// ResetCopies replaces the copies map with a single entry for the
// reporting backend. Every other backend's copy becomes stale by absence.
func (r *FileRecord) ResetCopies(backend string, copyDesc CopyDescriptor) {
	r.Copies = map[string]CopyDescriptor{backend: copyDesc}
}

// State derives the replication state against the configured backend names.
func (r *FileRecord) State(backends []string) ReplicationState {
	if len(r.Copies) == 0 {
		return ReplicationPending
	}

	for _, backend := range backends {
		if _, ok := r.Copies[backend]; !ok {
			return ReplicationPartial
		}
	}

	return ReplicationComplete
}

// MissingBackends lists configured backends without a current copy, in order.
func (r *FileRecord) MissingBackends(backends []string) []string {
	var missing []string
	for _, backend := range backends {
		if _, ok := r.Copies[backend]; !ok {
			missing = append(missing, backend)
		}
	}
	return missing
}

// Lookup resolves a dotted selector path against the record. Top-level
// fields use their wire names; copy fields are addressed as
// "copies.<backend>" (presence) or "copies.<backend>.<field>".
func (r *FileRecord) Lookup(fieldPath string) (any, bool) {
	switch fieldPath {
	case "id":
		return r.ID, true
	case "name":
		return r.Name, true
	case "content_type":
		return r.ContentType, true
	case "size":
		return r.Size, true
	case "updated_at":
		return r.UpdatedAt, true
	case "copies":
		return r.Copies, true
	}

	rest, ok := strings.CutPrefix(fieldPath, "copies.")
	if !ok {
		return nil, false
	}

	backend, field, nested := strings.Cut(rest, ".")
	copyDesc, tracked := r.Copies[backend]
	if !tracked {
		return nil, false
	}
	if !nested {
		return copyDesc, true
	}

	switch field {
	case "backend_id":
		return copyDesc.BackendID, true
	case "name":
		return copyDesc.Name, true
	case "content_type":
		return copyDesc.ContentType, true
	case "size":
		return copyDesc.Size, true
	case "updated_at":
		return copyDesc.UpdatedAt, true
	default:
		return nil, false
	}
}

// Matches reports whether every selector entry equals the value at its path.
// A selector path that does not resolve never matches.
func (r *FileRecord) Matches(selector map[string]any) bool {
	for fieldPath, want := range selector {
		got, ok := r.Lookup(fieldPath)
		if !ok || !selectorValueEqual(got, want) {
			return false
		}
	}
	return true
}

// selectorValueEqual compares a resolved field against a selector value,
// folding integer widths so callers can match sizes with untyped literals.
func selectorValueEqual(got, want any) bool {
	if gotTime, ok := got.(time.Time); ok {
		wantTime, ok := want.(time.Time)
		return ok && gotTime.Equal(wantTime)
	}

	if gotInt, ok := asInt64(got); ok {
		wantInt, wantOK := asInt64(want)
		return wantOK && gotInt == wantInt
	}

	return got == want
}

// asInt64 widens any integer kind to int64.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

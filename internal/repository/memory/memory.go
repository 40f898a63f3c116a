// Package memory holds in-process implementations of the repository
// interfaces, used by tests and by the memory store backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"
	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/repository"
)

// Store bundles the in-memory repositories so tests can reset them together.
type Store struct {
	Students  *StudentStore
	Roles     *RoleStore
	Audit     *AuditStore
	Files     *FileStore
	EmailLogs *EmailLogStore
}

func New() *Store {
	return &Store{
		Students:  NewStudentStore(),
		Roles:     NewRoleStore(),
		Audit:     NewAuditStore(),
		Files:     NewFileStore(),
		EmailLogs: NewEmailLogStore(),
	}
}

// Handle exposes the bundle as the repository.Store used by services.
func (s *Store) Handle() *repository.Store {
	return repository.NewStore(s.Students, s.Roles, s.Audit, s.Files, s.EmailLogs)
}

// Reset drops all data. Intended for test isolation.
func (s *Store) Reset() {
	s.Students.reset()
	s.Roles.reset()
	s.Audit.reset()
	s.Files.reset()
	s.EmailLogs.reset()
}

type StudentStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Student
	order []string
}

func NewStudentStore() *StudentStore {
	return &StudentStore{byID: make(map[string]domain.Student)}
}

func (s *StudentStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]domain.Student)
	s.order = nil
}

func (s *StudentStore) Create(_ context.Context, student *domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[student.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.byID[student.ID] = *student
	s.order = append(s.order, student.ID)
	return nil
}

func (s *StudentStore) GetByID(_ context.Context, id string) (*domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (s *StudentStore) Update(_ context.Context, student *domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[student.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[student.ID] = *student
	return nil
}

func (s *StudentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// newestFirst returns a copy of all students ordered by created_at desc,
// insertion order breaking ties.
func (s *StudentStore) newestFirst() []domain.Student {
	out := make([]domain.Student, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *StudentStore) List(_ context.Context, opts domain.StudentListOptions) ([]domain.Student, int, error) {
	s.mu.RLock()
	all := s.newestFirst()
	s.mu.RUnlock()

	filtered := all[:0:0]
	for _, st := range all {
		if opts.Status != nil && st.ApplicationStatus != *opts.Status {
			continue
		}
		if opts.Country != nil && !strings.EqualFold(st.Country, *opts.Country) {
			continue
		}
		filtered = append(filtered, st)
	}

	asc := opts.Direction == domain.SortAsc
	sort.SliceStable(filtered, func(i, j int) bool {
		cmp := compareStudentField(filtered[i], filtered[j], opts.OrderBy)
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})

	total := len(filtered)
	start := opts.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if opts.PageSize < total-start {
		end = start + opts.PageSize
	}
	return append([]domain.Student{}, filtered[start:end]...), total, nil
}

func compareStudentField(a, b domain.Student, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "last_active":
		return a.LastActive.Compare(b.LastActive)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (s *StudentStore) Snapshot(_ context.Context, limit int) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestFirst()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type RoleStore struct {
	mu      sync.RWMutex
	records map[string]domain.UserRole
	// FailWith makes every call return this error when set.
	FailWith error
}

func NewRoleStore() *RoleStore {
	return &RoleStore{records: make(map[string]domain.UserRole)}
}

func (s *RoleStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.UserRole)
	s.FailWith = nil
}

func (s *RoleStore) Get(_ context.Context, uid string) (*domain.UserRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	rec, ok := s.records[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (s *RoleStore) CreateIfAbsent(_ context.Context, rec *domain.UserRole) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	if _, ok := s.records[rec.UID]; ok {
		return false, nil
	}
	s.records[rec.UID] = *rec
	return true, nil
}

// Put stores a record as-is, bypassing role validation.
func (s *RoleStore) Put(rec domain.UserRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UID] = rec
}

func (s *RoleStore) UpdateRole(_ context.Context, uid string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	rec, ok := s.records[uid]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Role = string(role)
	rec.UpdatedAt = time.Now().UTC()
	s.records[uid] = rec
	return nil
}

func (s *RoleStore) TouchLastLogin(_ context.Context, uid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	rec, ok := s.records[uid]
	if !ok {
		return domain.ErrNotFound
	}
	rec.LastLogin = &at
	s.records[uid] = rec
	return nil
}

func (s *RoleStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

type AuditStore struct {
	mu     sync.RWMutex
	events []domain.AuditEvent
	// FailWith makes Append return this error when set.
	FailWith error
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.FailWith = nil
}

func (s *AuditStore) Append(_ context.Context, e *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *AuditStore) List(_ context.Context, f domain.AuditFilter, limit, offset int) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []domain.AuditEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		if f.TargetID != "" && e.TargetID != f.TargetID {
			continue
		}
		if f.From != nil && e.Timestamp.Before(*f.From) {
			continue
		}
		if f.To != nil && e.Timestamp.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return page(matched, limit, offset), nil
}

// All returns every stored event in insertion order.
func (s *AuditStore) All() []domain.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEvent{}, s.events...)
}

type FileStore struct {
	mu    sync.RWMutex
	files map[string]domain.StoredFile
}

func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]domain.StoredFile)}
}

func (s *FileStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string]domain.StoredFile)
}

func (s *FileStore) Create(_ context.Context, f *domain.StoredFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.files[f.ID] = *f
	return nil
}

func (s *FileStore) GetByID(_ context.Context, id string) (*domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (s *FileStore) ListByStudent(_ context.Context, studentID string) ([]domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.StoredFile{}
	for _, f := range s.files {
		if f.StudentID == studentID && f.Status != domain.FileStatusDeleted {
			out = append(out, f)
		}
	}
	sortFilesNewestFirst(out)
	return out, nil
}

func (s *FileStore) FindByHash(_ context.Context, studentID, hash string) (*domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.StudentID == studentID && f.FileHash == hash && f.Status != domain.FileStatusDeleted {
			return &f, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *FileStore) MarkDeleted(_ context.Context, id, deletedBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.Status = domain.FileStatusDeleted
	f.DeletedAt = &at
	f.DeletedBy = deletedBy
	s.files[id] = f
	return nil
}

func (s *FileStore) ListAll(_ context.Context) ([]domain.StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sortFilesNewestFirst(out)
	return out, nil
}

func sortFilesNewestFirst(files []domain.StoredFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].ID < files[j].ID
		}
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
}

type EmailLogStore struct {
	mu   sync.RWMutex
	logs []domain.EmailLog
	// FailWith makes Append return this error when set.
	FailWith error
}

func NewEmailLogStore() *EmailLogStore {
	return &EmailLogStore{}
}

func (s *EmailLogStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
	s.FailWith = nil
}

func (s *EmailLogStore) Append(_ context.Context, l *domain.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.logs = append(s.logs, *l)
	return nil
}

func (s *EmailLogStore) List(_ context.Context, f domain.EmailLogFilter) ([]domain.EmailLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []domain.EmailLog{}
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if f.StudentID != "" && l.StudentID != f.StudentID {
			continue
		}
		if f.Template != "" && l.Template != f.Template {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.From != nil && l.SentAt.Before(*f.From) {
			continue
		}
		if f.To != nil && l.SentAt.After(*f.To) {
			continue
		}
		matched = append(matched, l)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].SentAt.After(matched[j].SentAt)
	})
	return page(matched, f.Limit, f.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

package database

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/coursehub-api/model"
)

// MemoryStore keeps every entity in process memory. It is the default
// backing and loses all data on restart.
type MemoryStore struct {
	users    *memUsers
	courses  *memCourses
	payments *memPayments
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    &memUsers{t: newTable(model.User.Clone)},
		courses:  &memCourses{t: newTable(model.Course.Clone)},
		payments: &memPayments{t: newTable(model.PaymentIntent.Clone)},
	}
}

func (s *MemoryStore) Users() UserStore       { return s.users }
func (s *MemoryStore) Courses() CourseStore   { return s.courses }
func (s *MemoryStore) Payments() PaymentStore { return s.payments }
func (s *MemoryStore) Init() error            { return nil }
func (s *MemoryStore) Close() error           { return nil }
func (s *MemoryStore) HealthCheck() error     { return nil }

// table is an insertion-ordered map guarded by one RWMutex
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]*T
	order []string
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]*T), clone: clone}
}

func (t *table[T]) get(id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return t.clone(*row), nil
}

// find returns the first row matching pred in insertion order
func (t *table[T]) find(pred func(*T) bool) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range t.order {
		if row := t.rows[id]; pred(row) {
			return t.clone(*row), nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

func (t *table[T]) scan(pred func(*T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0)
	for _, id := range t.order {
		if row := t.rows[id]; pred(row) {
			out = append(out, t.clone(*row))
		}
	}
	return out
}

// anyLocked must be called with t.mu held
func (t *table[T]) anyLocked(pred func(*T) bool) bool {
	for _, id := range t.order {
		if pred(t.rows[id]) {
			return true
		}
	}
	return false
}

// insert stores row under id. check runs against every existing row under
// the write lock; its first error aborts the insert.
func (t *table[T]) insert(id string, row T, check func(*T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if check != nil {
		for _, existing := range t.order {
			if err := check(t.rows[existing]); err != nil {
				var zero T
				return zero, err
			}
		}
	}
	stored := t.clone(row)
	t.rows[id] = &stored
	t.order = append(t.order, id)
	return t.clone(stored), nil
}

// update runs fn on a working copy of the row under the write lock and
// commits it only when fn succeeds
func (t *table[T]) update(id string, fn func(*T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	row, ok := t.rows[id]
	if !ok {
		return zero, ErrNotFound
	}
	working := t.clone(*row)
	if err := fn(&working); err != nil {
		return zero, err
	}
	*row = working
	return t.clone(working), nil
}

func (t *table[T]) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// touch returns a timestamp strictly after prev
func touch(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

type memUsers struct {
	t *table[model.User]
}

func (s *memUsers) Create(_ context.Context, user model.User) (model.User, error) {
	user.ID = uuid.NewString()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	if user.Progress == nil {
		user.Progress = []model.CourseProgress{}
	}

	return s.t.insert(user.ID, user, func(existing *model.User) error {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
		return nil
	})
}

func (s *memUsers) FindByID(_ context.Context, id string) (model.User, error) {
	return s.t.get(id)
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.t.find(func(u *model.User) bool { return u.Email == email })
}

func (s *memUsers) FindBy(_ context.Context, filter UserFilter) ([]model.User, error) {
	return s.t.scan(filter.Match), nil
}

func (s *memUsers) Update(_ context.Context, id string, patch UserUpdate) (model.User, error) {
	return s.t.update(id, func(u *model.User) error {
		patch.apply(u)
		u.UpdatedAt = touch(u.UpdatedAt)
		return nil
	})
}

func (s *memUsers) Delete(_ context.Context, id string) (bool, error) {
	return s.t.remove(id), nil
}

func (s *memUsers) AddProgress(_ context.Context, userID string, progress model.CourseProgress) (model.User, error) {
	return s.t.update(userID, func(u *model.User) error {
		if _, ok := u.ProgressFor(progress.CourseID); ok {
			return ErrAlreadyEnrolled
		}
		if progress.CompletedModules == nil {
			progress.CompletedModules = []string{}
		}
		u.Progress = append(u.Progress, progress)
		u.UpdatedAt = touch(u.UpdatedAt)
		return nil
	})
}

func (s *memUsers) UpdateProgress(_ context.Context, userID, courseID string, fn func(*model.CourseProgress) error) (model.CourseProgress, error) {
	var result model.CourseProgress
	_, err := s.t.update(userID, func(u *model.User) error {
		p, ok := u.ProgressFor(courseID)
		if !ok {
			return ErrNotFound
		}
		if err := fn(p); err != nil {
			return err
		}
		u.UpdatedAt = touch(u.UpdatedAt)
		result = *p
		return nil
	})
	if err != nil {
		return model.CourseProgress{}, err
	}
	result.CompletedModules = append([]string{}, result.CompletedModules...)
	return result, nil
}

type memCourses struct {
	t *table[model.Course]
}

func (s *memCourses) Create(_ context.Context, course model.Course) (model.Course, error) {
	course.ID = uuid.NewString()
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	if course.Tags == nil {
		course.Tags = []string{}
	}
	return s.t.insert(course.ID, course, nil)
}

func (s *memCourses) FindByID(_ context.Context, id string) (model.Course, error) {
	return s.t.get(id)
}

func (s *memCourses) FindBy(_ context.Context, filter CourseFilter) ([]model.Course, error) {
	return s.t.scan(filter.Match), nil
}

func (s *memCourses) Update(_ context.Context, id string, patch CourseUpdate) (model.Course, error) {
	return s.t.update(id, func(c *model.Course) error {
		patch.apply(c)
		c.UpdatedAt = touch(c.UpdatedAt)
		return nil
	})
}

func (s *memCourses) Delete(_ context.Context, id string) (bool, error) {
	return s.t.remove(id), nil
}

func (s *memCourses) IncrementEnrollment(_ context.Context, id string) (model.Course, error) {
	return s.t.update(id, func(c *model.Course) error {
		c.Stats.EnrollmentCount++
		c.UpdatedAt = touch(c.UpdatedAt)
		return nil
	})
}

func (s *memCourses) SetStats(_ context.Context, id string, stats model.CourseStats) (model.Course, error) {
	return s.t.update(id, func(c *model.Course) error {
		c.Stats = stats
		c.UpdatedAt = touch(c.UpdatedAt)
		return nil
	})
}

type memPayments struct {
	t *table[model.PaymentIntent]
}

func (s *memPayments) Create(_ context.Context, payment model.PaymentIntent) (model.PaymentIntent, error) {
	payment.ID = uuid.NewString()
	payment.CreatedAt = time.Now().UTC()
	payment.UpdatedAt = payment.CreatedAt
	if payment.Status == "" {
		payment.Status = model.PaymentPending
	}
	return s.t.insert(payment.ID, payment, func(p *model.PaymentIntent) error {
		if payment.ProviderTransactionID != "" && p.ProviderTransactionID == payment.ProviderTransactionID {
			return ErrDuplicateProvider
		}
		return nil
	})
}

func (s *memPayments) FindByID(_ context.Context, id string) (model.PaymentIntent, error) {
	return s.t.get(id)
}

func (s *memPayments) FindByProviderID(_ context.Context, providerID string) (model.PaymentIntent, error) {
	return s.t.find(func(p *model.PaymentIntent) bool {
		return providerID != "" && p.ProviderTransactionID == providerID
	})
}

func (s *memPayments) FindBy(_ context.Context, filter PaymentFilter) ([]model.PaymentIntent, error) {
	return s.t.scan(filter.Match), nil
}

func (s *memPayments) Delete(_ context.Context, id string) (bool, error) {
	return s.t.remove(id), nil
}

func (s *memPayments) Transition(_ context.Context, id string, next model.PaymentStatus, fn func(*model.PaymentIntent)) (model.PaymentIntent, error) {
	return s.t.update(id, func(p *model.PaymentIntent) error {
		err := checkTransition(p.Status, next, func() bool {
			return s.t.anyLocked(func(other *model.PaymentIntent) bool {
				return other.ID != p.ID &&
					other.UserID == p.UserID &&
					other.CourseID == p.CourseID &&
					other.Status == model.PaymentSucceeded
			})
		})
		if err != nil {
			return err
		}
		if fn != nil {
			fn(p)
		}
		p.Status = next
		p.UpdatedAt = touch(p.UpdatedAt)
		return nil
	})
}

func (s *memPayments) RecordEvent(_ context.Context, id, eventID string) error {
	_, err := s.t.update(id, func(p *model.PaymentIntent) error {
		if !p.HasProcessed(eventID) {
			p.ProcessedEvents = append(p.ProcessedEvents, eventID)
		}
		return nil
	})
	return err
}

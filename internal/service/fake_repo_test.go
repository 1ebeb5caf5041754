package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"regapi/internal/model"
	"regapi/internal/repository"
)

// fakeRepo keeps aggregates in memory with the same identity and version
// rules as the postgres repository.
type fakeRepo struct {
	mu     sync.Mutex
	rows   map[string]*model.Student
	nextID int64
	saves  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*model.Student)}
}

func clone(s *model.Student) *model.Student {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out model.Student
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

func eachOwned[E any, PE owner[E]](list []E, fn func(*model.Owned)) {
	for i := range list {
		fn(PE(&list[i]).Base())
	}
}

func (r *fakeRepo) assignIDs(s *model.Student) {
	stamp := func(o *model.Owned) {
		o.StudentID = s.ID
		if o.ID == 0 {
			r.nextID++
			o.ID = r.nextID
		}
	}
	for _, o := range []*model.Owned{
		ownedOf(s.PersonalDetails), ownedOf(s.ContactDetail), ownedOf(s.FinancialDetail),
		ownedOf(s.BankDetail), ownedOf(s.CitizenshipDetail), ownedOf(s.AcademicEnrollment),
		ownedOf(s.Declaration),
	} {
		if o != nil {
			stamp(o)
		}
	}
	eachOwned(s.Addresses, stamp)
	eachOwned(s.EmergencyContacts, stamp)
	eachOwned(s.DisabilityDetails, stamp)
	eachOwned(s.ParentGuardians, stamp)
	eachOwned(s.AcademicHistories, stamp)
	eachOwned(s.ExtracurricularDetails, stamp)
	eachOwned(s.Documents, stamp)
}

func ownedOf[E any, PE owner[E]](e PE) *model.Owned {
	if e == nil {
		return nil
	}
	return e.Base()
}

func (r *fakeRepo) Create(ctx context.Context, s *model.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	s.Version = 1
	r.assignIDs(s)
	r.rows[s.PID] = clone(s)
	return nil
}

func (r *fakeRepo) FindByPID(ctx context.Context, pid string) (*model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[pid]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return clone(s), nil
}

func (r *fakeRepo) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Student], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.Student, 0, len(r.rows))
	for _, s := range r.rows {
		items = append(items, *clone(s))
	}
	return &repository.PageResult[model.Student]{Items: items, Total: len(items)}, nil
}

func (r *fakeRepo) Save(ctx context.Context, s *model.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[s.PID]
	if !ok || stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	r.assignIDs(s)
	s.Version++
	r.saves++
	r.rows[s.PID] = clone(s)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, pid string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[pid]
	if !ok || stored.Version != version {
		return repository.ErrVersionConflict
	}
	delete(r.rows, pid)
	return nil
}

func (r *fakeRepo) stored(pid string) *model.Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[pid]; ok {
		return clone(s)
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	"github.com/noah-isme/preparatorio-aauma-api/internal/repository"
)

// fakeStore is an in-memory stand-in for the pair, class, student and room tables.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	pairs    map[string]models.CoursePair
	classes  map[string]models.Class
	students map[string]models.Student
	rooms    map[string]models.Room

	countWrites     map[string]int
	failStudentsFor string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pairs:       map[string]models.CoursePair{},
		classes:     map[string]models.Class{},
		students:    map[string]models.Student{},
		rooms:       map[string]models.Room{},
		countWrites: map[string]int{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// seedPair stores an active pair with classes A and B and returns their ids.
func (s *fakeStore) seedPair(name string, capacity, storedA, storedB int) (pairID, classA, classB string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairID = s.nextID("pair")
	s.pairs[pairID] = models.CoursePair{
		ID:             pairID,
		Name:           name,
		Period:         models.PeriodMorning,
		PeriodLabel:    "Manhã",
		CourseCodes:    []string{"ENG-CIV", "ENG-INF"},
		WeeklySchedule: models.WeeklySchedule{"segunda": "Física, Desenho", "terca": "Matemática"},
		Active:         true,
	}
	classA = s.nextID("class")
	s.classes[classA] = models.Class{ID: classA, PairID: pairID, Variant: models.VariantA, RoomCode: "S1", Capacity: capacity, EnrolledCount: storedA}
	classB = s.nextID("class")
	s.classes[classB] = models.Class{ID: classB, PairID: pairID, Variant: models.VariantB, RoomCode: "S2", Capacity: capacity, EnrolledCount: storedB}
	return pairID, classA, classB
}

// seedStudents adds n student rows to a class without touching its stored count.
func (s *fakeStore) seedStudents(classID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	class := s.classes[classID]
	for i := 0; i < n; i++ {
		id := s.nextID("student")
		s.students[id] = models.Student{
			ID:         id,
			Name:       "Aluno " + id,
			ClassID:    classID,
			PairID:     class.PairID,
			CourseCode: "ENG-CIV",
			Status:     models.StudentStatusEnrolled,
			AmountPaid: 15000,
			CreatedAt:  time.Now(),
		}
	}
}

func (s *fakeStore) studentsIn(classID string) []models.Student {
	var out []models.Student
	for _, st := range s.students {
		if st.ClassID == classID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakePairRepo struct{ *fakeStore }

func (r fakePairRepo) List(ctx context.Context, filter models.CoursePairFilter) ([]models.CoursePair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CoursePair
	for _, p := range r.pairs {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakePairRepo) FindByID(ctx context.Context, id string) (*models.CoursePair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pairs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r fakePairRepo) CreateWithClasses(ctx context.Context, pair *models.CoursePair, classes []*models.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair.ID = r.nextID("pair")
	r.pairs[pair.ID] = *pair
	for _, c := range classes {
		c.ID = r.nextID("class")
		c.PairID = pair.ID
		r.classes[c.ID] = *c
	}
	return nil
}

func (r fakePairRepo) Update(ctx context.Context, pair *models.CoursePair) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[pair.ID] = *pair
	return nil
}

func (r fakePairRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pairs[id]
	p.Active = active
	r.pairs[id] = p
	return nil
}

func (r fakePairRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cid, c := range r.classes {
		if c.PairID == id {
			delete(r.classes, cid)
		}
	}
	delete(r.pairs, id)
	return nil
}

type fakeClassRepo struct{ *fakeStore }

func (r fakeClassRepo) ListByPair(ctx context.Context, pairID string) ([]models.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Class
	for _, c := range r.classes {
		if c.PairID == pairID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variant < out[j].Variant })
	return out, nil
}

func (r fakeClassRepo) FindByPairAndVariant(ctx context.Context, pairID string, variant models.ClassVariant) (*models.Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.classes {
		if c.PairID == pairID && c.Variant == variant {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r fakeClassRepo) Update(ctx context.Context, class *models.Class) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[class.ID] = *class
	return nil
}

func (r fakeClassRepo) UpdateEnrolledCount(ctx context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.classes[id]
	c.EnrolledCount = count
	r.classes[id] = c
	r.countWrites[id]++
	return nil
}

type fakeStudentRepo struct{ *fakeStore }

func (r fakeStudentRepo) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStudentsFor == classID {
		return nil, errors.New("connection reset")
	}
	return r.studentsIn(classID), nil
}

func (r fakeStudentRepo) CountByPair(ctx context.Context, pairID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, st := range r.students {
		if st.PairID == pairID {
			n++
		}
	}
	return n, nil
}

func (r fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (r fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	all, err := r.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r fakeStudentRepo) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Student
	for _, st := range r.students {
		if filter.PairID != "" && st.PairID != filter.PairID {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeStudentRepo) Search(ctx context.Context, term string, limit int) ([]models.Student, error) {
	out, err := r.ListAll(ctx, models.StudentFilter{Search: term})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[student.ID] = *student
	return nil
}

func (r fakeStudentRepo) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.students[id]
	st.Status = status
	r.students[id] = st
	return nil
}

func (r fakeStudentRepo) SetDocument(ctx context.Context, id string, path *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.DocumentPath = path
	r.students[id] = st
	return nil
}

func (r fakeStudentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	class := r.classes[st.ClassID]
	class.EnrolledCount = len(r.studentsIn(st.ClassID))
	r.classes[st.ClassID] = class
	return nil
}

type fakeEnrollmentRepo struct{ *fakeStore }

func (r fakeEnrollmentRepo) CreateWithSeat(ctx context.Context, student *models.Student) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class, ok := r.classes[student.ClassID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	count := len(r.studentsIn(class.ID))
	if count >= class.Capacity {
		return 0, repository.ErrClassFull
	}
	student.ID = r.nextID("student")
	student.CreatedAt = time.Now()
	r.students[student.ID] = *student
	class.EnrolledCount = count + 1
	r.classes[class.ID] = class
	return class.EnrolledCount, nil
}

type fakeRoomRepo struct{ *fakeStore }

func (r fakeRoomRepo) List(ctx context.Context) ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Room
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r fakeRoomRepo) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (r fakeRoomRepo) Create(ctx context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Code]; !ok {
		r.rooms[room.Code] = *room
	}
	return nil
}

type recordedAudit struct {
	Action   string
	Table    string
	RecordID string
	UserID   *string
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []recordedAudit
}

func (a *fakeAudit) Record(ctx context.Context, actor models.Actor, action, table, recordID string, oldValues, newValues interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, recordedAudit{Action: action, Table: table, RecordID: recordID, UserID: actor.UserID()})
}

func (a *fakeAudit) count(action, table string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.Action == action && e.Table == table {
			n++
		}
	}
	return n
}

type fakeInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, patterns ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns = append(f.patterns, patterns...)
	return nil
}

func adminActor() models.Actor {
	return models.Actor{
		Session:   &models.Session{UserID: "admin-1", Email: "admin@aauma.ao", Roles: []models.Role{models.RoleAdmin}},
		IPAddress: "127.0.0.1",
		UserAgent: "go-test",
	}
}

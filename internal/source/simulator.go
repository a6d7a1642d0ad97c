package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/tpcgrp/p6ebs-sync/internal/errors"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/transform"
)

// Simulator is an in-memory EntitySource. It is used when no real P6 or EBS
// instance is configured and as the backing store in tests.
type Simulator struct {
	system   models.System
	registry *mapping.Registry

	mu       sync.RWMutex
	data     map[string][]models.EntityRecord
	changed  map[string]time.Time
	seq      int
	fetchErr error
	writeErr map[string]error
	writes   int
}

// NewSimulator creates an empty simulator. The registry supplies the id and
// name fields used when entities are created.
func NewSimulator(system models.System, registry *mapping.Registry) *Simulator {
	return &Simulator{
		system:   system,
		registry: registry,
		data:     make(map[string][]models.EntityRecord),
		changed:  make(map[string]time.Time),
		writeErr: make(map[string]error),
	}
}

// NewSeededSimulator creates a simulator holding sample projects, activities,
// tasks, resources, financials and timesheets with deliberate drift between P6 and EBS.
func NewSeededSimulator(system models.System) *Simulator {
	s := NewSimulator(system, mapping.NewDefaultRegistry())
	for entityType, recs := range sampleData(system) {
		s.Load(entityType, recs)
	}
	return s
}

func (s *Simulator) System() models.System { return s.system }

// Load replaces all entities of a type
func (s *Simulator) Load(entityType string, recs []models.EntityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.EntityRecord, len(recs))
	for i, r := range recs {
		cp[i] = r.Clone()
	}
	s.data[entityType] = cp
	s.changed[entityType] = time.Now()
}

// FailWith makes Ping and FetchEntities return err until cleared with nil
func (s *Simulator) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// FailWrite makes writes to one entity id fail with err until cleared with nil
func (s *Simulator) FailWrite(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.writeErr, id)
		return
	}
	s.writeErr[id] = err
}

// Writes returns the number of successful writes and creates
func (s *Simulator) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Simulator) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchErr
}

func (s *Simulator) FetchEntities(ctx context.Context, entityType string) ([]models.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	recs := s.data[entityType]
	out := make([]models.EntityRecord, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out, nil
}

// Get returns a copy of one entity
func (s *Simulator) Get(entityType, id string) (models.EntityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.data[entityType] {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return models.EntityRecord{}, false
}

func (s *Simulator) WriteEntity(ctx context.Context, entityType, id string, updates map[string]models.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr[id]; err != nil {
		return err
	}
	recs := s.data[entityType]
	for i := range recs {
		if recs[i].ID != id {
			continue
		}
		for k, v := range updates {
			recs[i].Fields[k] = v
		}
		s.changed[entityType] = time.Now()
		s.writes++
		return nil
	}
	return apperrors.NewNotFoundError(fmt.Sprintf("%s %s %s", s.system, entityType, id), nil)
}

// CreateEntity inserts a new entity and returns its generated id
func (s *Simulator) CreateEntity(ctx context.Context, entityType string, fields map[string]models.Value) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("%s_NEW_%d", s.system, s.seq)
	rec := models.EntityRecord{ID: id, Fields: make(map[string]models.Value, len(fields)+1)}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	if b, ok := s.registry.Snapshot().Binding(entityType); ok {
		rec.Fields[b.IDField(s.system)] = models.String(id)
		if name, ok := rec.Get(b.NameField(s.system)); ok {
			rec.Name = name.Canonical()
		}
	}
	s.data[entityType] = append(s.data[entityType], rec)
	s.changed[entityType] = time.Now()
	s.writes++
	return id, nil
}

// LastChange returns when entities of a type were last loaded, written or
// created. It is the zero time for types never touched.
func (s *Simulator) LastChange(entityType string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed[entityType]
}

// EntityTypes returns the types currently held
func (s *Simulator) EntityTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for t := range s.data {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func sampleData(system models.System) map[string][]models.EntityRecord {
	start := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	out := make(map[string][]models.EntityRecord)

	// Projects 1..9 exist in both, 10 only in P6, 11 only in EBS. Every third
	// project carries a different name in EBS.
	for i := 1; i <= 11; i++ {
		code := fmt.Sprintf("PRJ-%03d", i)
		begin := start.AddDate(0, i, 0)
		end := begin.AddDate(1, 0, 0)
		switch system {
		case models.SystemP6:
			if i == 11 {
				continue
			}
			id := fmt.Sprintf("P6_PROJ_%d", i)
			name := fmt.Sprintf("Project %d", i)
			out[mapping.EntityProject] = append(out[mapping.EntityProject], models.NewEntityRecord(id, name, map[string]interface{}{
				"proj_id":         id,
				"proj_name":       name,
				"proj_short_name": code,
				"status_code":     "Active",
				"plan_start_date": begin,
				"plan_end_date":   end,
			}))
		case models.SystemEBS:
			if i == 10 {
				continue
			}
			id := fmt.Sprintf("%d", 1000+i)
			name := fmt.Sprintf("Project %d", i)
			if i%3 == 0 {
				name = fmt.Sprintf("Project %d (EBS)", i)
			}
			out[mapping.EntityProject] = append(out[mapping.EntityProject], models.NewEntityRecord(id, name, map[string]interface{}{
				"project_id":          id,
				"project_name":        name,
				"segment1":            code,
				"project_status_code": "Active",
				"start_date":          begin,
				"completion_date":     end,
			}))
		}
	}

	// Activities and tasks share one shape; durations drift on even rows.
	for i := 1; i <= 20; i++ {
		code := fmt.Sprintf("A%04d", i*10)
		begin := start.AddDate(0, 0, 7*i)
		finish := begin.AddDate(0, 0, 10)
		duration := 10 * i
		var rec models.EntityRecord
		switch system {
		case models.SystemP6:
			id := fmt.Sprintf("P6_ACT_%d", i)
			name := fmt.Sprintf("Activity %d", i)
			rec = models.NewEntityRecord(id, name, map[string]interface{}{
				"activity_id":   id,
				"activity_name": name,
				"activity_code": code,
				"start_date":    begin,
				"finish_date":   finish,
				"status_code":   "In Progress",
				"duration":      duration,
			})
		case models.SystemEBS:
			if i%2 == 0 {
				duration = 9 * i
			}
			id := fmt.Sprintf("%d", 5000+i)
			name := fmt.Sprintf("Activity %d", i)
			rec = models.NewEntityRecord(id, name, map[string]interface{}{
				"task_id":          id,
				"task_name":        name,
				"task_number":      code,
				"start_date":       begin,
				"completion_date":  finish,
				"task_status_code": "In Progress",
				"planned_duration": duration,
			})
		}
		out[mapping.EntityActivity] = append(out[mapping.EntityActivity], rec)
		out[mapping.EntityTask] = append(out[mapping.EntityTask], rec.Clone())
	}

	for i := 1; i <= 15; i++ {
		email := fmt.Sprintf("resource%d@company.com", i)
		switch system {
		case models.SystemP6:
			id := fmt.Sprintf("P6_RES_%d", i)
			name := fmt.Sprintf("Resource %d", i)
			out[mapping.EntityResource] = append(out[mapping.EntityResource], models.NewEntityRecord(id, name, map[string]interface{}{
				"rsrc_id":    id,
				"rsrc_name":  name,
				"email_addr": email,
			}))
		case models.SystemEBS:
			id := fmt.Sprintf("%d", 9000+i)
			name := fmt.Sprintf("Resource %d", i)
			if i%5 == 0 {
				name = fmt.Sprintf("RESOURCE %d", i)
			}
			out[mapping.EntityResource] = append(out[mapping.EntityResource], models.NewEntityRecord(id, name, map[string]interface{}{
				"person_id":     id,
				"full_name":     name,
				"email_address": email,
			}))
		}
	}

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("WBS_%d", i)
		name := fmt.Sprintf("Work Package %d", i)
		if system == models.SystemEBS && i == 5 {
			name = "Work Package 5 - Closeout"
		}
		out[mapping.EntityWBS] = append(out[mapping.EntityWBS], models.NewEntityRecord(id, name, map[string]interface{}{
			"wbs_id":   id,
			"wbs_name": name,
		}))
	}

	// Financial summaries keyed by project id. Projects 4 and 8 carry an
	// outdated budget in EBS; project 10 has no EBS budget yet.
	for i := 1; i <= 10; i++ {
		planned := 100000 * i
		actual := 60000 * i
		remaining := 40000 * i
		switch system {
		case models.SystemP6:
			id := fmt.Sprintf("P6_PROJ_%d", i)
			out[transform.EntityFinancial] = append(out[transform.EntityFinancial], models.NewEntityRecord(id, id, map[string]interface{}{
				"planned_cost":   planned,
				"actual_cost":    actual,
				"remaining_cost": remaining,
			}))
		case models.SystemEBS:
			if i == 10 {
				continue
			}
			if i%4 == 0 {
				planned = 95000 * i
			}
			id := fmt.Sprintf("%d", 1000+i)
			out[transform.EntityFinancial] = append(out[transform.EntityFinancial], models.NewEntityRecord(id, id, map[string]interface{}{
				"budget_amount":    planned,
				"actual_cost":      actual,
				"committed_amount": remaining,
			}))
		}
	}

	// Timesheet lines are entered in P6 only
	if system == models.SystemP6 {
		for i := 1; i <= 6; i++ {
			id := fmt.Sprintf("TS_%d", i)
			out[mapping.EntityTimesheet] = append(out[mapping.EntityTimesheet], models.NewEntityRecord(id, id, map[string]interface{}{
				"timesheet_id": id,
				"activity_id":  fmt.Sprintf("P6_ACT_%d", i),
				"rsrc_id":      fmt.Sprintf("P6_RES_%d", i),
				"work_date":    start.AddDate(0, 0, i),
				"hours":        7.5,
			}))
		}
	}

	return out
}

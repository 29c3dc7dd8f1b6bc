package repomanager

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groupfiles"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/groups"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/labels"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/schedules"
	"github.com/dmitrijs2005/workhub/internal/server/repositories/users"
	"github.com/google/uuid"
)

// InMemoryRepositoryManager keeps every entity in process memory and enforces
// the same uniqueness rules as the PostgreSQL schema. The DBTX handed to the
// factories is ignored, so transactions are not isolated.
type InMemoryRepositoryManager struct {
	mu        sync.Mutex
	users     map[string]*models.User
	labels    map[string]*models.Label
	groups    map[string]*models.Group
	files     map[string]*models.GroupFile
	schedules map[string]*models.Schedule
	writes    int

	// FailWrite is consulted before each write with the operation name
	// ("labels.Create", "schedules.Update", ...) and the entity's name or
	// external id. A non-nil result aborts the write.
	FailWrite func(op, key string) error
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:     make(map[string]*models.User),
		labels:    make(map[string]*models.Label),
		groups:    make(map[string]*models.Group),
		files:     make(map[string]*models.GroupFile),
		schedules: make(map[string]*models.Schedule),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return memUsers{m} }

func (m *InMemoryRepositoryManager) Labels(dbx.DBTX) labels.Repository { return memLabels{m} }

func (m *InMemoryRepositoryManager) Groups(dbx.DBTX) groups.Repository { return memGroups{m} }

func (m *InMemoryRepositoryManager) GroupFiles(dbx.DBTX) groupfiles.Repository { return memFiles{m} }

func (m *InMemoryRepositoryManager) Schedules(dbx.DBTX) schedules.Repository {
	return memSchedules{m}
}

// Writes reports how many successful writes the store has accepted.
func (m *InMemoryRepositoryManager) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// beforeWrite must be called with mu held.
func (m *InMemoryRepositoryManager) beforeWrite(op, key string) error {
	if m.FailWrite != nil {
		return m.FailWrite(op, key)
	}
	return nil
}

type memUsers struct{ m *InMemoryRepositoryManager }

func (r memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("users.Create", user.UserName); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.UserName == user.UserName {
			return nil, common.ErrNameConflict
		}
	}
	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	r.m.users[u.ID] = &u
	r.m.writes++
	out := u
	return &out, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r memUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.UserName == login {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) UpdateRemoteToken(_ context.Context, userID, access, refresh string, expiry time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("users.UpdateRemoteToken", userID); err != nil {
		return err
	}
	u, ok := r.m.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.RemoteAccessToken, u.RemoteRefreshToken, u.RemoteTokenExpiry = access, refresh, expiry
	r.m.writes++
	return nil
}

func (r memUsers) ListConnected(context.Context) ([]*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.User
	for _, u := range r.m.users {
		if u.RemoteConnected() {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

type memLabels struct{ m *InMemoryRepositoryManager }

// conflict must be called with mu held.
func (r memLabels) conflict(l *models.Label) bool {
	for _, other := range r.m.labels {
		if other.ID == l.ID || other.UserID != l.UserID {
			continue
		}
		if other.Name == l.Name {
			return true
		}
		if l.ExternalLabelID != "" && other.ExternalLabelID == l.ExternalLabelID {
			return true
		}
	}
	return false
}

func (r memLabels) Create(_ context.Context, label *models.Label) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("labels.Create", label.Name); err != nil {
		return err
	}
	if label.ID == "" {
		label.ID = uuid.NewString()
	}
	if r.conflict(label) {
		return common.ErrNameConflict
	}
	label.CreatedAt = time.Now()
	c := *label
	r.m.labels[c.ID] = &c
	r.m.writes++
	return nil
}

func (r memLabels) Update(_ context.Context, label *models.Label) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("labels.Update", label.Name); err != nil {
		return err
	}
	cur, ok := r.m.labels[label.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.conflict(label) {
		return common.ErrNameConflict
	}
	cur.Name, cur.Color = label.Name, label.Color
	cur.ExternalLabelID, cur.IsFromRemote = label.ExternalLabelID, label.IsFromRemote
	cur.DisplayOrder = label.DisplayOrder
	r.m.writes++
	return nil
}

func (r memLabels) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.labels[id]
	if !ok {
		return common.ErrorNotFound
	}
	if err := r.m.beforeWrite("labels.Delete", cur.Name); err != nil {
		return err
	}
	delete(r.m.labels, id)
	for _, s := range r.m.schedules {
		s.LabelIDs = without(s.LabelIDs, id)
	}
	r.m.writes++
	return nil
}

func (r memLabels) find(match func(*models.Label) bool) (*models.Label, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.labels {
		if match(l) {
			c := *l
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memLabels) GetByID(_ context.Context, userID, id string) (*models.Label, error) {
	return r.find(func(l *models.Label) bool { return l.UserID == userID && l.ID == id })
}

func (r memLabels) FindByExternalID(_ context.Context, userID, externalID string) (*models.Label, error) {
	return r.find(func(l *models.Label) bool {
		return l.UserID == userID && externalID != "" && l.ExternalLabelID == externalID
	})
}

func (r memLabels) FindByName(_ context.Context, userID, name string) (*models.Label, error) {
	return r.find(func(l *models.Label) bool { return l.UserID == userID && l.Name == name })
}

func (r memLabels) list(match func(*models.Label) bool) []*models.Label {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Label
	for _, l := range r.m.labels {
		if match(l) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r memLabels) ListByUser(_ context.Context, userID string) ([]*models.Label, error) {
	return r.list(func(l *models.Label) bool { return l.UserID == userID }), nil
}

func (r memLabels) ListRemote(_ context.Context, userID string) ([]*models.Label, error) {
	return r.list(func(l *models.Label) bool {
		return l.UserID == userID && l.IsFromRemote && l.ExternalLabelID != ""
	}), nil
}

func (r memLabels) MaxDisplayOrder(_ context.Context, userID string) (int, error) {
	max := 0
	for _, l := range r.list(func(l *models.Label) bool { return l.UserID == userID }) {
		if l.DisplayOrder > max {
			max = l.DisplayOrder
		}
	}
	return max, nil
}

type memGroups struct{ m *InMemoryRepositoryManager }

func (r memGroups) conflict(g *models.Group) bool {
	if g.Status != models.GroupActive {
		return false
	}
	for _, other := range r.m.groups {
		if other.ID != g.ID && other.UserID == g.UserID && other.Status == models.GroupActive && other.Name == g.Name {
			return true
		}
	}
	return false
}

func (r memGroups) Create(_ context.Context, group *models.Group) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("groups.Create", group.Name); err != nil {
		return err
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.Status == "" {
		group.Status = models.GroupActive
	}
	if r.conflict(group) {
		return common.ErrNameConflict
	}
	group.CreatedAt = time.Now()
	c := *group
	r.m.groups[c.ID] = &c
	r.m.writes++
	return nil
}

func (r memGroups) Update(_ context.Context, group *models.Group) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("groups.Update", group.Name); err != nil {
		return err
	}
	cur, ok := r.m.groups[group.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.conflict(group) {
		return common.ErrNameConflict
	}
	cur.Name, cur.Description, cur.Status = group.Name, group.Description, group.Status
	r.m.writes++
	return nil
}

func (r memGroups) SoftDelete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.groups[id]
	if !ok || cur.Status != models.GroupActive {
		return common.ErrorNotFound
	}
	if err := r.m.beforeWrite("groups.SoftDelete", cur.Name); err != nil {
		return err
	}
	cur.Status = models.GroupDeleted
	r.m.writes++
	return nil
}

func (r memGroups) find(match func(*models.Group) bool) (*models.Group, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, g := range r.m.groups {
		if g.Status == models.GroupActive && match(g) {
			c := *g
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memGroups) GetByID(_ context.Context, userID, id string) (*models.Group, error) {
	return r.find(func(g *models.Group) bool { return g.UserID == userID && g.ID == id })
}

func (r memGroups) FindByName(_ context.Context, userID, name string) (*models.Group, error) {
	return r.find(func(g *models.Group) bool { return g.UserID == userID && g.Name == name })
}

func (r memGroups) ListActive(_ context.Context, userID string) ([]*models.Group, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Group
	for _, g := range r.m.groups {
		if g.UserID == userID && g.Status == models.GroupActive {
			c := *g
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memFiles struct{ m *InMemoryRepositoryManager }

func (r memFiles) Create(_ context.Context, file *models.GroupFile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("groupfiles.Create", file.FileName); err != nil {
		return err
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadStatus == "" {
		file.UploadStatus = "pending"
	}
	file.CreatedAt = time.Now()
	c := *file
	r.m.files[c.ID] = &c
	r.m.writes++
	return nil
}

func (r memFiles) CountByGroup(_ context.Context, groupID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, f := range r.m.files {
		if f.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (r memFiles) ListByGroup(_ context.Context, groupID string) ([]*models.GroupFile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.GroupFile
	for _, f := range r.m.files {
		if f.GroupID == groupID {
			c := *f
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memFiles) MarkUploaded(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.UploadStatus = "completed"
	r.m.writes++
	return nil
}

type memSchedules struct{ m *InMemoryRepositoryManager }

func copySchedule(s *models.Schedule) *models.Schedule {
	c := *s
	c.LabelIDs = append([]string(nil), s.LabelIDs...)
	sort.Strings(c.LabelIDs)
	if len(c.LabelIDs) == 0 {
		c.LabelIDs = nil
	}
	return &c
}

func (r memSchedules) Create(_ context.Context, s *models.Schedule) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("schedules.Create", s.ExternalEventID); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ExternalEventID != "" {
		for _, other := range r.m.schedules {
			if other.UserID == s.UserID && other.ExternalEventID == s.ExternalEventID {
				return common.ErrNameConflict
			}
		}
	}
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	r.m.schedules[s.ID] = copySchedule(s)
	r.m.writes++
	return nil
}

func (r memSchedules) Update(_ context.Context, s *models.Schedule) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.beforeWrite("schedules.Update", s.ExternalEventID); err != nil {
		return err
	}
	cur, ok := r.m.schedules[s.ID]
	if !ok {
		return common.ErrorNotFound
	}
	labelIDs := cur.LabelIDs
	updated := copySchedule(s)
	updated.LabelIDs = labelIDs
	updated.UserID, updated.ExternalEventID, updated.IsFromRemote = cur.UserID, cur.ExternalEventID, cur.IsFromRemote
	updated.CreatedAt, updated.UpdatedAt = cur.CreatedAt, time.Now()
	r.m.schedules[s.ID] = updated
	r.m.writes++
	return nil
}

func (r memSchedules) ReplaceLabels(_ context.Context, scheduleID string, labelIDs []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.schedules[scheduleID]
	if !ok {
		return common.ErrorNotFound
	}
	if err := r.m.beforeWrite("schedules.ReplaceLabels", cur.ExternalEventID); err != nil {
		return err
	}
	cur.LabelIDs = copySchedule(&models.Schedule{LabelIDs: labelIDs}).LabelIDs
	r.m.writes++
	return nil
}

func (r memSchedules) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.schedules[id]
	if !ok {
		return common.ErrorNotFound
	}
	if err := r.m.beforeWrite("schedules.Delete", cur.ExternalEventID); err != nil {
		return err
	}
	delete(r.m.schedules, id)
	r.m.writes++
	return nil
}

func (r memSchedules) FindByExternalID(_ context.Context, userID, externalID string) (*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.schedules {
		if s.UserID == userID && externalID != "" && s.ExternalEventID == externalID {
			return copySchedule(s), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSchedules) ListRemoteExternalIDs(_ context.Context, userID string) (map[string]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make(map[string]string)
	for _, s := range r.m.schedules {
		if s.UserID == userID && s.IsFromRemote && s.ExternalEventID != "" {
			out[s.ExternalEventID] = s.ID
		}
	}
	return out, nil
}

func (r memSchedules) ListByUser(_ context.Context, userID string, from, to time.Time) ([]*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Schedule
	for _, s := range r.m.schedules {
		if s.UserID == userID && !s.EndAt.Before(from) && s.StartAt.Before(to) {
			out = append(out, copySchedule(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

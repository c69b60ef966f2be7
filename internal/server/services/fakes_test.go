package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/dbx"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/capsules"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/comments"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/invitations"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

var testNow = time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// expectTx registers n committed transactions.
func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRolledBackTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- in-memory store ---

// memStore backs every fake repository. Repositories ignore the DBTX they
// are bound to; transactions are observed through sqlmock only.
type memStore struct {
	mu sync.Mutex

	users       map[string]*models.User
	tokens      map[string]*models.RefreshToken
	capsules    map[string]*models.Capsule
	capsuleSeq  []string
	invitations []*models.Invitation
	comments    map[int64]*models.Comment

	failAddParticipant   map[string]error
	failListPending      error
	failCreateInvitation error
	failGetEmails        error
	failMarkSent         error
}

func newMemStore() *memStore {
	return &memStore{
		users:              map[string]*models.User{},
		tokens:             map[string]*models.RefreshToken{},
		capsules:           map[string]*models.Capsule{},
		comments:           map[int64]*models.Comment{},
		failAddParticipant: map[string]error{},
	}
}

func cloneCapsule(c *models.Capsule) *models.Capsule {
	out := *c
	out.Items = slices.Clone(c.Items)
	out.Participants = slices.Clone(c.Participants)
	out.Emails = slices.Clone(c.Emails)
	return &out
}

func (m *memStore) addUser(email, name string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: uuid.NewString(), Email: email, Name: name, CreatedAt: testNow}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addCapsule(c *models.Capsule) *models.Capsule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.capsules[c.ID] = cloneCapsule(c)
	m.capsuleSeq = append(m.capsuleSeq, c.ID)
	return c
}

func (m *memStore) capsule(id string) *models.Capsule {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.capsules[id]
	if !ok {
		return nil
	}
	return cloneCapsule(c)
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return &fakeUsersRepo{f.s} }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return &fakeRefreshRepo{f.s} }
func (f *fakeRepoManager) Capsules(dbx.DBTX) capsules.Repository           { return &fakeCapsulesRepo{f.s} }
func (f *fakeRepoManager) Invitations(dbx.DBTX) invitations.Repository     { return &fakeInvitationsRepo{f.s} }
func (f *fakeRepoManager) Comments(dbx.DBTX) comments.Repository           { return &fakeCommentsRepo{f.s} }

// --- users ---

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt, cp.UpdatedAt = testNow, testNow
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetEmailsByIDs(_ context.Context, ids []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failGetEmails != nil {
		return nil, r.s.failGetEmails
	}
	var out []string
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u.Email)
		}
	}
	return out, nil
}

func (r *fakeUsersRepo) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	for id, x := range r.s.users {
		if id != u.ID && x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	r.s.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsersRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct{ s *memStore }

func (r *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (r *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r *fakeRefreshRepo) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

// --- capsules ---

type fakeCapsulesRepo struct{ s *memStore }

func (r *fakeCapsulesRepo) Create(_ context.Context, c *models.Capsule) (*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := cloneCapsule(c)
	cp.ID = uuid.NewString()
	cp.CreatedAt, cp.UpdatedAt = testNow, testNow
	r.s.capsules[cp.ID] = cp
	r.s.capsuleSeq = append(r.s.capsuleSeq, cp.ID)
	return cloneCapsule(cp), nil
}

func (r *fakeCapsulesRepo) GetByID(_ context.Context, id string) (*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.capsules[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneCapsule(c), nil
}

func (r *fakeCapsulesRepo) filter(keep func(*models.Capsule) bool) []*models.Capsule {
	var out []*models.Capsule
	for _, id := range r.s.capsuleSeq {
		if c, ok := r.s.capsules[id]; ok && keep(c) {
			out = append(out, cloneCapsule(c))
		}
	}
	return out
}

func (r *fakeCapsulesRepo) ListVisible(_ context.Context, viewerID string) ([]*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filter(func(c *models.Capsule) bool {
		return c.OwnerID == viewerID || slices.Contains(c.Participants, viewerID) || (c.IsPublic && c.IsLocked)
	})
	slices.Reverse(out)
	return out, nil
}

func (r *fakeCapsulesRepo) ListPublicRevealed(_ context.Context, now time.Time) ([]*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.filter(func(c *models.Capsule) bool {
		return c.IsPublic && c.IsLocked && !c.UnlockedDate.After(now)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UnlockedDate.After(out[j].UnlockedDate) })
	return out, nil
}

func (r *fakeCapsulesRepo) ListPendingUnlock(_ context.Context, boundary time.Time) ([]*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.filter(func(c *models.Capsule) bool {
		return c.IsLocked && !c.IsSent && !c.UnlockedDate.After(boundary)
	}), nil
}

func (r *fakeCapsulesRepo) ListIDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, c := range r.filter(func(c *models.Capsule) bool { return c.OwnerID == ownerID }) {
		out = append(out, c.ID)
	}
	return out, nil
}

func (r *fakeCapsulesRepo) UpdateDraft(_ context.Context, c *models.Capsule) (*models.Capsule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.capsules[c.ID]
	if !ok || cur.IsLocked {
		return nil, common.ErrorConflict
	}
	cur.Title, cur.Description, cur.Image, cur.BackgroundMusic = c.Title, c.Description, c.Image, c.BackgroundMusic
	cur.IsPublic, cur.IsLocked, cur.UnlockedDate = c.IsPublic, c.IsLocked, c.UnlockedDate
	return cloneCapsule(cur), nil
}

func (r *fakeCapsulesRepo) Seal(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.capsules[id]
	if !ok || c.IsLocked {
		return false, nil
	}
	c.IsLocked, c.IsSent = true, false
	return true, nil
}

func (r *fakeCapsulesRepo) MarkSent(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMarkSent != nil {
		return false, r.s.failMarkSent
	}
	c, ok := r.s.capsules[id]
	if !ok || c.IsSent {
		return false, nil
	}
	c.IsSent = true
	return true, nil
}

func (r *fakeCapsulesRepo) ReplaceItems(_ context.Context, capsuleID string, items []models.Item) ([]models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Item, len(items))
	for i, it := range items {
		it.ID = uuid.NewString()
		it.CapsuleID = capsuleID
		out[i] = it
	}
	r.s.capsules[capsuleID].Items = slices.Clone(out)
	return out, nil
}

func (r *fakeCapsulesRepo) AddParticipant(_ context.Context, capsuleID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failAddParticipant[capsuleID]; err != nil {
		return false, err
	}
	c, ok := r.s.capsules[capsuleID]
	if !ok {
		return false, fmt.Errorf("db error: capsule %s missing", capsuleID)
	}
	if slices.Contains(c.Participants, userID) {
		return false, nil
	}
	c.Participants = append(c.Participants, userID)
	return true, nil
}

func (r *fakeCapsulesRepo) ReplaceParticipants(_ context.Context, capsuleID string, userIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.capsules[capsuleID].Participants = slices.Clone(userIDs)
	return nil
}

func (r *fakeCapsulesRepo) AddEmail(_ context.Context, capsuleID, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.s.capsules[capsuleID]
	if !slices.Contains(c.Emails, email) {
		c.Emails = append(c.Emails, email)
	}
	return nil
}

func (r *fakeCapsulesRepo) ReplaceEmails(_ context.Context, capsuleID string, emails []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.capsules[capsuleID].Emails = slices.Clone(emails)
	return nil
}

func (r *fakeCapsulesRepo) DeleteContents(_ context.Context, capsuleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.capsules[capsuleID]; ok {
		c.Items, c.Participants, c.Emails = nil, nil, nil
	}
	return nil
}

func (r *fakeCapsulesRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.capsules[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.capsules, id)
	return nil
}

// --- invitations ---

type fakeInvitationsRepo struct{ s *memStore }

func (r *fakeInvitationsRepo) Create(_ context.Context, inv *models.Invitation) (*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failCreateInvitation != nil {
		return nil, r.s.failCreateInvitation
	}
	for _, x := range r.s.invitations {
		if x.CapsuleID == inv.CapsuleID && x.Email == inv.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *inv
	cp.ID = uuid.NewString()
	cp.InvitedAt = testNow
	r.s.invitations = append(r.s.invitations, &cp)
	out := cp
	return &out, nil
}

func (r *fakeInvitationsRepo) GetByCapsuleAndEmail(_ context.Context, capsuleID, email string) (*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.invitations {
		if x.CapsuleID == capsuleID && x.Email == email {
			out := *x
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeInvitationsRepo) list(keep func(*models.Invitation) bool) []*models.Invitation {
	var out []*models.Invitation
	for _, x := range r.s.invitations {
		if keep(x) {
			cp := *x
			out = append(out, &cp)
		}
	}
	return out
}

func (r *fakeInvitationsRepo) ListPendingByEmail(_ context.Context, email string) ([]*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListPending != nil {
		return nil, r.s.failListPending
	}
	return r.list(func(x *models.Invitation) bool {
		return x.Email == email && x.Status == models.InvitationPending
	}), nil
}

func (r *fakeInvitationsRepo) ListByCapsule(_ context.Context, capsuleID string) ([]*models.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(x *models.Invitation) bool { return x.CapsuleID == capsuleID }), nil
}

func (r *fakeInvitationsRepo) MarkAccepted(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.invitations {
		if x.ID == id && x.Status == models.InvitationPending {
			at := testNow
			x.Status, x.AcceptedAt = models.InvitationAccepted, &at
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInvitationsRepo) DeleteByCapsule(_ context.Context, capsuleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invitations = slices.DeleteFunc(r.s.invitations, func(x *models.Invitation) bool {
		return x.CapsuleID == capsuleID
	})
	return nil
}

func (r *fakeInvitationsRepo) DeletePendingByCapsuleAndEmails(_ context.Context, capsuleID string, emails []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	before := len(r.s.invitations)
	r.s.invitations = slices.DeleteFunc(r.s.invitations, func(x *models.Invitation) bool {
		return x.CapsuleID == capsuleID && x.Status == models.InvitationPending && slices.Contains(emails, x.Email)
	})
	return int64(before - len(r.s.invitations)), nil
}

// --- comments ---

type fakeCommentsRepo struct{ s *memStore }

func (r *fakeCommentsRepo) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	cp.CreatedAt = testNow
	r.s.comments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeCommentsRepo) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeCommentsRepo) ListByCapsule(_ context.Context, capsuleID string) ([]*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Comment
	for _, c := range r.s.comments {
		if c.CapsuleID == capsuleID {
			cp := *c
			if u, ok := r.s.users[c.AuthorID]; ok {
				cp.AuthorName = u.Name
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCommentsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r *fakeCommentsRepo) DeleteByCapsule(_ context.Context, capsuleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.comments {
		if c.CapsuleID == capsuleID {
			delete(r.s.comments, id)
		}
	}
	return nil
}

// --- mailer ---

type sentMail struct {
	To        string
	CapsuleID string
	Title     string
	Inviter   string
}

// fakeMailer records every attempt, failed ones included.
type fakeMailer struct {
	mu      sync.Mutex
	invites []sentMail
	unlocks []sentMail
	failFor map[string]bool
	// delay slows every unlock email down.
	delay time.Duration
}

func (m *fakeMailer) SendInvitation(_ context.Context, to, title, inviter string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, sentMail{To: to, Title: title, Inviter: inviter})
	if m.failFor[to] {
		return fmt.Errorf("%w: %s", common.ErrDispatch, to)
	}
	return nil
}

func (m *fakeMailer) SendUnlock(_ context.Context, to, capsuleID, title string) error {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocks = append(m.unlocks, sentMail{To: to, CapsuleID: capsuleID, Title: title})
	if m.failFor[to] {
		return fmt.Errorf("%w: %s", common.ErrDispatch, to)
	}
	return nil
}

func (m *fakeMailer) unlockRecipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.unlocks {
		out = append(out, s.To)
	}
	return out
}

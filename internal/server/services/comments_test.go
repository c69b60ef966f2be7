package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memorylane/internal/common"
	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

type commentFixture struct {
	svc                     *CommentService
	s                       *memStore
	owner, member, stranger *models.User
	private, public         *models.Capsule
	sealed, draft           *models.Capsule
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	db, _ := newSQLMockDB(t)
	s := newMemStore()
	var seq int64
	next := func() int64 { seq++; return seq }

	f := &commentFixture{s: s}
	f.svc = NewCommentService(db, &fakeRepoManager{s}, logging.NopLogger{}, timex.Fixed(testNow), next)
	f.owner = s.addUser("owner@example.com", "Owner")
	f.member = s.addUser("member@example.com", "Member")
	f.stranger = s.addUser("stranger@example.com", "Stranger")

	past, future := testNow.Add(-time.Hour), testNow.Add(time.Hour)
	f.private = s.addCapsule(&models.Capsule{OwnerID: f.owner.ID, IsLocked: true, UnlockedDate: past, Participants: []string{f.member.ID}})
	f.public = s.addCapsule(&models.Capsule{OwnerID: f.owner.ID, IsLocked: true, IsPublic: true, UnlockedDate: past})
	f.sealed = s.addCapsule(&models.Capsule{OwnerID: f.owner.ID, IsLocked: true, IsPublic: true, UnlockedDate: future})
	f.draft = s.addCapsule(&models.Capsule{OwnerID: f.owner.ID, UnlockedDate: past})
	return f
}

func TestCommentService_Create_Permissions(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		capsule *models.Capsule
		author  string
		err     error
	}{
		{"member on private", f.private, f.member.ID, nil},
		{"owner on private", f.private, f.owner.ID, nil},
		{"stranger on private", f.private, f.stranger.ID, common.ErrorForbidden},
		{"stranger on public", f.public, f.stranger.ID, nil},
		{"anonymous on public", f.public, "", common.ErrorForbidden},
		{"owner on sealed", f.sealed, f.owner.ID, common.ErrorForbidden},
		{"owner on draft", f.draft, f.owner.ID, common.ErrorForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := f.svc.Create(ctx, tc.capsule.ID, tc.author, "nice")
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, c.ID)
			assert.Equal(t, tc.author, c.AuthorID)
			assert.NotEmpty(t, c.AuthorName)
		})
	}
}

func TestCommentService_Create_Validation(t *testing.T) {
	f := newCommentFixture(t)

	_, err := f.svc.Create(context.Background(), f.public.ID, f.member.ID, "   ")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.svc.Create(context.Background(), f.public.ID, f.member.ID, strings.Repeat("x", maxCommentLength+1))
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.svc.Create(context.Background(), uuid.NewString(), f.member.ID, "hi")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCommentService_List(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.private.ID, f.member.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.private.ID, f.owner.ID, "second")
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.private.ID, f.member.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "Member", list[0].AuthorName)
	assert.Equal(t, "second", list[1].Content)

	_, err = f.svc.List(ctx, f.private.ID, f.stranger.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.svc.List(ctx, f.private.ID, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.svc.List(ctx, f.sealed.ID, f.owner.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	list, err = f.svc.List(ctx, f.public.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommentService_Delete(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()

	byMember, err := f.svc.Create(ctx, f.public.ID, f.member.ID, "a")
	require.NoError(t, err)
	byStranger, err := f.svc.Create(ctx, f.public.ID, f.stranger.ID, "b")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.public.ID, byMember.ID, f.stranger.ID), common.ErrorForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.private.ID, byMember.ID, f.member.ID), common.ErrorNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.public.ID, byMember.ID, f.member.ID))
	require.NoError(t, f.svc.Delete(ctx, f.public.ID, byStranger.ID, f.owner.ID))

	assert.ErrorIs(t, f.svc.Delete(ctx, f.public.ID, byMember.ID, f.member.ID), common.ErrorNotFound)
	assert.Empty(t, f.s.comments)
}

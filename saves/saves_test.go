package saves

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cookbook/globals"
	"cookbook/models"
	"cookbook/mq"
	"cookbook/repository"
	"cookbook/repository/memory"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T, initialSaves int64) (*memory.Store, *Service, primitive.ObjectID) {
	t.Helper()
	store := memory.New()
	rec := &models.Recipe{Title: "Focaccia", AuthorID: "chef"}
	require.NoError(t, store.Recipes().Create(context.Background(), rec))
	require.NoError(t, store.Recipes().SetSaves(context.Background(), rec.ID, initialSaves))
	return store, New(store.Saves(), store.Recipes(), nil, zap.NewNop()), rec.ID
}

func savesOf(t *testing.T, store *memory.Store, id primitive.ObjectID) int64 {
	t.Helper()
	rec, err := store.Recipes().Get(context.Background(), id)
	require.NoError(t, err)
	return rec.Saves
}

func TestToggleRoundTripRestoresCounter(t *testing.T) {
	store, svc, oid := setup(t, 7)
	ctx := context.Background()
	id := oid.Hex()

	saved, err := svc.Toggle(ctx, id, "ann")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, int64(8), savesOf(t, store, oid))
	exists, err := svc.IsSaved(ctx, id, "ann")
	require.NoError(t, err)
	assert.True(t, exists)

	saved, err = svc.Toggle(ctx, id, "ann")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, int64(7), savesOf(t, store, oid))
	exists, err = svc.IsSaved(ctx, id, "ann")
	require.NoError(t, err)
	assert.False(t, exists)

	mine, err := svc.ListByUser(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestToggleCountsDistinctUsers(t *testing.T) {
	store, svc, oid := setup(t, 0)
	ctx := context.Background()

	for _, u := range []string{"ann", "ben", "cat"} {
		_, err := svc.Toggle(ctx, oid.Hex(), u)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), savesOf(t, store, oid))

	mine, err := svc.ListByUser(ctx, "ben")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, oid.Hex(), mine[0].RecipeID)
}

func TestToggleNeverDrivesCounterNegative(t *testing.T) {
	store, svc, oid := setup(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Saves().Insert(ctx, &models.Save{RecipeID: oid.Hex(), UserID: "ann"}))
	saved, err := svc.Toggle(ctx, oid.Hex(), "ann")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, savesOf(t, store, oid))
}

func TestToggleErrors(t *testing.T) {
	_, svc, oid := setup(t, 0)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, primitive.NewObjectID().Hex(), "ann")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.Toggle(ctx, "zzz", "ann")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.Toggle(ctx, oid.Hex(), "")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestToggleEmitsEvents(t *testing.T) {
	store, _, oid := setup(t, 0)
	emitter := mq.NewEmitter(zap.NewNop())
	var names []string
	emitter.Subscribe(func(ev mq.Event) { names = append(names, ev.Name) })
	svc := New(store.Saves(), store.Recipes(), emitter, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := svc.Toggle(context.Background(), oid.Hex(), "ann")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{mq.RecipeSaved, mq.RecipeUnsaved}, names)
}

func TestReconcileCountsMemberships(t *testing.T) {
	store, svc, oid := setup(t, 42)
	ctx := context.Background()

	for _, u := range []string{"ann", "ben"} {
		require.NoError(t, store.Saves().Insert(ctx, &models.Save{RecipeID: oid.Hex(), UserID: u}))
	}
	n, err := svc.Reconcile(ctx, oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), savesOf(t, store, oid))
}

func TestToggleSaveHandler(t *testing.T) {
	store, svc, oid := setup(t, 0)
	h := NewHandler(svc, zap.NewNop())
	router := httprouter.New()
	router.PUT("/api/v1/recipes/recipe/:id/save", h.ToggleSave)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/recipes/recipe/"+oid.Hex()+"/save", nil)
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "ann"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"saved":true}`, rec.Body.String())
	assert.Equal(t, int64(1), savesOf(t, store, oid))
}

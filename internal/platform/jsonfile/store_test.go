package jsonfile

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/store"
	"github.com/phrazzld/scry-review/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.ReviewStateStore {
		return newTestStore(t)
	})
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTripIsByteIdentical(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	learner := uuid.New()
	now := time.Date(2025, 3, 10, 14, 30, 15, 0, time.UTC)

	states := domain.Collection{
		"b": storetest.Reviewed("b", now),
		"a": domain.NewItemState("a"),
	}
	require.NoError(t, s.Save(ctx, learner, states))

	first, err := os.ReadFile(s.Path(learner))
	require.NoError(t, err)

	loaded, err := s.Load(ctx, learner)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, learner, loaded))

	second, err := os.ReadFile(s.Path(learner))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(domain.Collection{"q-1": domain.NewItemState("q-1")})
	require.NoError(t, err)

	want := `{
  "q-1": {
    "itemId": "q-1",
    "interval": 1,
    "easeFactor": 2.5,
    "repetitions": 0,
    "totalAttempts": 0,
    "correctAttempts": 0,
    "incorrectAttempts": 0,
    "averagePerformance": 0,
    "lastReviewedAt": null,
    "nextReviewAt": null,
    "lastPerformanceGrade": 0
  }
}
`
	assert.Equal(t, want, string(data))

	empty, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(empty))
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	states, err := s.Load(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestLoad_CorruptFileFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{"},
		{name: "wrong shape", content: `["a","b"]`},
		{name: "invalid state", content: `{"q-1":{"itemId":"q-1","interval":0,"easeFactor":2.5}}`},
		{name: "key mismatch", content: `{"q-1":{"itemId":"q-2","interval":1,"easeFactor":2.5}}`},
		{name: "null entry", content: `{"q-1":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			learner := uuid.New()
			require.NoError(t, os.WriteFile(s.Path(learner), []byte(tt.content), 0o644))

			states, err := s.Load(context.Background(), learner)
			assert.ErrorIs(t, err, store.ErrCorruptState)
			assert.NotNil(t, states)
			assert.Empty(t, states)
		})
	}
}

func TestUpdate_QuarantinesCorruptFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	learner := uuid.New()
	require.NoError(t, os.WriteFile(s.Path(learner), []byte("garbage"), 0o644))

	_, err := s.Update(ctx, learner, "q-1", func(*domain.ReviewState) (*domain.ReviewState, error) {
		return domain.NewItemState("q-1"), nil
	})
	require.NoError(t, err)

	kept, err := os.ReadFile(s.Path(learner) + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(kept))

	states, err := s.Load(ctx, learner)
	require.NoError(t, err)
	assert.Equal(t, []string{"q-1"}, states.ItemIDs())
}

func TestSave_RejectsInvalidCollection(t *testing.T) {
	s := newTestStore(t)
	learner := uuid.New()

	bad := domain.NewItemState("q-1")
	bad.EaseFactor = 0.5
	err := s.Save(context.Background(), learner, domain.Collection{"q-1": bad})
	assert.ErrorIs(t, err, domain.ErrEaseFactorOutOfBounds)

	_, statErr := os.Stat(s.Path(learner))
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

package live

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aura-learn/backend/internal/models"
)

func TestRegistry_Put_Stores_A_Copy(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	s := models.StreamSession{ID: uuid.New(), Title: "Intro", Status: models.StatusScheduled}

	reg.Put(s)
	s.Title = "changed"

	got, ok := reg.Get(s.ID)
	req.True(ok)
	req.Equal("Intro", got.Title)

	reg.Delete(s.ID)
	_, ok = reg.Get(s.ID)
	req.False(ok)
}

func TestRegistry_List_Filters_Newest_First(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := models.StreamSession{ID: uuid.New(), Status: models.StatusLive, CreatedAt: base}
	fresh := models.StreamSession{ID: uuid.New(), Status: models.StatusScheduled, CreatedAt: base.Add(time.Hour)}
	done := models.StreamSession{ID: uuid.New(), Status: models.StatusEnded, CreatedAt: base.Add(2 * time.Hour)}
	reg.Put(old)
	reg.Put(fresh)
	reg.Put(done)

	open := reg.List(func(s models.StreamSession) bool { return s.Status.Open() })

	req.Len(open, 2)
	req.Equal(fresh.ID, open[0].ID)
	req.Equal(old.ID, open[1].ID)
	req.Len(reg.List(nil), 3)
}

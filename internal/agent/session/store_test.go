package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/assistant/internal/agent/model"
)

func TestGetCreatesDefaultContext(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	require.NotNil(t, sc)
	assert.Equal(t, "s1", sc.SessionID)
	assert.Equal(t, model.PhaseBrowsing, sc.Phase)
	assert.Empty(t, sc.LastViewedItems)
	assert.Empty(t, sc.PendingOrderID)
}

func TestGetReturnsSavedContext(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	sc.SelectedItemID = "prod_001"
	sc.Phase = model.PhaseSelected
	st.Save(sc)

	got := st.Get("s1")
	assert.Equal(t, "prod_001", got.SelectedItemID)
	assert.Equal(t, model.PhaseSelected, got.Phase)
}

func TestSessionsAreIndependent(t *testing.T) {
	st := NewStore(time.Minute)

	a := st.Get("a")
	a.PendingOrderID = "ord_000001"
	st.Save(a)

	b := st.Get("b")
	assert.Empty(t, b.PendingOrderID)
}

func TestExpiredSessionIsEvictedOnGet(t *testing.T) {
	st := NewStore(30 * time.Millisecond)

	sc := st.Get("s1")
	sc.PendingOrderID = "ord_000001"
	st.Save(sc)

	time.Sleep(50 * time.Millisecond)

	got := st.Get("s1")
	assert.Empty(t, got.PendingOrderID, "expired context must be replaced with defaults")
	assert.Equal(t, model.PhaseBrowsing, got.Phase)
}

func TestClearRemovesContext(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	sc.SelectedItemID = "prod_002"
	st.Save(sc)

	st.Clear("s1")

	got := st.Get("s1")
	assert.Empty(t, got.SelectedItemID)
}

func TestResetKeepsEntryWithDefaults(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	sc.LastViewedItems = []model.ItemSummary{{ID: "prod_001", Name: "x"}}
	sc.PendingOrderID = "ord_000001"
	sc.Phase = model.PhaseOrdered
	st.Save(sc)

	got := st.Reset("s1")
	assert.Empty(t, got.LastViewedItems)
	assert.Empty(t, got.PendingOrderID)
	assert.Equal(t, model.PhaseBrowsing, got.Phase)
	assert.Equal(t, "s1", got.SessionID)
}

func TestUnsavedMutationsDoNotLeak(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	sc.PendingOrderID = "ord_000001"
	sc.Phase = model.PhaseOrdered
	sc.LastViewedItems = []model.ItemSummary{{ID: "prod_001", Name: "x"}}

	got := st.Get("s1")
	assert.Empty(t, got.PendingOrderID, "mutations must only reach the store via Save")
	assert.Equal(t, model.PhaseBrowsing, got.Phase)
	assert.Empty(t, got.LastViewedItems)
}

func TestSaveStoresASnapshot(t *testing.T) {
	st := NewStore(time.Minute)

	sc := st.Get("s1")
	sc.SelectedItemID = "prod_001"
	sc.LastViewedItems = []model.ItemSummary{{ID: "prod_001", Name: "x"}}
	st.Save(sc)

	sc.SelectedItemID = "prod_999"
	sc.LastViewedItems[0].ID = "prod_999"

	got := st.Get("s1")
	assert.Equal(t, "prod_001", got.SelectedItemID)
	assert.Equal(t, "prod_001", got.LastViewedItems[0].ID)
}

func TestZeroTTLFallsBackToDefault(t *testing.T) {
	st := NewStore(0)
	assert.Equal(t, DefaultTTL, st.ttl)
}

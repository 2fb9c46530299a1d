package erp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
	"github.com/Get-Company/GC-Bridge-4/internal/erp/erptest"
)

func newAdressenDataset(t *testing.T) (*erptest.Store, *erp.Dataset) {
	t.Helper()
	store := erptest.NewStore()
	session, err := store.OpenSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	ds, err := erp.OpenAdressen(session, zap.NewNop())
	require.NoError(t, err)
	return store, ds
}

func newAnschriftenDataset(t *testing.T) (*erptest.Store, *erp.Dataset) {
	t.Helper()
	store := erptest.NewStore()
	session, err := store.OpenSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	ds, err := erp.OpenAnschriften(session, zap.NewNop())
	require.NoError(t, err)
	return store, ds
}

func TestDatasetLocate(t *testing.T) {
	store, ds := newAdressenDataset(t)
	store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10042", "Na1": "Muster GmbH"})
	store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10043", "Na1": "Beispiel AG"})

	t.Run("found", func(t *testing.T) {
		require.True(t, ds.Locate(erp.K("10043")))
		assert.Equal(t, "Beispiel AG", ds.GetString("Na1"))
	})

	t.Run("missing key reports false", func(t *testing.T) {
		assert.False(t, ds.Locate(erp.K("99999")))
	})

	t.Run("explicit index field", func(t *testing.T) {
		assert.True(t, ds.Locate(erp.K("10042"), "Nr"))
	})
}

func TestDatasetRange(t *testing.T) {
	store, ds := newAnschriftenDataset(t)
	for _, ansNr := range []int{1, 2, 5} {
		store.Insert(erp.DatasetAnschriften, map[string]any{
			"AdrNr": "10042", "AnsNr": ansNr, "Ort": "Bamberg",
		})
	}
	store.Insert(erp.DatasetAnschriften, map[string]any{
		"AdrNr": "10050", "AnsNr": 1, "Ort": "Hof",
	})

	t.Run("bounded scan", func(t *testing.T) {
		require.True(t, ds.BeginRange(erp.K("10042", 0), erp.K("10042", 999)))
		var seen []int
		for !ds.RangeAtEnd() {
			seen = append(seen, ds.GetInt("AnsNr"))
			ds.Advance()
		}
		assert.Equal(t, []int{1, 2, 5}, seen)
	})

	t.Run("count and last", func(t *testing.T) {
		require.True(t, ds.BeginRange(erp.K("10042", 0), erp.K("10042", 999)))
		assert.Equal(t, 3, ds.Count())
		ds.PositionLast()
		assert.Equal(t, 5, ds.GetInt("AnsNr"))
	})

	t.Run("empty window", func(t *testing.T) {
		require.True(t, ds.BeginRange(erp.K("77777", 0), erp.K("77777", 999)))
		assert.True(t, ds.RangeAtEnd())
		assert.Equal(t, 0, ds.Count())
	})
}

func TestDatasetEqualityFilter(t *testing.T) {
	store, ds := newAdressenDataset(t)
	store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10042", "Na1": "Muster GmbH", "Status": "Webshop"})
	store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10043", "Na1": "Beispiel AG", "Status": "Webshop"})
	store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10044", "Na1": "Dritte KG", "Status": "Intern"})

	require.True(t, ds.ApplyEqualityFilter(map[string]any{"Status": "Webshop"}))
	assert.Equal(t, 2, ds.Count())

	require.True(t, ds.ClearFilter())
	assert.Equal(t, 3, ds.Count())
}

func TestDatasetMutation(t *testing.T) {
	t.Run("insert with generated number", func(t *testing.T) {
		store, ds := newAdressenDataset(t)
		store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10042", "Na1": "Muster GmbH"})

		require.NoError(t, ds.BeginInsert())
		nr := ds.NextNumber()
		require.NotEmpty(t, nr)
		require.True(t, ds.SetField("AdrNr", nr))
		require.True(t, ds.SetField("Na1", "Neukunde GmbH"))
		require.NoError(t, ds.Commit())

		rows := store.FindRows(erp.DatasetAdressen, map[string]any{"AdrNr": nr})
		require.Len(t, rows, 1)
		assert.Equal(t, "Neukunde GmbH", rows[0]["Na1"])
	})

	t.Run("edit existing record", func(t *testing.T) {
		store, ds := newAdressenDataset(t)
		store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10042", "Na1": "Muster GmbH"})

		require.True(t, ds.Locate(erp.K("10042")))
		require.NoError(t, ds.BeginEdit())
		require.True(t, ds.SetField("Na1", "Muster Holding GmbH"))
		require.NoError(t, ds.Commit())

		rows := store.FindRows(erp.DatasetAdressen, map[string]any{"AdrNr": "10042"})
		require.Len(t, rows, 1)
		assert.Equal(t, "Muster Holding GmbH", rows[0]["Na1"])
	})

	t.Run("discard keeps record untouched", func(t *testing.T) {
		store, ds := newAdressenDataset(t)
		store.Insert(erp.DatasetAdressen, map[string]any{"AdrNr": "10042", "Na1": "Muster GmbH"})

		require.True(t, ds.Locate(erp.K("10042")))
		require.NoError(t, ds.BeginEdit())
		require.True(t, ds.SetField("Na1", "Verworfen"))
		ds.Discard()

		rows := store.FindRows(erp.DatasetAdressen, map[string]any{"AdrNr": "10042"})
		require.Len(t, rows, 1)
		assert.Equal(t, "Muster GmbH", rows[0]["Na1"])
	})
}

func TestDatasetFieldConversion(t *testing.T) {
	store, ds := newAnschriftenDataset(t)
	store.Insert(erp.DatasetAnschriften, map[string]any{"AdrNr": "10042", "AnsNr": 1})

	require.True(t, ds.Locate(erp.K("10042", 1)))
	require.NoError(t, ds.BeginEdit())

	t.Run("boolean stored as integer flag", func(t *testing.T) {
		require.True(t, ds.SetField("StdLiKz", true))
		require.True(t, ds.SetField("StdReKz", false))
	})

	t.Run("nil is skipped", func(t *testing.T) {
		assert.True(t, ds.SetField("Ort", nil))
	})

	require.True(t, ds.SetField("Ort", "Bamberg"))
	require.NoError(t, ds.Commit())

	rows := store.FindRows(erp.DatasetAnschriften, map[string]any{"AnsNr": 1})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0]["StdLiKz"])
	assert.Equal(t, 0, rows[0]["StdReKz"])
	assert.Equal(t, "Bamberg", rows[0]["Ort"])

	require.True(t, ds.Locate(erp.K("10042", 1)))
	assert.Equal(t, 1, ds.GetInt("StdLiKz"))
	assert.Equal(t, "Bamberg", ds.GetString("Ort"))
}

func TestDatasetDecimalAndTime(t *testing.T) {
	store := erptest.NewStore()
	session, err := store.OpenSession()
	require.NoError(t, err)
	defer session.Close()
	ds, err := erp.OpenArtikel(session, zap.NewNop())
	require.NoError(t, err)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.Insert(erp.DatasetArtikel, map[string]any{
		"ArtNr": "900101", "Vk0": 19.99, "SPrVon": start,
	})

	require.True(t, ds.Locate(erp.K("900101")))
	assert.Equal(t, "19.99", ds.GetDecimal("Vk0").StringFixed(2))
	assert.Equal(t, start, ds.GetTime("SPrVon"))

	require.NoError(t, ds.BeginEdit())
	until := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	require.True(t, ds.SetField("SPrBis", until))
	require.NoError(t, ds.Commit())

	require.True(t, ds.Locate(erp.K("900101")))
	assert.Equal(t, until, ds.GetTime("SPrBis"))
}

func TestDatasetDelete(t *testing.T) {
	store, ds := newAnschriftenDataset(t)
	store.Insert(erp.DatasetAnschriften, map[string]any{"AdrNr": "10042", "AnsNr": 1})
	store.Insert(erp.DatasetAnschriften, map[string]any{"AdrNr": "10042", "AnsNr": 2})

	require.True(t, ds.Locate(erp.K("10042", 1)))
	require.NoError(t, ds.DeleteRecord())

	assert.Len(t, store.FindRows(erp.DatasetAnschriften, map[string]any{"AdrNr": "10042"}), 1)
}

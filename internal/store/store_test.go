package store

import (
	"encoding/xml"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    string
	Value int
}

func (w *widget) RecordID() string { return w.ID }

type widgetXML struct {
	XMLName xml.Name `xml:"widget"`
	ID      string   `xml:"id,attr"`
	Value   int      `xml:"value"`
}

func widgetCodec() Codec[*widget] {
	return Codec[*widget]{
		ToWire: func(w *widget) any {
			return widgetXML{ID: w.ID, Value: w.Value}
		},
		FromWire: func(data []byte) (*widget, error) {
			var w widgetXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, err
			}
			return &widget{ID: w.ID, Value: w.Value}, nil
		},
	}
}

type recordingObserver struct {
	changes []string
}

func (o *recordingObserver) RecordChanged(id string, rec Record, removed bool) {
	if removed {
		o.changes = append(o.changes, "removed:"+id)
	} else {
		o.changes = append(o.changes, "put:"+id)
	}
}

func newTestStore(t *testing.T) *Store[*widget] {
	t.Helper()
	s, err := New[*widget](t.TempDir(), widgetCodec())
	require.NoError(t, err)
	return s
}

func TestStorePutGetAll(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Put(&widget{ID: "b", Value: 2}))
	require.NoError(t, s.Put(&widget{ID: "a", Value: 1}))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.Value)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID, "All must return records sorted by id")
	assert.Equal(t, "b", all[1].ID)
}

func TestStorePutOverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put(&widget{ID: "a", Value: 1}))
	require.NoError(t, s.Put(&widget{ID: "a", Value: 2}))

	got, _ := s.Get("a")
	assert.Equal(t, 2, got.Value)
	assert.Len(t, s.All(), 1)
}

func TestStoreRemoveIsNoOpWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Remove("does-not-exist"))
}

func TestStoreLoadReadsPersistedRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := New[*widget](dir, widgetCodec())
	require.NoError(t, err)
	require.NoError(t, s.Put(&widget{ID: "a", Value: 42}))

	reopened, err := New[*widget](dir, widgetCodec())
	require.NoError(t, err)
	require.NoError(t, reopened.Load())

	got, ok := reopened.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, got.Value)
}

func TestStoreNotifiesObserversOnPutAndRemove(t *testing.T) {
	s := newTestStore(t)
	obs := &recordingObserver{}
	s.AddObserver(obs)

	require.NoError(t, s.Put(&widget{ID: "a", Value: 1}))
	require.NoError(t, s.Remove("a"))

	assert.Equal(t, []string{"put:a", "removed:a"}, obs.changes)
}

func TestStoreWriteAtomicProducesReadableFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New[*widget](dir, widgetCodec())
	require.NoError(t, err)
	require.NoError(t, s.Put(&widget{ID: "a b", Value: 1}))

	matches, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Notify(ctx, Event{Kind: KindCreated, PartyID: 1}))
	require.NoError(t, r.Notify(ctx, Event{Kind: KindDisbanded, PartyID: 1}))

	assert.Equal(t, []Kind{KindCreated, KindDisbanded}, r.Kinds())

	evs := r.Events()
	evs[0].PartyID = 99
	assert.Equal(t, int64(1), r.Events()[0].PartyID, "Events returns a copy")
}

func TestNopNotify(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), Event{Kind: KindLeft}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "troupe.party.kicked", Subject(DefaultSubjectPrefix, KindKicked))
}

func TestEventJSON(t *testing.T) {
	actor, target := uuid.New(), uuid.New()
	e := Event{
		Kind:    KindKicked,
		PartyID: 7,
		Actor:   actor,
		Target:  &target,
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "kicked", got["kind"])
	assert.Equal(t, target.String(), got["target"])
	assert.NotContains(t, got, "members")
	assert.NotContains(t, got, "name")
}

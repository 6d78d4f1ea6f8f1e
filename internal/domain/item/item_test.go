package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemAccessors(t *testing.T) {
	it := &Item{Props: map[string]Value{
		PropTitle:   StringValue("Phone"),
		PropGroupID: IntValue(7),
		PropSection: RefValue(3),
		PropImages:  RefListValue([]int64{900, 901}),
	}}

	assert.Equal(t, "Phone", it.String(PropTitle, ""))
	assert.Equal(t, int64(7), it.Int64(PropGroupID, 0))
	assert.Equal(t, int64(3), it.Ref(PropSection, 0))

	// Missing or kind-mismatched properties fall back to the default.
	assert.Equal(t, "none", it.String(PropDescription, "none"))
	assert.Equal(t, "none", it.String(PropGroupID, "none"))
	assert.Equal(t, int64(-1), it.Int64(PropTitle, -1))

	v, ok := it.Value(PropImages)
	assert.True(t, ok)
	assert.Equal(t, []int64{900, 901}, v.RefIDs())
}

func TestFields(t *testing.T) {
	assert.True(t, AllFields().Want(PropTitle))
	assert.True(t, Names(PropTitle, PropSection).Want(PropSection))
	assert.False(t, Names(PropTitle).Want(PropSection))
	assert.False(t, Fields{}.Want(PropTitle))
}

func TestPredicate_Matches(t *testing.T) {
	assert.True(t, (*Predicate)(nil).Matches(StateRemoved))
	assert.True(t, (&Predicate{}).Matches(StateRemoved))

	pred := StateIn(StateActive, StateApproved)
	assert.True(t, pred.Matches(StateActive))
	assert.True(t, pred.Matches(StateApproved))
	assert.False(t, pred.Matches(StateRemoved))
}

func TestValueHelpers(t *testing.T) {
	assert.True(t, Value{}.IsZero())
	assert.False(t, StringValue("").IsZero())
	assert.Nil(t, StringValue("x").RefIDs())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "published", StatePublished.String())
	assert.Equal(t, "unknown", State(99).String())
}

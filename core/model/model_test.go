package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity(t *testing.T) {
	want := map[FaultType]int{
		FaultLockMalfunction:  5,
		FaultBooksStuck:       4,
		FaultCodeNotWorking:   4,
		FaultDoorDamage:       3,
		FaultLostKey:          2,
		FaultOther:            1,
		FaultType("graffiti"): 1,
	}
	for ft, sev := range want {
		assert.Equal(t, sev, ft.Severity(), ft)
	}
	assert.False(t, FaultType("graffiti").Known())
	assert.Len(t, FaultTypes(), 6)
}

func TestFaultValidate(t *testing.T) {
	assert.NoError(t, Fault{ID: "1", Severity: 3}.Validate())
	assert.Error(t, Fault{Severity: 3}.Validate())
	assert.Error(t, Fault{ID: "1", Severity: 6}.Validate())
	assert.Error(t, Fault{ID: "1"}.Validate())
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := Fault{CreatedAt: now.Add(-36 * time.Hour)}
	assert.InDelta(t, 1.5, f.AgeDays(now), 1e-9)
}

func TestStudentNames(t *testing.T) {
	assert.Equal(t, "Noa Levi", Student{FirstName: "Noa", LastName: "Levi"}.FullName())
	assert.Equal(t, "Levi", Student{LastName: "Levi"}.FullName())
	assert.Equal(t, UnknownSchool, Student{}.School())
	assert.Equal(t, "Asif", Student{SchoolName: "Asif"}.School())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("InProgress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("pending")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestTransitionLifecycle(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	f := Fault{ID: "1", Status: StatusOpen}

	f, err := Transition(f, StatusInProgress, TransitionOptions{Technician: "dana", Now: t1})
	require.NoError(t, err)
	assert.Equal(t, "dana", f.AssignedTechnician)
	assert.Nil(t, f.ResolvedAt)

	f, err = Transition(f, StatusResolved, TransitionOptions{Now: t1})
	require.NoError(t, err)
	require.NotNil(t, f.ResolvedAt)
	assert.Equal(t, t1, *f.ResolvedAt)

	f, err = Transition(f, StatusClosed, TransitionOptions{Now: t2})
	require.NoError(t, err)
	assert.Equal(t, t1, *f.ResolvedAt, "resolved_at is set once")

	f, err = Transition(f, StatusOpen, TransitionOptions{Now: t2})
	require.NoError(t, err)
	assert.Nil(t, f.ResolvedAt)
	assert.Empty(t, f.AssignedTechnician)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	in := Fault{ID: "1", Status: StatusResolved, ResolvedAt: &ts, AssignedTechnician: "dana"}
	out, err := Transition(in, StatusOpen, TransitionOptions{})
	require.NoError(t, err)
	assert.Nil(t, out.ResolvedAt)
	assert.Equal(t, StatusResolved, in.Status)
	assert.Equal(t, &ts, in.ResolvedAt)
	assert.Equal(t, "dana", in.AssignedTechnician)
}

func TestTransitionRejected(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusOpen, StatusClosed},
		{StatusInProgress, StatusClosed},
		{StatusClosed, StatusResolved},
		{StatusClosed, StatusInProgress},
	}
	for _, c := range cases {
		_, err := Transition(Fault{ID: "1", Status: c.from}, c.to, TransitionOptions{})
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", c.from, c.to)
	}
	_, err := Transition(Fault{ID: "1", Status: StatusOpen}, Status("Lost"), TransitionOptions{})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestSameStateIsNoop(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed} {
		assert.True(t, CanTransition(s, s))
	}
	in := Fault{ID: "1", Status: StatusOpen}
	out, err := Transition(in, StatusOpen, TransitionOptions{})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

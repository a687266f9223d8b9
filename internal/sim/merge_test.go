package sim

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapsim/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func householdsScenario(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(t)
	require.NoError(t, s.AddTable("households", mustFrame(t, []any{1, 2, 3}, []string{"income", "zone_id"},
		map[string][]any{
			"income":  {50000, 75000, 120000},
			"zone_id": {"a", "b", "a"},
		})))
	require.NoError(t, s.AddTable("persons", mustFrame(t, []any{"p1", "p2", "p3", "p4"}, []string{"household_id", "age"},
		map[string][]any{
			"household_id": {1, 1, 2, 3},
			"age":          {40, 12, 33, 70},
		})))
	require.NoError(t, s.AddBroadcast(Broadcast{
		Cast:      "persons",
		Onto:      "households",
		CastOn:    "household_id",
		OntoIndex: true,
	}))
	return s
}

func tables(t *testing.T, s *Session, names ...string) []Table {
	t.Helper()
	out := make([]Table, 0, len(names))
	for _, name := range names {
		tbl, err := s.Table(name)
		require.NoError(t, err)
		out = append(out, tbl)
	}
	return out
}

func TestMergeTables_HouseholdsPersons(t *testing.T) {
	s := householdsScenario(t)

	merged, err := s.MergeTables("households", tables(t, s, "households", "persons"))
	require.NoError(t, err)

	assert.Equal(t, 4, merged.Len(), "one row per person")
	assert.ElementsMatch(t, []any{"p1", "p2", "p3", "p4"}, merged.Index())

	income, err := merged.Column("income")
	require.NoError(t, err)
	hid, err := merged.Column("household_id")
	require.NoError(t, err)

	want := map[int]int{1: 50000, 2: 75000, 3: 120000}
	for i := range merged.Len() {
		assert.Equal(t, want[hid.At(i).(int)], income.At(i), "row %v", merged.Index()[i])
	}
}

func TestMergeTables_ColumnSelection(t *testing.T) {
	s := householdsScenario(t)

	merged, err := s.MergeTables("households", tables(t, s, "households", "persons"), "income", "age")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"income", "age", "household_id"}, merged.Columns())
	assert.False(t, merged.Has("zone_id"))

	_, err = s.MergeTables("households", tables(t, s, "households", "persons"), "income", "cars", "bikes")
	require.ErrorIs(t, err, ErrNotFound)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"bikes", "cars"}, missing.Columns)
}

func threeTableSession(t *testing.T) *Session {
	t.Helper()
	s := newTestSession(t)
	require.NoError(t, s.AddTable("zones", mustFrame(t, []any{"z1", "z2"}, []string{"zone_name"},
		map[string][]any{"zone_name": {"north", "south"}})))
	require.NoError(t, s.AddTable("buildings", mustFrame(t, []any{10, 11, 12}, []string{"zone_id", "floors"},
		map[string][]any{"zone_id": {"z1", "z2", "z2"}, "floors": {3, 1, 8}})))
	require.NoError(t, s.AddTable("units", mustFrame(t, []any{100, 101, 102, 103}, []string{"building_id", "rent"},
		map[string][]any{"building_id": {10, 12, 12, 11}, "rent": {900, 1200, 1300, 700}})))

	// units -> buildings -> zones
	require.NoError(t, s.AddBroadcast(Broadcast{Cast: "units", Onto: "buildings", CastOn: "building_id", OntoIndex: true}))
	require.NoError(t, s.AddBroadcast(Broadcast{Cast: "buildings", Onto: "zones", CastOn: "zone_id", OntoIndex: true}))
	return s
}

func TestMergeTables_DeepestFirst(t *testing.T) {
	s := threeTableSession(t)

	zones, err := s.Table("zones")
	require.NoError(t, err)
	buildings, err := s.Table("buildings")
	require.NoError(t, err)
	units, err := s.Table("units")
	require.NoError(t, err)

	zf, err := zones.ToFrame()
	require.NoError(t, err)
	bf, err := buildings.ToFrame()
	require.NoError(t, err)
	uf, err := units.ToFrame()
	require.NoError(t, err)

	bu, err := frame.Merge(bf, uf, frame.MergeOptions{LeftIndex: true, RightOn: "building_id"})
	require.NoError(t, err)
	want, err := frame.Merge(zf, bu, frame.MergeOptions{LeftIndex: true, RightOn: "zone_id"})
	require.NoError(t, err)

	orders := [][]Table{
		{zones, buildings, units},
		{units, buildings, zones},
		{buildings, zones, units},
	}
	for _, order := range orders {
		got, err := s.MergeTables("zones", order)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "merge order %v changed the result", order)
	}
	assert.Equal(t, 4, want.Len())
}

func TestMergeTables_Unlinked(t *testing.T) {
	s := threeTableSession(t)
	require.NoError(t, s.AddTable("parcels", mustFrame(t, []any{1}, nil, nil)))

	_, err := s.MergeTableNames("zones", []string{"zones", "buildings", "parcels"})
	require.ErrorIs(t, err, ErrUnlinkedTables)

	var unlinked *UnlinkedTablesError
	require.True(t, errors.As(err, &unlinked))
	assert.Equal(t, "zones", unlinked.Target)
	assert.Equal(t, []string{"parcels"}, unlinked.Tables)

	// units only reaches zones through buildings
	_, err = s.MergeTableNames("zones", []string{"zones", "units"})
	require.True(t, errors.As(err, &unlinked))
	assert.Equal(t, []string{"units"}, unlinked.Tables)
}

func TestMergeTables_SoleTarget(t *testing.T) {
	s := threeTableSession(t)

	merged, err := s.MergeTableNames("zones", []string{"zones"})
	require.NoError(t, err)

	zones, err := s.Table("zones")
	require.NoError(t, err)
	want, err := zones.ToFrame()
	require.NoError(t, err)
	assert.True(t, want.Equal(merged))
}

func TestMergeTables_TargetNotParticipant(t *testing.T) {
	s := threeTableSession(t)

	_, err := s.MergeTableNames("zones", []string{"buildings"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMergeTables_IgnoresOutsideBroadcasts(t *testing.T) {
	s := householdsScenario(t)
	require.NoError(t, s.AddBroadcast(Broadcast{Cast: "households", Onto: "zones", CastOn: "zone_id", OntoIndex: true}))

	merged, err := s.MergeTableNames("households", []string{"households", "persons"})
	require.NoError(t, err)
	assert.Equal(t, 4, merged.Len())
}

func TestMergeTables_Cycle(t *testing.T) {
	s := threeTableSession(t)
	require.NoError(t, s.AddBroadcast(Broadcast{Cast: "zones", Onto: "units", CastIndex: true, OntoOn: "zone_id"}))

	_, err := s.MergeTableNames("zones", []string{"zones", "buildings", "units"})
	require.ErrorIs(t, err, ErrBroadcastCycle)

	var cycle *BroadcastCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
}

func TestMergeTables_ComputedColumnsAndSources(t *testing.T) {
	s := householdsScenario(t)
	require.NoError(t, s.AddColumn("persons", "is_adult", func(d Deps) (*frame.Series, error) {
		persons, err := d.Table("persons")
		if err != nil {
			return nil, err
		}
		age, err := persons.Column("age")
		if err != nil {
			return nil, err
		}
		out := make([]any, age.Len())
		for i, v := range age.Values() {
			out[i] = v.(int) >= 18
		}
		return frame.NewSeries("is_adult", age.Index(), out)
	}, "persons"))

	calls := 0
	require.NoError(t, s.AddTableSource("zones", func(Deps) (*frame.Frame, error) {
		calls++
		return frame.FromColumns([]any{"a", "b"}, []string{"density"}, map[string][]any{"density": {1.5, 0.5}})
	}))
	require.NoError(t, s.AddBroadcast(Broadcast{Cast: "zones", Onto: "households", CastIndex: true, OntoOn: "zone_id"}))

	merged, err := s.MergeTableNames("households", []string{"households", "persons", "zones"}, "is_adult", "density")
	require.NoError(t, err)

	assert.Equal(t, 4, merged.Len())
	adult, err := merged.Column("is_adult")
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{true, false, true, true}, adult.Values())
	assert.True(t, merged.Has("density"))
	assert.Equal(t, 1, calls)
}

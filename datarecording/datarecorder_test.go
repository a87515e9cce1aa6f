package datarecording_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsim/vitalsim/datarecording"
	"github.com/vitalsim/vitalsim/sim"
	"github.com/vitalsim/vitalsim/vitals"
)

type taskRow struct {
	ID   int
	Name string
}

func setupTestDB(t *testing.T) (datarecording.DataRecorder, datarecording.DataReader) {
	dbPath := filepath.Join(t.TempDir(), "test")

	writer := datarecording.New(dbPath)
	reader := datarecording.NewReader(dbPath + ".sqlite3")
	t.Cleanup(func() { reader.Close() })

	return writer, reader
}

func TestRecorderCreateTable(t *testing.T) {
	writer, reader := setupTestDB(t)

	writer.CreateTable("test_table", taskRow{})

	assert.Contains(t, writer.ListTables(), "test_table")

	reader.MapTable("test_table", taskRow{})
	_, count, err := reader.Query(context.Background(), "test_table",
		datarecording.QueryParams{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecorderInsertAndFlush(t *testing.T) {
	writer, reader := setupTestDB(t)

	writer.CreateTable("test_table", taskRow{})
	writer.InsertData("test_table", taskRow{1, "Task1"})
	writer.InsertData("test_table", taskRow{2, "Task2"})
	writer.Flush()

	reader.MapTable("test_table", taskRow{})
	rows, count, err := reader.Query(context.Background(), "test_table",
		datarecording.QueryParams{OrderBy: "ID"})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	first := rows[0].(*taskRow)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Task1", first.Name)
}

func TestRecorderFlushSkipsEmptyTables(t *testing.T) {
	writer, _ := setupTestDB(t)

	writer.CreateTable("test_table", taskRow{})

	assert.NotPanics(t, func() { writer.Flush() })
}

func TestRecorderInsertIntoUnknownTablePanics(t *testing.T) {
	writer, _ := setupTestDB(t)

	assert.Panics(t, func() {
		writer.InsertData("missing", taskRow{1, "Task1"})
	})
}

func TestRecorderRejectsNestedStructs(t *testing.T) {
	writer, _ := setupTestDB(t)

	type attribute struct {
		ID int
	}
	entry := struct {
		Attr attribute
	}{}

	assert.Panics(t, func() {
		writer.CreateTable("test_table", entry)
	})
}

func TestReaderQueryWithWhereAndLimit(t *testing.T) {
	writer, reader := setupTestDB(t)

	writer.CreateTable("test_table", taskRow{})
	for i := 0; i < 10; i++ {
		writer.InsertData("test_table", taskRow{ID: i, Name: "task"})
	}
	writer.Flush()

	reader.MapTable("test_table", taskRow{})
	rows, count, err := reader.Query(context.Background(), "test_table",
		datarecording.QueryParams{
			Where:   "ID >= ?",
			Args:    []any{5},
			OrderBy: "ID",
			Limit:   3,
		})
	require.NoError(t, err)

	// The count reflects the full filtered set, not the page.
	assert.Equal(t, 5, count)
	require.Len(t, rows, 3)
	assert.Equal(t, 5, rows[0].(*taskRow).ID)
	assert.Equal(t, 7, rows[2].(*taskRow).ID)
}

func TestReaderQueryRequiresMapping(t *testing.T) {
	_, reader := setupTestDB(t)

	_, _, err := reader.Query(context.Background(), "unmapped",
		datarecording.QueryParams{})
	assert.Error(t, err)
}

func TestRecordSimulationRequiresFinalizedRun(t *testing.T) {
	writer, _ := setupTestDB(t)

	s := sim.MakeBuilder().
		WithNumAgents(10).
		WithTimeline(2000, 2002, 1).
		Build()
	s.Init()

	assert.Panics(t, func() {
		datarecording.RecordSimulation(writer, s)
	})
}

func TestRecordSimulationWritesRunAndResults(t *testing.T) {
	writer, reader := setupTestDB(t)

	s := sim.MakeBuilder().
		WithNumAgents(100).
		WithTimeline(2000, 2002, 1).
		WithSeed(7).
		Build()
	s.RegisterModule(vitals.NewBirths(sim.Pars{"birth_rate": 0}))
	s.Init()
	require.NoError(t, s.Run())

	datarecording.RecordSimulation(writer, s)

	ctx := context.Background()

	reader.MapTable("runs", datarecording.RunRow{})
	runs, count, err := reader.Query(ctx, "runs", datarecording.QueryParams{})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	run := runs[0].(*datarecording.RunRow)
	assert.Equal(t, s.ID(), run.RunID)
	assert.Equal(t, uint64(7), run.Seed)
	assert.Equal(t, 2000.0, run.Start)
	assert.Equal(t, 100, run.NumAgents)

	reader.MapTable("results", datarecording.ResultRow{})
	rows, _, err := reader.Query(ctx, "results", datarecording.QueryParams{
		Where:   "Module = ? AND Name = ?",
		Args:    []any{"births", "new"},
		OrderBy: "Step",
	})
	require.NoError(t, err)
	require.Len(t, rows, s.NumSteps())

	for _, r := range rows {
		assert.Equal(t, 0.0, r.(*datarecording.ResultRow).Value)
	}

	nAlive, _, err := reader.Query(ctx, "results", datarecording.QueryParams{
		Where: "Module = ? AND Name = ?",
		Args:  []any{"sim", "n_alive"},
	})
	require.NoError(t, err)
	require.Len(t, nAlive, s.NumSteps())
	assert.Equal(t, 100.0, nAlive[0].(*datarecording.ResultRow).Value)
}

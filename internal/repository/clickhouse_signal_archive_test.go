package repository

import (
	"context"
	"testing"
	"time"

	"ComputeOracle/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCHSignalArchiveStoreBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	archive := NewCHSignalArchive(db, "oracle", nil)
	ts := time.Date(2025, 11, 1, 3, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO oracle.signals").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = archive.StoreBatch(context.Background(), []models.Signal{
		{Source: "aws_spot", Name: "p3.2xlarge us-east-1a", Value: 1.07, Unit: "USD/hr", Timestamp: ts},
		{Source: "eia_electricity", Name: "PJM demand", Value: 142500, Unit: "MWh", Timestamp: ts},
		{Source: "", Name: "dropped", Timestamp: ts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalArchiveQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	archive := NewCHSignalArchive(db, "oracle", nil)
	ts := time.Date(2025, 11, 1, 3, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"ts", "source", "name", "value", "unit", "instance_type", "az"}).
		AddRow(ts, "eia_electricity", "PJM demand", 142500.0, "MWh", "", "")
	mock.ExpectQuery("SELECT ts, source, name, value, unit, instance_type, az").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := archive.Query(context.Background(), ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PJM demand", got[0].Name)
	assert.True(t, ts.Equal(got[0].Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalArchiveInit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	archive := NewCHSignalArchive(db, "oracle", nil)
	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS oracle").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS oracle.signals").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, archive.Init(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

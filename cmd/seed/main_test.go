package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestSeedMasterData(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := t.TempDir()
	writeSeed(t, dir, "products.csv", "name,model_prediksi,arima_p,arima_d,arima_q\nAlpha,mean,,,\nBeta,ARIMA,1,1,0\n")
	writeSeed(t, dir, "lead_times.csv", "product,avg_lead_time,max_lead_time\nBeta,7,10\n")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO products")
	prep.ExpectExec().WithArgs("Alpha", "MEAN", nil, nil, nil).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("Beta", "ARIMA", 1, 1, 0).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectPrepare("INSERT INTO lead_times").
		ExpectExec().WithArgs("Beta", 7.0, 10.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, seedMasterData(context.Background(), db, dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedMasterDataRejectsUnknownModel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := t.TempDir()
	writeSeed(t, dir, "products.csv", "name,model_prediksi\nCharlie,PROPHET\n")

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO products")
	mock.ExpectRollback()

	err = seedMasterData(context.Background(), db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products.csv")
	assert.NoError(t, mock.ExpectationsWereMet())
}

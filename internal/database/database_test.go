package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mgsa-portal-api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect(DriverSQLite, "file:database_connect?mode=memory&cache=shared")
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	require.True(t, db.Migrator().HasTable(&models.TutorialRegistration{}))
	require.True(t, db.Migrator().HasIndex(&models.TutorialRegistration{}, "idx_tutorial_registrations_pair"))
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	require.Error(t, err)

	_, err = Connect(DriverSQLite, "")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	client, err := ConnectRedis(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = ConnectRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())

	_, err = ConnectRedis(context.Background(), "://bad")
	require.Error(t, err)
}

func TestConnectRedisGivesUpWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectRedis(ctx, "redis://"+addr)
	require.Error(t, err)
}

func TestConnectNATSWithoutURL(t *testing.T) {
	conn, err := ConnectNATS("", "portal")
	require.NoError(t, err)
	require.Nil(t, conn)
}

package main

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/user"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
)

func mockReadPassword(pwd string) func(fd int) ([]byte, error) {
	return func(int) ([]byte, error) { return []byte(pwd), nil }
}

func newTestCLI(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: dummydb.NewUserRepository(db),
	}
}

func Test_commandLine_help(t *testing.T) {
	cli := newTestCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"admin"}},
		{"unknown command", []string{"admin", "frobnicate"}},
		{"adduser without email", []string{"admin", "adduser"}},
		{"resetpassword without username", []string{"admin", "resetpassword"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, errHelp, cli.run(tt.args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := newTestCLI(t)

	origReadPassword := readPasswordFunc
	defer func() { readPasswordFunc = origReadPassword }()
	readPasswordFunc = mockReadPassword("S3cretPwd!")

	err := cli.run([]string{"admin", "adduser", "-email", "Jim@Test.com", "-username", "jim"})
	require.NoError(t, err)

	usr, err := cli.usrRepo.GetUserByEmail("jim@test.com")
	require.NoError(t, err)
	assert.Equal(t, "jim", usr.UserName)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("S3cretPwd!"))

	// running again updates the existing account instead of duplicating it
	readPasswordFunc = mockReadPassword("An0therPwd!")
	err = cli.run([]string{"admin", "adduser", "-email", "jim@test.com"})
	require.NoError(t, err)

	updated, err := cli.usrRepo.GetUserByEmail("jim@test.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.NoError(t, updated.CheckPassword("An0therPwd!"))
}

func Test_commandLine_addUser_emptyPassword(t *testing.T) {
	cli := newTestCLI(t)

	origReadPassword := readPasswordFunc
	defer func() { readPasswordFunc = origReadPassword }()
	readPasswordFunc = mockReadPassword("")

	err := cli.run([]string{"admin", "adduser", "-email", "empty@test.com"})
	assert.Equal(t, errHelp, err)

	_, err = cli.usrRepo.GetUserByEmail("empty@test.com")
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := newTestCLI(t)

	origReadPassword := readPasswordFunc
	defer func() { readPasswordFunc = origReadPassword }()
	readPasswordFunc = mockReadPassword("InitialPwd1")

	require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "ana@test.com", "-username", "ana"}))

	t.Run("by username", func(t *testing.T) {
		readPasswordFunc = mockReadPassword("ResetPwd1")
		require.NoError(t, cli.run([]string{"admin", "resetpassword", "-username", "ana"}))

		usr, err := cli.usrRepo.GetUserByEmail("ana@test.com")
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("ResetPwd1"))
	})

	t.Run("by email", func(t *testing.T) {
		readPasswordFunc = mockReadPassword("ResetPwd2")
		require.NoError(t, cli.run([]string{"admin", "resetpassword", "-username", "ana@test.com"}))

		usr, err := cli.usrRepo.GetUserByEmail("ana@test.com")
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("ResetPwd2"))
	})

	t.Run("unknown user", func(t *testing.T) {
		readPasswordFunc = mockReadPassword("WhoDis1pwd")
		err := cli.run([]string{"admin", "resetpassword", "-username", "ghost"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := newTestCLI(t)

	origMigrate := migrateFunc
	defer func() { migrateFunc = origMigrate }()

	var called bool
	migrateFunc = func(*sql.DB) error {
		called = true
		return nil
	}

	require.NoError(t, cli.run([]string{"admin", "migrate"}))
	assert.True(t, called)
}

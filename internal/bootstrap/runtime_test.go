package bootstrap

import (
	"context"
	"testing"

	"purpaws/internal/config"
	"purpaws/internal/models"
	"purpaws/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureSuperuser_CreatesAndPromotes(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	in := SuperuserInput{Username: "root", Email: "Root@Example.com", Password: "Str0ng-pass!"}

	root, created, err := EnsureSuperuser(ctx, db, in, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, root.IsSuperuser)
	assert.Equal(t, "root@example.com", root.Email)

	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", root.ID).First(&profile).Error)
	assert.Equal(t, models.ProfileRoleAdmin, profile.Role)

	again, created, err := EnsureSuperuser(ctx, db, SuperuserInput{Username: "root", Email: "other@example.com", Password: "An0ther-pass!"}, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, root.ID, again.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, root.ID).Error)
	assert.Equal(t, "root@example.com", stored.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Str0ng-pass!")))
}

func TestEnsureSuperuser_ElevatesExistingUser(t *testing.T) {
	db := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, db, "alice")

	_, created, err := EnsureSuperuser(context.Background(), db, SuperuserInput{Username: "alice", Email: "alice@example.com", Password: "N3w-password!"}, true)
	require.NoError(t, err)
	assert.False(t, created)

	var stored models.User
	require.NoError(t, db.Preload("Profile").First(&stored, alice.ID).Error)
	assert.True(t, stored.IsSuperuser)
	assert.True(t, stored.IsStaff)
	assert.Equal(t, models.ProfileRoleAdmin, stored.Profile.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("N3w-password!")))
}

func TestEnsureSuperuser_RejectsWeakPassword(t *testing.T) {
	db := testutil.OpenDB(t)
	_, _, err := EnsureSuperuser(context.Background(), db, SuperuserInput{Username: "root", Email: "root@example.com", Password: "short"}, false)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestEnsureDevRootAdmin(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	// Outside development nothing happens.
	require.NoError(t, ensureDevRootAdmin(ctx, &config.Config{Env: "production", DevBootstrapRoot: true}, db))
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)

	err := ensureDevRootAdmin(ctx, &config.Config{Env: "development", DevBootstrapRoot: true}, db)
	assert.Error(t, err)

	require.NoError(t, ensureDevRootAdmin(ctx, &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "Dev-r00t-pass!",
	}, db))
	var root models.User
	require.NoError(t, db.Where("username = ?", "purpaws_root").First(&root).Error)
	assert.True(t, root.IsSuperuser)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/officepulse/officepulse/internal/identity/domain"
	dbpkg "github.com/officepulse/officepulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newUserDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.AutoMigrate(&identitydomain.User{}); err != nil {
		t.Fatal(err)
	}
	node, _ := snowflake.NewNode(1)
	return conn, node
}

func TestUpsertKeyedByUPN(t *testing.T) {
	conn, node := newUserDB(t)
	ctx := context.Background()
	repo := Provide()
	now := time.Now().UTC()

	first := &identitydomain.User{
		ID:                node.Generate(),
		UserPrincipalName: "amy@contoso.com",
		AzureAdID:         "guid-old",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repo.Upsert(ctx, conn, first); err != nil {
		t.Fatal(err)
	}

	// A directory re-sync keeps the row id and refreshes the directory guid.
	second := &identitydomain.User{
		ID:                node.Generate(),
		UserPrincipalName: "amy@contoso.com",
		AzureAdID:         "guid-new",
		CreatedAt:         now,
		UpdatedAt:         now.Add(time.Hour),
	}
	if err := repo.Upsert(ctx, conn, second); err != nil {
		t.Fatal(err)
	}

	var count int64
	conn.Model(&identitydomain.User{}).Count(&count)
	assert.Equal(t, int64(1), count)

	user, err := repo.FindByUPN(ctx, conn, "amy@contoso.com")
	if err != nil {
		t.Fatal(err)
	}
	if user == nil {
		t.Fatal("expected the user to exist")
	}
	assert.Equal(t, first.ID, user.ID)
	assert.Equal(t, "guid-new", user.AzureAdID)
}

func TestFindByUPNMissIsNil(t *testing.T) {
	conn, _ := newUserDB(t)

	user, err := Provide().FindByUPN(context.Background(), conn, "ghost@contoso.com")
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestFindByIDs(t *testing.T) {
	conn, node := newUserDB(t)
	ctx := context.Background()
	repo := Provide()

	amy := identitydomain.User{ID: node.Generate(), UserPrincipalName: "amy@contoso.com"}
	bob := identitydomain.User{ID: node.Generate(), UserPrincipalName: "bob@contoso.com"}
	if err := conn.Create(&[]identitydomain.User{amy, bob}).Error; err != nil {
		t.Fatal(err)
	}

	users, err := repo.FindByIDs(ctx, conn, []snowflake.ID{bob.ID, amy.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	assert.Equal(t, amy.ID, users[0].ID, "results come back in id order")

	users, err = repo.FindByIDs(ctx, conn, nil)
	assert.NoError(t, err)
	assert.Empty(t, users)
}

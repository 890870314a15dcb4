package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/survey/domain"
	dbpkg "github.com/officepulse/officepulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newSurveyDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	conn, err := dbpkg.NewTest()
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.AutoMigrate(&domain.SurveyResponse{}); err != nil {
		t.Fatal(err)
	}
	node, _ := snowflake.NewNode(1)
	return conn, node
}

func TestLastRespondedAtNeverResponded(t *testing.T) {
	conn, node := newSurveyDB(t)
	ctx := context.Background()
	repo := Provide()
	userID := node.Generate()

	// No rows at all.
	last, err := repo.LastRespondedAt(ctx, conn, userID)
	assert.NoError(t, err)
	assert.Nil(t, last, "a user with no surveys has no watermark")

	// An outstanding request without a response must not produce one either.
	pending := &domain.SurveyResponse{
		ID:        node.Generate(),
		UserID:    userID,
		Requested: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.Insert(ctx, conn, pending); err != nil {
		t.Fatal(err)
	}
	last, err = repo.LastRespondedAt(ctx, conn, userID)
	assert.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastRespondedAtPicksLatest(t *testing.T) {
	conn, node := newSurveyDB(t)
	ctx := context.Background()
	repo := Provide()
	userID := node.Generate()
	otherID := node.Generate()

	older := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	foreign := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for _, row := range []*domain.SurveyResponse{
		{ID: node.Generate(), UserID: userID, Requested: older.Add(-time.Hour), Responded: &older},
		{ID: node.Generate(), UserID: userID, Requested: newer.Add(-time.Hour), Responded: &newer},
		{ID: node.Generate(), UserID: otherID, Requested: foreign.Add(-time.Hour), Responded: &foreign},
	} {
		if err := repo.Insert(ctx, conn, row); err != nil {
			t.Fatal(err)
		}
	}

	last, err := repo.LastRespondedAt(ctx, conn, userID)
	assert.NoError(t, err)
	if last == nil {
		t.Fatal("expected a watermark")
	}
	assert.True(t, last.Equal(newer), "watermark is the user's own latest response")
}

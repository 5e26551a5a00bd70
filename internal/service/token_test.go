package service

import (
	"context"
	"testing"

	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceConfig(t *testing.T) {
	store := newFakeTokenStore()

	_, err := NewTokenService(store, config.AuthConfig{AccessSecret: "", RefreshSecret: "r", AccessTTL: "24h", RefreshTTL: "8760h"})
	require.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewTokenService(store, config.AuthConfig{AccessSecret: "same", RefreshSecret: "same", AccessTTL: "24h", RefreshTTL: "8760h"})
	require.ErrorIs(t, err, ErrMisconfigured)

	_, err = NewTokenService(store, config.AuthConfig{AccessSecret: "a", RefreshSecret: "r", AccessTTL: "soon", RefreshTTL: "8760h"})
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := testTokenService(t, newFakeTokenStore())

	signed, expiresIn, err := tokens.SignAccessToken(42, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(24*60*60), expiresIn)

	user, err := tokens.ParseAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestRefreshTokenEmbedsRecordID(t *testing.T) {
	tokens := testTokenService(t, newFakeTokenStore())

	signed, err := tokens.SignRefreshToken(7, model.RoleCustomer, "record-123")
	require.NoError(t, err)

	userID, role, tokenID, err := tokens.ParseRefreshToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, model.RoleCustomer, role)
	assert.Equal(t, "record-123", tokenID)
}

func TestTokenSecretsAreIndependent(t *testing.T) {
	tokens := testTokenService(t, newFakeTokenStore())

	access, _, err := tokens.SignAccessToken(1, model.RoleCustomer)
	require.NoError(t, err)
	refresh, err := tokens.SignRefreshToken(1, model.RoleCustomer, "record-1")
	require.NoError(t, err)

	_, _, _, err = tokens.ParseRefreshToken(access)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = tokens.ParseAccessToken(refresh)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestIssueSessionPersistsRecordFirst(t *testing.T) {
	store := newFakeTokenStore()
	tokens := testTokenService(t, store)
	user := &model.User{ID: 9, Role: model.RoleCustomer}

	access, expiresIn, refresh, err := tokens.IssueSession(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.Positive(t, expiresIn)
	assert.Equal(t, 1, store.count())

	_, _, tokenID, err := tokens.ParseRefreshToken(refresh)
	require.NoError(t, err)
	require.NoError(t, tokens.CheckRefreshRecord(context.Background(), tokenID))
}

func TestIssueSessionAbortsWhenStoreFails(t *testing.T) {
	store := newFakeTokenStore()
	store.failCreate = true
	tokens := testTokenService(t, store)

	access, _, refresh, err := tokens.IssueSession(context.Background(), &model.User{ID: 9, Role: model.RoleCustomer})
	require.Error(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.Equal(t, 0, store.count())
}

func TestDeleteTokenReportsMissingDistinctly(t *testing.T) {
	store := newFakeTokenStore()
	tokens := testTokenService(t, store)

	record, err := store.CreateRefreshToken(context.Background(), 5, tokens.now().Add(tokens.refreshTTL))
	require.NoError(t, err)

	found, err := tokens.DeleteToken(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = tokens.DeleteToken(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, tokens.CheckRefreshRecord(context.Background(), record.ID), ErrUnauthorized)
}

func TestChangeTicketPurpose(t *testing.T) {
	tokens := testTokenService(t, newFakeTokenStore())

	ticket, err := tokens.SignChangeTicket(3, "email-change")
	require.NoError(t, err)

	userID, err := tokens.ParseChangeTicket(ticket, "email-change")
	require.NoError(t, err)
	assert.Equal(t, int64(3), userID)

	_, err = tokens.ParseChangeTicket(ticket, "password-reset")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

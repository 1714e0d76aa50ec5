package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"cookbook/globals"
	"cookbook/models"
	"cookbook/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, SplitCSV(""))
	assert.Equal(t, []string{"a", "b c"}, SplitCSV(" a, ,b c ,"))
}

func TestGetUserIDFromContext(t *testing.T) {
	assert.Equal(t, "", GetUserIDFromContext(context.Background()))
	ctx := context.WithValue(context.Background(), globals.UserIDKey, "u1")
	assert.Equal(t, "u1", GetUserIDFromContext(ctx))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Rating float64 `json:"rating"`
	}
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"rating": 4}`))
	require.NoError(t, DecodeJSON(w, r, &dst))
	assert.Equal(t, 4.0, dst.Rating)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"stars": 4}`))
	assert.Error(t, DecodeJSON(w, r, &dst))
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, 404, "Recipe not found")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Recipe not found"}`, w.Body.String())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 404, StatusFor(fmt.Errorf("recipe x: %w", repository.ErrNotFound)))
	assert.Equal(t, 403, StatusFor(repository.ErrForbidden))
	assert.Equal(t, 409, StatusFor(repository.ErrAlreadyExists))
	assert.Equal(t, 400, StatusFor(models.ErrInvalidSort))
	assert.Equal(t, 400, StatusFor(models.Validate(models.ReviewInput{Rating: 9})))
	assert.Equal(t, 500, StatusFor(&repository.QueryError{Op: "find recipes", Err: errors.New("connection refused")}))
}

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

func TestWriteError_StatusAndLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	t.Run("client error is logged at debug", func(t *testing.T) {
		hook.Reset()
		w := httptest.NewRecorder()
		writeError(w, log, &models.OverAllocationError{Requested: decimal.NewFromInt(20), Available: decimal.NewFromInt(15)})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
		assert.Equal(t, http.StatusUnprocessableEntity, hook.LastEntry().Data["status"])
	})

	t.Run("field error names the field", func(t *testing.T) {
		hook.Reset()
		w := httptest.NewRecorder()
		writeError(w, log, models.Invalid("amount", "must be greater than zero"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "amount", decodeInto[errorResponse](t, w).Field)
	})

	t.Run("not found is not logged", func(t *testing.T) {
		hook.Reset()
		w := httptest.NewRecorder()
		writeError(w, log, models.NotFound("fuel card", "x"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, hook.Entries)
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		hook.Reset()
		w := httptest.NewRecorder()
		writeError(w, log, errors.New("disk full"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "disk full")
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})
}

package services

import (
	"errors"
	"testing"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStepError(t *testing.T) {
	err := newStepError("resume", "wf-1", "Review", ErrNodeNotWaiting)

	assert.Equal(t, "resume wf-1/Review: node is not waiting", err.Error())
	assert.ErrorIs(t, err, ErrNodeNotWaiting)
	assert.True(t, IsConflictError(err))

	assert.Equal(t, "start: invalid request", newStepError("start", "", "", ErrInvalidRequest).Error())
	assert.Equal(t, "terminate wf-2: invalid request", newStepError("terminate", "wf-2", "", ErrInvalidRequest).Error())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err        error
		validation bool
		notFound   bool
		conflict   bool
	}{
		{err: ErrInvalidRequest, validation: true},
		{err: &models.ValidationError{DefinitionID: "d"}, validation: true},
		{err: ErrStaleEvent, notFound: true},
		{err: persistence.NewWorkflowError("Get", "wf", persistence.ErrWorkflowNotFound), notFound: true},
		{err: ErrPersistenceConflict, conflict: true},
		{err: ErrWorkflowFinished, conflict: true},
		{err: errors.New("boom")},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.validation, IsValidationError(tt.err), tt.err)
		assert.Equal(t, tt.notFound, IsNotFoundError(tt.err), tt.err)
		assert.Equal(t, tt.conflict, IsConflictError(tt.err), tt.err)
	}
}

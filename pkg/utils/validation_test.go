package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trainingRequest struct {
	Model  string `validate:"required,oneof=gap_detection recommendation"`
	UserID string `validate:"omitempty,min=1,max=128"`
}

func TestValidateStruct_Valid(t *testing.T) {
	require.NoError(t, ValidateStruct(trainingRequest{Model: "gap_detection"}))
}

func TestValidateStruct_MissingRequiredField(t *testing.T) {
	err := ValidateStruct(trainingRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")
}

func TestValidateStruct_OneOfViolation(t *testing.T) {
	err := ValidateStruct(trainingRequest{Model: "clustering"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model must be one of: gap_detection recommendation")
}

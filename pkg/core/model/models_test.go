package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloodType_IsValid(t *testing.T) {
	for _, bt := range AllBloodTypes {
		assert.True(t, bt.IsValid(), "%s should be valid", bt)
	}

	assert.False(t, BloodType("").IsValid())
	assert.False(t, BloodType("C+").IsValid())
	assert.False(t, BloodType("a+").IsValid())
}

func TestRequestStatus_Terminal(t *testing.T) {
	assert.False(t, RequestStatusPending.IsTerminal())
	assert.False(t, RequestStatusMatching.IsTerminal())
	assert.True(t, RequestStatusFulfilled.IsTerminal())
	assert.True(t, RequestStatusCancelled.IsTerminal())

	assert.True(t, RequestStatusPending.IsOpen())
	assert.True(t, RequestStatusMatching.IsOpen())
	assert.False(t, RequestStatusFulfilled.IsOpen())
}

func TestBloodRequest_FindCandidate(t *testing.T) {
	req := &BloodRequest{
		Candidates: []Candidate{
			{DonorID: "d1"},
			{DonorID: "d2"},
		},
	}

	assert.Equal(t, 1, req.FindCandidate("d2"))
	assert.Equal(t, -1, req.FindCandidate("d3"))
}

func TestParseBloodType(t *testing.T) {
	bt, err := ParseBloodType(" ab- ")
	assert.NoError(t, err)
	assert.Equal(t, BloodTypeABNeg, bt)

	_, err = ParseBloodType("Z+")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

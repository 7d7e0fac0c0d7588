package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivityValidate(t *testing.T) {
	err := Activity{Action: "request.accept", EntityType: "request"}.Validate()
	require.ErrorIs(t, err, ErrInvalidActivity)

	require.NoError(t, Activity{Action: "request.accept", EntityType: "request", EntityID: "req-1"}.Validate())
}

func TestActivityLoggerWithoutPool(t *testing.T) {
	var logger *ActivityLogger
	require.Error(t, logger.Record(context.Background(), Activity{Action: "a", EntityType: "b", EntityID: "c"}))
}

package dynamodb

import (
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecentPerformanceQuery_BoundsSortKeyRange(t *testing.T) {
	repo := NewAnalyticsRepository(nil, "analytics", "ActivityIndex", zap.NewNop())
	since := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	input, err := repo.recentPerformanceQuery("u1", since)
	require.NoError(t, err)

	require.NotNil(t, input.KeyConditionExpression)
	assert.Contains(t, *input.KeyConditionExpression, "BETWEEN")

	values := make([]string, 0, len(input.ExpressionAttributeValues))
	for _, av := range input.ExpressionAttributeValues {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			values = append(values, s.Value)
		}
	}
	assert.Contains(t, values, "USER#u1")
	assert.Contains(t, values, "PERF#2026-07-01T00:00:00Z")
	assert.Contains(t, values, "PERF#￿")

	// Every sort-key bound stays inside the PERF# keyspace; other item types
	// in the partition must not match.
	for _, v := range values {
		if v == "USER#u1" {
			continue
		}
		assert.True(t, strings.HasPrefix(v, "PERF#"))
	}
}

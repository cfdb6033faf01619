// Package dynamodb implements the persistence ports against a single-table
// DynamoDB layout. Per-user items share a USER#<id> partition; the activity
// GSI supports the cross-user queries the schedulers and trainers need.
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"learnlytics-backend/domain/analytics"
	"learnlytics-backend/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Item key prefixes for the single-table layout.
const (
	userPartitionPrefix = "USER#"
	performanceSKPrefix = "PERF#"
	gapSKPrefix         = "GAP#"
	recommendationSKPfx = "REC#"
	profileSK           = "PROFILE"

	// Activity GSI partitions. Submissions and profiles share the index
	// with distinct partition values.
	activityPartitionSubmissions = "SUBMISSION"
	activityPartitionLogins      = "USER_ACTIVITY"
)

// AnalyticsRepository implements the performance, insights and user ports
// against DynamoDB.
type AnalyticsRepository struct {
	client        *dynamodb.Client
	tableName     string
	activityIndex string
	logger        *zap.Logger
}

// NewAnalyticsRepository creates the repository over the given table and
// activity GSI.
func NewAnalyticsRepository(client *dynamodb.Client, tableName, activityIndex string, logger *zap.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		client:        client,
		tableName:     tableName,
		activityIndex: activityIndex,
		logger:        logger,
	}
}

// performanceItem is the DynamoDB item for one graded submission.
type performanceItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	GSI1PK      string   `dynamodbav:"GSI1PK"`
	GSI1SK      string   `dynamodbav:"GSI1SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	UserID      string   `dynamodbav:"UserID"`
	Score       float64  `dynamodbav:"Score"`
	MaxScore    float64  `dynamodbav:"MaxScore"`
	ConceptTags []string `dynamodbav:"ConceptTags,omitempty"`
	SubmittedAt string   `dynamodbav:"SubmittedAt"`
}

// gapItem is the DynamoDB item for one stored learning gap.
type gapItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	EntityType string  `dynamodbav:"EntityType"`
	UserID     string  `dynamodbav:"UserID"`
	ConceptID  string  `dynamodbav:"ConceptID"`
	Severity   float64 `dynamodbav:"Severity"`
	DetectedAt string  `dynamodbav:"DetectedAt"`
}

// recommendationItem is the DynamoDB item for one stored recommendation.
type recommendationItem struct {
	PK            string  `dynamodbav:"PK"`
	SK            string  `dynamodbav:"SK"`
	EntityType    string  `dynamodbav:"EntityType"`
	UserID        string  `dynamodbav:"UserID"`
	ResourceID    string  `dynamodbav:"ResourceID"`
	ResourceType  string  `dynamodbav:"ResourceType"`
	ConceptID     string  `dynamodbav:"ConceptID,omitempty"`
	PriorityScore float64 `dynamodbav:"PriorityScore"`
	Completed     bool    `dynamodbav:"Completed"`
}

// profileItem is the slice of the user profile item the schedulers read.
type profileItem struct {
	UserID    string `dynamodbav:"UserID"`
	LastLogin string `dynamodbav:"GSI1SK"`
}

// FetchRecentPerformance returns a user's submissions since the given time,
// newest last.
func (r *AnalyticsRepository) FetchRecentPerformance(ctx context.Context, userID string, since time.Time) ([]analytics.PerformanceRecord, error) {
	input, err := r.recentPerformanceQuery(userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance records: %w", err)
	}

	records := make([]analytics.PerformanceRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var pi performanceItem
		if err := attributevalue.UnmarshalMap(item, &pi); err != nil {
			r.logger.Warn("Failed to parse performance item", zap.Error(err))
			continue
		}
		record, err := pi.toRecord()
		if err != nil {
			r.logger.Warn("Skipping malformed performance item",
				zap.String("sk", pi.SK),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// recentPerformanceQuery builds the per-user submissions query. Gap,
// recommendation and profile items share the partition, so the sort-key range
// is bounded to the PERF# keyspace instead of open-ended.
func (r *AnalyticsRepository) recentPerformanceQuery(userID string, since time.Time) (*dynamodb.QueryInput, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(userPartitionPrefix + userID)).
		And(expression.Key("SK").Between(
			expression.Value(performanceSKPrefix+utils.FormatRFC3339(since)),
			expression.Value(performanceSKPrefix+"￿"),
		))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, err
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// FetchTrainingRecords returns recent submissions across all users via the
// activity GSI, capped at limit.
func (r *AnalyticsRepository) FetchTrainingRecords(ctx context.Context, since time.Time, limit int) ([]analytics.PerformanceRecord, error) {
	keyEx := expression.Key("GSI1PK").Equal(expression.Value(activityPartitionSubmissions)).
		And(expression.Key("GSI1SK").GreaterThanEqual(expression.Value(utils.FormatRFC3339(since))))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.activityIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query training records: %w", err)
	}

	records := make([]analytics.PerformanceRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var pi performanceItem
		if err := attributevalue.UnmarshalMap(item, &pi); err != nil {
			r.logger.Warn("Failed to parse performance item", zap.Error(err))
			continue
		}
		record, err := pi.toRecord()
		if err != nil {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// CurrentGaps returns a user's stored gaps at or above minSeverity, ordered
// by severity descending and capped at limit. The per-user gap set is small
// so ranking happens client-side.
func (r *AnalyticsRepository) CurrentGaps(ctx context.Context, userID string, minSeverity float64, limit int) ([]analytics.LearningGap, error) {
	items, err := r.queryUserItems(ctx, userID, gapSKPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaps: %w", err)
	}

	gaps := make([]analytics.LearningGap, 0, len(items))
	for _, item := range items {
		var gi gapItem
		if err := attributevalue.UnmarshalMap(item, &gi); err != nil {
			r.logger.Warn("Failed to parse gap item", zap.Error(err))
			continue
		}
		if gi.Severity < minSeverity {
			continue
		}
		detectedAt, _ := utils.ParseRFC3339(gi.DetectedAt)
		gaps = append(gaps, analytics.LearningGap{
			ConceptID:  gi.ConceptID,
			Severity:   gi.Severity,
			DetectedAt: detectedAt,
		})
	}

	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Severity > gaps[j].Severity })
	if limit > 0 && len(gaps) > limit {
		gaps = gaps[:limit]
	}
	return gaps, nil
}

// ActiveRecommendations returns a user's stored, not-completed
// recommendations ordered by priority score descending, capped at limit.
func (r *AnalyticsRepository) ActiveRecommendations(ctx context.Context, userID string, limit int) ([]analytics.Recommendation, error) {
	items, err := r.queryUserItems(ctx, userID, recommendationSKPfx)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}

	recs := make([]analytics.Recommendation, 0, len(items))
	for _, item := range items {
		var ri recommendationItem
		if err := attributevalue.UnmarshalMap(item, &ri); err != nil {
			r.logger.Warn("Failed to parse recommendation item", zap.Error(err))
			continue
		}
		if ri.Completed {
			continue
		}
		recs = append(recs, analytics.Recommendation{
			ResourceID:    ri.ResourceID,
			ResourceType:  ri.ResourceType,
			ConceptID:     ri.ConceptID,
			PriorityScore: ri.PriorityScore,
		})
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].PriorityScore > recs[j].PriorityScore })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// ActiveUsersSince returns IDs of users whose last login is at or after the
// cutoff, via the activity GSI.
func (r *AnalyticsRepository) ActiveUsersSince(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	keyEx := expression.Key("GSI1PK").Equal(expression.Value(activityPartitionLogins)).
		And(expression.Key("GSI1SK").GreaterThanEqual(expression.Value(utils.FormatRFC3339(cutoff))))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.activityIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}

	userIDs := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		var pi profileItem
		if err := attributevalue.UnmarshalMap(item, &pi); err != nil {
			r.logger.Warn("Failed to parse profile item", zap.Error(err))
			continue
		}
		if pi.UserID != "" {
			userIDs = append(userIDs, pi.UserID)
		}
	}

	return userIDs, nil
}

// queryUserItems queries one user's partition for items under an SK prefix.
func (r *AnalyticsRepository) queryUserItems(ctx context.Context, userID, skPrefix string) ([]map[string]types.AttributeValue, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(userPartitionPrefix + userID)).
		And(expression.Key("SK").BeginsWith(skPrefix))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (pi performanceItem) toRecord() (analytics.PerformanceRecord, error) {
	submittedAt, err := utils.ParseRFC3339(pi.SubmittedAt)
	if err != nil {
		return analytics.PerformanceRecord{}, fmt.Errorf("invalid SubmittedAt: %w", err)
	}
	return analytics.PerformanceRecord{
		UserID:      pi.UserID,
		Score:       pi.Score,
		MaxScore:    pi.MaxScore,
		ConceptTags: pi.ConceptTags,
		SubmittedAt: submittedAt,
	}, nil
}

package kinesis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace-catalog/internal/search"
)

func validIntentImage() map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":          events.NewStringAttribute("intent-123"),
		"kind":        events.NewStringAttribute("add"),
		"product_id":  events.NewNumberAttribute("456"),
		"section_id":  events.NewNumberAttribute("3"),
		"doc":         events.NewStringAttribute(`{"id":456,"section_id":3,"title":"Phone"}`),
		"occurred_at": events.NewStringAttribute("2024-01-15T10:30:00.123456789Z"),
	}
}

func TestConvertDynamoDBImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{
			name:    "valid intent",
			image:   validIntentImage(),
			wantErr: false,
		},
		{
			name:    "nil image",
			image:   nil,
			wantErr: true,
		},
		{
			name: "missing required fields",
			image: map[string]events.DynamoDBAttributeValue{
				"id": events.NewStringAttribute("intent-123"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := convertDynamoDBImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, intent)
			assert.Equal(t, "intent-123", intent.ID)
			assert.Equal(t, search.IntentAdd, intent.Kind)
			assert.Equal(t, int64(456), intent.ProductID)
			assert.Equal(t, int64(3), intent.SectionID)
			require.NotNil(t, intent.Doc)
			assert.Equal(t, "Phone", intent.Doc.Title)
		})
	}
}

func TestConvertDynamoDBImage_Patch(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id":          events.NewStringAttribute("intent-124"),
		"kind":        events.NewStringAttribute("update"),
		"product_id":  events.NewNumberAttribute("456"),
		"section_id":  events.NewNumberAttribute("3"),
		"patch":       events.NewStringAttribute(`{"id":456,"section_id":3,"group_id":50}`),
		"occurred_at": events.NewStringAttribute(time.Now().Format(time.RFC3339Nano)),
	}

	intent, err := convertDynamoDBImage(image)

	require.NoError(t, err)
	assert.Equal(t, search.IntentUpdate, intent.Kind)
	require.NotNil(t, intent.Patch)
	require.NotNil(t, intent.Patch.GroupID)
	assert.Equal(t, int64(50), *intent.Patch.GroupID)
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("INSERT record converts successfully", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: validIntentImage(),
			},
		}

		intent, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, intent)
		assert.Equal(t, "intent-123", intent.ID)
	})

	t.Run("MODIFY record returns nil", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "MODIFY",
		}

		intent, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		assert.Nil(t, intent)
	})

	t.Run("REMOVE record returns nil", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "REMOVE",
		}

		intent, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		assert.Nil(t, intent)
	})
}

func TestConvertFromKinesisRecord(t *testing.T) {
	t.Run("valid Kinesis record", func(t *testing.T) {
		dynamoRecord := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: validIntentImage(),
			},
		}

		dynamoRecordJSON, err := json.Marshal(dynamoRecord)
		require.NoError(t, err)

		kinesisRecord := events.KinesisEventRecord{
			EventID: "kinesis-event-1",
			Kinesis: events.KinesisRecord{
				Data: dynamoRecordJSON,
			},
		}

		intent, err := ConvertFromKinesisRecord(kinesisRecord)
		require.NoError(t, err)
		require.NotNil(t, intent)
		assert.Equal(t, "intent-123", intent.ID)
	})
}

func TestBatchConvertFromKinesisEvent(t *testing.T) {
	t.Run("batch conversion with mixed results", func(t *testing.T) {
		validRecord := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				NewImage: validIntentImage(),
			},
		}
		validJSON, _ := json.Marshal(validRecord)

		modifyRecord := events.DynamoDBEventRecord{
			EventName: "MODIFY",
		}
		modifyJSON, _ := json.Marshal(modifyRecord)

		kinesisEvent := events.KinesisEvent{
			Records: []events.KinesisEventRecord{
				{EventID: "1", Kinesis: events.KinesisRecord{Data: validJSON}},
				{EventID: "2", Kinesis: events.KinesisRecord{Data: modifyJSON}},
				{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("invalid json")}},
			},
		}

		intents, errors := BatchConvertFromKinesisEvent(kinesisEvent)

		assert.Len(t, intents, 1)
		assert.Len(t, errors, 1)
		assert.Equal(t, "intent-123", intents[0].ID)
	})
}

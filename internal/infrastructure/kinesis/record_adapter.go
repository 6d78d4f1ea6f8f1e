package kinesis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/marketplace-catalog/internal/search"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format)
// to a search.Intent. The intents table is streamed through Kinesis, so the
// lambda receives records in DynamoDB Streams format.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*search.Intent, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}

	// Only process INSERT events (new intents appended to the stream)
	if dynamoDBRecord.EventName != "INSERT" {
		return nil, nil
	}

	return convertDynamoDBImage(dynamoDBRecord.Change.NewImage)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record to a
// search.Intent. This is used when directly consuming from DynamoDB Streams
// (e.g., in tests).
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*search.Intent, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}

	return convertDynamoDBImage(record.Change.NewImage)
}

// convertDynamoDBImage extracts intent fields from DynamoDB attribute values.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*search.Intent, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	intent := &search.Intent{}

	if v, ok := image["id"]; ok {
		intent.ID = v.String()
	}
	if v, ok := image["kind"]; ok {
		intent.Kind = search.IntentKind(v.String())
	}
	if v, ok := image["product_id"]; ok {
		id, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse product_id: %w", err)
		}
		intent.ProductID = id
	}
	if v, ok := image["section_id"]; ok {
		id, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse section_id: %w", err)
		}
		intent.SectionID = id
	}
	if v, ok := image["doc"]; ok && v.DataType() == events.DataTypeString {
		var doc search.Document
		if err := json.Unmarshal([]byte(v.String()), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		intent.Doc = &doc
	}
	if v, ok := image["patch"]; ok && v.DataType() == events.DataTypeString {
		var patch search.Patch
		if err := json.Unmarshal([]byte(v.String()), &patch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal patch: %w", err)
		}
		intent.Patch = &patch
	}
	if v, ok := image["occurred_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse occurred_at: %w", err)
		}
		intent.OccurredAt = t
	}

	// Validate required fields
	if intent.ID == "" || intent.Kind == "" || intent.ProductID == 0 {
		return nil, fmt.Errorf("missing required fields: id=%s, kind=%s, product_id=%d",
			intent.ID, intent.Kind, intent.ProductID)
	}

	return intent, nil
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event to
// search.Intents. Returns successfully converted intents and any errors
// encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*search.Intent, []error) {
	var intents []*search.Intent
	var errors []error

	for _, record := range kinesisEvent.Records {
		intent, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errors = append(errors, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if intent != nil {
			intents = append(intents, intent)
		}
	}

	return intents, errors
}

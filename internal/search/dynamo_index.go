package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/marketplace-catalog/internal/domain/filter"
)

// DynamoIndex implements Index on a DynamoDB table keyed by product id.
// Select scans and filters in process; the table stays small enough per
// deployment that a scan-based alternative backend is acceptable.
type DynamoIndex struct {
	client    *dynamodb.Client
	tableName string

	rootSectionID int64
}

// dynamoDocument is the DynamoDB item structure.
type dynamoDocument struct {
	ID        int64   `dynamodbav:"id"`
	SectionID int64   `dynamodbav:"section_id"`
	GroupID   int64   `dynamodbav:"group_id"`
	ShopID    int64   `dynamodbav:"shop_id"`
	Title     string  `dynamodbav:"title"`
	Text      string  `dynamodbav:"text"`
	Facets    string  `dynamodbav:"facets"`
	Status    int     `dynamodbav:"status"`
	Weight    int64   `dynamodbav:"weight"`
	Locations []int64 `dynamodbav:"locations,omitemptyelem"`
	Locale    string  `dynamodbav:"locale"`
	Date      string  `dynamodbav:"date"`
}

func NewDynamoIndex(client *dynamodb.Client, tableName string, rootSectionID int64) *DynamoIndex {
	return &DynamoIndex{client: client, tableName: tableName, rootSectionID: rootSectionID}
}

func (ix *DynamoIndex) Add(ctx context.Context, doc Document) error {
	facets, err := json.Marshal(doc.Facets)
	if err != nil {
		return fmt.Errorf("failed to marshal facets: %w", err)
	}

	av, err := attributevalue.MarshalMap(dynamoDocument{
		ID:        doc.ID,
		SectionID: doc.SectionID,
		GroupID:   doc.GroupID,
		ShopID:    doc.ShopID,
		Title:     doc.Title,
		Text:      doc.Text,
		Facets:    string(facets),
		Status:    doc.Status,
		Weight:    doc.Weight,
		Locations: doc.Locations,
		Locale:    doc.Locale,
		Date:      doc.Date.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = ix.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ix.tableName),
		Item:      av,
	})
	return err
}

func (ix *DynamoIndex) Update(ctx context.Context, patch Patch) error {
	expr := ""
	values := map[string]types.AttributeValue{}
	add := func(name string, v int64) {
		if expr != "" {
			expr += ", "
		}
		expr += fmt.Sprintf("%s = :%s", name, name)
		values[":"+name] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", v)}
	}
	if patch.GroupID != nil {
		add("group_id", *patch.GroupID)
	}
	if patch.Status != nil {
		add("status", int64(*patch.Status))
	}
	if patch.Weight != nil {
		add("weight", *patch.Weight)
	}
	if expr == "" {
		return nil
	}

	_, err := ix.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(ix.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", patch.ID)},
		},
		UpdateExpression:          aws.String("SET " + expr),
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(id)"),
	})
	if isConditionFailed(err) {
		// Add not arrived yet; a later replay converges.
		return nil
	}
	return err
}

func (ix *DynamoIndex) Delete(ctx context.Context, sectionID, productID int64) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(ix.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", productID)},
		},
	}
	if sectionID > 0 {
		input.ConditionExpression = aws.String("section_id = :section")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":section": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", sectionID)},
		}
	}

	_, err := ix.client.DeleteItem(ctx, input)
	if isConditionFailed(err) {
		// Already gone or re-added under another section.
		return nil
	}
	return err
}

func (ix *DynamoIndex) Select(ctx context.Context, q Query) ([]int64, error) {
	var matched []Document

	paginator := dynamodb.NewScanPaginator(ix.client, &dynamodb.ScanInput{
		TableName: aws.String(ix.tableName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, av := range page.Items {
			var dd dynamoDocument
			if err := attributevalue.UnmarshalMap(av, &dd); err != nil {
				continue
			}
			doc, err := dd.toDocument()
			if err != nil {
				continue
			}
			if matchesQuery(doc, q, ix.rootSectionID) {
				matched = append(matched, doc)
			}
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return lessByOrder(matched[i], matched[j], q.Order)
	})

	ids := make([]int64, 0, len(matched))
	for _, doc := range matched {
		ids = append(ids, doc.ID)
	}
	return paginate(ids, q), nil
}


func (dd dynamoDocument) toDocument() (Document, error) {
	doc := Document{
		ID:        dd.ID,
		SectionID: dd.SectionID,
		GroupID:   dd.GroupID,
		ShopID:    dd.ShopID,
		Title:     dd.Title,
		Text:      dd.Text,
		Status:    dd.Status,
		Weight:    dd.Weight,
		Locations: dd.Locations,
		Locale:    dd.Locale,
	}
	if dd.Facets != "" {
		facets := map[string]filter.Value{}
		if err := json.Unmarshal([]byte(dd.Facets), &facets); err != nil {
			return Document{}, err
		}
		doc.Facets = facets
	}
	if dd.Date != "" {
		t, err := time.Parse(time.RFC3339Nano, dd.Date)
		if err != nil {
			return Document{}, err
		}
		doc.Date = t
	}
	return doc, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-shoplist/internal/aws"
	"github.com/imrishuroy/go-shoplist/internal/items"
)

// counterID is the key of the row holding the id sequence; item ids start at 1.
const counterID = 0

// record is the shape persisted in the items table. purchased is kept as 0/1
// so it can be flipped with arithmetic in a single UpdateItem.
type record struct {
	ID        int64     `dynamodbav:"id"` // PK
	Name      string    `dynamodbav:"name"`
	Quantity  int       `dynamodbav:"quantity"`
	Unit      string    `dynamodbav:"unit"`
	Purchased int       `dynamodbav:"purchased"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

func (r record) item() items.Item {
	return items.Item{
		ID:        r.ID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Unit:      r.Unit,
		Purchased: r.Purchased != 0,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Store is an items.Store on a DynamoDB table keyed by numeric "id".
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

var _ items.Store = (*Store)(nil)

// NewStore creates a Store bound to tableName.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

// nextID atomically increments the sequence row. Ids are never handed out twice.
func (s *Store) nextID(ctx context.Context) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              key(counterID),
		UpdateExpression: awsString("SET next_id = if_not_exists(next_id, :zero) + :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":one":  &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment id sequence: %w", err)
	}
	var id int64
	if err := attributevalue.Unmarshal(out.Attributes["next_id"], &id); err != nil {
		return 0, fmt.Errorf("unmarshal id sequence: %w", err)
	}
	return id, nil
}

// Insert allocates an id and writes the record.
func (s *Store) Insert(ctx context.Context, in items.NewItem) (items.Item, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return items.Item{}, err
	}
	now := s.nowFunc()
	rec := record{
		ID:        id,
		Name:      in.Name,
		Quantity:  in.Quantity,
		Unit:      in.Unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Purchased != nil && *in.Purchased {
		rec.Purchased = 1
	}

	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return items.Item{}, fmt.Errorf("marshal item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     av,
		ConditionExpression:      awsString("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if err != nil {
		return items.Item{}, fmt.Errorf("put item: %w", err)
	}
	return rec.item(), nil
}

// Get fetches an item by id.
func (s *Store) Get(ctx context.Context, id int64) (items.Item, error) {
	if id <= counterID {
		return items.Item{}, items.ErrNotFound
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(id),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return items.Item{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return items.Item{}, items.ErrNotFound
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return items.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return rec.item(), nil
}

func (s *Store) scanInput(f items.Filter) *dyn.ScanInput {
	expr := "#id > :counter"
	values := map[string]types.AttributeValue{
		":counter": &types.AttributeValueMemberN{Value: strconv.Itoa(counterID)},
	}
	names := map[string]string{"#id": "id"}
	if f.Purchased != nil {
		expr += " AND #p = :p"
		names["#p"] = "purchased"
		values[":p"] = &types.AttributeValueMemberN{Value: strconv.Itoa(boolToInt(*f.Purchased))}
	}
	return &dyn.ScanInput{
		TableName:                 &s.tableName,
		FilterExpression:          &expr,
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            awsBool(true),
	}
}

// List scans the table and sorts in memory. Unfiltered: unpurchased first, then newest first.
func (s *Store) List(ctx context.Context, f items.Filter) ([]items.Item, error) {
	list := []items.Item{}
	p := dyn.NewScanPaginator(s.client, s.scanInput(f))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan items: %w", err)
		}
		var recs []record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, r := range recs {
			list = append(list, r.item())
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if f.Purchased == nil && a.Purchased != b.Purchased {
			return !a.Purchased
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return list, nil
}

// Count scans with Select=COUNT.
func (s *Store) Count(ctx context.Context, f items.Filter) (int, error) {
	in := s.scanInput(f)
	in.Select = types.SelectCount

	total := 0
	p := dyn.NewScanPaginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count items: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// Update sets only the supplied fields plus updated_at, guarded by attribute_exists.
func (s *Store) Update(ctx context.Context, id int64, p items.Patch) (items.Item, error) {
	set := "SET #ua = :ua"
	names := map[string]string{"#id": "id", "#ua": "updated_at"}
	values := map[string]types.AttributeValue{}

	add := func(attr string, v types.AttributeValue) {
		set += fmt.Sprintf(", #%s = :%s", attr, attr)
		names["#"+attr] = attr
		values[":"+attr] = v
	}
	if p.Name != nil {
		add("name", &types.AttributeValueMemberS{Value: *p.Name})
	}
	if p.Quantity != nil {
		add("quantity", &types.AttributeValueMemberN{Value: strconv.Itoa(*p.Quantity)})
	}
	if p.Unit != nil {
		add("unit", &types.AttributeValueMemberS{Value: *p.Unit})
	}
	if p.Purchased != nil {
		add("purchased", &types.AttributeValueMemberN{Value: strconv.Itoa(boolToInt(*p.Purchased))})
	}
	return s.updateReturning(ctx, "update item", id, set, names, values)
}

// TogglePurchased flips purchased (0/1) with arithmetic in a single conditional write.
func (s *Store) TogglePurchased(ctx context.Context, id int64) (items.Item, error) {
	names := map[string]string{"#id": "id", "#ua": "updated_at", "#p": "purchased"}
	values := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
	}
	return s.updateReturning(ctx, "toggle item", id, "SET #p = :one - #p, #ua = :ua", names, values)
}

func (s *Store) updateReturning(ctx context.Context, op string, id int64, expr string, names map[string]string, values map[string]types.AttributeValue) (items.Item, error) {
	if id <= counterID {
		return items.Item{}, items.ErrNotFound
	}
	ua, err := attributevalue.Marshal(s.nowFunc())
	if err != nil {
		return items.Item{}, fmt.Errorf("marshal updated_at: %w", err)
	}
	values[":ua"] = ua

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       key(id),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return items.Item{}, items.ErrNotFound
		}
		return items.Item{}, fmt.Errorf("%s: %w", op, err)
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return items.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return rec.item(), nil
}

// Delete reports whether the item existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= counterID {
		return false, nil
	}
	out, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName:    &s.tableName,
		Key:          key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

func isConditionFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}

func key(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }

package dynamostore

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory table keyed by the numeric "id" attribute.
// It understands exactly the expressions the Store issues; it is not a general evaluator.
type mockDynamo struct {
	mu       sync.Mutex
	table    map[int64]map[string]types.AttributeValue
	pageSize int
	scans    int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{table: map[int64]map[string]types.AttributeValue{}}
}

func numAttr(av types.AttributeValue) int64 {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return -1
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}

func keyOf(k map[string]types.AttributeValue) (int64, error) {
	av, ok := k["id"]
	if !ok {
		return 0, errors.New("missing id key")
	}
	return numAttr(av), nil
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(#id)" {
		if _, exists := m.table[id]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[id] = clone(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[id]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(item)}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	expr := *params.UpdateExpression

	// id sequence: SET next_id = if_not_exists(next_id, :zero) + :one
	if strings.Contains(expr, "if_not_exists(next_id") {
		item, ok := m.table[id]
		if !ok {
			item = map[string]types.AttributeValue{"id": params.Key["id"]}
		}
		next := int64(1)
		if cur, ok := item["next_id"]; ok {
			next = numAttr(cur) + 1
		}
		item["next_id"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)}
		m.table[id] = item
		return &dyn.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"next_id": item["next_id"]}}, nil
	}

	item, ok := m.table[id]
	if !ok {
		if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_exists(#id)" {
			return nil, &types.ConditionalCheckFailedException{}
		}
		return nil, errors.New("item not found")
	}
	item = clone(item)

	// toggle: SET #p = :one - #p, ...
	if strings.Contains(expr, ":one - #p") {
		item["purchased"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(1-numAttr(item["purchased"]), 10)}
	}
	for placeholder, attr := range params.ExpressionAttributeNames {
		if attr == "id" {
			continue
		}
		if v, ok := params.ExpressionAttributeValues[":"+strings.TrimPrefix(placeholder, "#")]; ok {
			item[attr] = v
		}
	}
	m.table[id] = item
	return &dyn.UpdateItemOutput{Attributes: clone(item)}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	old, ok := m.table[id]
	if !ok {
		return &dyn.DeleteItemOutput{}, nil
	}
	delete(m.table, id)
	return &dyn.DeleteItemOutput{Attributes: old}, nil
}

// Scan supports the "#id > :counter [AND #p = :p]" filter, Select=COUNT and paging by pageSize.
func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++

	var keys []int64
	for id := range m.table {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	start := int64(-1)
	if params.ExclusiveStartKey != nil {
		start, _ = keyOf(params.ExclusiveStartKey)
	}
	counter := numAttr(params.ExpressionAttributeValues[":counter"])
	wantP, filterP := params.ExpressionAttributeValues[":p"]

	out := &dyn.ScanOutput{}
	scanned := 0
	for _, id := range keys {
		if id <= start {
			continue
		}
		if m.pageSize > 0 && scanned == m.pageSize {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(keys[indexOf(keys, id)-1], 10)},
			}
			break
		}
		scanned++
		item := m.table[id]
		if id <= counter {
			continue
		}
		if filterP && numAttr(item["purchased"]) != numAttr(wantP) {
			continue
		}
		out.Count++
		if params.Select != types.SelectCount {
			out.Items = append(out.Items, clone(item))
		}
	}
	return out, nil
}

func indexOf(keys []int64, id int64) int {
	for i, k := range keys {
		if k == id {
			return i
		}
	}
	return -1
}

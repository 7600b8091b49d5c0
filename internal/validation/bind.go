package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// body is a decoded JSON object. Numbers stay json.Number so integral
// exponent forms such as 1e1 are accepted as quantities.
type body map[string]interface{}

// BindNewItem decodes the request body into a NewItem. Shape problems come
// back as *items.ValidationError; value rules are left to the items Service.
// A null field on create is treated as missing.
func BindNewItem(c *gin.Context) (items.NewItem, error) {
	b, err := decodeBody(c.Request.Body)
	if err != nil {
		return items.NewItem{}, err
	}

	var in items.NewItem
	if s, err := b.str("name", true); err != nil {
		return items.NewItem{}, err
	} else if s != nil {
		in.Name = *s
	}
	if n, err := b.integer("quantity", true); err != nil {
		return items.NewItem{}, err
	} else if n != nil {
		in.Quantity = *n
	}
	if s, err := b.str("unit", true); err != nil {
		return items.NewItem{}, err
	} else if s != nil {
		in.Unit = *s
	}
	if in.Purchased, err = b.boolean("purchased"); err != nil {
		return items.NewItem{}, err
	}
	return in, nil
}

// BindPatch decodes the request body into a Patch. Absent fields stay nil;
// an explicit null for name, quantity or unit is rejected.
func BindPatch(c *gin.Context) (items.Patch, error) {
	b, err := decodeBody(c.Request.Body)
	if err != nil {
		return items.Patch{}, err
	}

	var p items.Patch
	if p.Name, err = b.str("name", false); err != nil {
		return items.Patch{}, err
	}
	if p.Quantity, err = b.integer("quantity", false); err != nil {
		return items.Patch{}, err
	}
	if p.Unit, err = b.str("unit", false); err != nil {
		return items.Patch{}, err
	}
	if p.Purchased, err = b.boolean("purchased"); err != nil {
		return items.Patch{}, err
	}
	return p, nil
}

func decodeBody(r io.Reader) (body, error) {
	if r == nil {
		return nil, invalidBody(io.EOF)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, invalidBody(err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var b body
	if err := dec.Decode(&b); err != nil {
		return nil, invalidBody(err)
	}
	if b == nil {
		return nil, invalidBody(errors.New("body must be a JSON object"))
	}
	if dec.More() {
		return nil, invalidBody(errors.New("unexpected data after the JSON object"))
	}
	return b, nil
}

func invalidBody(err error) error {
	if errors.Is(err, io.EOF) {
		err = errors.New("empty body")
	}
	return &items.ValidationError{Message: "invalid request body: " + err.Error()}
}

func fieldErr(field, msg string) error {
	return &items.ValidationError{Field: field, Message: msg}
}

// str returns nil when field is absent, or null and nullOK.
func (b body) str(field string, nullOK bool) (*string, error) {
	v, present := b[field]
	if !present {
		return nil, nil
	}
	switch s := v.(type) {
	case nil:
		if nullOK {
			return nil, nil
		}
		return nil, fieldErr(field, "must not be null")
	case string:
		return &s, nil
	default:
		return nil, fieldErr(field, "must be a string")
	}
}

func (b body) integer(field string, nullOK bool) (*int, error) {
	v, present := b[field]
	if !present {
		return nil, nil
	}
	switch num := v.(type) {
	case nil:
		if nullOK {
			return nil, nil
		}
		return nil, fieldErr(field, "must not be null")
	case json.Number:
		n, err := toInt(num)
		if err != nil {
			return nil, fieldErr(field, err.Error())
		}
		return &n, nil
	default:
		return nil, fieldErr(field, "must be an integer")
	}
}

func toInt(num json.Number) (int, error) {
	if i, err := num.Int64(); err == nil {
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, errors.New("is out of range")
		}
		return int(i), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, errors.New("must be an integer")
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errors.New("is out of range")
	}
	return int(f), nil
}

// boolean treats null as absent: purchased has no emptiness rule.
func (b body) boolean(field string) (*bool, error) {
	v, present := b[field]
	if !present || v == nil {
		return nil, nil
	}
	bv, ok := v.(bool)
	if !ok {
		return nil, fieldErr(field, "must be true or false")
	}
	return &bv, nil
}

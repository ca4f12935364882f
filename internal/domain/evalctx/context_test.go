package evalctx

import (
	"testing"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/value"
)

func newTestRequest() *Request {
	req := NewRequest()
	req.AddGroup(&AttributesGroup{
		Category: CategorySubject,
		Attributes: []Attribute{
			{
				Category: CategorySubject,
				ID:       "role",
				DataType: value.TypeString,
				Values:   value.NewBag(value.TypeString, value.MustNew(value.TypeString, "admin")),
			},
		},
	})
	return req
}

func TestGetAttributeFromRequest(t *testing.T) {
	rc := New(newTestRequest(), time.Now())
	bag := rc.GetAttribute(CategorySubject, "role", value.TypeString, "")
	if bag.Size() != 1 || !value.Equal(bag.Values[0], value.MustNew(value.TypeString, "admin")) {
		t.Fatalf("expected bag{admin}, got %v", bag.Values)
	}
}

func TestGetAttributeMissingReturnsEmptyBag(t *testing.T) {
	rc := New(newTestRequest(), time.Now())
	bag := rc.GetAttribute(CategorySubject, "nope", value.TypeString, "")
	if bag.Size() != 0 {
		t.Fatalf("expected empty bag, got %v", bag.Values)
	}
}

type staticFinder struct {
	category, id, dataType string
	bag                    value.Bag
}

func (f staticFinder) FindAttribute(category, id, dataType, issuer string) (value.Bag, bool) {
	if category == f.category && id == f.id && dataType == f.dataType {
		return f.bag, true
	}
	return value.Bag{}, false
}

func TestAttributeFinderChainFallback(t *testing.T) {
	finder := staticFinder{
		category: CategoryResource,
		id:       "owner",
		dataType: value.TypeString,
		bag:      value.NewBag(value.TypeString, value.MustNew(value.TypeString, "alice")),
	}
	rc := New(NewRequest(), time.Now(), finder)
	bag := rc.GetAttribute(CategoryResource, "owner", value.TypeString, "")
	if bag.Size() != 1 || !value.Equal(bag.Values[0], value.MustNew(value.TypeString, "alice")) {
		t.Fatalf("expected finder fallback to produce {alice}, got %v", bag.Values)
	}
}

func TestCurrentDateTimeIsMemoizedPerContext(t *testing.T) {
	rc := New(NewRequest(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	a := rc.CurrentDateTime()
	b := rc.CurrentDateTime()
	if !value.Equal(a, b) {
		t.Fatalf("expected current-dateTime to be stable across calls")
	}
}

func TestCachesAreIndependentAcrossContexts(t *testing.T) {
	req := newTestRequest()
	rc1 := New(req, time.Now())
	rc2 := New(req, time.Now())
	_ = rc1.GetAttribute(CategorySubject, "role", value.TypeString, "")
	if rc2.cache.order.Len() != 0 {
		t.Fatalf("expected rc2's cache to be untouched by rc1's lookups")
	}
}

package evalctx

import (
	"container/list"
	"sync"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/value"
)

// AttributeFinder supplies attribute values the Request itself does not
// carry: environment defaults, AttributeSelector-backed lookups, or a
// custom Policy Information Point. Finders form an ordered chain on the
// RequestContext; the first to report found=true with a non-empty bag
// wins.
type AttributeFinder interface {
	FindAttribute(category, id, dataType, issuer string) (bag value.Bag, found bool)
}

// cacheEntry is one (tuple -> bag) binding in a RequestContext's LRU.
type cacheEntry struct {
	key string
	bag value.Bag
}

// attributeCache is an LRU cache of attribute-lookup results. It is
// constructed fresh per RequestContext, so its keys can never collide
// across concurrent evaluations.
type attributeCache struct {
	mu sync.Mutex
	capacity int
	items map[string]*list.Element
	order *list.List
}

func newAttributeCache(capacity int) *attributeCache {
	return &attributeCache{
		capacity: capacity,
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

func (c *attributeCache) get(key string) (value.Bag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return value.Bag{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).bag, true
}

func (c *attributeCache) put(key string, bag value.Bag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).bag = bag
		return
	}
	elem := c.order.PushFront(&cacheEntry{key: key, bag: bag})
	c.items[key] = elem
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// RequestContext is the per-evaluation handle every expression node
// evaluates against: the parsed Request, the attribute-finder chain,
// and this Context's own attribute cache. A RequestContext is built
// once per PDP.Evaluate call and never shared across requests; nothing
// about its lifetime or identity is visible outside that one call, so
// the cache keyed within it cannot leak between requests.
type RequestContext struct {
	Request *Request
	Finders []AttributeFinder

	cache *attributeCache

	cdtOnce sync.Once
	cdt value.Value
	fixedNow time.Time

	memoMu sync.Mutex
	memo map[string]any
}

// New builds a RequestContext over req, with finders consulted in order
// after the Request's own attributes fail to match. fixedNow is the
// instant used for current_date_time() when the Request supplies no
// environment:current-dateTime attribute.
func New(req *Request, fixedNow time.Time, finders ...AttributeFinder) *RequestContext {
	return &RequestContext{
		Request: req,
		Finders: finders,
		cache: newAttributeCache(256),
		fixedNow: fixedNow,
	}
}

func cacheKey(category, id, dataType, issuer string) string {
	return category + "\x00" + id + "\x00" + dataType + "\x00" + issuer
}

// GetAttribute returns the bag of values for (category, id, dataType)
// whose issuer matches issuer when issuer is non-empty. It first
// consults the Request's own attributes, then each AttributeFinder in
// chain order, returning the first non-empty result. If nothing
// produces a value it returns an empty bag — callers (AttributeDesignator)
// decide whether that is acceptable per mustBePresent.
func (rc *RequestContext) GetAttribute(category, id, dataType, issuer string) value.Bag {
	key := cacheKey(category, id, dataType, issuer)
	if bag, ok := rc.cache.get(key); ok {
		return bag
	}

	bag := rc.lookupFromRequest(category, id, dataType, issuer)
	if bag.Size() == 0 {
		for _, f := range rc.Finders {
			if found, ok := f.FindAttribute(category, id, dataType, issuer); ok && found.Size() > 0 {
				bag = found
				break
			}
		}
	}
	if bag.Type == "" {
		bag = value.EmptyBag(dataType)
	}
	rc.cache.put(key, bag)
	return bag
}

func (rc *RequestContext) lookupFromRequest(category, id, dataType, issuer string) value.Bag {
	g, ok := rc.Request.Groups[category]
	if !ok {
		return value.EmptyBag(dataType)
	}
	var matched []value.Value
	for _, a := range g.Attributes {
		if a.ID != id || a.DataType != dataType {
			continue
		}
		if issuer != "" && a.Issuer != issuer {
			continue
		}
		matched = append(matched, a.Values.Values...)
	}
	return value.Bag{Type: dataType, Values: matched}
}

// Memo returns a value previously stored under key with SetMemo. Used by
// VariableReference to memoize a VariableDefinition's evaluation scoped
// to this one Request.
func (rc *RequestContext) Memo(key string) (any, bool) {
	rc.memoMu.Lock()
	defer rc.memoMu.Unlock()
	v, ok := rc.memo[key]
	return v, ok
}

// SetMemo stores v under key for later Memo lookups on this Context.
func (rc *RequestContext) SetMemo(key string, v any) {
	rc.memoMu.Lock()
	defer rc.memoMu.Unlock()
	if rc.memo == nil {
		rc.memo = make(map[string]any)
	}
	rc.memo[key] = v
}

// GetContent returns the raw <Content> XML fragment for category, used
// by AttributeSelector. The second return is false when the Request
// carries no Content for that category.
func (rc *RequestContext) GetContent(category string) (string, bool) {
	return rc.Request.Content(category)
}

// CurrentDateTime returns the dateTime value fixed for this evaluation:
// the Request's own environment:current-dateTime attribute if present,
// else the Context's fixedNow, computed once and memoized.
func (rc *RequestContext) CurrentDateTime() value.Value {
	rc.cdtOnce.Do(func() {
		bag := rc.lookupFromRequest(CategoryEnvironment, EnvironmentCurrentDateTime, value.TypeDateTime, "")
		if bag.Size() == 1 {
			rc.cdt = bag.Values[0]
			return
		}
		rc.cdt = value.Of(value.TypeDateTime, value.DateTimeVal{T: rc.fixedNow})
	})
	return rc.cdt
}

package querycache

import "fmt"

// ListID is the sentinel tag id representing "the collection as a whole"
// rather than one item.
const ListID = "LIST"

// Tag is a (type, id) label attached to cached query results. Queries declare
// which tags their results provide; mutations declare which tags they
// invalidate. Invalidating a tag marks every live entry that provided it
// stale.
type Tag struct {
	Type string
	ID   string
}

// String renders the tag as "Type:ID".
func (t Tag) String() string {
	return t.Type + ":" + t.ID
}

// ListTag returns the collection-level sentinel tag for a tag type.
func ListTag(typ string) Tag {
	return Tag{Type: typ, ID: ListID}
}

// EntityTag returns the tag for one entity of the given type. The id can be
// any scalar; it is rendered with %v so int64 ids and string ids key alike.
func EntityTag(typ string, id any) Tag {
	return Tag{Type: typ, ID: fmt.Sprintf("%v", id)}
}

// ProvidesEntityList builds a ProvidesTags callback for collection queries:
// one entity tag per returned item plus the collection sentinel. This is the
// list half of the dual-tag policy that lets a list view refresh after a
// single-item mutation.
func ProvidesEntityList[T any](typ string, id func(T) any) func(result, arg any) []Tag {
	return func(result, arg any) []Tag {
		tags := []Tag{ListTag(typ)}
		items, ok := result.([]T)
		if !ok {
			return tags
		}
		for _, item := range items {
			tags = append(tags, EntityTag(typ, id(item)))
		}
		return tags
	}
}

// ProvidesEntityByArg builds a ProvidesTags callback for get-by-id queries
// whose argument is the entity id.
func ProvidesEntityByArg(typ string) func(result, arg any) []Tag {
	return func(result, arg any) []Tag {
		return []Tag{EntityTag(typ, arg)}
	}
}

// InvalidatesList builds an InvalidatesTags callback that touches only the
// collection sentinel, and nothing on failure. This is the policy for create
// mutations: the new item is not yet known to any specific-id entry.
func InvalidatesList(typ string) func(result any, err error, arg any) []Tag {
	return func(result any, err error, arg any) []Tag {
		if err != nil {
			return nil
		}
		return []Tag{ListTag(typ)}
	}
}

// InvalidatesEntityByArg builds an InvalidatesTags callback for mutations
// whose argument is the entity id: the specific-id tag plus the collection
// sentinel, and nothing on failure. This covers both the item view and any
// list view, which is what allows a list to refresh automatically after an
// unrelated single-item edit.
func InvalidatesEntityByArg(typ string) func(result any, err error, arg any) []Tag {
	return func(result any, err error, arg any) []Tag {
		if err != nil {
			return nil
		}
		return []Tag{EntityTag(typ, arg), ListTag(typ)}
	}
}

// dedupeTags removes duplicates while preserving first-seen order.
func dedupeTags(tags []Tag) []Tag {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[Tag]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tagsIntersect reports whether any tag in tags is present in set.
func tagsIntersect(tags []Tag, set map[Tag]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

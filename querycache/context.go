package querycache

import "context"

type extraTagsContextKey struct{}

// WithExtraTags attaches additional provided tags to the context. A query
// resolved under that context provides these tags on top of whatever its
// ProvidesTags callback reports, so callers can opt specific reads into
// broader invalidation groups.
func WithExtraTags(ctx context.Context, tags ...Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := append(ExtraTagsFrom(ctx), tags...)
	combined = dedupeTags(combined)
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, extraTagsContextKey{}, combined)
}

// ExtraTagsFrom returns a copy of the tags attached via WithExtraTags.
func ExtraTagsFrom(ctx context.Context) []Tag {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(extraTagsContextKey{}).([]Tag); ok {
		return append([]Tag(nil), tags...)
	}
	return nil
}

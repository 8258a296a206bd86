package access

// Viewer is the resolved identity evaluating a piece of content.
// Elevated viewers (staff/superuser) bypass category gating entirely.
type Viewer struct {
	Authenticated bool
	Elevated      bool
	Categories    []string
}

// Content is the category set assigned to a content item.
// An empty set means the item is public.
type Content struct {
	Categories []string
}

// CanView decides whether viewer may see content. The rules are
// evaluated in order and the first match decides:
//  1. content has no categories: allow (public)
//  2. viewer unauthenticated: deny
//  3. viewer elevated: allow
//  4. viewer and content share a category: allow
//  5. otherwise: deny
//
// Denial is a normal boolean outcome; the caller decides how to
// render the refusal.
func CanView(viewer Viewer, content Content) bool {
	if len(content.Categories) == 0 {
		return true
	}

	if !viewer.Authenticated {
		return false
	}

	if viewer.Elevated {
		return true
	}

	gated := make(map[string]struct{}, len(content.Categories))
	for _, slug := range content.Categories {
		gated[slug] = struct{}{}
	}

	for _, slug := range viewer.Categories {
		if _, ok := gated[slug]; ok {
			return true
		}
	}

	return false
}

// Package domain defines the paper model, the error taxonomy shared by every
// layer, and validation for values entering the service.
package domain

// Paper is a stored academic paper. Title acts as the identity key for
// delete and update, but duplicate titles are allowed.
type Paper struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     int    `json:"year"`
}

// Ref returns the title/year projection of the paper.
func (p Paper) Ref() PaperRef {
	return PaperRef{Title: p.Title, Year: p.Year}
}

// PaperRef is the short form of a paper returned by fetch and QA responses.
type PaperRef struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// PaperPatch is a partial property set applied by update-by-title.
// Nil fields are left untouched.
type PaperPatch struct {
	Title    *string `json:"title,omitempty"`
	Abstract *string `json:"abstract,omitempty"`
	Year     *int    `json:"year,omitempty"`
}

// IsEmpty reports whether the patch sets no property.
func (p PaperPatch) IsEmpty() bool {
	return p.Title == nil && p.Abstract == nil && p.Year == nil
}

// Props returns the set properties keyed by their stored names.
func (p PaperPatch) Props() map[string]any {
	props := make(map[string]any, 3)
	if p.Title != nil {
		props["title"] = *p.Title
	}
	if p.Abstract != nil {
		props["abstract"] = *p.Abstract
	}
	if p.Year != nil {
		props["year"] = int64(*p.Year)
	}
	return props
}

// Apply returns paper with the patch's properties overlaid.
func (p PaperPatch) Apply(paper Paper) Paper {
	if p.Title != nil {
		paper.Title = *p.Title
	}
	if p.Abstract != nil {
		paper.Abstract = *p.Abstract
	}
	if p.Year != nil {
		paper.Year = *p.Year
	}
	return paper
}

package shopware

// Criteria is the search payload of the Admin API. Nested associations are
// loaded by attaching an empty child criteria under the association name.
type Criteria struct {
	Page           int                  `json:"page,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	TotalCountMode int                  `json:"total-count-mode,omitempty"`
	Filter         []Filter             `json:"filter,omitempty"`
	Associations   map[string]*Criteria `json:"associations,omitempty"`
}

// Filter is one criteria filter clause.
type Filter struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Equals builds an equals filter clause.
func Equals(field string, value any) Filter {
	return Filter{Type: "equals", Field: field, Value: value}
}

// NewCriteria creates an empty criteria with paging applied when set.
func NewCriteria(page, limit int) *Criteria {
	return &Criteria{Page: page, Limit: limit}
}

// WithFilter appends a filter clause and returns the criteria for chaining.
func (c *Criteria) WithFilter(f Filter) *Criteria {
	c.Filter = append(c.Filter, f)
	return c
}

// Association returns the child criteria for name, creating it when absent.
func (c *Criteria) Association(name string) *Criteria {
	if c.Associations == nil {
		c.Associations = make(map[string]*Criteria)
	}
	child, ok := c.Associations[name]
	if !ok {
		child = &Criteria{}
		c.Associations[name] = child
	}
	return child
}

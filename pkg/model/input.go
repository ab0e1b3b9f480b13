package model

import "github.com/m-mizutani/goerr/v2"

// Default page sizes applied when a caller omits the limit field.
const (
	DefaultSearchLimit = 5
	DefaultListLimit   = 10
)

// StoreMemoryInput is the input contract of the store operation.
type StoreMemoryInput struct {
	Text     string
	Type     MemoryType
	Source   string
	Tags     []string
	Metadata Metadata
}

func (x *StoreMemoryInput) Validate() error {
	if x.Text == "" {
		return goerr.New("text must not be empty", goerr.T(ErrTagInvalidInput))
	}
	if err := x.Type.Validate(); err != nil {
		return err
	}
	for _, tag := range x.Tags {
		if tag == "" {
			return goerr.New("tags must not contain empty strings",
				goerr.T(ErrTagInvalidInput))
		}
	}
	return x.Metadata.Validate()
}

// SearchFilters narrows search results. Present fields are ANDed together;
// an absent field applies no constraint.
type SearchFilters struct {
	Type   MemoryType
	Source string
	Tags   []string
}

// Empty reports whether no filter field is set.
func (f *SearchFilters) Empty() bool {
	return f.Type == "" && f.Source == "" && len(f.Tags) == 0
}

func (f *SearchFilters) Validate() error {
	if f.Type != "" {
		if err := f.Type.Validate(); err != nil {
			return err
		}
	}
	for _, tag := range f.Tags {
		if tag == "" {
			return goerr.New("filter tags must not contain empty strings",
				goerr.T(ErrTagInvalidInput))
		}
	}
	return nil
}

// SearchMemoryInput is the input contract of the search operation. A zero
// Limit means "use DefaultSearchLimit".
type SearchMemoryInput struct {
	Query   string
	Limit   int
	Filters SearchFilters
}

func (x *SearchMemoryInput) Validate() error {
	if x.Query == "" {
		return goerr.New("query must not be empty", goerr.T(ErrTagInvalidInput))
	}
	if x.Limit < 0 {
		return goerr.New("limit must be a positive integer",
			goerr.T(ErrTagInvalidInput),
			goerr.V("limit", x.Limit))
	}
	return x.Filters.Validate()
}

// ListMemoriesInput is the input contract of the list operation. A zero
// Limit means "use DefaultListLimit".
type ListMemoriesInput struct {
	Type   MemoryType
	Source string
	Limit  int
	Offset int
}

func (x *ListMemoriesInput) Validate() error {
	if x.Type != "" {
		if err := x.Type.Validate(); err != nil {
			return err
		}
	}
	if x.Limit < 0 {
		return goerr.New("limit must be a positive integer",
			goerr.T(ErrTagInvalidInput),
			goerr.V("limit", x.Limit))
	}
	if x.Offset < 0 {
		return goerr.New("offset must not be negative",
			goerr.T(ErrTagInvalidInput),
			goerr.V("offset", x.Offset))
	}
	return nil
}

// DeleteMemoryInput is the input contract of the delete operation.
type DeleteMemoryInput struct {
	MemoryID MemoryID
}

func (x *DeleteMemoryInput) Validate() error {
	if x.MemoryID <= 0 {
		return goerr.New("memory_id must be a positive integer",
			goerr.T(ErrTagInvalidInput),
			goerr.V("memory_id", int64(x.MemoryID)))
	}
	return nil
}

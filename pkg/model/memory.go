package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// MemoryID identifies a stored memory. IDs are assigned by the relational
// store on creation and never reused.
type MemoryID int64

// MemoryType is the closed set of category tags for a memory.
type MemoryType string

const (
	MemoryTypeNote     MemoryType = "note"
	MemoryTypeResearch MemoryType = "research"
	MemoryTypeSurvey   MemoryType = "survey"
	MemoryTypeIdea     MemoryType = "idea"
	MemoryTypeDecision MemoryType = "decision"
	MemoryTypeBacklog  MemoryType = "backlog"
	MemoryTypeLearning MemoryType = "learning"
)

// MemoryTypes returns all valid memory types.
func MemoryTypes() []MemoryType {
	return []MemoryType{
		MemoryTypeNote,
		MemoryTypeResearch,
		MemoryTypeSurvey,
		MemoryTypeIdea,
		MemoryTypeDecision,
		MemoryTypeBacklog,
		MemoryTypeLearning,
	}
}

// Validate checks that the type is a member of the closed set.
func (t MemoryType) Validate() error {
	switch t {
	case MemoryTypeNote, MemoryTypeResearch, MemoryTypeSurvey,
		MemoryTypeIdea, MemoryTypeDecision, MemoryTypeBacklog,
		MemoryTypeLearning:
		return nil
	}
	return goerr.New("unknown memory type",
		goerr.T(ErrTagInvalidInput),
		goerr.V("type", string(t)))
}

// Memory is a stored text record. Text, type, source, tags and metadata are
// immutable once stored; deletion is the only mutation after creation.
type Memory struct {
	ID        MemoryID
	Text      string
	Type      MemoryType
	Source    string
	Tags      []string
	Metadata  Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryVector links a memory to its entry in the external vector index.
// The relationship is 1:1; a memory without a MemoryVector is listable but
// unsearchable. A MemoryVector never outlives its Memory.
type MemoryVector struct {
	MemoryID       MemoryID
	VectorID       string
	EmbeddingModel string
	CreatedAt      time.Time
}

// SearchResult pairs a memory with the similarity score of its originating
// vector match.
type SearchResult struct {
	Memory *Memory
	Score  float64
}

// Metadata is an open key-value map attached to a memory. Keys are strings
// and values are restricted to JSON-compatible shapes.
type Metadata map[string]any

// Validate checks that every value is JSON-representable.
func (m Metadata) Validate() error {
	for key, value := range m {
		if key == "" {
			return goerr.New("metadata key must not be empty",
				goerr.T(ErrTagInvalidInput))
		}
		if err := validateMetadataValue(value); err != nil {
			return goerr.Wrap(err, "invalid metadata value",
				goerr.T(ErrTagInvalidInput),
				goerr.V("key", key))
		}
	}
	return nil
}

func validateMetadataValue(value any) error {
	switch v := value.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil

	case []string:
		return nil

	case []any:
		for _, item := range v {
			if err := validateMetadataValue(item); err != nil {
				return err
			}
		}
		return nil

	case map[string]any:
		return Metadata(v).Validate()

	case Metadata:
		return v.Validate()

	default:
		return goerr.New("metadata value is not JSON-compatible",
			goerr.V("go_type", fmt.Sprintf("%T", value)))
	}
}

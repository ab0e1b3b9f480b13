package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/engram/pkg/model"
)

// Input schemas are declared explicitly so the enum constraint on the type
// field is visible to clients, not just enforced server-side.

func memoryTypeEnum() []any {
	types := model.MemoryTypes()
	values := make([]any, len(types))
	for i, t := range types {
		values[i] = string(t)
	}
	return values
}

func typeProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        memoryTypeEnum(),
		Description: desc,
	}
}

func tagsProperty(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: desc,
	}
}

func storeSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"text": {
				Type:        "string",
				Description: "Memory content to store",
			},
			"type":   typeProperty("Category of the memory"),
			"source": {Type: "string", Description: "Where the memory came from"},
			"tags":   tagsProperty("Tags attached to the memory"),
			"metadata": {
				Type:        "object",
				Description: "Arbitrary JSON metadata attached to the memory",
			},
		},
		Required: []string{"text", "type"},
	}
}

func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "Text to search for by semantic similarity",
			},
			"limit": {
				Type:        "integer",
				Description: "Maximum number of results (default: 5)",
			},
			"filters": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"type":   typeProperty("Only return memories of this category"),
					"source": {Type: "string", Description: "Only return memories from this source"},
					"tags":   tagsProperty("Only return memories sharing at least one of these tags"),
				},
			},
		},
		Required: []string{"query"},
	}
}

func listSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"type":   typeProperty("Only list memories of this category"),
			"source": {Type: "string", Description: "Only list memories from this source"},
			"limit": {
				Type:        "integer",
				Description: "Maximum number of results (default: 10)",
			},
			"offset": {
				Type:        "integer",
				Description: "Skip count for pagination (default: 0)",
			},
		},
	}
}

func deleteSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"memory_id": {
				Type:        "integer",
				Description: "ID of the memory to delete",
			},
		},
		Required: []string{"memory_id"},
	}
}

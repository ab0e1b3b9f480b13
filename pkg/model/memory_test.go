package model_test

import (
	"testing"

	"github.com/m-mizutani/engram/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestMemoryTypeValidate(t *testing.T) {
	for _, memType := range model.MemoryTypes() {
		gt.NoError(t, memType.Validate())
	}

	err := model.MemoryType("journal").Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))
}

func TestMetadataValidate(t *testing.T) {
	valid := model.Metadata{
		"project":  "engram",
		"priority": 3,
		"done":     false,
		"ratio":    0.5,
		"labels":   []any{"a", "b"},
		"nested":   map[string]any{"key": "value"},
		"none":     nil,
	}
	gt.NoError(t, valid.Validate())

	invalid := model.Metadata{"callback": func() {}}
	err := invalid.Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))

	emptyKey := model.Metadata{"": "value"}
	gt.Error(t, emptyKey.Validate())
}

func TestStoreMemoryInputValidate(t *testing.T) {
	valid := &model.StoreMemoryInput{
		Text: "the cell has a nucleus",
		Type: model.MemoryTypeNote,
		Tags: []string{"biology"},
	}
	gt.NoError(t, valid.Validate())

	emptyText := &model.StoreMemoryInput{Type: model.MemoryTypeNote}
	err := emptyText.Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))

	badType := &model.StoreMemoryInput{Text: "x", Type: "journal"}
	gt.Error(t, badType.Validate())

	emptyTag := &model.StoreMemoryInput{
		Text: "x",
		Type: model.MemoryTypeNote,
		Tags: []string{"ok", ""},
	}
	gt.Error(t, emptyTag.Validate())
}

func TestSearchMemoryInputValidate(t *testing.T) {
	valid := &model.SearchMemoryInput{Query: "nucleus"}
	gt.NoError(t, valid.Validate())

	emptyQuery := &model.SearchMemoryInput{}
	err := emptyQuery.Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))

	negativeLimit := &model.SearchMemoryInput{Query: "x", Limit: -1}
	gt.Error(t, negativeLimit.Validate())

	badFilter := &model.SearchMemoryInput{
		Query:   "x",
		Filters: model.SearchFilters{Type: "journal"},
	}
	gt.Error(t, badFilter.Validate())
}

func TestListMemoriesInputValidate(t *testing.T) {
	gt.NoError(t, (&model.ListMemoriesInput{}).Validate())
	gt.NoError(t, (&model.ListMemoriesInput{Type: model.MemoryTypeIdea, Limit: 20, Offset: 40}).Validate())

	gt.Error(t, (&model.ListMemoriesInput{Limit: -1}).Validate())
	gt.Error(t, (&model.ListMemoriesInput{Offset: -1}).Validate())
	gt.Error(t, (&model.ListMemoriesInput{Type: "journal"}).Validate())
}

func TestDeleteMemoryInputValidate(t *testing.T) {
	gt.NoError(t, (&model.DeleteMemoryInput{MemoryID: 1}).Validate())

	err := (&model.DeleteMemoryInput{}).Validate()
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, model.ErrTagInvalidInput))

	gt.Error(t, (&model.DeleteMemoryInput{MemoryID: -5}).Validate())
}

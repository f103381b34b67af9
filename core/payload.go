package core

import (
	"fmt"
	"strings"
)

const defaultFieldDataType = "TEXT"

// BuildSyncPayload projects a wizard's template and answers into the
// five operation lists the executor walks. It is pure: no I/O, and the
// same wizard always yields structurally identical output. Template
// order is preserved; answers for blocks the template does not declare
// are ignored.
func BuildSyncPayload(wizard Wizard) SyncPayload {
	payload := SyncPayload{
		CustomFields: []FieldOp{},
		CustomValues: []ValueOp{},
		TriggerLinks: []LinkOp{},
		Tags:         []TagOp{},
		Media:        []MediaOp{},
	}

	for _, page := range wizard.Pages {
		for _, block := range page.Blocks {
			answer := lookupAnswer(wizard.Responses, page.ID, block.ID)
			switch block.Type {
			case BlockTypeCustomField:
				payload.CustomFields = append(payload.CustomFields, buildFieldOp(block, answer))
			case BlockTypeCustomValue:
				if op, ok := buildValueOp(block, answer); ok {
					payload.CustomValues = append(payload.CustomValues, op)
				}
			case BlockTypeTriggerLink:
				if op, ok := buildLinkOp(block, answer); ok {
					payload.TriggerLinks = append(payload.TriggerLinks, op)
				}
			case BlockTypeTag:
				if op, ok := buildTagOp(block, answer); ok {
					payload.Tags = append(payload.Tags, op)
				}
			case BlockTypeMedia:
				payload.Media = append(payload.Media, buildMediaOps(block, answer)...)
			}
		}
	}
	return payload
}

func lookupAnswer(responses map[string]PageResponse, pageID string, blockID string) BlockAnswer {
	if len(responses) == 0 {
		return BlockAnswer{}
	}
	response, ok := responses[pageID]
	if !ok || len(response.Answers) == 0 {
		return BlockAnswer{}
	}
	return response.Answers[blockID]
}

func buildFieldOp(block WizardBlock, answer BlockAnswer) FieldOp {
	mode := block.Mode
	if mode == "" {
		mode = BlockModeExisting
	}
	dataType := strings.TrimSpace(block.NewEntity.DataType)
	if dataType == "" {
		dataType = defaultFieldDataType
	}
	return FieldOp{
		BlockID:     block.ID,
		Mode:        mode,
		ReferenceID: strings.TrimSpace(block.ReferenceID),
		Config: FieldConfig{
			Name:        strings.TrimSpace(block.NewEntity.Name),
			DataType:    dataType,
			Placeholder: strings.TrimSpace(block.NewEntity.Placeholder),
			Options:     cloneStrings(block.NewEntity.Options),
		},
		Value: stringifyAnswer(answer.Value),
	}
}

func buildValueOp(block WizardBlock, answer BlockAnswer) (ValueOp, bool) {
	value := strings.TrimSpace(stringifyAnswer(answer.Value))
	if value == "" {
		return ValueOp{}, false
	}
	mode := block.Mode
	if mode == "" {
		mode = BlockModeExisting
	}
	return ValueOp{
		BlockID:     block.ID,
		Mode:        mode,
		ReferenceID: strings.TrimSpace(block.ReferenceID),
		Name:        strings.TrimSpace(block.NewEntity.Name),
		Value:       value,
	}, true
}

func buildLinkOp(block WizardBlock, answer BlockAnswer) (LinkOp, bool) {
	redirect := strings.TrimSpace(stringifyAnswer(answer.Value))
	if redirect == "" {
		redirect = strings.TrimSpace(block.NewEntity.RedirectTo)
	}
	if redirect == "" {
		return LinkOp{}, false
	}
	mode := block.Mode
	if mode == "" {
		mode = BlockModeExisting
	}
	return LinkOp{
		BlockID:     block.ID,
		Mode:        mode,
		ReferenceID: strings.TrimSpace(block.ReferenceID),
		Name:        strings.TrimSpace(block.NewEntity.Name),
		RedirectTo:  redirect,
	}, true
}

func buildTagOp(block WizardBlock, answer BlockAnswer) (TagOp, bool) {
	names := tagNames(answer.Value)
	if len(names) == 0 {
		return TagOp{}, false
	}
	return TagOp{
		BlockID: block.ID,
		Names:   names,
	}, true
}

func buildMediaOps(block WizardBlock, answer BlockAnswer) []MediaOp {
	if len(answer.Uploads) == 0 {
		return nil
	}
	ops := make([]MediaOp, 0, len(answer.Uploads))
	for _, upload := range answer.Uploads {
		storageKey := strings.TrimSpace(upload.StorageKey)
		if storageKey == "" {
			continue
		}
		ops = append(ops, MediaOp{
			BlockID:     block.ID,
			StorageKey:  storageKey,
			FileName:    strings.TrimSpace(upload.FileName),
			ContentType: strings.TrimSpace(upload.ContentType),
		})
	}
	return ops
}

// tagNames accepts a list or a comma-separated string, preserving
// order and duplicates but dropping blanks.
func tagNames(value any) []string {
	var raw []string
	switch typed := value.(type) {
	case nil:
		return nil
	case []string:
		raw = typed
	case []any:
		raw = make([]string, 0, len(typed))
		for _, item := range typed {
			raw = append(raw, stringifyAnswer(item))
		}
	default:
		raw = strings.Split(stringifyAnswer(typed), ",")
	}

	names := make([]string, 0, len(raw))
	for _, name := range raw {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		names = append(names, trimmed)
	}
	return names
}

func stringifyAnswer(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

package core

import (
	"context"
	"fmt"
	"io"

	glog "github.com/goliatone/go-logger/glog"
)

const skipReasonExistingField = "existing field operations not implemented"

// SyncExecutor walks an operation payload against the CRM, recording a
// diff entry per remote call. One Execute call is one batch attempt:
// except for tags, any failing operation aborts the batch and the
// partial diff is returned alongside the error so the retry wrapper
// can re-run the whole batch.
type SyncExecutor struct {
	files  FileStore
	logger Logger
}

func NewSyncExecutor(files FileStore, logger Logger) *SyncExecutor {
	return &SyncExecutor{
		files:  files,
		logger: glog.Ensure(logger),
	}
}

// Execute performs the payload's operations in category order
// fields, values, trigger links, tags, media.
func (e *SyncExecutor) Execute(ctx context.Context, client CRMClient, locationID string, payload SyncPayload) (Diff, error) {
	diff := Diff{
		Fields:       []DiffEntry{},
		Values:       []DiffEntry{},
		TriggerLinks: []DiffEntry{},
		Tags:         []DiffEntry{},
		Media:        []DiffEntry{},
	}
	if e == nil {
		return diff, fmt.Errorf("core: sync executor is nil")
	}
	if client == nil {
		return diff, fmt.Errorf("core: crm client is required")
	}

	if err := e.executeFields(ctx, client, locationID, payload.CustomFields, &diff); err != nil {
		return diff, err
	}
	if err := e.executeValues(ctx, client, locationID, payload.CustomValues, &diff); err != nil {
		return diff, err
	}
	if err := e.executeTriggerLinks(ctx, client, locationID, payload.TriggerLinks, &diff); err != nil {
		return diff, err
	}
	e.executeTags(ctx, client, locationID, payload.Tags, &diff)
	if err := e.executeMedia(ctx, client, payload.Media, &diff); err != nil {
		return diff, err
	}
	return diff, nil
}

func (e *SyncExecutor) executeFields(ctx context.Context, client CRMClient, locationID string, ops []FieldOp, diff *Diff) error {
	for _, op := range ops {
		if op.Mode != BlockModeCreate {
			diff.Fields = append(diff.Fields, DiffEntry{
				BlockID: op.BlockID,
				Skipped: true,
				Reason:  skipReasonExistingField,
			})
			continue
		}
		in := CustomFieldInput{
			Name:        op.Config.Name,
			DataType:    op.Config.DataType,
			Placeholder: op.Config.Placeholder,
			Options:     cloneStrings(op.Config.Options),
		}
		response, err := client.CreateCustomField(ctx, locationID, in)
		if err != nil {
			return err
		}
		diff.Fields = append(diff.Fields, DiffEntry{
			BlockID: op.BlockID,
			Request: map[string]any{
				"name":        in.Name,
				"dataType":    in.DataType,
				"placeholder": in.Placeholder,
				"options":     in.Options,
			},
			Response: response,
		})
	}
	return nil
}

func (e *SyncExecutor) executeValues(ctx context.Context, client CRMClient, locationID string, ops []ValueOp, diff *Diff) error {
	for _, op := range ops {
		in := CustomValueInput{Name: op.Name, Value: op.Value}
		request := map[string]any{"name": in.Name, "value": in.Value}

		if op.Mode == BlockModeCreate || op.ReferenceID == "" {
			response, err := client.CreateCustomValue(ctx, locationID, in)
			if err != nil {
				return err
			}
			diff.Values = append(diff.Values, DiffEntry{
				BlockID:  op.BlockID,
				Request:  request,
				Response: response,
			})
			continue
		}

		response, err := client.UpdateCustomValue(ctx, locationID, op.ReferenceID, in)
		if err == nil {
			diff.Values = append(diff.Values, DiffEntry{
				BlockID:  op.BlockID,
				Request:  request,
				Response: response,
			})
			continue
		}
		if !IsRemoteNotFound(err) {
			return err
		}

		// Referenced record is gone remotely; reconcile by creating.
		e.logger.Info("custom value reference missing remotely, falling back to create",
			"block_id", op.BlockID, "reference_id", op.ReferenceID)
		response, err = client.CreateCustomValue(ctx, locationID, in)
		if err != nil {
			return err
		}
		diff.Values = append(diff.Values, DiffEntry{
			BlockID:  op.BlockID,
			Request:  request,
			Response: response,
			Fallback: true,
		})
	}
	return nil
}

func (e *SyncExecutor) executeTriggerLinks(ctx context.Context, client CRMClient, locationID string, ops []LinkOp, diff *Diff) error {
	for _, op := range ops {
		in := TriggerLinkInput{
			LocationID: locationID,
			Name:       op.Name,
			RedirectTo: op.RedirectTo,
		}
		request := map[string]any{
			"locationId": in.LocationID,
			"name":       in.Name,
			"redirectTo": in.RedirectTo,
		}

		if op.Mode != BlockModeExisting || op.ReferenceID == "" {
			response, err := client.CreateTriggerLink(ctx, in)
			if err != nil {
				return err
			}
			diff.TriggerLinks = append(diff.TriggerLinks, DiffEntry{
				BlockID:  op.BlockID,
				Request:  request,
				Response: response,
			})
			continue
		}

		response, err := client.UpdateTriggerLink(ctx, op.ReferenceID, in)
		if err == nil {
			diff.TriggerLinks = append(diff.TriggerLinks, DiffEntry{
				BlockID:  op.BlockID,
				Request:  request,
				Response: response,
			})
			continue
		}
		if !IsRemoteNotFound(err) {
			return err
		}

		e.logger.Info("trigger link reference missing remotely, falling back to create",
			"block_id", op.BlockID, "reference_id", op.ReferenceID)
		response, err = client.CreateTriggerLink(ctx, in)
		if err != nil {
			return err
		}
		diff.TriggerLinks = append(diff.TriggerLinks, DiffEntry{
			BlockID:  op.BlockID,
			Request:  request,
			Response: response,
			Fallback: true,
		})
	}
	return nil
}

// executeTags is the only category with per-item error isolation: a
// failed name is recorded in the diff and the remaining names still
// run.
func (e *SyncExecutor) executeTags(ctx context.Context, client CRMClient, locationID string, ops []TagOp, diff *Diff) {
	for _, op := range ops {
		for _, name := range op.Names {
			entry := DiffEntry{
				BlockID: op.BlockID,
				Name:    name,
				Request: map[string]any{"name": name},
			}
			response, err := client.CreateTag(ctx, locationID, name)
			if err != nil {
				e.logger.Warn("tag create failed", "block_id", op.BlockID, "tag", name, "error", err)
				entry.Error = err.Error()
			} else {
				entry.Response = response
			}
			diff.Tags = append(diff.Tags, entry)
		}
	}
}

func (e *SyncExecutor) executeMedia(ctx context.Context, client CRMClient, ops []MediaOp, diff *Diff) error {
	for _, op := range ops {
		if e.files == nil {
			return fmt.Errorf("core: file store is required for media sync")
		}
		body, err := e.downloadFile(ctx, op.StorageKey)
		if err != nil {
			return fmt.Errorf("core: download media %q: %w", op.StorageKey, err)
		}
		response, err := client.UploadMedia(ctx, MediaUploadInput{
			FileName:    op.FileName,
			ContentType: op.ContentType,
			Body:        body,
		})
		if err != nil {
			return err
		}
		diff.Media = append(diff.Media, DiffEntry{
			BlockID: op.BlockID,
			Request: map[string]any{
				"storage_key":  op.StorageKey,
				"file_name":    op.FileName,
				"content_type": op.ContentType,
				"size_bytes":   len(body),
			},
			Response: response,
		})
	}
	return nil
}

func (e *SyncExecutor) downloadFile(ctx context.Context, storageKey string) ([]byte, error) {
	reader, err := e.files.Download(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

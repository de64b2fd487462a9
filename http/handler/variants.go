package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/imagekit/errors"
	"github.com/leeforge/imagekit/http/binding"
	"github.com/leeforge/imagekit/http/responder"
	"github.com/leeforge/imagekit/logging"
	"github.com/leeforge/imagekit/media/processor"
	"github.com/leeforge/imagekit/media/queue"
)

// VariantsQuery /v1/variants 的查询参数；presets 为空时生成全部预设
type VariantsQuery struct {
	Presets []string `query:"presets" validate:"max=8,dive,required"`
	Format  string   `query:"format" validate:"omitempty,alphanum,max=8"`
}

// VariantsResponse 一次变体生成的结果
type VariantsResponse struct {
	ID       string          `json:"id"`
	Folder   string          `json:"folder"`
	Format   string          `json:"format"`
	Variants []VariantResult `json:"variants"`
}

// VariantResult 单个变体的结果，失败时只有 Name 和 Error
type VariantResult struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Key    string `json:"key,omitempty"`
	Size   int64  `json:"size,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) generateVariants(w http.ResponseWriter, r *http.Request) {
	if h.variants == nil {
		responder.ServiceUnavailable(w, r, "variant generation is not configured", took(r))
		return
	}

	var query VariantsQuery
	if err := binding.Query(r, &query); err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = h.cfg.DefaultFormat
	}
	if _, err := h.transformer.Codecs().Lookup(format); err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}
	names := query.Presets
	if len(names) == 0 {
		names = processor.PresetNames()
	}
	variants, err := queue.PresetVariants(format, names...)
	if err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}

	body, err := binding.Body(r)
	if err != nil {
		responder.Fail(w, r, err, took(r))
		return
	}

	id := uuid.NewString()
	folder := "variants/" + id
	jobs := make([]queue.VariantJob, 0, len(variants))
	for _, v := range variants {
		jobs = append(jobs, queue.VariantJob{Source: body, Variant: v, Folder: folder})
	}

	ctx := r.Context()
	if h.cfg.VariantTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.VariantTimeout)
		defer cancel()
	}

	results, err := queue.NewBatchProcessor(h.variants).ProcessBatch(ctx, jobs)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.NewTimeout("variant generation timed out").WithDetail("id", id)
		}
		responder.Fail(w, r, err, took(r))
		return
	}

	resp := VariantsResponse{ID: id, Folder: folder, Format: format, Variants: make([]VariantResult, 0, len(results))}
	var firstErr error
	for _, res := range results {
		if !res.Success {
			failure := res.Error
			if failure == nil {
				failure = errors.NewInternal("variant failed")
			}
			if firstErr == nil {
				firstErr = failure
			}
			resp.Variants = append(resp.Variants, VariantResult{Name: res.Variant, Error: failure.Error()})
			continue
		}
		resp.Variants = append(resp.Variants, VariantResult{
			Name:   res.Variant,
			URL:    res.URL,
			Key:    res.Key,
			Size:   res.Size,
			Width:  res.Width,
			Height: res.Height,
		})
	}

	if firstErr != nil {
		logging.FromContext(ctx).Warn("variants.failed", zap.String("id", id), zap.Error(firstErr))
		if allFailed(resp.Variants) {
			responder.Fail(w, r, firstErr, took(r))
			return
		}
	}
	responder.Created(w, r, resp, took(r))
}

func allFailed(results []VariantResult) bool {
	for _, v := range results {
		if v.Error == "" {
			return false
		}
	}
	return true
}

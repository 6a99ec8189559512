package repository

import (
	"context"
	"fmt"
	"iter"

	"github.com/okian/autolabel/internal/domain/model"
)

// Assets returns a lazy, finite sequence over every asset matching filter.
// Each range over the sequence restarts from the first page. A query error
// is yielded once and ends the sequence. A cursor the store already issued,
// the empty start cursor included, ends it with ErrCursorStalled.
func Assets(ctx context.Context, store Store, filter Filter, pageSize int) iter.Seq2[model.Asset, error] {
	return func(yield func(model.Asset, error) bool) {
		if pageSize < 1 {
			yield(model.Asset{}, fmt.Errorf("%w: %d", ErrInvalidLimit, pageSize))
			return
		}

		last := ""
		issued := map[string]struct{}{last: {}}
		for {
			if err := ctx.Err(); err != nil {
				yield(model.Asset{}, err)
				return
			}

			page, err := store.Query(ctx, filter, last, pageSize)
			if err != nil {
				yield(model.Asset{}, err)
				return
			}
			if len(page.Items) == 0 {
				return
			}

			for _, asset := range page.Items {
				if !yield(asset, nil) {
					return
				}
			}

			if _, seen := issued[page.Last]; seen {
				yield(model.Asset{}, fmt.Errorf("%w: %q", ErrCursorStalled, page.Last))
				return
			}
			issued[page.Last] = struct{}{}
			last = page.Last
		}
	}
}
